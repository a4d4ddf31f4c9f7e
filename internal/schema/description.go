// Package schema holds the static description of the target database that is
// injected into every query synthesis prompt.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

type Document struct {
	Dialect       string   `yaml:"dialect"`
	Tables        []Table  `yaml:"tables"`
	Relationships []string `yaml:"relationships,omitempty"`
	Hints         []string `yaml:"hints,omitempty"`
	Example       Example  `yaml:"example"`
}

type Table struct {
	Name        string   `yaml:"name" json:"name"`
	Columns     []string `yaml:"columns" json:"columns"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

type Example struct {
	Question string          `yaml:"question"`
	Response ExampleResponse `yaml:"response"`
}

// ExampleResponse mirrors the JSON object the synthesizer must produce.
type ExampleResponse struct {
	SQLQuery             string `yaml:"sql_query" json:"sql_query"`
	VisualizationRequest string `yaml:"visualization_request" json:"visualization_request"`
}

// Description is immutable after construction and safe for concurrent use.
type Description struct {
	doc  Document
	text string
}

func Parse(data []byte) (*Description, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}
	return New(doc)
}

// New validates doc and keeps a private copy of it.
func New(doc Document) (*Description, error) {
	doc = copyDocument(doc)
	doc.Dialect = strings.TrimSpace(doc.Dialect)
	if doc.Dialect == "" {
		return nil, fmt.Errorf("schema dialect is required")
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema must list at least one table")
	}
	seen := make(map[string]struct{}, len(doc.Tables))
	for i, table := range doc.Tables {
		name := strings.TrimSpace(table.Name)
		if name == "" {
			return nil, fmt.Errorf("table %d has no name", i)
		}
		if len(table.Columns) == 0 {
			return nil, fmt.Errorf("table %q has no columns", name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("table %q listed twice", name)
		}
		seen[key] = struct{}{}
		doc.Tables[i].Name = name
	}
	if strings.TrimSpace(doc.Example.Question) == "" || strings.TrimSpace(doc.Example.Response.SQLQuery) == "" {
		return nil, fmt.Errorf("schema example needs a question and a sql_query")
	}
	return &Description{doc: doc, text: render(doc)}, nil
}

// Default returns the built-in examination system description.
func Default() *Description {
	description, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded schema is invalid: %v", err))
	}
	return description
}

// WithDialect returns a copy labelled with a different dialect. An empty
// dialect returns d unchanged.
func (d *Description) WithDialect(dialect string) *Description {
	dialect = strings.TrimSpace(dialect)
	if dialect == "" || dialect == d.doc.Dialect {
		return d
	}
	doc := d.doc
	doc.Dialect = dialect
	return &Description{doc: doc, text: render(doc)}
}

func (d *Description) Dialect() string { return d.doc.Dialect }

func (d *Description) Example() Example { return d.doc.Example }

func (d *Description) Tables() []Table { return copyTables(d.doc.Tables) }

func copyDocument(doc Document) Document {
	doc.Tables = copyTables(doc.Tables)
	doc.Relationships = append([]string(nil), doc.Relationships...)
	doc.Hints = append([]string(nil), doc.Hints...)
	return doc
}

func copyTables(tables []Table) []Table {
	out := make([]Table, len(tables))
	for i, table := range tables {
		out[i] = Table{
			Name:        table.Name,
			Columns:     append([]string(nil), table.Columns...),
			Description: table.Description,
		}
	}
	return out
}

func (d *Description) PromptText() string { return d.text }

func (d *Description) Marshal() ([]byte, error) {
	return yaml.Marshal(d.doc)
}

func render(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target database: %s\n\nTables and columns:\n", doc.Dialect)
	for _, table := range doc.Tables {
		fmt.Fprintf(&b, "- %s(%s)", table.Name, strings.Join(table.Columns, ", "))
		if table.Description != "" {
			fmt.Fprintf(&b, " -- %s", table.Description)
		}
		b.WriteByte('\n')
	}
	if len(doc.Relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range doc.Relationships {
			fmt.Fprintf(&b, "- %s\n", rel)
		}
	}
	if len(doc.Hints) > 0 {
		b.WriteString("\nWhen users ask questions like:\n")
		for _, hint := range doc.Hints {
			fmt.Fprintf(&b, "- %s\n", hint)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
