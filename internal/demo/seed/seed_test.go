package seed

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/schema"
	"github.com/examlens/examlens/internal/storage"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	a := NewGenerator(42, 20).Tables()
	b := NewGenerator(42, 20).Tables()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different datasets")
	}
	c := NewGenerator(43, 20).Tables()
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical datasets")
	}
}

func TestGeneratorRowsMatchColumns(t *testing.T) {
	for _, table := range NewGenerator(7, 15).Tables() {
		if len(table.Rows) == 0 {
			t.Fatalf("table %s has no rows", table.Name)
		}
		for i, row := range table.Rows {
			if len(row) != len(table.Columns) {
				t.Fatalf("%s row %d has %d values for %d columns", table.Name, i, len(row), len(table.Columns))
			}
		}
	}
}

func TestLoadCreatesQueryableDatabase(t *testing.T) {
	db := openMemory(t)
	tables := NewGenerator(45, 30).Tables()
	if err := Load(context.Background(), db, tables); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var students int
	if err := db.QueryRow(`SELECT COUNT(*) FROM Student`).Scan(&students); err != nil {
		t.Fatalf("count students: %v", err)
	}
	if students != 30 {
		t.Fatalf("students = %d, want 30", students)
	}

	var intake int
	err := db.QueryRow(`SELECT i.IntakeNumber FROM Student s JOIN Intake i ON s.IntakeID = i.IntakeID WHERE s.F_Name = 'Ahmed' AND s.L_Name = 'Ali' AND s.StudentID = 1`).Scan(&intake)
	if err != nil {
		t.Fatalf("lookup Ahmed Ali: %v", err)
	}
	if intake != 45 {
		t.Fatalf("intake = %d, want 45", intake)
	}

	description, err := Describe(tables)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	rows, err := db.Query(description.Example().Response.SQLQuery)
	if err != nil {
		t.Fatalf("example query failed: %v", err)
	}
	hasRow := rows.Next()
	if err := rows.Err(); err != nil {
		t.Fatalf("example query rows: %v", err)
	}
	// The pool holds one connection, so the cursor must be released before reloading.
	_ = rows.Close()
	if !hasRow {
		t.Fatal("example query returned no rows")
	}

	// Loading twice replaces the data instead of duplicating it.
	if err := Load(context.Background(), db, tables); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM Student`).Scan(&students); err != nil || students != 30 {
		t.Fatalf("students after reload = %d err=%v", students, err)
	}
}

func TestLoadRejectsRaggedRows(t *testing.T) {
	db := openMemory(t)
	err := Load(context.Background(), db, []Table{{
		Name:    "Broken",
		Columns: cols("A:INTEGER", "B:TEXT"),
		Rows:    [][]any{{1}},
	}})
	if err == nil || !strings.Contains(err.Error(), "Broken row 0") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestDescribeListsGeneratedTables(t *testing.T) {
	tables := NewGenerator(1, 5).Tables()
	description, err := Describe(tables)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if description.Dialect() != "SQLite" {
		t.Fatalf("Dialect() = %q", description.Dialect())
	}
	described := description.Tables()
	if len(described) != len(tables) {
		t.Fatalf("described %d tables, want %d", len(described), len(tables))
	}
	for i, table := range tables {
		if described[i].Name != table.Name || !reflect.DeepEqual(described[i].Columns, table.ColumnNames()) {
			t.Fatalf("table %d = %+v", i, described[i])
		}
	}
	if !strings.Contains(description.PromptText(), "Target database: SQLite") {
		t.Fatalf("prompt text = %q", description.PromptText())
	}
}

func TestPublishUploadsYAML(t *testing.T) {
	description, err := Describe(NewGenerator(1, 5).Tables())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	publisher := &fakePublisher{}
	info, err := Publish(context.Background(), publisher, "schemas/demo.yaml", description, observability.DiscardLogger())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if info.Key != "schemas/demo.yaml" || publisher.contentType != "application/yaml" {
		t.Fatalf("info=%+v contentType=%q", info, publisher.contentType)
	}
	parsed, err := schema.Parse(publisher.body)
	if err != nil {
		t.Fatalf("published body does not parse: %v", err)
	}
	if parsed.PromptText() != description.PromptText() {
		t.Fatal("published schema differs from source")
	}

	if _, err := Publish(context.Background(), publisher, " ", description, nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	failing := &fakePublisher{err: errors.New("bucket gone")}
	if _, err := Publish(context.Background(), failing, "k", description, nil); err == nil {
		t.Fatal("expected publisher error")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"EXAMLENS_DEMO_DB_PATH":       "/tmp/demo.db",
		"EXAMLENS_DEMO_SCHEMA_OBJECT": "schemas/demo.yaml",
		"EXAMLENS_DEMO_STUDENTS":      "12",
		"EXAMLENS_DEMO_SEED":          "9",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.DatabasePath != "/tmp/demo.db" || cfg.SchemaObjectKey != "schemas/demo.yaml" || cfg.Students != 12 || cfg.Seed != 9 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SchemaFile != "examlens-demo-schema.yaml" {
		t.Fatalf("SchemaFile = %q", cfg.SchemaFile)
	}

	for _, env := range []map[string]string{
		{"EXAMLENS_DEMO_STUDENTS": "0"},
		{"EXAMLENS_DEMO_STUDENTS": "many"},
		{"EXAMLENS_DEMO_SEED": "x"},
		{"EXAMLENS_DEMO_DB_PATH": " "},
	} {
		if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
			t.Fatalf("expected error for %#v", env)
		}
	}
}

type fakePublisher struct {
	body        []byte
	contentType string
	err         error
}

func (f *fakePublisher) Put(_ context.Context, key string, body []byte, contentType string) (storage.ObjectInfo, error) {
	if f.err != nil {
		return storage.ObjectInfo{}, f.err
	}
	f.body = append([]byte(nil), body...)
	f.contentType = contentType
	return storage.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: contentType}, nil
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
