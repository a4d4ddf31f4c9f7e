// Package narrate asks the language model for a short plain-language summary
// of a query result.
package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/query"
)

const CallSite = "narrate"

type Request struct {
	Question  string
	Columns   []string
	Preview   []query.Record
	TotalRows int
}

type Options struct {
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

type Narrator struct {
	completer   llm.Completer
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func NewNarrator(completer llm.Completer, opts Options) (*Narrator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Narrator{completer: completer, maxTokens: maxTokens, temperature: opts.Temperature, logger: logger}, nil
}

func (n *Narrator) Narrate(ctx context.Context, req Request) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}
	completion, err := n.completer.Complete(ctx, llm.Request{
		CallSite:    CallSite,
		System:      "You are a helpful database assistant.",
		Turns:       []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
	})
	if err != nil {
		return "", err
	}
	explanation := strings.TrimSpace(completion.Text)
	if explanation == "" {
		n.logger.WarnContext(ctx, "narrator returned no text", observability.RequestAttrs(ctx)...)
		return "", &llm.MalformedOutputError{Stage: CallSite, Raw: completion.Text, Err: errors.New("empty explanation")}
	}
	return explanation, nil
}

func buildPrompt(req Request) (string, error) {
	columns, err := json.Marshal(req.Columns)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	preview := req.Preview
	if preview == nil {
		preview = []query.Record{}
	}
	previewJSON, err := json.Marshal(preview)
	if err != nil {
		return "", fmt.Errorf("marshal preview: %w", err)
	}
	return fmt.Sprintf(`Given this query result, provide a clear, natural language summary.
Question: %s
Columns: %s
Data preview: %s
Total rows: %d

Format your response in a professional but friendly tone.
Be concise and highlight key insights.
Don't mention the columns or data preview explicitly.
If there are no rows, say plainly that nothing matched.`,
		strings.TrimSpace(req.Question), columns, previewJSON, req.TotalRows), nil
}
