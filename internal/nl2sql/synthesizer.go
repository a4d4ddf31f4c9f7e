// Package nl2sql turns a user question into a SQL statement and an optional
// visualization request with a single language-model call.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/schema"
)

const CallSite = "synthesize"

var ErrEmptyQuestion = errors.New("question is required")

type Request struct {
	Question string `json:"user_question"`
}

type Result struct {
	SQLQuery             string `json:"sql_query"`
	VisualizationRequest string `json:"visualization_request"`
}

// wireResult distinguishes a missing sql_query from an empty one.
type wireResult struct {
	SQLQuery             *string `json:"sql_query"`
	VisualizationRequest *string `json:"visualization_request"`
}

type Options struct {
	MaxTokens int
	Logger    *slog.Logger
}

type Synthesizer struct {
	completer   llm.Completer
	description *schema.Description
	system      string
	maxTokens   int
	logger      *slog.Logger
}

func NewSynthesizer(completer llm.Completer, description *schema.Description, opts Options) (*Synthesizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if description == nil {
		return nil, fmt.Errorf("schema description is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Synthesizer{
		completer:   completer,
		description: description,
		system:      buildSystemPrompt(description),
		maxTokens:   maxTokens,
		logger:      logger,
	}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}
	turns, err := buildTurns(s.description, question)
	if err != nil {
		return Result{}, err
	}

	completion, err := s.completer.Complete(ctx, llm.Request{
		CallSite:    CallSite,
		System:      s.system,
		Turns:       turns,
		Temperature: 0,
		MaxTokens:   s.maxTokens,
		Stop:        stopSequences,
	})
	if err != nil {
		return Result{}, err
	}

	parsed := llm.Parse[wireResult](completion.Text)
	if !parsed.OK() {
		return Result{}, s.malformed(ctx, parsed.Raw, parsed.Err)
	}
	if parsed.Value.SQLQuery == nil || strings.TrimSpace(*parsed.Value.SQLQuery) == "" {
		return Result{}, s.malformed(ctx, parsed.Raw, errors.New("sql_query is missing or empty"))
	}

	result := Result{SQLQuery: strings.TrimSpace(*parsed.Value.SQLQuery)}
	if parsed.Value.VisualizationRequest != nil {
		result.VisualizationRequest = strings.TrimSpace(*parsed.Value.VisualizationRequest)
	}
	s.logger.DebugContext(ctx, "query synthesized",
		append(observability.RequestAttrs(ctx),
			"sql", result.SQLQuery,
			"visualization_requested", result.VisualizationRequest != "",
		)...,
	)
	return result, nil
}

func (s *Synthesizer) malformed(ctx context.Context, raw string, cause error) error {
	s.logger.WarnContext(ctx, "synthesizer output rejected",
		append(observability.RequestAttrs(ctx), "error", cause.Error(), "raw", raw)...,
	)
	return &llm.MalformedOutputError{Stage: CallSite, Raw: raw, Err: cause}
}
