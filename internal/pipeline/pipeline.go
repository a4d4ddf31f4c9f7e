// Package pipeline runs one chat request end to end: synthesize, authorize,
// execute, plan and narrate, then assemble a single envelope.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/examlens/examlens/internal/narrate"
	"github.com/examlens/examlens/internal/nl2sql"
	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/query"
	"github.com/examlens/examlens/internal/viz"
)

const (
	stageSynthesize = "synthesize"
	stageAuthorize  = "authorize"
	stageExecute    = "execute"
	stagePlan       = "plan"
	stageNarrate    = "narrate"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, req nl2sql.Request) (nl2sql.Result, error)
}

type Planner interface {
	Plan(ctx context.Context, req viz.Request) (viz.Descriptor, bool, error)
}

type Narrator interface {
	Narrate(ctx context.Context, req narrate.Request) (string, error)
}

type Options struct {
	// Timeout bounds a whole run. Zero disables it.
	Timeout time.Duration
	// Concurrent runs Plan and Narrate in parallel once rows are available.
	Concurrent bool
	// RedactDBErrors replaces database error text with a generic message.
	RedactDBErrors bool
	PreviewRows    int
	Logger         *slog.Logger
}

type Pipeline struct {
	synthesizer Synthesizer
	engine      query.Engine
	planner     Planner
	narrator    Narrator
	opts        Options
	logger      *slog.Logger
}

func New(synthesizer Synthesizer, engine query.Engine, planner Planner, narrator Narrator, opts Options) (*Pipeline, error) {
	switch {
	case synthesizer == nil:
		return nil, fmt.Errorf("synthesizer is required")
	case engine == nil:
		return nil, fmt.Errorf("query engine is required")
	case planner == nil:
		return nil, fmt.Errorf("planner is required")
	case narrator == nil:
		return nil, fmt.Errorf("narrator is required")
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Pipeline{
		synthesizer: synthesizer,
		engine:      engine,
		planner:     planner,
		narrator:    narrator,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Run never returns a partial envelope: either every stage succeeded or the
// result is an error envelope.
func (p *Pipeline) Run(ctx context.Context, question string) Envelope {
	runID := uuid.NewString()
	ctx = observability.ContextWithRunID(ctx, runID)
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	envelope, err := p.run(ctx, question)
	if err != nil {
		kind := Classify(err)
		envelope = ErrorEnvelope(kind, message(kind, err, p.opts.RedactDBErrors))
		p.logger.WarnContext(ctx, "chat run failed",
			append(observability.RequestAttrs(ctx),
				"error_kind", string(kind),
				"error", err.Error(),
				"duration_ms", time.Since(started).Milliseconds(),
			)...,
		)
	} else {
		p.logger.InfoContext(ctx, "chat run completed",
			append(observability.RequestAttrs(ctx),
				"type", string(envelope.Type),
				"row_count", envelope.RowCount,
				"duration_ms", time.Since(started).Milliseconds(),
			)...,
		)
	}
	envelope.RunID = runID
	kindLabel := string(envelope.Kind)
	if kindLabel == "" {
		kindLabel = "none"
	}
	observability.ObservePipelineRun(string(envelope.Type), kindLabel)
	return envelope
}

func (p *Pipeline) run(ctx context.Context, question string) (Envelope, error) {
	var synthesized nl2sql.Result
	err := p.stage(stageSynthesize, func() error {
		var err error
		synthesized, err = p.synthesizer.Synthesize(ctx, nl2sql.Request{Question: question})
		return err
	})
	if err != nil {
		return Envelope{}, err
	}

	var statement string
	err = p.stage(stageAuthorize, func() error {
		var err error
		statement, err = query.Authorize(synthesized.SQLQuery)
		return err
	})
	if err != nil {
		observability.IncrementSafetyGateRejection()
		p.logger.WarnContext(ctx, "statement rejected by safety gate",
			append(observability.RequestAttrs(ctx), "sql", synthesized.SQLQuery)...,
		)
		return Envelope{}, err
	}

	var result query.ResultSet
	err = p.stage(stageExecute, func() error {
		var err error
		result, err = p.engine.Execute(ctx, query.Request{SQL: statement})
		return err
	})
	if err != nil {
		return Envelope{}, err
	}
	p.logger.DebugContext(ctx, "statement executed",
		append(observability.RequestAttrs(ctx),
			"sql", statement,
			"columns", len(result.Columns),
			"rows", result.RowCount(),
			"query_ms", result.Duration.Milliseconds(),
		)...,
	)

	planRequest := viz.Request{
		Question:             question,
		VisualizationRequest: synthesized.VisualizationRequest,
		Columns:              result.Columns,
	}
	narrateRequest := narrate.Request{
		Question:  question,
		Columns:   result.Columns,
		Preview:   result.Preview(p.opts.PreviewRows),
		TotalRows: result.RowCount(),
	}

	var (
		descriptor  viz.Descriptor
		hasChart    bool
		explanation string
	)
	planStage := func(ctx context.Context) error {
		return p.stage(stagePlan, func() error {
			var err error
			descriptor, hasChart, err = p.planner.Plan(ctx, planRequest)
			return err
		})
	}
	narrateStage := func(ctx context.Context) error {
		return p.stage(stageNarrate, func() error {
			var err error
			explanation, err = p.narrator.Narrate(ctx, narrateRequest)
			return err
		})
	}

	if p.opts.Concurrent {
		if err := runBoth(ctx, planStage, narrateStage); err != nil {
			return Envelope{}, err
		}
	} else {
		if err := planStage(ctx); err != nil {
			return Envelope{}, err
		}
		if err := narrateStage(ctx); err != nil {
			return Envelope{}, err
		}
	}

	var chart *viz.Descriptor
	if hasChart {
		chart = &descriptor
	}
	return Assemble(result, chart, explanation), nil
}

// runBoth runs first and second in parallel and reports errors in the same
// precedence as running them in order. A cancellation of first caused by a
// failure of second is attributed to second.
func runBoth(ctx context.Context, first, second func(context.Context) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	var firstErr, secondErr error
	group.Go(func() error {
		firstErr = first(groupCtx)
		return firstErr
	})
	group.Go(func() error {
		secondErr = second(groupCtx)
		return secondErr
	})
	_ = group.Wait()

	switch {
	case firstErr != nil && secondErr != nil && ctx.Err() == nil && errors.Is(firstErr, context.Canceled):
		return secondErr
	case firstErr != nil:
		return firstErr
	default:
		return secondErr
	}
}

func (p *Pipeline) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	observability.ObserveStage(name, err == nil, time.Since(started))
	return err
}
