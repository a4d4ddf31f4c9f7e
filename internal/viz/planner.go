package viz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/observability"
)

const CallSite = "plan"

// Suppression reasons, used as metric labels.
const (
	reasonUnparseable   = "unparseable"
	reasonDeclined      = "declined"
	reasonChartType     = "unknown_chart_type"
	reasonColumnMissing = "column_mismatch"
)

type Request struct {
	Question             string
	VisualizationRequest string
	Columns              []string
}

type Options struct {
	MaxTokens int
	Logger    *slog.Logger
}

type Planner struct {
	completer llm.Completer
	maxTokens int
	logger    *slog.Logger
}

type plan struct {
	IsViz     bool   `json:"is_viz"`
	ChartType string `json:"chart_type"`
	X         string `json:"x"`
	Y         string `json:"y"`
	Agg       string `json:"agg"`
}

func NewPlanner(completer llm.Completer, opts Options) (*Planner, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Planner{completer: completer, maxTokens: maxTokens, logger: logger}, nil
}

// Plan returns ok=false whenever the chart cannot be trusted. Only a
// provider failure is returned as an error.
func (p *Planner) Plan(ctx context.Context, req Request) (Descriptor, bool, error) {
	if strings.TrimSpace(req.VisualizationRequest) == "" {
		return Descriptor{}, false, nil
	}

	columnsJSON, err := json.Marshal(req.Columns)
	if err != nil {
		return Descriptor{}, false, fmt.Errorf("marshal columns: %w", err)
	}
	completion, err := p.completer.Complete(ctx, llm.Request{
		CallSite: CallSite,
		System:   "You analyze whether a request asks for a data visualization and map it onto the available columns.",
		Turns: []llm.Message{{
			Role:    llm.RoleUser,
			Content: buildPrompt(req, string(columnsJSON)),
		}},
		Temperature: 0,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return Descriptor{}, false, err
	}

	parsed := llm.Parse[plan](completion.Text)
	if !parsed.OK() {
		p.suppress(ctx, reasonUnparseable, "raw", parsed.Raw, "error", parsed.Err.Error())
		return Descriptor{}, false, nil
	}
	candidate := parsed.Value
	if !candidate.IsViz {
		p.suppress(ctx, reasonDeclined)
		return Descriptor{}, false, nil
	}
	chart, ok := parseChartType(candidate.ChartType)
	if !ok {
		p.suppress(ctx, reasonChartType, "chart_type", candidate.ChartType)
		return Descriptor{}, false, nil
	}
	if !slices.Contains(req.Columns, candidate.X) || !slices.Contains(req.Columns, candidate.Y) {
		p.suppress(ctx, reasonColumnMissing, "x", candidate.X, "y", candidate.Y, "columns", req.Columns)
		return Descriptor{}, false, nil
	}

	descriptor := Descriptor{
		ChartType:   chart,
		X:           candidate.X,
		Y:           candidate.Y,
		Aggregation: parseAggregation(candidate.Agg),
	}
	p.logger.DebugContext(ctx, "visualization planned",
		append(observability.RequestAttrs(ctx), "chart_type", string(chart), "x", descriptor.X, "y", descriptor.Y)...,
	)
	return descriptor, true, nil
}

func (p *Planner) suppress(ctx context.Context, reason string, attrs ...any) {
	observability.IncrementVisualizationSuppressed(reason)
	fields := append(observability.RequestAttrs(ctx), "reason", reason)
	p.logger.InfoContext(ctx, "visualization suppressed", append(fields, attrs...)...)
}

func buildPrompt(req Request, columnsJSON string) string {
	return fmt.Sprintf(`You are analyzing a database visualization request for an examination system.

Available columns from the query: %[1]s

Common column mappings:
- Track name is "TrackName"
- Course name is "CourseName"
- Student name combines "F_Name" and "L_Name"
- Exam scores are in "Score" or "Percentage"
- Dates appear as "ExamDate", "StartDate", "EndDate", etc.
- Counts often use "StudentID", "ExamID", etc.
- Ratings appear as "Rating"
- Financial data in "Salary", "Cost"

Determine if this is a visualization request. If yes, specify:
1. Chart type (bar, line, scatter, pie, histogram)
2. X-axis column (must exactly match one from available columns)
3. Y-axis column (must exactly match one from available columns)
4. Any grouping/aggregation needed (sum, mean, count, none)

Return strict JSON only: {"is_viz": true/false, "chart_type": "", "x": "", "y": "", "agg": ""}
If columns don't match exactly, return {"is_viz": false}

User question: %[2]s
Visualization request: %[3]s
Available columns: %[1]s`, columnsJSON, strings.TrimSpace(req.Question), strings.TrimSpace(req.VisualizationRequest))
}
