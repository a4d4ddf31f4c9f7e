package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/nl2sql"
	"github.com/examlens/examlens/internal/query"
	"github.com/examlens/examlens/internal/viz"
)

func TestAssembleWithoutDescriptor(t *testing.T) {
	rs := query.ResultSet{Columns: []string{"IntakeNumber"}, Rows: [][]any{{int64(45)}}}
	raw, err := json.Marshal(Assemble(rs, nil, "One intake."))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"query_response","explanation":"One intake.","data":[{"IntakeNumber":45}],"columns":["IntakeNumber"],"row_count":1}`
	if string(raw) != want {
		t.Fatalf("envelope = %s, want %s", raw, want)
	}
}

func TestAssembleWithDescriptor(t *testing.T) {
	agg := viz.AggSum
	rs := query.ResultSet{Columns: []string{"CourseName", "Students"}, Rows: [][]any{{"SQL", int64(12)}}}
	envelope := Assemble(rs, &viz.Descriptor{ChartType: viz.ChartBar, X: "CourseName", Y: "Students", Aggregation: &agg}, "SQL is popular.")
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"visualization","viz_type":"bar","x":"CourseName","y":"Students","agg":"sum","data":[{"CourseName":"SQL","Students":12}],"explanation":"SQL is popular.","columns":["CourseName","Students"],"row_count":1}`
	if string(raw) != want {
		t.Fatalf("envelope = %s, want %s", raw, want)
	}
}

func TestAssembleEmptyResultKeepsArrays(t *testing.T) {
	raw, err := json.Marshal(Assemble(query.ResultSet{}, nil, "Nothing matched."))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"query_response","explanation":"Nothing matched.","data":[],"columns":[],"row_count":0}`
	if string(raw) != want {
		t.Fatalf("envelope = %s", raw)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	raw, err := json.Marshal(ErrorEnvelope(KindUnsafeQuery, "only SELECT statements are allowed"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `{"type":"error","error":"only SELECT statements are allowed"}` {
		t.Fatalf("envelope = %s", raw)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: KindNone},
		{err: nl2sql.ErrEmptyQuestion, want: KindInvalidRequest},
		{err: query.ErrUnsafeQuery, want: KindUnsafeQuery},
		{err: &llm.MalformedOutputError{Stage: "synthesize", Err: errors.New("bad")}, want: KindMalformedOutput},
		{err: fmt.Errorf("wrapped: %w", &query.ExecutionError{Err: errors.New("syntax")}), want: KindQueryExecution},
		{err: &llm.UnavailableError{Err: errors.New("down")}, want: KindModelUnavailable},
		{err: errors.New("surprise"), want: KindInternal},
	}
	for _, tc := range tests {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
