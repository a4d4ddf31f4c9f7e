package llm

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "SELECT 1", want: "SELECT 1"},
		{in: "  SELECT 1 \n", want: "SELECT 1"},
		{in: "```sql\nSELECT 1;\n```", want: "SELECT 1;"},
		{in: "```SQL\nSELECT 1\n```", want: "SELECT 1"},
		{in: "```\nSELECT 1\n```", want: "SELECT 1"},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```json{\"a\":1}```", want: `{"a":1}`},
		{in: "```select 1```", want: "select 1"},
	}
	for _, tc := range tests {
		if got := StripFences(tc.in); got != tc.want {
			t.Fatalf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type sample struct {
	SQL string `json:"sql_query"`
}

func TestParseDecodesFencedJSON(t *testing.T) {
	got := Parse[sample]("```json\n{\"sql_query\": \"SELECT 1\"}\n```")
	if !got.OK() {
		t.Fatalf("Parse() error = %v", got.Err)
	}
	if got.Value.SQL != "SELECT 1" {
		t.Fatalf("Value = %+v", got.Value)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"not json",
		`{"sql_query": "SELECT 1"} trailing`,
		`{"sql_query": 5}`,
		`{"sql_query": "SELECT 1"`,
	}
	for _, raw := range tests {
		got := Parse[sample](raw)
		if got.OK() {
			t.Fatalf("Parse(%q) expected failure, got %+v", raw, got.Value)
		}
		if got.Raw != raw {
			t.Fatalf("Raw = %q, want %q", got.Raw, raw)
		}
	}
}
