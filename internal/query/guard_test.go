package query

import (
	"errors"
	"testing"
)

func TestAuthorizeAcceptsSelect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "SELECT 1", want: "SELECT 1"},
		{in: "  select * from Student\n", want: "select * from Student"},
		{in: "Select\tF_Name FROM Student", want: "Select\tF_Name FROM Student"},
		{in: "```sql\nSELECT TrackName FROM Track\n```", want: "SELECT TrackName FROM Track"},
		{in: "```\nselect 1\n```", want: "select 1"},
		{in: "select*from Track", want: "select*from Track"},
		{in: "SELECT(1)", want: "SELECT(1)"},
		{in: "select", want: "select"},
		{in: "SELECT[TrackName] FROM Track", want: "SELECT[TrackName] FROM Track"},
		{in: `SELECT"x" FROM t`, want: `SELECT"x" FROM t`},
		{in: "select`TrackName` from Track", want: "select`TrackName` from Track"},
		{in: "SELECT'45'", want: "SELECT'45'"},
	}
	for _, tc := range tests {
		got, err := Authorize(tc.in)
		if err != nil {
			t.Fatalf("Authorize(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Authorize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAuthorizeRejectsEverythingElse(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"DELETE FROM Student",
		"insert into Student values (1)",
		"UPDATE Exam_Result SET Score = 100",
		"DROP TABLE Student",
		"alter table Student add x int",
		"WITH t AS (SELECT 1) SELECT * FROM t",
		"selectivity_report",
		"select_into_backup",
		"select1",
		"-- comment\nSELECT 1",
		"```sql\nDELETE FROM Student\n```",
		"EXEC sp_who",
	}
	for _, in := range tests {
		got, err := Authorize(in)
		if !errors.Is(err, ErrUnsafeQuery) {
			t.Fatalf("Authorize(%q) = %q, %v; want ErrUnsafeQuery", in, got, err)
		}
		if got != "" {
			t.Fatalf("Authorize(%q) returned %q on rejection", in, got)
		}
	}
}

func TestAuthorizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT 1",
		"```sql\n  SELECT a, b FROM t  \n```",
		"\n\tselect * from Exam```",
		"DELETE FROM t",
		"```\n```",
	}
	for _, in := range inputs {
		first, firstErr := Authorize(in)
		if firstErr != nil {
			continue
		}
		second, secondErr := Authorize(first)
		if secondErr != nil || second != first {
			t.Fatalf("Authorize(Authorize(%q)) = %q, %v; want %q", in, second, secondErr, first)
		}
	}
}
