// Package query defines the read-only execution contract between the chat
// pipeline and the relational database.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrUnsafeQuery = errors.New("only SELECT statements are allowed")

type Request struct {
	SQL string
}

// ResultSet is a fully materialized result. Every row has exactly
// len(Columns) values in projection order.
type ResultSet struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (ResultSet, error)
}

// ExecutionError wraps any failure reported by the database while running
// an authorized statement. The message is the database's own text.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

func (r ResultSet) RowCount() int { return len(r.Rows) }

func (r ResultSet) Records() []Record {
	return r.Preview(len(r.Rows))
}

// Preview returns up to n leading rows as records.
func (r ResultSet) Preview(n int) []Record {
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	if n < 0 {
		n = 0
	}
	records := make([]Record, n)
	for i := 0; i < n; i++ {
		records[i] = Record{columns: r.Columns, values: r.Rows[i]}
	}
	return records
}

func (r ResultSet) HasColumn(name string) bool {
	for _, column := range r.Columns {
		if column == name {
			return true
		}
	}
	return false
}

// Record is one row keyed by column name. It marshals as a JSON object whose
// keys keep projection order.
type Record struct {
	columns []string
	values  []any
}

func (r Record) Get(column string) (any, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Record) Len() int { return len(r.columns) }

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UniqueColumns suffixes repeated names (Name, Name_2, Name_3) so a record
// view never loses a projected value.
func UniqueColumns(columns []string) []string {
	out := make([]string, len(columns))
	taken := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		taken[name] = struct{}{}
	}
	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		seen[name]++
		if seen[name] == 1 {
			out[i] = name
			continue
		}
		n := seen[name]
		candidate := name + "_" + strconv.Itoa(n)
		for {
			if _, clash := taken[candidate]; !clash {
				break
			}
			n++
			candidate = name + "_" + strconv.Itoa(n)
		}
		seen[name] = n
		taken[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}
