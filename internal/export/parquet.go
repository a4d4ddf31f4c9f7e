// Package export writes chat results to files for offline analysis.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ColumnsMetadataKey holds the JSON list of columns in projection order.
// Parquet groups store fields sorted by name.
const ColumnsMetadataKey = "examlens.columns"

// WriteParquet writes rows as a single row group. Every column is an
// optional UTF-8 string; nil values stay NULL.
func WriteParquet(w io.Writer, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	group := make(parquet.Group, len(columns))
	for _, column := range columns {
		if _, dup := group[column]; dup {
			return fmt.Errorf("duplicate column %q", column)
		}
		group[column] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	// Map projection position to leaf column index.
	leafIndex := make([]int, len(columns))
	for i, column := range columns {
		leaf, ok := schema.Lookup(column)
		if !ok {
			return fmt.Errorf("column %q missing from schema", column)
		}
		leafIndex[i] = leaf.ColumnIndex
	}
	order := make([]int, len(columns))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return leafIndex[order[a]] < leafIndex[order[b]] })

	projection, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("marshal column order: %w", err)
	}
	writer := parquet.NewWriter(w, schema, parquet.KeyValueMetadata(ColumnsMetadataKey, string(projection)))

	batch := make([]parquet.Row, 0, len(rows))
	for r, values := range rows {
		if len(values) != len(columns) {
			return fmt.Errorf("row %d has %d values, want %d", r, len(values), len(columns))
		}
		row := make(parquet.Row, 0, len(columns))
		for _, position := range order {
			index := leafIndex[position]
			text, ok := stringify(values[position])
			if !ok {
				row = append(row, parquet.NullValue().Level(0, 0, index))
				continue
			}
			row = append(row, parquet.ByteArrayValue([]byte(text)).Level(0, 1, index))
		}
		batch = append(batch, row)
	}
	if _, err := writer.WriteRows(batch); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func stringify(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		return typed, true
	case []byte:
		return string(typed), true
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case json.Number:
		return typed.String(), true
	default:
		return fmt.Sprint(typed), true
	}
}
