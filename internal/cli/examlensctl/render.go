package examlensctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/examlens/examlens/internal/export"
)

type chatEnvelope struct {
	Type        string           `json:"type"`
	Explanation string           `json:"explanation"`
	Error       string           `json:"error"`
	VizType     string           `json:"viz_type"`
	X           string           `json:"x"`
	Y           string           `json:"y"`
	Agg         *string          `json:"agg"`
	Data        []map[string]any `json:"data"`
	Columns     []string         `json:"columns"`
	RowCount    int              `json:"row_count"`
}

func decodeEnvelope(raw []byte) (chatEnvelope, error) {
	var envelope chatEnvelope
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&envelope); err != nil {
		return chatEnvelope{}, err
	}
	if envelope.Type == "" {
		return chatEnvelope{}, fmt.Errorf("response has no envelope type")
	}
	return envelope, nil
}

// rows orders each record by Columns.
func (e chatEnvelope) rows() [][]any {
	out := make([][]any, 0, len(e.Data))
	for _, record := range e.Data {
		row := make([]any, len(e.Columns))
		for i, column := range e.Columns {
			row[i] = record[column]
		}
		out = append(out, row)
	}
	return out
}

func (e chatEnvelope) writeParquet(w io.Writer) error {
	return export.WriteParquet(w, e.Columns, e.rows())
}

func renderEnvelope(e chatEnvelope) (string, error) {
	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint(e.Explanation))
	b.WriteString("\n\n")

	if len(e.Columns) > 0 {
		data := pterm.TableData{e.Columns}
		for _, row := range e.rows() {
			cells := make([]string, len(row))
			for i, value := range row {
				cells[i] = formatCell(value)
			}
			data = append(data, cells)
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return "", err
		}
		b.WriteString(table)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d row(s)", e.RowCount)
	if e.Type == "visualization" {
		agg := "none"
		if e.Agg != nil {
			agg = *e.Agg
		}
		fmt.Fprintf(&b, "\nchart: %s x=%s y=%s agg=%s", e.VizType, e.X, e.Y, agg)
	}
	return b.String(), nil
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprint(value)
}
