package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/examlens/examlens/internal/query"
	"github.com/examlens/examlens/internal/viz"
)

type EnvelopeType string

const (
	TypeQueryResponse EnvelopeType = "query_response"
	TypeVisualization EnvelopeType = "visualization"
	TypeError         EnvelopeType = "error"
)

// Envelope is the single response of a chat run. Success envelopes carry
// the full result; error envelopes carry only the message.
type Envelope struct {
	Type          EnvelopeType
	Explanation   string
	Columns       []string
	Records       []query.Record
	RowCount      int
	Visualization *viz.Descriptor

	Error string
	Kind  ErrorKind
	RunID string
}

// Assemble builds a success envelope. descriptor may be nil.
func Assemble(result query.ResultSet, descriptor *viz.Descriptor, explanation string) Envelope {
	envelope := Envelope{
		Type:        TypeQueryResponse,
		Explanation: explanation,
		Columns:     append([]string{}, result.Columns...),
		Records:     result.Records(),
		RowCount:    result.RowCount(),
	}
	if descriptor != nil {
		copied := *descriptor
		envelope.Type = TypeVisualization
		envelope.Visualization = &copied
	}
	return envelope
}

func ErrorEnvelope(kind ErrorKind, message string) Envelope {
	return Envelope{Type: TypeError, Kind: kind, Error: message}
}

func (e Envelope) IsError() bool { return e.Type == TypeError }

type queryResponseJSON struct {
	Type        EnvelopeType   `json:"type"`
	Explanation string         `json:"explanation"`
	Data        []query.Record `json:"data"`
	Columns     []string       `json:"columns"`
	RowCount    int            `json:"row_count"`
}

type visualizationJSON struct {
	Type        EnvelopeType     `json:"type"`
	VizType     viz.ChartType    `json:"viz_type"`
	X           string           `json:"x"`
	Y           string           `json:"y"`
	Agg         *viz.Aggregation `json:"agg"`
	Data        []query.Record   `json:"data"`
	Explanation string           `json:"explanation"`
	Columns     []string         `json:"columns"`
	RowCount    int              `json:"row_count"`
}

type errorJSON struct {
	Type  EnvelopeType `json:"type"`
	Error string       `json:"error"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	data := e.Records
	if data == nil {
		data = []query.Record{}
	}
	columns := e.Columns
	if columns == nil {
		columns = []string{}
	}
	switch e.Type {
	case TypeQueryResponse:
		return json.Marshal(queryResponseJSON{
			Type:        e.Type,
			Explanation: e.Explanation,
			Data:        data,
			Columns:     columns,
			RowCount:    e.RowCount,
		})
	case TypeVisualization:
		if e.Visualization == nil {
			return nil, fmt.Errorf("visualization envelope without descriptor")
		}
		return json.Marshal(visualizationJSON{
			Type:        e.Type,
			VizType:     e.Visualization.ChartType,
			X:           e.Visualization.X,
			Y:           e.Visualization.Y,
			Agg:         e.Visualization.Aggregation,
			Data:        data,
			Explanation: e.Explanation,
			Columns:     columns,
			RowCount:    e.RowCount,
		})
	case TypeError:
		return json.Marshal(errorJSON{Type: e.Type, Error: e.Error})
	default:
		return nil, fmt.Errorf("unknown envelope type %q", e.Type)
	}
}
