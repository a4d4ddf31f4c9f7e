// Package viz decides whether a result set should be charted and how.
package viz

import "strings"

type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartHistogram ChartType = "histogram"
)

type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggCount Aggregation = "count"
	AggNone  Aggregation = "none"
)

// Descriptor is only ever constructed with X and Y drawn from the result
// columns it describes.
type Descriptor struct {
	ChartType   ChartType
	X           string
	Y           string
	Aggregation *Aggregation
}

func parseChartType(raw string) (ChartType, bool) {
	switch chart := ChartType(strings.ToLower(strings.TrimSpace(raw))); chart {
	case ChartBar, ChartLine, ChartScatter, ChartPie, ChartHistogram:
		return chart, true
	default:
		return "", false
	}
}

func parseAggregation(raw string) *Aggregation {
	var agg Aggregation
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sum":
		agg = AggSum
	case "mean", "avg", "average":
		agg = AggMean
	case "count":
		agg = AggCount
	case "none":
		agg = AggNone
	default:
		return nil
	}
	return &agg
}
