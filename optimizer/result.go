package optimizer

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"

	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/spatialmath"
	rutils "go.viam.com/posegraph/utils"
)

// IterationReport describes one linearize, solve and update cycle.
type IterationReport struct {
	Iteration   int     `json:"iteration"`
	ErrorBefore float64 `json:"error_before"`
	ErrorAfter  float64 `json:"error_after"`
	MaxStep     float64 `json:"max_step"`

	// MaxHeadingStep is the largest heading change applied to any vertex, in radians.
	MaxHeadingStep float64       `json:"max_heading_step"`
	Duration       time.Duration `json:"duration"`
}

// ErrorStats summarizes the per-edge weighted squared errors.
type ErrorStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Result is the outcome of Optimize. Vertices is a copy of the graph's vertices when the run
// stopped; after a failure these are the vertices of the last successful iteration.
type Result struct {
	Vertices     []spatialmath.Pose2D `json:"vertices"`
	State        State                `json:"state"`
	Iterations   int                  `json:"iterations"`
	InitialError float64              `json:"initial_error"`
	FinalError   float64              `json:"final_error"`
	Trace        []IterationReport    `json:"trace"`
	Stats        ErrorStats           `json:"stats"`
}

// String prints a table of the iteration trace followed by the final state.
func (r *Result) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Error Before", "Error After", "Max Step", "Max Heading Step", "Duration"})
	for _, it := range r.Trace {
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", it.Iteration),
			fmt.Sprintf("%.6g", it.ErrorBefore),
			fmt.Sprintf("%.6g", it.ErrorAfter),
			fmt.Sprintf("%.3g", it.MaxStep),
			fmt.Sprintf("%.3g°", rutils.RadToDeg(it.MaxHeadingStep)),
			it.Duration.String(),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%.6g", r.FinalError), "", "", r.State.String()})
	return t.Render()
}

// EdgeErrorStats computes ErrorStats for the graph at its current vertices. A graph without edges
// yields the zero ErrorStats.
func EdgeErrorStats(g *posegraph.Graph) ErrorStats {
	errs := posegraph.EdgeErrors(g.Vertices, g.Edges)
	if len(errs) == 0 {
		return ErrorStats{}
	}
	data := stats.LoadRawData(errs)
	out := ErrorStats{Count: len(errs)}
	// stats only fails on empty input
	out.Mean, _ = data.Mean()
	out.Median, _ = data.Median()
	out.P95, _ = data.Percentile(95)
	out.Max, _ = data.Max()
	return out
}
