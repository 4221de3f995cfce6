package posegraph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrInvalidGraph is matched by every error returned from Graph.Validate.
	ErrInvalidGraph = errors.New("invalid pose graph")
	// ErrSingularSystem is matched by every SingularSystemError.
	ErrSingularSystem = errors.New("linear system is singular")

	errNoVertices = errors.New("graph has no vertices")
)

// InvalidGraphError lists every structural problem found in a graph.
type InvalidGraphError struct {
	Problems []error
}

func (e *InvalidGraphError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidGraph, multierr.Combine(e.Problems...))
}

// Unwrap allows errors.Is(err, ErrInvalidGraph).
func (e *InvalidGraphError) Unwrap() error {
	return ErrInvalidGraph
}

func newVertexProblem(i int, format string, args ...interface{}) error {
	return errors.Errorf("vertex %d "+format, append([]interface{}{i}, args...)...)
}

func newEdgeProblem(k int, format string, args ...interface{}) error {
	return errors.Errorf("edge %d "+format, append([]interface{}{k}, args...)...)
}

// SingularSystemError reports a normal equation system that could not be solved. Vertex is the
// vertex whose block broke the factorization, or -1 when the solver could not tell. Unanchored
// lists vertices with no path of edges to the anchor vertex, the usual cause.
type SingularSystemError struct {
	Iteration  int
	Vertex     int
	Unanchored []int
	Err        error
}

func (e *SingularSystemError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at iteration %d", ErrSingularSystem, e.Iteration)
	if e.Vertex >= 0 {
		fmt.Fprintf(&sb, " near vertex %d", e.Vertex)
	}
	if len(e.Unanchored) > 0 {
		fmt.Fprintf(&sb, "; vertices not connected to the anchor: %v", e.Unanchored)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap exposes both ErrSingularSystem and the solver's own error.
func (e *SingularSystemError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSingularSystem}
	}
	return []error{ErrSingularSystem, e.Err}
}
