// Package posegraph holds the planar pose graph together with the pieces that linearize it: edge
// residuals, their analytic Jacobians, the assembled normal equations and the linear solve.
package posegraph

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/spatialmath"
)

// An Edge is a relative pose observation of vertex To as seen from vertex From, weighted by a 3x3
// information matrix over (x, y, theta).
type Edge struct {
	From        int
	To          int
	Measurement spatialmath.Pose2D
	Information *mat.SymDense
}

// NewEdge returns an edge. A nil information matrix is replaced by the identity.
func NewEdge(from, to int, measurement spatialmath.Pose2D, information *mat.SymDense) Edge {
	if information == nil {
		information = IdentityInformation()
	}
	return Edge{From: from, To: to, Measurement: measurement, Information: information}
}

// IdentityInformation returns a fresh 3x3 identity information matrix.
func IdentityInformation() *mat.SymDense {
	return DiagonalInformation(1, 1, 1)
}

// DiagonalInformation returns an information matrix with independent x, y and theta weights.
func DiagonalInformation(x, y, theta float64) *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		x, 0, 0,
		0, y, 0,
		0, 0, theta,
	})
}

// A Graph is a set of poses and the relative observations between them. Vertices are indexed by
// position and vertex 0 is the anchor that fixes the gauge.
type Graph struct {
	Vertices []spatialmath.Pose2D
	Edges    []Edge
}

// AddVertex appends a vertex and returns its index.
func (g *Graph) AddVertex(p spatialmath.Pose2D) int {
	g.Vertices = append(g.Vertices, p)
	return len(g.Vertices) - 1
}

// AddEdge appends an edge. It is not checked until Validate.
func (g *Graph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
}

// Clone returns a copy whose vertices can be modified independently. Edges are copied by value
// and share their information matrices, which are never written.
func (g *Graph) Clone() *Graph {
	return &Graph{
		Vertices: append([]spatialmath.Pose2D(nil), g.Vertices...),
		Edges:    append([]Edge(nil), g.Edges...),
	}
}

// Validate checks the graph's structural invariants and reports every violation at once.
func (g *Graph) Validate() error {
	var problems []error
	if len(g.Vertices) == 0 {
		problems = append(problems, errNoVertices)
	}
	for i, v := range g.Vertices {
		if !v.IsFinite() {
			problems = append(problems, newVertexProblem(i, "has non-finite pose %v", v))
		}
	}
	for k, e := range g.Edges {
		problems = append(problems, validateEdge(k, e, len(g.Vertices))...)
	}
	if len(problems) == 0 {
		return nil
	}
	return &InvalidGraphError{Problems: problems}
}

func validateEdge(k int, e Edge, numVertices int) []error {
	var problems []error
	if e.From < 0 || e.From >= numVertices {
		problems = append(problems, newEdgeProblem(k, "from vertex %d out of range [0, %d)", e.From, numVertices))
	}
	if e.To < 0 || e.To >= numVertices {
		problems = append(problems, newEdgeProblem(k, "to vertex %d out of range [0, %d)", e.To, numVertices))
	}
	if !e.Measurement.IsFinite() {
		problems = append(problems, newEdgeProblem(k, "has non-finite measurement %v", e.Measurement))
	}
	if e.Information == nil {
		return append(problems, newEdgeProblem(k, "has no information matrix"))
	}
	if n := e.Information.SymmetricDim(); n != 3 {
		return append(problems, newEdgeProblem(k, "information matrix is %dx%d, want 3x3", n, n))
	}
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			v := e.Information.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return append(problems, newEdgeProblem(k, "information matrix has non-finite entry at (%d, %d)", r, c))
			}
		}
	}
	if !isPositiveSemidefinite(e.Information) {
		problems = append(problems, newEdgeProblem(k, "information matrix is not positive semidefinite"))
	}
	return problems
}

func isPositiveSemidefinite(m *mat.SymDense) bool {
	var eig mat.EigenSym
	if !eig.Factorize(m, false) {
		return false
	}
	values := eig.Values(nil)
	largest := 0.0
	for _, v := range values {
		largest = math.Max(largest, math.Abs(v))
	}
	tol := 1e-12 * math.Max(1, largest)
	for _, v := range values {
		if v < -tol {
			return false
		}
	}
	return true
}
