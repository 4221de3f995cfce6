package posegraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Unanchored returns, in ascending order, the vertices that no chain of edges connects to vertex
// 0. Their blocks of the normal equations are rank deficient. Edges with out of range endpoints
// are ignored.
func Unanchored(numVertices int, edges []Edge) []int {
	if numVertices == 0 {
		return nil
	}
	g := simple.NewUndirectedGraph()
	for i := 0; i < numVertices; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		if e.From == e.To || e.From < 0 || e.To < 0 || e.From >= numVertices || e.To >= numVertices {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
	}

	var out []int
	for _, component := range topo.ConnectedComponents(g) {
		anchored := false
		for _, n := range component {
			if n.ID() == 0 {
				anchored = true
				break
			}
		}
		if anchored {
			continue
		}
		for _, n := range component {
			out = append(out, int(n.ID()))
		}
	}
	sort.Ints(out)
	return out
}
