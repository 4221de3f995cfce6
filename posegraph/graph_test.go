package posegraph

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/spatialmath"
)

// threeVertexGraph has exact measurements for the trajectory (0,0,0), (1,0,0), (1,1,pi/2) and a
// perturbed initial guess.
func threeVertexGraph() *Graph {
	truth := []spatialmath.Pose2D{
		spatialmath.NewPose2D(0, 0, 0),
		spatialmath.NewPose2D(1, 0, 0),
		spatialmath.NewPose2D(1, 1, math.Pi/2),
	}
	g := &Graph{}
	g.AddVertex(truth[0])
	g.AddVertex(spatialmath.NewPose2D(1.1, 0.1, 0.05))
	g.AddVertex(spatialmath.NewPose2D(0.9, 1.2, 1.4))
	g.AddEdge(NewEdge(0, 1, spatialmath.Between(truth[0], truth[1]), nil))
	g.AddEdge(NewEdge(1, 2, spatialmath.Between(truth[1], truth[2]), nil))
	g.AddEdge(NewEdge(0, 2, spatialmath.Between(truth[0], truth[2]), DiagonalInformation(2, 2, 4)))
	return g
}

func TestValidate(t *testing.T) {
	test.That(t, threeVertexGraph().Validate(), test.ShouldBeNil)

	t.Run("empty", func(t *testing.T) {
		err := (&Graph{}).Validate()
		test.That(t, errors.Is(err, ErrInvalidGraph), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no vertices")
	})

	t.Run("all problems reported", func(t *testing.T) {
		g := threeVertexGraph()
		g.Vertices[1].X = math.NaN()
		g.AddEdge(NewEdge(0, 3, spatialmath.NewZeroPose2D(), nil))
		g.AddEdge(Edge{From: -1, To: 1, Measurement: spatialmath.NewZeroPose2D()})
		g.AddEdge(NewEdge(1, 2, spatialmath.NewZeroPose2D(), mat.NewSymDense(2, nil)))
		g.AddEdge(NewEdge(1, 2, spatialmath.NewZeroPose2D(), DiagonalInformation(1, -1, 1)))
		g.AddEdge(NewEdge(1, 2, spatialmath.NewPose2D(math.Inf(1), 0, 0), nil))

		err := g.Validate()
		test.That(t, errors.Is(err, ErrInvalidGraph), test.ShouldBeTrue)
		var invalid *InvalidGraphError
		test.That(t, errors.As(err, &invalid), test.ShouldBeTrue)
		test.That(t, len(invalid.Problems), test.ShouldEqual, 7)
		for _, snippet := range []string{
			"vertex 1 has non-finite pose",
			"edge 3 to vertex 3 out of range",
			"edge 4 from vertex -1 out of range",
			"edge 4 has no information matrix",
			"edge 5 information matrix is 2x2",
			"edge 6 information matrix is not positive semidefinite",
			"edge 7 has non-finite measurement",
		} {
			test.That(t, err.Error(), test.ShouldContainSubstring, snippet)
		}
	})

	t.Run("semidefinite information is allowed", func(t *testing.T) {
		g := threeVertexGraph()
		g.Edges[0].Information = DiagonalInformation(1, 1, 0)
		test.That(t, g.Validate(), test.ShouldBeNil)
	})
}

func TestClone(t *testing.T) {
	g := threeVertexGraph()
	c := g.Clone()
	c.Vertices[1] = spatialmath.NewPose2D(5, 5, 5)
	test.That(t, g.Vertices[1], test.ShouldNotResemble, c.Vertices[1])
	test.That(t, len(c.Edges), test.ShouldEqual, len(g.Edges))
}

func TestUnanchored(t *testing.T) {
	g := threeVertexGraph()
	test.That(t, Unanchored(len(g.Vertices), g.Edges), test.ShouldBeEmpty)

	g.AddVertex(spatialmath.NewZeroPose2D())
	g.AddVertex(spatialmath.NewZeroPose2D())
	g.AddVertex(spatialmath.NewZeroPose2D())
	g.AddEdge(NewEdge(4, 5, spatialmath.NewZeroPose2D(), nil))
	g.AddEdge(NewEdge(3, 3, spatialmath.NewZeroPose2D(), nil))
	test.That(t, Unanchored(len(g.Vertices), g.Edges), test.ShouldResemble, []int{3, 4, 5})
	test.That(t, Unanchored(0, nil), test.ShouldBeNil)
}
