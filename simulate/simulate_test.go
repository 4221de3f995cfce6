package simulate

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/spatialmath"
)

func TestGenerate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PosesPerLap = 12
	cfg.Laps = 3
	scenario, err := Generate(cfg)
	test.That(t, err, test.ShouldBeNil)

	g := scenario.Graph
	test.That(t, g.Validate(), test.ShouldBeNil)
	test.That(t, len(scenario.Truth), test.ShouldEqual, 36)
	test.That(t, len(g.Vertices), test.ShouldEqual, 36)
	// 35 odometry edges and one closure per pose after the first lap
	test.That(t, len(g.Edges), test.ShouldEqual, 35+24)
	test.That(t, posegraph.Unanchored(len(g.Vertices), g.Edges), test.ShouldBeEmpty)

	test.That(t, g.Vertices[0], test.ShouldResemble, spatialmath.NewZeroPose2D())
	quarter := scenario.Truth[3]
	test.That(t, spatialmath.PoseAlmostEqual(quarter, spatialmath.NewPose2D(10, 10, math.Pi/2), 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(scenario.Truth[12], scenario.Truth[0], 1e-9), test.ShouldBeTrue)

	// odometry is noisy but close
	for k := range g.Vertices[:12] {
		test.That(t, spatialmath.PoseAlmostEqual(g.Vertices[k], scenario.Truth[k], 1), test.ShouldBeTrue)
	}
	test.That(t, posegraph.TotalError(g.Vertices, g.Edges), test.ShouldBeGreaterThan, 0)
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	b, err := Generate(DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Graph.Vertices, test.ShouldResemble, b.Graph.Vertices)

	cfg := DefaultConfig()
	cfg.Seed = 99
	c, err := Generate(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Graph.Vertices, test.ShouldNotResemble, a.Graph.Vertices)
}

func TestGenerateInvalid(t *testing.T) {
	_, err := Generate(Config{PosesPerLap: 2, Radius: -1, ClosureScale: -1})
	test.That(t, err, test.ShouldNotBeNil)
	for _, snippet := range []string{"poses_per_lap", "laps", "radius", "sigmas", "closure_scale"} {
		test.That(t, err.Error(), test.ShouldContainSubstring, snippet)
	}
}
