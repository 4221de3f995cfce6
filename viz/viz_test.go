package viz

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posegraph/spatialmath"
)

func TestSaveTrajectories(t *testing.T) {
	truth := Trajectory{Name: "truth", Poses: []spatialmath.Pose2D{
		spatialmath.NewPose2D(0, 0, 0),
		spatialmath.NewPose2D(1, 0, 0),
		spatialmath.NewPose2D(1, 1, 1.57),
	}}
	guess := Trajectory{Name: "odometry", Poses: []spatialmath.Pose2D{
		spatialmath.NewPose2D(0, 0, 0),
		spatialmath.NewPose2D(1.1, 0.1, 0),
		spatialmath.NewPose2D(0.9, 1.2, 1.4),
	}}

	p, err := NewTrajectoryPlot("loop", truth, guess)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Title.Text, test.ShouldEqual, "loop")
	test.That(t, p.X.Min, test.ShouldBeLessThanOrEqualTo, 0)
	test.That(t, p.X.Max, test.ShouldBeGreaterThanOrEqualTo, 1.1)

	path := filepath.Join(t.TempDir(), "loop.png")
	test.That(t, SaveTrajectories(path, "loop", truth, guess), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestSaveTrajectoriesErrors(t *testing.T) {
	dir := t.TempDir()
	err := SaveTrajectories(filepath.Join(dir, "none.png"), "none")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no trajectories")

	err = SaveTrajectories(filepath.Join(dir, "empty.png"), "empty", Trajectory{Name: "empty"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"empty" has no poses`)

	one := Trajectory{Name: "one", Poses: []spatialmath.Pose2D{spatialmath.NewZeroPose2D()}}
	err = SaveTrajectories(filepath.Join(dir, "plot.unknown"), "bad", one)
	test.That(t, err, test.ShouldNotBeNil)
}
