// Package viz renders trajectories to image files.
package viz

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/posegraph/spatialmath"
)

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 8 * vg.Inch
)

// A Trajectory is a named sequence of poses drawn as one line.
type Trajectory struct {
	Name  string
	Poses []spatialmath.Pose2D
}

// NewTrajectoryPlot returns a plot with one line per trajectory, in order.
func NewTrajectoryPlot(title string, trajectories ...Trajectory) (*plot.Plot, error) {
	if len(trajectories) == 0 {
		return nil, errors.New("no trajectories to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	lines := make([]interface{}, 0, 2*len(trajectories))
	for _, traj := range trajectories {
		if len(traj.Poses) == 0 {
			return nil, errors.Errorf("trajectory %q has no poses", traj.Name)
		}
		pts := make(plotter.XYs, len(traj.Poses))
		for i, pose := range traj.Poses {
			pt := pose.Point()
			pts[i].X = pt.X
			pts[i].Y = pt.Y
		}
		lines = append(lines, traj.Name, pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveTrajectories plots the trajectories and saves the image to path. The format follows the
// file extension (png, svg, pdf, ...).
func SaveTrajectories(path, title string, trajectories ...Trajectory) error {
	p, err := NewTrajectoryPlot(title, trajectories...)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(DefaultWidth, DefaultHeight, path), "saving plot to %q", path)
}
