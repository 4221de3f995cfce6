// Package simulate generates synthetic pose graphs: a robot driving laps of a circle with noisy
// odometry, plus loop closures whenever it revisits a pose from an earlier lap.
package simulate

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/spatialmath"
	"go.viam.com/posegraph/utils"
)

// Config describes a scenario.
type Config struct {
	// PosesPerLap is the number of poses recorded on one lap of the circle.
	PosesPerLap int     `json:"poses_per_lap"`
	Laps        int     `json:"laps"`
	Radius      float64 `json:"radius"`
	// TranslationSigma and HeadingSigmaDeg are the standard deviations of the odometry noise
	// and also set the edges' information matrices.
	TranslationSigma float64 `json:"translation_sigma"`
	HeadingSigmaDeg  float64 `json:"heading_sigma_deg"`
	// ClosureScale multiplies both sigmas for loop-closure edges. Zero means 1.
	ClosureScale float64 `json:"closure_scale"`
	Seed         uint64  `json:"seed"`
}

// DefaultConfig is a two lap, forty pose per lap scenario.
func DefaultConfig() Config {
	return Config{
		PosesPerLap:      40,
		Laps:             2,
		Radius:           10,
		TranslationSigma: 0.05,
		HeadingSigmaDeg:  1,
		ClosureScale:     1,
		Seed:             1,
	}
}

// Validate reports every problem with the config.
func (c *Config) Validate() error {
	var errs error
	if c.PosesPerLap < 3 {
		errs = multierr.Append(errs, errors.Errorf("poses_per_lap must be at least 3, got %d", c.PosesPerLap))
	}
	if c.Laps < 1 {
		errs = multierr.Append(errs, errors.Errorf("laps must be at least 1, got %d", c.Laps))
	}
	if c.Radius <= 0 {
		errs = multierr.Append(errs, errors.Errorf("radius must be positive, got %g", c.Radius))
	}
	if c.TranslationSigma <= 0 || c.HeadingSigmaDeg <= 0 {
		errs = multierr.Append(errs, errors.New("noise sigmas must be positive"))
	}
	if c.ClosureScale < 0 {
		errs = multierr.Append(errs, errors.Errorf("closure_scale must not be negative, got %g", c.ClosureScale))
	}
	return errs
}

// A Scenario pairs a graph with the trajectory it was generated from. The graph's vertices are the
// dead reckoned odometry, not the truth.
type Scenario struct {
	Truth []spatialmath.Pose2D
	Graph *posegraph.Graph
}

type noise struct {
	translation, heading distuv.Normal
}

func newNoise(src rand.Source, translationSigma, headingSigma float64) noise {
	return noise{
		translation: distuv.Normal{Mu: 0, Sigma: translationSigma, Src: src},
		heading:     distuv.Normal{Mu: 0, Sigma: headingSigma, Src: src},
	}
}

func (n noise) perturb(p spatialmath.Pose2D) spatialmath.Pose2D {
	return p.Add(n.translation.Rand(), n.translation.Rand(), n.heading.Rand())
}

// Generate builds a scenario. Equal configs generate equal scenarios.
func Generate(cfg Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	closureScale := cfg.ClosureScale
	if closureScale == 0 {
		closureScale = 1
	}
	headingSigma := utils.DegToRad(cfg.HeadingSigmaDeg)

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	odometryNoise := newNoise(src, cfg.TranslationSigma, headingSigma)
	closureNoise := newNoise(src, cfg.TranslationSigma*closureScale, headingSigma*closureScale)
	odometryInfo := posegraph.DiagonalInformation(
		1/utils.Square(cfg.TranslationSigma), 1/utils.Square(cfg.TranslationSigma), 1/utils.Square(headingSigma))
	closureInfo := posegraph.DiagonalInformation(
		1/utils.Square(cfg.TranslationSigma*closureScale),
		1/utils.Square(cfg.TranslationSigma*closureScale),
		1/utils.Square(headingSigma*closureScale))

	n := cfg.PosesPerLap * cfg.Laps
	truth := make([]spatialmath.Pose2D, n)
	for k := range truth {
		truth[k] = lapPose(cfg.Radius, k, cfg.PosesPerLap)
	}

	g := &posegraph.Graph{}
	g.AddVertex(truth[0])
	for k := 0; k+1 < n; k++ {
		z := odometryNoise.perturb(spatialmath.Between(truth[k], truth[k+1]))
		g.AddEdge(posegraph.NewEdge(k, k+1, z, odometryInfo))
		g.AddVertex(spatialmath.Compose(g.Vertices[k], z))
	}
	for k := cfg.PosesPerLap; k < n; k++ {
		earlier := k - cfg.PosesPerLap
		z := closureNoise.perturb(spatialmath.Between(truth[earlier], truth[k]))
		g.AddEdge(posegraph.NewEdge(earlier, k, z, closureInfo))
	}
	return &Scenario{Truth: truth, Graph: g}, nil
}

// lapPose is the k-th pose on a counterclockwise circle starting at the origin facing +x.
func lapPose(radius float64, k, perLap int) spatialmath.Pose2D {
	angle := 2 * math.Pi * float64(k) / float64(perLap)
	return spatialmath.NewPose2D(
		radius*math.Sin(angle),
		radius*(1-math.Cos(angle)),
		spatialmath.NormalizeAngle(angle),
	)
}
