// Package optimizer runs Gauss-Newton iterations over a pose graph until its iteration budget is
// spent or the linear system cannot be solved.
package optimizer

import (
	"context"
	"math"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/logging"
	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/sparse"
	rutils "go.viam.com/posegraph/utils"
)

// An Optimizer holds configuration only and can be reused across graphs. A single graph must not
// be optimized from two goroutines at once.
type Optimizer struct {
	cfg    Config
	logger logging.Logger
	clock  clock.Clock
	solver sparse.Solver
}

// An Option customizes an Optimizer.
type Option func(*Optimizer)

// WithClock sets the clock used to time iterations.
func WithClock(c clock.Clock) Option {
	return func(o *Optimizer) {
		o.clock = c
	}
}

// New returns an Optimizer for a validated config.
func New(cfg Config, logger logging.Logger, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate("optimizer"); err != nil {
		return nil, err
	}
	kind, solverOpts := cfg.solverOptions()
	solver, err := sparse.NewSolver(kind, solverOpts)
	if err != nil {
		return nil, err
	}
	o := &Optimizer{
		cfg:    cfg,
		logger: logger,
		clock:  clock.New(),
		solver: solver,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the optimizer's configuration.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Optimize improves the graph's vertices in place. The graph is validated before anything else
// and an invalid graph is returned as an error matching posegraph.ErrInvalidGraph with a nil
// Result.
//
// When an iteration cannot be solved the Result is still returned, in state Failed, along with
// a *posegraph.SingularSystemError; the graph then holds the vertices of the last successful
// iteration. The context is checked between iterations.
func (o *Optimizer) Optimize(ctx context.Context, g *posegraph.Graph) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		State:        Iterating,
		InitialError: posegraph.TotalError(g.Vertices, g.Edges),
	}
	o.logger.Infow("optimizing pose graph",
		"vertices", len(g.Vertices),
		"edges", len(g.Edges),
		"chi2", res.InitialError,
		"max_iterations", o.cfg.MaxIterations)

	var lastStep float64
	for iteration := 0; iteration < o.cfg.MaxIterations && !res.State.Terminal(); iteration++ {
		if err := ctx.Err(); err != nil {
			res.State = Failed
			o.finish(g, res)
			return res, err
		}
		report, err := o.Step(ctx, g, iteration)
		if err != nil {
			res.State = Failed
			o.finish(g, res)
			o.logger.Warnw("optimization failed", "iteration", iteration, "error", err)
			return res, err
		}
		res.Trace = append(res.Trace, report)
		res.Iterations = iteration + 1
		lastStep = report.MaxStep
		if o.cfg.StopEarly && lastStep <= o.cfg.StepTolerance {
			res.State = Converged
		}
	}
	if !res.State.Terminal() {
		if lastStep <= o.cfg.StepTolerance {
			res.State = Converged
		} else {
			res.State = Exhausted
		}
	}
	o.finish(g, res)
	o.logger.Infow("optimization finished",
		"state", res.State,
		"iterations", res.Iterations,
		"chi2", res.FinalError,
		"last_step", lastStep)
	return res, nil
}

func (o *Optimizer) finish(g *posegraph.Graph, res *Result) {
	res.Vertices = g.Clone().Vertices
	res.FinalError = posegraph.TotalError(g.Vertices, g.Edges)
	res.Stats = EdgeErrorStats(g)
}

// Step runs a single iteration on g: assemble the normal equations at the current vertices, solve
// them and add the increment to every vertex. On error the vertices are left untouched. A solver
// failure is returned as a *posegraph.SingularSystemError stamped with iteration and the
// vertices that have no path to the anchor. The graph is assumed valid.
func (o *Optimizer) Step(ctx context.Context, g *posegraph.Graph, iteration int) (IterationReport, error) {
	start := o.clock.Now()
	report := IterationReport{
		Iteration:   iteration,
		ErrorBefore: posegraph.TotalError(g.Vertices, g.Edges),
	}

	sys, err := o.assemble(ctx, g)
	if err != nil {
		return report, err
	}
	dx, err := posegraph.Solve(sys, o.solver)
	if err != nil {
		var serr *posegraph.SingularSystemError
		if errors.As(err, &serr) {
			serr.Iteration = iteration
			serr.Unanchored = posegraph.Unanchored(len(g.Vertices), g.Edges)
		}
		return report, err
	}

	report.MaxStep = mat.Norm(dx, math.Inf(1))
	report.MaxHeadingStep = o.apply(g, dx)
	report.ErrorAfter = posegraph.TotalError(g.Vertices, g.Edges)
	report.Duration = o.clock.Since(start)

	o.logger.CDebugw(ctx, "iteration",
		"iteration", iteration,
		"chi2_before", report.ErrorBefore,
		"chi2_after", report.ErrorAfter,
		"max_step", report.MaxStep,
		"max_heading_step_deg", rutils.RadToDeg(report.MaxHeadingStep),
		"nnz_blocks", sys.H.NNZBlocks(),
		"duration", report.Duration)
	return report, nil
}

func (o *Optimizer) assemble(ctx context.Context, g *posegraph.Graph) (*posegraph.LinearSystem, error) {
	if o.cfg.ParallelAssembly {
		return posegraph.AssembleParallel(ctx, g.Vertices, g.Edges)
	}
	return posegraph.Assemble(g.Vertices, g.Edges), nil
}

// apply adds dx to the vertices componentwise, clamping and wrapping headings when configured.
// It returns the largest heading change applied.
func (o *Optimizer) apply(g *posegraph.Graph, dx *mat.VecDense) float64 {
	var maxHeading float64
	for i := range g.Vertices {
		dtheta := dx.AtVec(posegraph.BlockSize*i + 2)
		if limit := o.cfg.MaxHeadingStep; limit > 0 {
			dtheta = math.Max(-limit, math.Min(limit, dtheta))
		}
		maxHeading = math.Max(maxHeading, math.Abs(dtheta))
		v := g.Vertices[i].Add(dx.AtVec(posegraph.BlockSize*i), dx.AtVec(posegraph.BlockSize*i+1), dtheta)
		if o.cfg.NormalizeHeadings {
			v = v.Normalized()
		}
		g.Vertices[i] = v
	}
	return maxHeading
}
