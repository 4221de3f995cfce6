// Package main optimizes a pose graph read from a g2o file, or a simulated one, and writes the
// result as g2o and as a trajectory plot.
package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/posegraph/g2o"
	"go.viam.com/posegraph/logging"
	"go.viam.com/posegraph/optimizer"
	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/simulate"
	"go.viam.com/posegraph/spatialmath"
	rutils "go.viam.com/posegraph/utils"
	"go.viam.com/posegraph/viz"
)

var logger = logging.NewLogger("posegraph")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Input      string `flag:"0,usage=g2o file to optimize"`
	Output     string `flag:"output,usage=write the optimized graph to this g2o file"`
	Config     string `flag:"config,usage=optimizer config JSON file"`
	Iterations int    `flag:"iterations,usage=override the configured iteration budget"`
	Plot       string `flag:"plot,usage=write a trajectory plot to this file (png svg or pdf)"`
	Simulate   int    `flag:"simulate,usage=optimize a simulated loop with this many poses per lap"`
	Laps       int    `flag:"laps,default=2,usage=laps driven by --simulate"`
	Seed       int    `flag:"seed,default=1,usage=random seed for --simulate"`
	LogFile    string `flag:"log-file,usage=also write logs to this rotated file"`
	LogLevel   string `flag:"log-level,usage=minimum level to log: debug info warn or error"`
	Debug      bool   `flag:"debug,usage=log at debug level and trace every iteration"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.LogFile != "" {
		logFile := &lumberjack.Logger{
			Filename:   argsParsed.LogFile,
			MaxSize:    16,
			MaxBackups: 2,
		}
		defer utils.UncheckedErrorFunc(logFile.Close)
		logger.AddAppender(logging.NewWriterAppender(logFile))
		defer utils.UncheckedErrorFunc(logger.Sync)
	}
	if argsParsed.LogLevel != "" {
		level, err := logging.LevelFromString(argsParsed.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
		ctx = logging.EnableDebugMode(ctx, "")
	}

	cfg := optimizer.DefaultConfig()
	if argsParsed.Config != "" {
		var err error
		if cfg, err = optimizer.LoadConfig(argsParsed.Config); err != nil {
			return err
		}
	}
	if argsParsed.Iterations != 0 {
		cfg.MaxIterations = argsParsed.Iterations
	}

	g, truth, err := loadGraph(argsParsed, logger)
	if err != nil {
		return err
	}
	return runOptimization(ctx, argsParsed, cfg, g, truth, logger)
}

func loadGraph(args Arguments, logger logging.Logger) (*posegraph.Graph, []spatialmath.Pose2D, error) {
	switch {
	case args.Simulate > 0 && args.Input != "":
		return nil, nil, errors.New("give either an input file or --simulate, not both")
	case args.Simulate > 0:
		simCfg := simulate.DefaultConfig()
		simCfg.PosesPerLap = args.Simulate
		simCfg.Laps = args.Laps
		if args.Seed < 0 {
			return nil, nil, errors.Errorf("seed must not be negative, got %d", args.Seed)
		}
		simCfg.Seed = uint64(args.Seed)
		scenario, err := simulate.Generate(simCfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("simulated scenario", "poses", len(scenario.Truth), "edges", len(scenario.Graph.Edges))
		return scenario.Graph, scenario.Truth, nil
	case args.Input != "":
		g, err := g2o.ReadFile(args.Input, logger)
		return g, nil, err
	default:
		return nil, nil, errors.New("need an input g2o file or --simulate")
	}
}

func runOptimization(
	ctx context.Context,
	args Arguments,
	cfg optimizer.Config,
	g *posegraph.Graph,
	truth []spatialmath.Pose2D,
	logger logging.Logger,
) error {
	opt, err := optimizer.New(cfg, logger.Sublogger("optimizer"))
	if err != nil {
		return err
	}
	initial := g.Clone()
	res, optErr := opt.Optimize(ctx, g)
	if res == nil {
		return optErr
	}
	logger.Infow("result",
		"state", res.State,
		"iterations", res.Iterations,
		"initial_chi2", res.InitialError,
		"final_chi2", res.FinalError,
		"edge_chi2_median", res.Stats.Median,
		"edge_chi2_p95", res.Stats.P95,
		"edge_chi2_max", res.Stats.Max)
	logger.Debugf("iterations:\n%s", res)

	var outputs []rutils.SimpleFunc
	if args.Output != "" {
		outputs = append(outputs, func(context.Context) error {
			return g2o.WriteFile(args.Output, g)
		})
	}
	if args.Plot != "" {
		trajectories := []viz.Trajectory{
			{Name: "initial", Poses: initial.Vertices},
			{Name: "optimized", Poses: res.Vertices},
		}
		if truth != nil {
			trajectories = append(trajectories, viz.Trajectory{Name: "truth", Poses: truth})
		}
		outputs = append(outputs, func(context.Context) error {
			return viz.SaveTrajectories(args.Plot, "pose graph: "+res.State.String(), trajectories...)
		})
	}
	_, outErr := rutils.RunInParallel(ctx, outputs)
	return multierr.Combine(optErr, outErr)
}
