package main

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posegraph/g2o"
	"go.viam.com/posegraph/logging"
	"go.viam.com/posegraph/posegraph"
	"go.viam.com/posegraph/spatialmath"
)

const triangle = `VERTEX_SE2 0 0 0 0
VERTEX_SE2 1 1.2 -0.1 0.1
VERTEX_SE2 2 0.8 1.3 1.3
EDGE_SE2 0 1 1 0 0 1 0 0 1 0 1
EDGE_SE2 1 2 0 1 1.5707963267948966 1 0 0 1 0 1
EDGE_SE2 0 2 1 1 1.5707963267948966 1 0 0 1 0 1
`

func TestMainWithArgs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "triangle.g2o")
	test.That(t, os.WriteFile(input, []byte(triangle), 0o600), test.ShouldBeNil)
	configPath := filepath.Join(dir, "config.json")
	test.That(t, os.WriteFile(configPath, []byte(`{"solver": "auto", "parallel_assembly": true}`), 0o600), test.ShouldBeNil)

	// flags must precede the input file
	for _, tc := range []struct {
		Name  string
		Args  []string
		Err   string
		After func(t *testing.T, logger logging.Logger)
	}{
		{"no input", nil, "need an input g2o file or --simulate", nil},
		{"unknown flag", []string{"--unknown"}, "not defined", nil},
		{"both inputs", []string{"--simulate=10", input}, "not both", nil},
		{"missing file", []string{filepath.Join(dir, "missing.g2o")}, "no such file", nil},
		{"bad config", []string{"--config=" + filepath.Join(dir, "missing.json"), input}, "reading optimizer config", nil},
		{"bad iterations", []string{"--iterations=-3", input}, "max_iterations", nil},
		{"bad log level", []string{"--log-level=loud", input}, `unknown log level: "loud"`, nil},
		{"quiet", []string{"--log-level=warn", input}, "", func(t *testing.T, logger logging.Logger) {
			test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)
		}},
		{"triangle", []string{
			"--config=" + configPath,
			"--output=" + filepath.Join(dir, "out.g2o"),
			"--plot=" + filepath.Join(dir, "out.png"),
			input,
		}, "", func(t *testing.T, logger logging.Logger) {
			g, err := g2o.ReadFile(filepath.Join(dir, "out.g2o"), logger)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, spatialmath.PoseAlmostEqual(g.Vertices[2], spatialmath.NewPose2D(1, 1, math.Pi/2), 1e-6), test.ShouldBeTrue)
			info, err := os.Stat(filepath.Join(dir, "out.png"))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
		}},
		{"simulate", []string{
			"--simulate=12",
			"--seed=3",
			"--debug",
			"--log-file=" + filepath.Join(dir, "posegraph.log"),
			"--plot=" + filepath.Join(dir, "sim.svg"),
		}, "", func(t *testing.T, logger logging.Logger) {
			_, err := os.Stat(filepath.Join(dir, "sim.svg"))
			test.That(t, err, test.ShouldBeNil)
			logs, err := os.ReadFile(filepath.Join(dir, "posegraph.log"))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, string(logs), test.ShouldContainSubstring, "simulated scenario")
		}},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			err := mainWithArgs(context.Background(), append([]string{"posegraph"}, tc.Args...), logger)
			if tc.Err == "" {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
				test.That(t, err.Error(), test.ShouldContainSubstring, tc.Err)
			}
			if tc.After != nil {
				tc.After(t, logger)
			}
		})
	}
}

func TestMainSingularWritesLastValid(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "split.g2o")
	split := triangle + "VERTEX_SE2 7 5 5 0\n"
	test.That(t, os.WriteFile(input, []byte(split), 0o600), test.ShouldBeNil)
	output := filepath.Join(dir, "out.g2o")

	logger, logs := logging.NewObservedTestLogger(t)
	err := mainWithArgs(context.Background(), []string{"posegraph", "--output=" + output, input}, logger)
	test.That(t, errors.Is(err, posegraph.ErrSingularSystem), test.ShouldBeTrue)
	test.That(t, logs.FilterMessage("result").Len(), test.ShouldEqual, 1)

	data, err := os.ReadFile(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Contains(string(data), "VERTEX_SE2 3 5 5 0"), test.ShouldBeTrue)
}
