package optimizer

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/posegraph/sparse"
)

// DefaultMaxIterations is the fixed Gauss-Newton iteration budget.
const DefaultMaxIterations = 20

// Config controls an Optimizer. The zero value is not valid; start from DefaultConfig.
type Config struct {
	MaxIterations int    `json:"max_iterations"`
	Solver        string `json:"solver"`
	Ordering      string `json:"ordering"`
	// PivotTolerance is relative to the diagonal entry of H in the pivot's row.
	PivotTolerance float64 `json:"pivot_tolerance"`
	// DenseThreshold is the largest vertex count the "auto" solver factorizes densely.
	DenseThreshold   int  `json:"dense_threshold"`
	ParallelAssembly bool `json:"parallel_assembly"`
	// StepTolerance bounds the largest increment component for a run to count as converged.
	StepTolerance float64 `json:"step_tolerance"`
	StopEarly     bool    `json:"stop_early"`
	// MaxHeadingStep clamps each heading increment to [-MaxHeadingStep, MaxHeadingStep].
	// Zero disables the clamp.
	MaxHeadingStep    float64 `json:"max_heading_step"`
	NormalizeHeadings bool    `json:"normalize_headings"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  DefaultMaxIterations,
		Solver:         string(sparse.KindSparse),
		Ordering:       sparse.OrderingRCM.String(),
		PivotTolerance: sparse.DefaultPivotTolerance,
		DenseThreshold: sparse.DefaultDenseThreshold,
		StepTolerance:  1e-9,
	}
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	var errs error
	if config.MaxIterations < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("max_iterations must be at least 1, got %d", config.MaxIterations)))
	}
	switch sparse.Kind(config.Solver) {
	case "":
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "solver"))
	case sparse.KindSparse, sparse.KindDense, sparse.KindAuto:
	default:
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("unknown solver %q, want one of sparse, dense or auto", config.Solver)))
	}
	if _, err := sparse.ParseOrdering(config.Ordering); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
	}
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"pivot_tolerance", config.PivotTolerance},
		{"step_tolerance", config.StepTolerance},
		{"max_heading_step", config.MaxHeadingStep},
	} {
		if field.value < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("%s must not be negative, got %g", field.name, field.value)))
		}
	}
	if config.DenseThreshold < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("dense_threshold must not be negative, got %d", config.DenseThreshold)))
	}
	return errs
}

func (config *Config) solverOptions() (sparse.Kind, sparse.Options) {
	// Validate has already rejected unknown orderings.
	ordering, _ := sparse.ParseOrdering(config.Ordering)
	return sparse.Kind(config.Solver), sparse.Options{
		Ordering:       ordering,
		PivotTolerance: config.PivotTolerance,
		DenseThreshold: config.DenseThreshold,
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep their DefaultConfig
// values, unknown fields are rejected and numbers given as strings are accepted.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "reading optimizer config")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return config, errors.Wrapf(err, "parsing optimizer config %q", path)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &config,
	})
	if err != nil {
		return config, err
	}
	if err := decoder.Decode(raw); err != nil {
		return config, errors.Wrapf(err, "decoding optimizer config %q", path)
	}
	return config, config.Validate(path)
}
