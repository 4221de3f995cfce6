package optimizer

import (
	"strings"

	"github.com/pkg/errors"
)

// State is where an optimization run stands.
type State int

const (
	// Iterating means the iteration budget has not been used up yet.
	Iterating State = iota
	// Converged means the last increment was within the step tolerance.
	Converged
	// Exhausted means the budget ran out with the last increment still above the step tolerance.
	Exhausted
	// Failed means an iteration could not produce an increment.
	Failed
)

func (s State) String() string {
	switch s {
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the run is over.
func (s State) Terminal() bool {
	return s != Iterating
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Iterating, Converged, Exhausted, Failed} {
		if strings.EqualFold(candidate.String(), string(text)) {
			*s = candidate
			return nil
		}
	}
	return errors.Errorf("unknown optimizer state %q", text)
}
