package sparse

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSingular is matched by every factorization failure.
var ErrSingular = errors.New("matrix is singular or not positive definite")

// SingularError reports the scalar row at which a factorization broke down. Index is -1 when the
// failing row is unknown.
type SingularError struct {
	Index int
	Pivot float64
	Cause error
}

func (e *SingularError) Error() string {
	msg := ErrSingular.Error()
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: pivot %g at row %d", msg, e.Pivot, e.Index)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrSingular).
func (e *SingularError) Unwrap() error {
	return ErrSingular
}
