package posegraph

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/sparse"
)

// Solve returns the increment dx solving H·dx = -B. When the solver fails, or returns a non-finite
// increment, the error is a *SingularSystemError and no increment is returned.
func Solve(sys *LinearSystem, solver sparse.Solver) (*mat.VecDense, error) {
	rhs := mat.NewVecDense(sys.B.Len(), nil)
	rhs.ScaleVec(-1, sys.B)

	dx, err := solver.Solve(sys.H, rhs)
	if err != nil {
		vertex := -1
		var serr *sparse.SingularError
		if errors.As(err, &serr) && serr.Index >= 0 {
			vertex = serr.Index / sys.H.BlockSize()
		}
		return nil, &SingularSystemError{Vertex: vertex, Err: err}
	}
	for i := 0; i < dx.Len(); i++ {
		if v := dx.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &SingularSystemError{
				Vertex: i / sys.H.BlockSize(),
				Err:    errors.Errorf("non-finite increment %g at row %d", v, i),
			}
		}
	}
	return dx, nil
}
