package sparse

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind names a Solver implementation.
type Kind string

const (
	// KindSparse factorizes with LDLᵀ on the sparse structure.
	KindSparse Kind = "sparse"
	// KindDense copies into a dense symmetric matrix and uses a Cholesky factorization.
	KindDense Kind = "dense"
	// KindAuto uses the dense solver for small systems and the sparse one otherwise.
	KindAuto Kind = "auto"
)

const (
	// DefaultDenseThreshold is the largest block count KindAuto hands to the dense solver.
	DefaultDenseThreshold = 16
	// DefaultMaxCondition bounds the condition number the dense solver accepts.
	DefaultMaxCondition = 1e14
)

// A Solver solves h·x = rhs for a symmetric positive definite h.
type Solver interface {
	Solve(h *BlockMatrix, rhs mat.Vector) (*mat.VecDense, error)
}

// Options tune the solvers returned by NewSolver. Zero values select defaults.
type Options struct {
	Ordering       Ordering
	PivotTolerance float64
	MaxCondition   float64
	DenseThreshold int
}

// NewSolver returns the solver for kind. The empty kind is KindSparse.
func NewSolver(kind Kind, opts Options) (Solver, error) {
	ldl := &LDLSolver{Ordering: opts.Ordering, PivotTolerance: opts.PivotTolerance}
	dense := &DenseCholeskySolver{MaxCondition: opts.MaxCondition}
	switch kind {
	case "", KindSparse:
		return ldl, nil
	case KindDense:
		return dense, nil
	case KindAuto:
		threshold := opts.DenseThreshold
		if threshold <= 0 {
			threshold = DefaultDenseThreshold
		}
		return &autoSolver{threshold: threshold, dense: dense, sparse: ldl}, nil
	default:
		return nil, errors.Errorf("unknown solver kind %q", kind)
	}
}

// LDLSolver solves through FactorizeLDL.
type LDLSolver struct {
	Ordering       Ordering
	PivotTolerance float64
}

// Solve factorizes h and solves for rhs.
func (s *LDLSolver) Solve(h *BlockMatrix, rhs mat.Vector) (*mat.VecDense, error) {
	if r, _ := h.Dims(); r != rhs.Len() {
		return nil, errors.Errorf("right hand side has length %d, want %d", rhs.Len(), r)
	}
	f, err := FactorizeLDL(h, s.Ordering, s.PivotTolerance)
	if err != nil {
		return nil, err
	}
	return f.Solve(rhs), nil
}

// DenseCholeskySolver solves with gonum's dense Cholesky factorization. The matrix is scaled to a
// unit diagonal first, and MaxCondition bounds the condition number of that scaled matrix.
type DenseCholeskySolver struct {
	MaxCondition float64
}

// Solve copies h into a dense symmetric matrix, factorizes and solves for rhs.
func (s *DenseCholeskySolver) Solve(h *BlockMatrix, rhs mat.Vector) (*mat.VecDense, error) {
	n, _ := h.Dims()
	if n != rhs.Len() {
		return nil, errors.Errorf("right hand side has length %d, want %d", rhs.Len(), n)
	}
	maxCond := s.MaxCondition
	if maxCond <= 0 {
		maxCond = DefaultMaxCondition
	}
	singular := func(cause error) error {
		idx := -1
		if blk := h.ZeroDiagonalBlock(); blk >= 0 {
			idx = blk * h.BlockSize()
		}
		return &SingularError{Index: idx, Cause: cause}
	}

	sym := h.SymDense()
	scale := make([]float64, n)
	for i := range scale {
		d := sym.At(i, i)
		if !(d > 0) || math.IsInf(d, 0) {
			return nil, &SingularError{Index: i, Pivot: d}
		}
		scale[i] = 1 / math.Sqrt(d)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, sym.At(i, j)*scale[i]*scale[j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, singular(nil)
	}
	if cond := chol.Cond(); cond > maxCond {
		return nil, singular(errors.Errorf("condition number %g exceeds %g", cond, maxCond))
	}
	scaled := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		scaled.SetVec(i, rhs.AtVec(i)*scale[i])
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, scaled); err != nil {
		return nil, singular(err)
	}
	for i := 0; i < n; i++ {
		x.SetVec(i, x.AtVec(i)*scale[i])
	}
	return &x, nil
}

type autoSolver struct {
	threshold     int
	dense, sparse Solver
}

func (s *autoSolver) Solve(h *BlockMatrix, rhs mat.Vector) (*mat.VecDense, error) {
	if h.Blocks() <= s.threshold {
		return s.dense.Solve(h, rhs)
	}
	return s.sparse.Solve(h, rhs)
}
