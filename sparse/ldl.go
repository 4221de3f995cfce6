package sparse

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultPivotTolerance is the pivot threshold, relative to the matrix's own diagonal entry in
// the pivot's row, below which a factorization is reported as singular. A zero diagonal entry
// is always singular. A system whose weakest constraint is about 1/DefaultPivotTolerance times
// weaker than the diagonal of some row, such as a unit gauge under 1e12 heading information,
// is reported singular too; pass a smaller tolerance for such graphs.
const DefaultPivotTolerance = 1e-12

// LDL is a simplicial LDLᵀ factorization P·A·Pᵀ = L·D·Lᵀ of a symmetric matrix, with L unit lower
// triangular and stored by columns. Only the upper triangle of A is read.
type LDL struct {
	n    int
	perm []int // perm[k] is the original row at position k
	pinv []int

	parent []int // elimination tree
	lp     []int
	li     []int
	lx     []float64
	d      []float64
}

// FactorizeLDL computes the LDLᵀ factorization of the symmetric matrix a. It fails with a
// *SingularError when a pivot is not larger than pivotTol times the magnitude of the diagonal
// entry it was eliminated from, which covers both singular and indefinite matrices. The test
// is per row, so information weights differing by many orders of magnitude still factorize. A non-positive pivotTol selects
// DefaultPivotTolerance.
func FactorizeLDL(a *BlockMatrix, ordering Ordering, pivotTol float64) (*LDL, error) {
	if pivotTol <= 0 {
		pivotTol = DefaultPivotTolerance
	}
	n, _ := a.Dims()
	perm, pinv := expandPermutation(blockPermutation(a, ordering), a.BlockSize())
	ap, ai, ax := a.compressedColumns()

	f := &LDL{
		n:      n,
		perm:   perm,
		pinv:   pinv,
		parent: make([]int, n),
		lp:     make([]int, n+1),
		d:      make([]float64, n),
	}
	lnz := f.symbolic(ap, ai)
	f.li = make([]int, f.lp[n])
	f.lx = make([]float64, f.lp[n])

	if err := f.numeric(ap, ai, ax, lnz, pivotTol); err != nil {
		return nil, err
	}
	return f, nil
}

// symbolic builds the elimination tree and the column pointers of L.
func (f *LDL) symbolic(ap, ai []int) []int {
	flag := make([]int, f.n)
	lnz := make([]int, f.n)
	for k := 0; k < f.n; k++ {
		f.parent[k] = -1
		flag[k] = k
		kk := f.perm[k]
		for p := ap[kk]; p < ap[kk+1]; p++ {
			i := f.pinv[ai[p]]
			if i >= k {
				continue
			}
			// walk from i up the tree until a node already flagged for row k
			for ; flag[i] != k; i = f.parent[i] {
				if f.parent[i] == -1 {
					f.parent[i] = k
				}
				lnz[i]++
				flag[i] = k
			}
		}
	}
	for k := 0; k < f.n; k++ {
		f.lp[k+1] = f.lp[k] + lnz[k]
	}
	return lnz
}

// numeric fills L and D row by row (up-looking).
func (f *LDL) numeric(ap, ai []int, ax []float64, lnz []int, pivotTol float64) error {
	y := make([]float64, f.n)
	pattern := make([]int, f.n)
	flag := make([]int, f.n)
	for i := range lnz {
		lnz[i] = 0
	}

	for k := 0; k < f.n; k++ {
		y[k] = 0
		top := f.n
		flag[k] = k
		kk := f.perm[k]
		for p := ap[kk]; p < ap[kk+1]; p++ {
			i := f.pinv[ai[p]]
			if i > k {
				continue
			}
			y[i] += ax[p]
			length := 0
			for ; flag[i] != k; i = f.parent[i] {
				pattern[length] = i
				length++
				flag[i] = k
			}
			for length > 0 {
				top--
				length--
				pattern[top] = pattern[length]
			}
		}

		diag := y[k]
		f.d[k] = diag
		y[k] = 0
		for ; top < f.n; top++ {
			i := pattern[top]
			yi := y[i]
			y[i] = 0
			end := f.lp[i] + lnz[i]
			for p := f.lp[i]; p < end; p++ {
				y[f.li[p]] -= f.lx[p] * yi
			}
			lki := yi / f.d[i]
			f.d[k] -= lki * yi
			f.li[end] = k
			f.lx[end] = lki
			lnz[i]++
		}

		if !(f.d[k] > pivotTol*math.Abs(diag)) || math.IsInf(f.d[k], 0) {
			return &SingularError{Index: f.perm[k], Pivot: f.d[k]}
		}
	}
	return nil
}

// NNZ returns the number of stored off-diagonal entries of L.
func (f *LDL) NNZ() int {
	return f.lp[f.n]
}

// Solve returns x with A·x = b.
func (f *LDL) Solve(b mat.Vector) *mat.VecDense {
	if b.Len() != f.n {
		panic(mat.ErrShape)
	}
	x := make([]float64, f.n)
	for k := 0; k < f.n; k++ {
		x[k] = b.AtVec(f.perm[k])
	}
	// L·z = Pb
	for j := 0; j < f.n; j++ {
		for p := f.lp[j]; p < f.lp[j+1]; p++ {
			x[f.li[p]] -= f.lx[p] * x[j]
		}
	}
	for j := 0; j < f.n; j++ {
		x[j] /= f.d[j]
	}
	// Lᵀ·w = z
	for j := f.n - 1; j >= 0; j-- {
		for p := f.lp[j]; p < f.lp[j+1]; p++ {
			x[j] -= f.lx[p] * x[f.li[p]]
		}
	}
	out := mat.NewVecDense(f.n, nil)
	for k := 0; k < f.n; k++ {
		out.SetVec(f.perm[k], x[k])
	}
	return out
}
