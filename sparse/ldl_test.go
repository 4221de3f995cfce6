package sparse

import (
	"errors"
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// randomChainSPD builds a block tridiagonal SPD matrix with a few long-range couplings, the
// sparsity pattern of an odometry chain with loop closures.
func randomChainSPD(r *rand.Rand, blocks, bs int, closures [][2]int) *BlockMatrix {
	m := NewBlockMatrix(blocks, bs)
	couple := func(i, j int) {
		j3 := mat.NewDense(bs, bs, nil)
		for a := 0; a < bs; a++ {
			for b := 0; b < bs; b++ {
				v := 0.3 * (r.Float64() - 0.5)
				if a == b {
					v++
				}
				j3.Set(a, b, v)
			}
		}
		// J = [-I, G]; JᵀJ scattered over (i, j)
		var gtg, g mat.Dense
		gtg.Mul(j3.T(), j3)
		g.Scale(-1, j3)
		ident := mat.NewDense(bs, bs, nil)
		for k := 0; k < bs; k++ {
			ident.Set(k, k, 1)
		}
		m.AddBlock(i, i, ident)
		m.AddBlock(i, j, &g)
		m.AddBlock(j, i, g.T())
		m.AddBlock(j, j, &gtg)
	}
	for i := 0; i+1 < blocks; i++ {
		couple(i, i+1)
	}
	for _, c := range closures {
		couple(c[0], c[1])
	}
	m.AddIdentity(0, 1)
	return m
}

func TestLDLMatchesDense(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m := randomChainSPD(r, 12, 3, [][2]int{{0, 11}, {3, 9}, {2, 7}})
	test.That(t, m.IsSymmetric(1e-12), test.ShouldBeTrue)

	rhs := mat.NewVecDense(36, nil)
	for i := 0; i < 36; i++ {
		rhs.SetVec(i, r.Float64()*2-1)
	}

	var want mat.VecDense
	test.That(t, want.SolveVec(mat.DenseCopyOf(m), rhs), test.ShouldBeNil)

	for _, ordering := range []Ordering{OrderingNatural, OrderingRCM} {
		t.Run(ordering.String(), func(t *testing.T) {
			f, err := FactorizeLDL(m, ordering, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, f.NNZ(), test.ShouldBeGreaterThan, 0)
			got := f.Solve(rhs)
			test.That(t, mat.EqualApprox(got, &want, 1e-9), test.ShouldBeTrue)

			residual := m.MulVec(got)
			residual.SubVec(residual, rhs)
			test.That(t, mat.Norm(residual, 2), test.ShouldBeLessThan, 1e-9)
		})
	}
}

func TestLDLWidelyScaledDiagonal(t *testing.T) {
	m := NewBlockMatrix(3, 1)
	m.AddBlock(0, 0, mat.NewDense(1, 1, []float64{1e8}))
	m.AddBlock(0, 1, mat.NewDense(1, 1, []float64{10}))
	m.AddBlock(1, 0, mat.NewDense(1, 1, []float64{10}))
	m.AddBlock(1, 1, mat.NewDense(1, 1, []float64{2e-6}))
	m.AddBlock(2, 2, mat.NewDense(1, 1, []float64{1e-9}))
	rhs := mat.NewVecDense(3, []float64{1, 1, 1})

	for _, ordering := range []Ordering{OrderingNatural, OrderingRCM} {
		f, err := FactorizeLDL(m, ordering, 0)
		test.That(t, err, test.ShouldBeNil)
		x := f.Solve(rhs)
		residual := m.MulVec(x)
		residual.SubVec(residual, rhs)
		test.That(t, mat.Norm(residual, 2), test.ShouldBeLessThan, 1e-6)
	}

	x, err := (&DenseCholeskySolver{}).Solve(m, rhs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x.AtVec(2), test.ShouldAlmostEqual, 1e9, 1e-3)
}

func TestLDLSingular(t *testing.T) {
	t.Run("zero block", func(t *testing.T) {
		m := NewBlockMatrix(3, 3)
		m.AddIdentity(0, 2)
		m.AddIdentity(1, 1)
		_, err := FactorizeLDL(m, OrderingNatural, 0)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
		var serr *SingularError
		test.That(t, errors.As(err, &serr), test.ShouldBeTrue)
		test.That(t, serr.Index, test.ShouldEqual, 6)
	})

	t.Run("rank deficient", func(t *testing.T) {
		m := NewBlockMatrix(2, 1)
		m.AddBlock(0, 0, mat.NewDense(1, 1, []float64{1}))
		m.AddBlock(0, 1, mat.NewDense(1, 1, []float64{-1}))
		m.AddBlock(1, 0, mat.NewDense(1, 1, []float64{-1}))
		m.AddBlock(1, 1, mat.NewDense(1, 1, []float64{1}))
		_, err := FactorizeLDL(m, OrderingNatural, 0)
		test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
	})

	t.Run("indefinite", func(t *testing.T) {
		m := NewBlockMatrix(1, 2)
		m.AddBlock(0, 0, mat.NewDense(2, 2, []float64{1, 2, 2, 1}))
		_, err := FactorizeLDL(m, OrderingRCM, 0)
		test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
	})
}

func TestReverseCuthillMcKee(t *testing.T) {
	m := NewBlockMatrix(5, 1)
	one := mat.NewDense(1, 1, []float64{1})
	for _, e := range [][2]int{{0, 4}, {4, 2}, {2, 1}, {1, 3}} {
		m.AddBlock(e[0], e[1], one)
		m.AddBlock(e[1], e[0], one)
	}
	perm := blockPermutation(m, OrderingRCM)
	test.That(t, len(perm), test.ShouldEqual, 5)
	seen := map[int]bool{}
	for _, p := range perm {
		seen[p] = true
	}
	test.That(t, len(seen), test.ShouldEqual, 5)
	// a path graph is ordered end to end, which keeps the bandwidth at one
	for k := 0; k+1 < len(perm); k++ {
		test.That(t, m.HasBlock(perm[k], perm[k+1]), test.ShouldBeTrue)
	}

	test.That(t, blockPermutation(m, OrderingNatural), test.ShouldResemble, []int{0, 1, 2, 3, 4})

	scalar, pinv := expandPermutation([]int{1, 0}, 2)
	test.That(t, scalar, test.ShouldResemble, []int{2, 3, 0, 1})
	test.That(t, pinv, test.ShouldResemble, []int{2, 3, 0, 1})
}

func TestParseOrdering(t *testing.T) {
	o, err := ParseOrdering("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldEqual, OrderingNatural)
	o, err = ParseOrdering("rcm")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldEqual, OrderingRCM)
	_, err = ParseOrdering("amd")
	test.That(t, err, test.ShouldBeError, errors.New(`unknown ordering "amd"`))
}
