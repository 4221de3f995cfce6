package sparse

import (
	"errors"
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestSolversAgree(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	m := randomChainSPD(r, 20, 3, [][2]int{{0, 19}, {5, 15}})
	rhs := mat.NewVecDense(60, nil)
	for i := 0; i < 60; i++ {
		rhs.SetVec(i, r.NormFloat64())
	}

	var results []*mat.VecDense
	for _, kind := range []Kind{KindSparse, KindDense, KindAuto, ""} {
		s, err := NewSolver(kind, Options{Ordering: OrderingRCM})
		test.That(t, err, test.ShouldBeNil)
		x, err := s.Solve(m, rhs)
		test.That(t, err, test.ShouldBeNil)
		results = append(results, x)
	}
	for _, x := range results[1:] {
		test.That(t, mat.EqualApprox(x, results[0], 1e-9), test.ShouldBeTrue)
	}

	_, err := NewSolver("qr", Options{})
	test.That(t, err, test.ShouldBeError, errors.New(`unknown solver kind "qr"`))
}

func TestSolversReportSingular(t *testing.T) {
	m := NewBlockMatrix(3, 3)
	m.AddIdentity(0, 1)
	m.AddIdentity(2, 1)
	rhs := mat.NewVecDense(9, nil)

	for _, kind := range []Kind{KindSparse, KindDense, KindAuto} {
		t.Run(string(kind), func(t *testing.T) {
			s, err := NewSolver(kind, Options{})
			test.That(t, err, test.ShouldBeNil)
			x, err := s.Solve(m, rhs)
			test.That(t, x, test.ShouldBeNil)
			test.That(t, errors.Is(err, ErrSingular), test.ShouldBeTrue)
			var serr *SingularError
			test.That(t, errors.As(err, &serr), test.ShouldBeTrue)
			test.That(t, serr.Index, test.ShouldEqual, 3)
		})
	}
}

func TestAutoSolverThreshold(t *testing.T) {
	s, err := NewSolver(KindAuto, Options{DenseThreshold: 2})
	test.That(t, err, test.ShouldBeNil)
	auto := s.(*autoSolver)
	test.That(t, auto.threshold, test.ShouldEqual, 2)

	m := NewBlockMatrix(3, 1)
	m.AddIdentity(0, 1)
	m.AddIdentity(1, 1)
	_, err = s.Solve(m, mat.NewVecDense(3, nil))
	var serr *SingularError
	test.That(t, errors.As(err, &serr), test.ShouldBeTrue)
	test.That(t, serr.Index, test.ShouldEqual, 2)
}

func TestSolveShapeMismatch(t *testing.T) {
	m := NewBlockMatrix(2, 3)
	m.AddIdentity(0, 1)
	m.AddIdentity(1, 1)
	for _, s := range []Solver{&LDLSolver{}, &DenseCholeskySolver{}} {
		_, err := s.Solve(m, mat.NewVecDense(5, nil))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "length 5")
	}
}
