package posegraph

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/sparse"
	"go.viam.com/posegraph/spatialmath"
	"go.viam.com/posegraph/utils"
)

// BlockSize is the dimension of a pose's parameter block.
const BlockSize = 3

// LinearSystem holds the Gauss-Newton normal equations H·dx = -B for one linearization point.
type LinearSystem struct {
	H *sparse.BlockMatrix
	B *mat.VecDense
}

// NewLinearSystem returns a zero system over numVertices poses. numVertices must be positive.
func NewLinearSystem(numVertices int) *LinearSystem {
	return &LinearSystem{
		H: sparse.NewBlockMatrix(numVertices, BlockSize),
		B: mat.NewVecDense(numVertices*BlockSize, nil),
	}
}

// NumVertices returns the number of pose blocks.
func (s *LinearSystem) NumVertices() int {
	return s.H.Blocks()
}

// Assemble linearizes every edge at the given vertices and sums the contributions into a fresh
// system. The anchor block (0, 0) gets an added identity so that the system has full rank when
// every vertex is connected to vertex 0.
func Assemble(vertices []spatialmath.Pose2D, edges []Edge) *LinearSystem {
	sys := NewLinearSystem(len(vertices))
	for _, e := range edges {
		sys.addEdge(vertices, e)
	}
	sys.H.AddIdentity(0, 1)
	return sys
}

// AssembleParallel is Assemble with the edges split across worker groups. Each group sums into a
// private system that is merged under a lock, so results match Assemble up to floating point
// summation order.
func AssembleParallel(ctx context.Context, vertices []spatialmath.Pose2D, edges []Edge) (*LinearSystem, error) {
	sys := NewLinearSystem(len(vertices))
	var mu sync.Mutex
	err := utils.GroupWorkParallel(
		ctx,
		len(edges),
		func(int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			partial := NewLinearSystem(len(vertices))
			return func(memberNum, workNum int) {
					partial.addEdge(vertices, edges[workNum])
				}, func() {
					mu.Lock()
					defer mu.Unlock()
					sys.add(partial)
				}
		},
	)
	if err != nil {
		return nil, err
	}
	sys.H.AddIdentity(0, 1)
	return sys, nil
}

func (s *LinearSystem) addEdge(vertices []spatialmath.Pose2D, e Edge) {
	xi, xj := vertices[e.From], vertices[e.To]
	r := EdgeResidual(xi, xj, e.Measurement)
	a, b := EdgeJacobians(xi, xj, e.Measurement)

	var omegaA, omegaB mat.Dense
	omegaA.Mul(e.Information, a)
	omegaB.Mul(e.Information, b)

	var hii, hij, hji, hjj mat.Dense
	hii.Mul(a.T(), &omegaA)
	hij.Mul(a.T(), &omegaB)
	hji.Mul(b.T(), &omegaA)
	hjj.Mul(b.T(), &omegaB)
	s.H.AddBlock(e.From, e.From, &hii)
	s.H.AddBlock(e.From, e.To, &hij)
	s.H.AddBlock(e.To, e.From, &hji)
	s.H.AddBlock(e.To, e.To, &hjj)

	var omegaR, bi, bj mat.VecDense
	omegaR.MulVec(e.Information, r)
	bi.MulVec(a.T(), &omegaR)
	bj.MulVec(b.T(), &omegaR)
	s.addToB(e.From, &bi)
	s.addToB(e.To, &bj)
}

func (s *LinearSystem) addToB(vertex int, v mat.Vector) {
	for k := 0; k < BlockSize; k++ {
		idx := vertex*BlockSize + k
		s.B.SetVec(idx, s.B.AtVec(idx)+v.AtVec(k))
	}
}

func (s *LinearSystem) add(o *LinearSystem) {
	s.H.AddMatrix(o.H)
	s.B.AddVec(s.B, o.B)
}
