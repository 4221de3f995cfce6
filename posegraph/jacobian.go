package posegraph

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/spatialmath"
)

// EdgeJacobians returns the derivatives of EdgeResidual(xi, xj, z) with respect to xi (A) and xj
// (B), each 3x3 over (x, y, theta).
func EdgeJacobians(xi, xj, z spatialmath.Pose2D) (*mat.Dense, *mat.Dense) {
	var rot mat.Dense
	rot.Mul(spatialmath.RotationMatrix(z.Theta).T(), spatialmath.RotationMatrix(xi.Theta).T())

	// d/dtheta_i of the translation residual
	dt := xj.Point().Sub(xi.Point())
	var dRot mat.Dense
	dRot.Mul(spatialmath.RotationMatrix(z.Theta).T(), spatialmath.RotationTransposeDerivative(xi.Theta))
	var dTheta mat.VecDense
	dTheta.MulVec(&dRot, mat.NewVecDense(2, []float64{dt.X, dt.Y}))

	a := mat.NewDense(3, 3, []float64{
		-rot.At(0, 0), -rot.At(0, 1), dTheta.AtVec(0),
		-rot.At(1, 0), -rot.At(1, 1), dTheta.AtVec(1),
		0, 0, -1,
	})
	b := mat.NewDense(3, 3, []float64{
		rot.At(0, 0), rot.At(0, 1), 0,
		rot.At(1, 0), rot.At(1, 1), 0,
		0, 0, 1,
	})
	return a, b
}
