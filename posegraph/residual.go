package posegraph

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/posegraph/spatialmath"
)

// EdgeResidual returns the error of measurement z between poses xi and xj as the pose vector of
// Z⁻¹·Xi⁻¹·Xj. It is zero exactly when xj sits at z relative to xi.
func EdgeResidual(xi, xj, z spatialmath.Pose2D) *mat.VecDense {
	var predicted, errT mat.Dense
	predicted.Mul(spatialmath.InvertTransform(spatialmath.ToTransform(xi)), spatialmath.ToTransform(xj))
	errT.Mul(spatialmath.InvertTransform(spatialmath.ToTransform(z)), &predicted)
	e := spatialmath.ToPose(&errT)
	return mat.NewVecDense(3, []float64{e.X, e.Y, e.Theta})
}

func edgeError(vertices []spatialmath.Pose2D, e Edge) float64 {
	r := EdgeResidual(vertices[e.From], vertices[e.To], e.Measurement)
	return mat.Inner(r, e.Information, r)
}

// EdgeErrors returns eᵀΩe for every edge, in edge order.
func EdgeErrors(vertices []spatialmath.Pose2D, edges []Edge) []float64 {
	out := make([]float64, len(edges))
	for k, e := range edges {
		out[k] = edgeError(vertices, e)
	}
	return out
}

// TotalError returns the weighted squared error summed over all edges.
func TotalError(vertices []spatialmath.Pose2D, edges []Edge) float64 {
	var total float64
	for _, e := range edges {
		total += edgeError(vertices, e)
	}
	return total
}
