// Package spatialmath defines the planar pose type used by the pose graph and the conversions
// between a pose and its SE(2) homogeneous transform.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// Pose2D is a planar pose: a translation (X, Y) and a heading Theta in radians.
// Theta is not kept in any canonical range.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// NewPose2D returns a pose from its three parameters.
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: theta}
}

// NewZeroPose2D returns the identity pose.
func NewZeroPose2D() Pose2D {
	return Pose2D{}
}

// Point returns the translation component of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Add returns the pose with each parameter incremented componentwise. This is a plain vector
// addition on (x, y, theta), not a composition of transforms.
func (p Pose2D) Add(dx, dy, dtheta float64) Pose2D {
	return Pose2D{X: p.X + dx, Y: p.Y + dy, Theta: p.Theta + dtheta}
}

// Normalized returns the pose with its heading wrapped into (-pi, pi].
func (p Pose2D) Normalized() Pose2D {
	p.Theta = NormalizeAngle(p.Theta)
	return p
}

// IsFinite reports whether no parameter is NaN or infinite.
func (p Pose2D) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Theta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", p.X, p.Y, p.Theta)
}

// ToTransform embeds a pose in the SE(2) homogeneous matrix
//
//	[cos -sin x]
//	[sin  cos y]
//	[0    0   1]
func ToTransform(p Pose2D) *mat.Dense {
	s, c := math.Sincos(p.Theta)
	return mat.NewDense(3, 3, []float64{
		c, -s, p.X,
		s, c, p.Y,
		0, 0, 1,
	})
}

// ToPose recovers a pose from an SE(2) homogeneous matrix. The heading comes from atan2 of the
// first rotation column and is reported in (-pi, pi]; atan2's -pi maps to pi.
func ToPose(t mat.Matrix) Pose2D {
	theta := math.Atan2(t.At(1, 0), t.At(0, 0))
	if theta <= -math.Pi {
		theta = math.Pi
	}
	return Pose2D{
		X:     t.At(0, 2),
		Y:     t.At(1, 2),
		Theta: theta,
	}
}

// InvertTransform returns the inverse of an SE(2) homogeneous matrix, [R^T, -R^T t].
func InvertTransform(t mat.Matrix) *mat.Dense {
	r00, r01 := t.At(0, 0), t.At(0, 1)
	r10, r11 := t.At(1, 0), t.At(1, 1)
	tx, ty := t.At(0, 2), t.At(1, 2)
	return mat.NewDense(3, 3, []float64{
		r00, r10, -(r00*tx + r10*ty),
		r01, r11, -(r01*tx + r11*ty),
		0, 0, 1,
	})
}

// Compose returns a ⊕ b: the pose b expressed in the frame of a, moved into a's parent frame.
func Compose(a, b Pose2D) Pose2D {
	var out mat.Dense
	out.Mul(ToTransform(a), ToTransform(b))
	return ToPose(&out)
}

// Between returns the pose of b relative to a, a⁻¹ ⊕ b. An edge whose measurement equals
// Between(xi, xj) has zero residual.
func Between(a, b Pose2D) Pose2D {
	var out mat.Dense
	out.Mul(InvertTransform(ToTransform(a)), ToTransform(b))
	return ToPose(&out)
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(theta float64) float64 {
	a := math.Mod(theta+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDiff returns the signed difference a-b wrapped into (-pi, pi].
func AngleDiff(a, b float64) float64 {
	return NormalizeAngle(a - b)
}

// PoseAlmostEqual compares two poses within tol. Headings are compared modulo 2*pi.
func PoseAlmostEqual(a, b Pose2D, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(AngleDiff(a.Theta, b.Theta)) <= tol
}

// RotationMatrix returns the 2x2 rotation by theta.
func RotationMatrix(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(2, 2, []float64{
		c, -s,
		s, c,
	})
}

// RotationTransposeDerivative returns d(R^T)/dtheta, [[-sin, cos], [-cos, -sin]].
func RotationTransposeDerivative(theta float64) *mat.Dense {
	s, c := math.Sincos(theta)
	return mat.NewDense(2, 2, []float64{
		-s, c,
		-c, -s,
	})
}
