package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
)

// Rot3 is a rotation in SO(3), stored as a row-major 3×3 rotation matrix.
// The zero value is NOT a valid rotation; use Rot3Identity or one of the
// constructors.
type Rot3 struct {
	m [3][3]float64
}

// Rot3Identity returns the identity rotation.
func Rot3Identity() Rot3 {
	return Rot3{m: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// NewRot3 builds a rotation from a row-major 3×3 matrix. The entries are
// taken as-is; callers are responsible for orthonormality.
func NewRot3(r00, r01, r02, r10, r11, r12, r20, r21, r22 float64) Rot3 {
	return Rot3{m: [3][3]float64{
		{r00, r01, r02},
		{r10, r11, r12},
		{r20, r21, r22},
	}}
}

// Rot3Ypr builds a rotation from yaw (about Z), pitch (about Y) and roll
// (about X), applied in that order: R = Rz(yaw)·Ry(pitch)·Rx(roll).
func Rot3Ypr(yaw, pitch, roll float64) Rot3 {
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cr, sr := math.Cos(roll), math.Sin(roll)
	return NewRot3(
		cy*cp, cy*sp*sr-sy*cr, cy*sp*cr+sy*sr,
		sy*cp, sy*sp*sr+cy*cr, sy*sp*cr-cy*sr,
		-sp, cp*sr, cp*cr,
	)
}

// Rot3Expmap is the exponential map of SO(3): the rotation of angle |w|
// about axis w/|w| (Rodrigues' formula).
func Rot3Expmap(w Vector3) Rot3 {
	theta2 := w.Dot(w)
	var a, b float64 // sinθ/θ and (1-cosθ)/θ²
	if theta2 < 1e-10 {
		a = 1 - theta2/6
		b = 0.5 - theta2/24
	} else {
		theta := math.Sqrt(theta2)
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / theta2
	}
	wx, wy, wz := w[0], w[1], w[2]
	// I + a·K + b·K² with K = [w]×
	return NewRot3(
		1-b*(wy*wy+wz*wz), b*wx*wy-a*wz, b*wx*wz+a*wy,
		b*wx*wy+a*wz, 1-b*(wx*wx+wz*wz), b*wy*wz-a*wx,
		b*wx*wz-a*wy, b*wy*wz+a*wx, 1-b*(wx*wx+wy*wy),
	)
}

// Logmap returns the rotation vector w with Rot3Expmap(w) == r.
func (r Rot3) Logmap() Vector3 {
	tr := r.m[0][0] + r.m[1][1] + r.m[2][2]
	cosTheta := math.Max(-1, math.Min(1, (tr-1)/2))
	// Antisymmetric part vee: (R - Rᵀ)∨ / 2.
	v := Vector3{
		(r.m[2][1] - r.m[1][2]) / 2,
		(r.m[0][2] - r.m[2][0]) / 2,
		(r.m[1][0] - r.m[0][1]) / 2,
	}
	if cosTheta > 1-1e-10 {
		// Near identity: w ≈ vee·(1 + θ²/6).
		theta2 := v.Dot(v)
		return v.Scale(1 + theta2/6)
	}
	theta := math.Acos(cosTheta)
	if cosTheta > -1+1e-7 {
		return v.Scale(theta / math.Sin(theta))
	}
	// Near π the antisymmetric part vanishes; recover the axis from the
	// dominant diagonal of R + I.
	var axis Vector3
	switch {
	case r.m[0][0] >= r.m[1][1] && r.m[0][0] >= r.m[2][2]:
		axis = Vector3{r.m[0][0] + 1, r.m[1][0], r.m[2][0]}
	case r.m[1][1] >= r.m[2][2]:
		axis = Vector3{r.m[0][1], r.m[1][1] + 1, r.m[2][1]}
	default:
		axis = Vector3{r.m[0][2], r.m[1][2], r.m[2][2] + 1}
	}
	unit, ok := axis.Normalize()
	if !ok {
		return Vector3{}
	}
	// Fix the sign so that the antisymmetric part, however small, agrees.
	if unit.Dot(v) < 0 {
		unit = unit.Scale(-1)
	}
	return unit.Scale(theta)
}

// Compose returns r·o.
func (r Rot3) Compose(o Rot3) Rot3 {
	var out Rot3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = r.m[i][0]*o.m[0][j] + r.m[i][1]*o.m[1][j] + r.m[i][2]*o.m[2][j]
		}
	}
	return out
}

// Inverse returns r⁻¹, the transpose for a rotation matrix.
func (r Rot3) Inverse() Rot3 {
	return NewRot3(
		r.m[0][0], r.m[1][0], r.m[2][0],
		r.m[0][1], r.m[1][1], r.m[2][1],
		r.m[0][2], r.m[1][2], r.m[2][2],
	)
}

// Between returns the relative rotation r⁻¹·o.
func (r Rot3) Between(o Rot3) Rot3 {
	return r.Inverse().Compose(o)
}

// Rotate applies the rotation to a vector: R·v.
func (r Rot3) Rotate(v Vector3) Vector3 {
	return Vector3{
		r.m[0][0]*v[0] + r.m[0][1]*v[1] + r.m[0][2]*v[2],
		r.m[1][0]*v[0] + r.m[1][1]*v[1] + r.m[1][2]*v[2],
		r.m[2][0]*v[0] + r.m[2][1]*v[1] + r.m[2][2]*v[2],
	}
}

// Unrotate applies the inverse rotation: Rᵀ·v.
func (r Rot3) Unrotate(v Vector3) Vector3 {
	return Vector3{
		r.m[0][0]*v[0] + r.m[1][0]*v[1] + r.m[2][0]*v[2],
		r.m[0][1]*v[0] + r.m[1][1]*v[1] + r.m[2][1]*v[2],
		r.m[0][2]*v[0] + r.m[1][2]*v[1] + r.m[2][2]*v[2],
	}
}

// Matrix returns the rotation as a dense 3×3 gonum matrix.
func (r Rot3) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		r.m[0][0], r.m[0][1], r.m[0][2],
		r.m[1][0], r.m[1][1], r.m[1][2],
		r.m[2][0], r.m[2][1], r.m[2][2],
	})
}

// Dim implements core.Value: SO(3) has 3 degrees of freedom.
func (r Rot3) Dim() int { return 3 }

// Retract implements core.Value via right composition with the exponential
// map: r·Exp(delta).
func (r Rot3) Retract(delta []float64) core.Value {
	return r.Compose(Rot3Expmap(Vector3{delta[0], delta[1], delta[2]}))
}

// LocalCoordinates implements core.Value: Log(r⁻¹·other).
func (r Rot3) LocalCoordinates(other core.Value) []float64 {
	o, okcast := other.(Rot3)
	if !okcast {
		panic("geometry: LocalCoordinates between Rot3 and non-Rot3 value")
	}
	w := r.Between(o).Logmap()
	return []float64{w[0], w[1], w[2]}
}
