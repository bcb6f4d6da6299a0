package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
)

// Pose3 is a rigid transform in SE(3): a rotation plus a translation.
// Tangent vectors are ordered [ωx ωy ωz vx vy vz], rotation first.
// The zero value is NOT a valid pose; use Pose3Identity or NewPose3.
type Pose3 struct {
	r Rot3
	t Vector3
}

// Pose3Identity returns the identity transform.
func Pose3Identity() Pose3 {
	return Pose3{r: Rot3Identity()}
}

// NewPose3 builds a pose from a rotation and a translation.
func NewPose3(r Rot3, t Vector3) Pose3 {
	return Pose3{r: r, t: t}
}

// Rotation returns the rotation part.
func (p Pose3) Rotation() Rot3 { return p.r }

// Translation returns the translation part.
func (p Pose3) Translation() Vector3 { return p.t }

// Compose returns p·o.
func (p Pose3) Compose(o Pose3) Pose3 {
	return Pose3{
		r: p.r.Compose(o.r),
		t: p.t.Add(p.r.Rotate(o.t)),
	}
}

// Inverse returns p⁻¹.
func (p Pose3) Inverse() Pose3 {
	ri := p.r.Inverse()
	return Pose3{r: ri, t: ri.Rotate(p.t).Scale(-1)}
}

// Between returns the relative transform p⁻¹·o.
func (p Pose3) Between(o Pose3) Pose3 {
	return p.Inverse().Compose(o)
}

// TransformFrom maps a point from the pose's local frame to the world
// frame: R·q + t.
func (p Pose3) TransformFrom(q Vector3) Vector3 {
	return p.r.Rotate(q).Add(p.t)
}

// so3VCoeffs returns the coefficients b=(1-cosθ)/θ² and c=(θ-sinθ)/θ³ of
// the SO(3) left Jacobian V = I + b·K + c·K², with Taylor fallbacks near
// θ=0.
func so3VCoeffs(theta2 float64) (b, c float64) {
	if theta2 < 1e-10 {
		return 0.5 - theta2/24, 1.0/6 - theta2/120
	}
	theta := math.Sqrt(theta2)
	return (1 - math.Cos(theta)) / theta2, (theta - math.Sin(theta)) / (theta2 * theta)
}

// applyV computes (I + b·K + c·K²)·v for K = [w]×.
func applyV(w, v Vector3, b, c float64) Vector3 {
	wv := w.Cross(v)
	wwv := w.Cross(wv)
	return v.Add(wv.Scale(b)).Add(wwv.Scale(c))
}

// Pose3Expmap is the exponential map of SE(3) for xi = [ω; v].
func Pose3Expmap(xi []float64) Pose3 {
	w := Vector3{xi[0], xi[1], xi[2]}
	v := Vector3{xi[3], xi[4], xi[5]}
	b, c := so3VCoeffs(w.Dot(w))
	return Pose3{
		r: Rot3Expmap(w),
		t: applyV(w, v, b, c),
	}
}

// Logmap returns xi = [ω; v] with Pose3Expmap(xi) == p.
func (p Pose3) Logmap() []float64 {
	w := p.r.Logmap()
	theta2 := w.Dot(w)
	// V⁻¹ = I - K/2 + d·K².
	var d float64
	if theta2 < 1e-10 {
		d = 1.0/12 + theta2/720
	} else {
		theta := math.Sqrt(theta2)
		d = 1/theta2 - (1+math.Cos(theta))/(2*theta*math.Sin(theta))
	}
	wt := w.Cross(p.t)
	wwt := w.Cross(wt)
	v := p.t.Sub(wt.Scale(0.5)).Add(wwt.Scale(d))
	return []float64{w[0], w[1], w[2], v[0], v[1], v[2]}
}

// AdjointMap returns the 6×6 adjoint Ad(p) mapping tangent vectors from the
// pose's local frame to the world frame: Ad = [[R, 0], [[t]×R, R]].
func (p Pose3) AdjointMap() *mat.Dense {
	ad := mat.NewDense(6, 6, nil)
	r := p.r.Matrix()
	var tr mat.Dense
	tr.Mul(Skew(p.t), r)
	ad.Slice(0, 3, 0, 3).(*mat.Dense).Copy(r)
	ad.Slice(3, 6, 0, 3).(*mat.Dense).Copy(&tr)
	ad.Slice(3, 6, 3, 6).(*mat.Dense).Copy(r)
	return ad
}

// Dim implements core.Value: SE(3) has 6 degrees of freedom.
func (p Pose3) Dim() int { return 6 }

// Retract implements core.Value via right composition with the exponential
// map: p·Exp(delta).
func (p Pose3) Retract(delta []float64) core.Value {
	return p.Compose(Pose3Expmap(delta))
}

// LocalCoordinates implements core.Value: Log(p⁻¹·other).
func (p Pose3) LocalCoordinates(other core.Value) []float64 {
	o, okcast := other.(Pose3)
	if !okcast {
		panic("geometry: LocalCoordinates between Pose3 and non-Pose3 value")
	}
	return p.Between(o).Logmap()
}
