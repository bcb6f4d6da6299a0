package geometry

import (
	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
)

// EssentialMatrix is the 5-degree-of-freedom relative-pose constraint of
// two-view epipolar geometry: a rotation plus a translation direction, with
// the translation magnitude unobservable. Tangent vectors are ordered
// [ωx ωy ωz u v], rotation first. The zero value is NOT valid; use
// NewEssentialMatrix or EssentialFromPose3.
type EssentialMatrix struct {
	rot Rot3
	dir Unit3
}

// NewEssentialMatrix builds an essential matrix from a rotation and a
// translation direction.
func NewEssentialMatrix(r Rot3, d Unit3) EssentialMatrix {
	return EssentialMatrix{rot: r, dir: d}
}

// EssentialFromPose3 derives the essential matrix of a relative pose,
// discarding the translation magnitude. ok is false when the translation is
// too close to zero to define a direction, in which case the epipolar
// constraint is degenerate.
func EssentialFromPose3(p Pose3) (EssentialMatrix, bool) {
	d, okd := NewUnit3(p.Translation())
	if !okd {
		return EssentialMatrix{}, false
	}
	return EssentialMatrix{rot: p.Rotation(), dir: d}, true
}

// Rotation returns the rotation part.
func (e EssentialMatrix) Rotation() Rot3 { return e.rot }

// Direction returns the translation direction.
func (e EssentialMatrix) Direction() Unit3 { return e.dir }

// Matrix returns the 3×3 essential matrix E = [t]×·R.
func (e EssentialMatrix) Matrix() *mat.Dense {
	var out mat.Dense
	out.Mul(Skew(e.dir.Point()), e.rot.Matrix())
	return &out
}

// Dim implements core.Value: 3 rotational plus 2 directional degrees of
// freedom.
func (e EssentialMatrix) Dim() int { return 5 }

// Retract implements core.Value componentwise on the rotation and the
// direction.
func (e EssentialMatrix) Retract(delta []float64) core.Value {
	return EssentialMatrix{
		rot: e.rot.Retract(delta[:3]).(Rot3),
		dir: e.dir.Retract(delta[3:5]).(Unit3),
	}
}

// LocalCoordinates implements core.Value, concatenating the rotation and
// direction coordinates.
func (e EssentialMatrix) LocalCoordinates(other core.Value) []float64 {
	o, okcast := other.(EssentialMatrix)
	if !okcast {
		panic("geometry: LocalCoordinates between EssentialMatrix and non-EssentialMatrix value")
	}
	out := make([]float64, 0, 5)
	out = append(out, e.rot.LocalCoordinates(o.rot)...)
	out = append(out, e.dir.LocalCoordinates(o.dir)...)
	return out
}
