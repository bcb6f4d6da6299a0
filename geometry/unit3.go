package geometry

import (
	"math"

	"github.com/eglrp/my-gtsam/core"
)

// Unit3 is a direction on the unit sphere S², with 2 degrees of freedom.
// Tangent vectors are expressed in an orthonormal basis of the tangent
// plane at the direction. The zero value is NOT valid; use NewUnit3.
type Unit3 struct {
	d Vector3
}

// NewUnit3 builds a direction from any nonzero vector, normalizing it.
// ok is false when v is too close to zero to define a direction.
func NewUnit3(v Vector3) (Unit3, bool) {
	unit, okn := v.Normalize()
	if !okn {
		return Unit3{}, false
	}
	return Unit3{d: unit}, true
}

// Point returns the direction as a unit vector.
func (u Unit3) Point() Vector3 { return u.d }

// basis returns an orthonormal basis (b1, b2) of the tangent plane at u.
// The basis is deterministic for a given direction.
func (u Unit3) basis() (Vector3, Vector3) {
	// Pick the coordinate axis least aligned with the direction so the
	// cross product is well conditioned.
	ax := Vector3{1, 0, 0}
	if math.Abs(u.d[1]) < math.Abs(u.d[0]) {
		ax = Vector3{0, 1, 0}
	}
	if math.Abs(u.d[2]) < math.Abs(u.d[0]) && math.Abs(u.d[2]) < math.Abs(u.d[1]) {
		ax = Vector3{0, 0, 1}
	}
	b1, _ := u.d.Cross(ax).Normalize()
	b2 := u.d.Cross(b1)
	return b1, b2
}

// Dim implements core.Value: S² has 2 degrees of freedom.
func (u Unit3) Dim() int { return 2 }

// Retract implements core.Value by the sphere exponential map: the tangent
// vector delta is rotated onto the sphere along the great circle it points
// at.
func (u Unit3) Retract(delta []float64) core.Value {
	b1, b2 := u.basis()
	w := b1.Scale(delta[0]).Add(b2.Scale(delta[1]))
	theta := w.Norm()
	if theta < 1e-12 {
		return u
	}
	wn := w.Scale(1 / theta)
	nd := u.d.Scale(math.Cos(theta)).Add(wn.Scale(math.Sin(theta)))
	unit, _ := nd.Normalize()
	return Unit3{d: unit}
}

// LocalCoordinates implements core.Value, the inverse of Retract: the
// angle between the directions distributed over the tangent basis.
func (u Unit3) LocalCoordinates(other core.Value) []float64 {
	o, okcast := other.(Unit3)
	if !okcast {
		panic("geometry: LocalCoordinates between Unit3 and non-Unit3 value")
	}
	c := math.Max(-1, math.Min(1, u.d.Dot(o.d)))
	theta := math.Acos(c)
	if theta < 1e-12 {
		return []float64{0, 0}
	}
	// Component of the other direction orthogonal to u, normalized.
	orth := o.d.Sub(u.d.Scale(c))
	w, okn := orth.Normalize()
	if !okn {
		// Antipodal: the geodesic is not unique, pick the first basis
		// direction.
		return []float64{theta, 0}
	}
	b1, b2 := u.basis()
	return []float64{theta * w.Dot(b1), theta * w.Dot(b2)}
}
