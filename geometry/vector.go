package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vector3 is a point or direction in R³.
type Vector3 [3]float64

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns s·v.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{s * v[0], s * v[1], s * v[2]}
}

// Dot returns the inner product v·o.
func (v Vector3) Dot(o Vector3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product v × o.
func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. ok is false when the norm is
// too small to normalize safely.
func (v Vector3) Normalize() (unit Vector3, ok bool) {
	n := v.Norm()
	if n < 1e-12 {
		return Vector3{}, false
	}
	return v.Scale(1 / n), true
}

// Vec returns v as a gonum vector.
func (v Vector3) Vec() *mat.VecDense {
	return mat.NewVecDense(3, []float64{v[0], v[1], v[2]})
}

// Skew returns the 3×3 skew-symmetric matrix [v]× such that [v]× w = v × w.
func Skew(v Vector3) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}
