// Package factor defines the residual functions a factor graph is built
// from. Every factor type implements the same small capability interface,
// so the graph and the optimizer dispatch over factor kinds without knowing
// them: a factor names the variables it touches, the length of its residual
// and how to linearize itself at a point.
package factor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/values"
)

// ErrDegenerateGeometry indicates a factor whose measurement function is
// undefined at the evaluation point, e.g. an epipolar constraint between
// two coincident poses.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// ErrDimensionMismatch indicates a factor constructed with a noise model
// whose dimension does not match the residual.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: residual dim %d, noise model dim %d", e.Expected, e.Actual)
}

// Linearization is a factor's first-order Taylor expansion at a point: the
// whitened residual b and whitened Jacobian blocks J_k aligned with Keys,
// such that the linearized residual is b + Σ J_k·δ_k.
type Linearization struct {
	Keys      []core.Key
	Jacobians []*mat.Dense
	Residual  *mat.VecDense
}

// Factor is the capability interface shared by all factor types. Factors
// are immutable after construction and safe for concurrent evaluation.
type Factor interface {
	// Keys returns the variables the factor constrains, in a fixed order
	// matching the Jacobian blocks of Linearize.
	Keys() []core.Key

	// Dim returns the residual length.
	Dim() int

	// Error returns ½‖whitened residual‖² at the given values.
	Error(v *values.Values) (float64, error)

	// Linearize evaluates the whitened residual and Jacobians at the given
	// values.
	Linearize(v *values.Values) (*Linearization, error)
}

// halfSquaredNorm returns ½‖r‖².
func halfSquaredNorm(r *mat.VecDense) float64 {
	return 0.5 * mat.Dot(r, r)
}
