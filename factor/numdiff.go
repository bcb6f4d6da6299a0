package factor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
)

// DefaultNumericalStep is the perturbation used by NumericalJacobian when
// the caller passes a non-positive step.
const DefaultNumericalStep = 1e-6

// NumericalJacobian differentiates fn with respect to the local coordinates
// of x by central differences over the manifold retraction. fn must return
// a vector of constant length. Useful for factor types whose analytic
// Jacobians are not worth deriving; the built-in essential-matrix
// constraint uses it.
func NumericalJacobian(fn func(core.Value) ([]float64, error), x core.Value, step float64) (*mat.Dense, error) {
	if step <= 0 {
		step = DefaultNumericalStep
	}
	dim := x.Dim()
	base, err := fn(x)
	if err != nil {
		return nil, err
	}
	jac := mat.NewDense(len(base), dim, nil)
	delta := make([]float64, dim)
	for j := 0; j < dim; j++ {
		delta[j] = step
		fwd, err := fn(x.Retract(delta))
		if err != nil {
			return nil, err
		}
		delta[j] = -step
		bwd, err := fn(x.Retract(delta))
		if err != nil {
			return nil, err
		}
		delta[j] = 0
		for i := range base {
			jac.Set(i, j, (fwd[i]-bwd[i])/(2*step))
		}
	}
	return jac, nil
}
