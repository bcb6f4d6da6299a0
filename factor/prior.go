package factor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/values"
)

// Prior anchors a single variable to a known value. It works for any
// manifold type: the residual is the local-coordinate difference between
// the prior and the current estimate, whitened by the noise model.
type Prior struct {
	key   core.Key
	prior core.Value
	model noise.Model
}

// NewPrior builds a prior factor. Fails when the noise model dimension
// does not match the manifold dimension.
func NewPrior(key core.Key, prior core.Value, model noise.Model) (*Prior, error) {
	if model.Dim() != prior.Dim() {
		return nil, &ErrDimensionMismatch{Expected: prior.Dim(), Actual: model.Dim()}
	}
	return &Prior{key: key, prior: prior, model: model}, nil
}

// Keys implements Factor.
func (f *Prior) Keys() []core.Key { return []core.Key{f.key} }

// Dim implements Factor.
func (f *Prior) Dim() int { return f.prior.Dim() }

// rawError returns the unwhitened residual Local(prior, x).
func (f *Prior) rawError(v *values.Values) (*mat.VecDense, error) {
	x, err := v.At(f.key)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(f.Dim(), f.prior.LocalCoordinates(x)), nil
}

// Error implements Factor.
func (f *Prior) Error(v *values.Values) (float64, error) {
	raw, err := f.rawError(v)
	if err != nil {
		return 0, err
	}
	return halfSquaredNorm(f.model.Whiten(raw)), nil
}

// Linearize implements Factor. The Jacobian with respect to the variable's
// local coordinates is the identity to first order, which is exact at the
// prior itself.
func (f *Prior) Linearize(v *values.Values) (*Linearization, error) {
	raw, err := f.rawError(v)
	if err != nil {
		return nil, err
	}
	d := f.Dim()
	jac := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		jac.Set(i, i, 1)
	}
	jacs := []*mat.Dense{jac}
	f.model.WhitenSystem(jacs, raw)
	return &Linearization{
		Keys:      f.Keys(),
		Jacobians: jacs,
		Residual:  raw,
	}, nil
}
