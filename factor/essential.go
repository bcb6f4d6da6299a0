package factor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/geometry"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/values"
)

// EssentialMatrixConstraint constrains two Pose3 variables by an essential
// matrix measured from two-view epipolar geometry. The residual is the
// 5-dimensional local-coordinate difference between the measurement and
// the essential matrix predicted from the relative pose; the translation
// magnitude between the poses stays unobserved. A chain of these factors
// with a single anchoring prior leaves the global scale free, which the
// marginals engine reports as a singular information matrix.
type EssentialMatrixConstraint struct {
	k1, k2   core.Key
	measured geometry.EssentialMatrix
	model    noise.Model
}

// NewEssentialMatrixConstraint builds an essential-matrix factor. Fails
// when the noise model is not 5-dimensional.
func NewEssentialMatrixConstraint(k1, k2 core.Key, measured geometry.EssentialMatrix, model noise.Model) (*EssentialMatrixConstraint, error) {
	if model.Dim() != measured.Dim() {
		return nil, &ErrDimensionMismatch{Expected: measured.Dim(), Actual: model.Dim()}
	}
	return &EssentialMatrixConstraint{k1: k1, k2: k2, measured: measured, model: model}, nil
}

// Keys implements Factor.
func (f *EssentialMatrixConstraint) Keys() []core.Key { return []core.Key{f.k1, f.k2} }

// Dim implements Factor.
func (f *EssentialMatrixConstraint) Dim() int { return 5 }

// Measured returns the essential-matrix measurement.
func (f *EssentialMatrixConstraint) Measured() geometry.EssentialMatrix { return f.measured }

// rawError evaluates the unwhitened residual at a pair of poses.
func (f *EssentialMatrixConstraint) rawError(x1, x2 geometry.Pose3) ([]float64, error) {
	predicted, okp := geometry.EssentialFromPose3(x1.Between(x2))
	if !okp {
		return nil, fmt.Errorf("%w: poses %s and %s are translationally coincident", ErrDegenerateGeometry, f.k1, f.k2)
	}
	return f.measured.LocalCoordinates(predicted), nil
}

// Error implements Factor.
func (f *EssentialMatrixConstraint) Error(v *values.Values) (float64, error) {
	x1, err := v.Pose3(f.k1)
	if err != nil {
		return 0, err
	}
	x2, err := v.Pose3(f.k2)
	if err != nil {
		return 0, err
	}
	raw, err := f.rawError(x1, x2)
	if err != nil {
		return 0, err
	}
	return halfSquaredNorm(f.model.Whiten(mat.NewVecDense(5, raw))), nil
}

// Linearize implements Factor. The Jacobians are computed by central
// differences; the chain through the direction normalization makes the
// analytic form not worth maintaining.
func (f *EssentialMatrixConstraint) Linearize(v *values.Values) (*Linearization, error) {
	x1, err := v.Pose3(f.k1)
	if err != nil {
		return nil, err
	}
	x2, err := v.Pose3(f.k2)
	if err != nil {
		return nil, err
	}
	raw, err := f.rawError(x1, x2)
	if err != nil {
		return nil, err
	}

	j1, err := NumericalJacobian(func(x core.Value) ([]float64, error) {
		return f.rawError(x.(geometry.Pose3), x2)
	}, x1, 0)
	if err != nil {
		return nil, err
	}
	j2, err := NumericalJacobian(func(x core.Value) ([]float64, error) {
		return f.rawError(x1, x.(geometry.Pose3))
	}, x2, 0)
	if err != nil {
		return nil, err
	}

	res := mat.NewVecDense(5, raw)
	jacs := []*mat.Dense{j1, j2}
	f.model.WhitenSystem(jacs, res)
	return &Linearization{
		Keys:      f.Keys(),
		Jacobians: jacs,
		Residual:  res,
	}, nil
}
