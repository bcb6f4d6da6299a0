package factor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/geometry"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/values"
)

// Between constrains the relative transform between two Pose3 variables,
// the classic odometry factor: the residual is
// Log(measured⁻¹·(x1⁻¹·x2)), whitened by the noise model.
type Between struct {
	k1, k2   core.Key
	measured geometry.Pose3
	model    noise.Model
}

// NewBetween builds a between factor. Fails when the noise model is not
// 6-dimensional.
func NewBetween(k1, k2 core.Key, measured geometry.Pose3, model noise.Model) (*Between, error) {
	if model.Dim() != measured.Dim() {
		return nil, &ErrDimensionMismatch{Expected: measured.Dim(), Actual: model.Dim()}
	}
	return &Between{k1: k1, k2: k2, measured: measured, model: model}, nil
}

// Keys implements Factor.
func (f *Between) Keys() []core.Key { return []core.Key{f.k1, f.k2} }

// Dim implements Factor.
func (f *Between) Dim() int { return 6 }

// Measured returns the relative-pose measurement.
func (f *Between) Measured() geometry.Pose3 { return f.measured }

func (f *Between) poses(v *values.Values) (x1, x2 geometry.Pose3, err error) {
	x1, err = v.Pose3(f.k1)
	if err != nil {
		return
	}
	x2, err = v.Pose3(f.k2)
	return
}

// Error implements Factor.
func (f *Between) Error(v *values.Values) (float64, error) {
	x1, x2, err := f.poses(v)
	if err != nil {
		return 0, err
	}
	raw := mat.NewVecDense(6, f.measured.LocalCoordinates(x1.Between(x2)))
	return halfSquaredNorm(f.model.Whiten(raw)), nil
}

// Linearize implements Factor. With right-composed retractions the
// Jacobian with respect to x2 is the identity and the one with respect to
// x1 is -Ad(h⁻¹) for h = x1⁻¹·x2; both are exact where the residual
// vanishes.
func (f *Between) Linearize(v *values.Values) (*Linearization, error) {
	x1, x2, err := f.poses(v)
	if err != nil {
		return nil, err
	}
	h := x1.Between(x2)
	raw := mat.NewVecDense(6, f.measured.LocalCoordinates(h))

	j1 := h.Inverse().AdjointMap()
	j1.Scale(-1, j1)
	j2 := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		j2.Set(i, i, 1)
	}

	jacs := []*mat.Dense{j1, j2}
	f.model.WhitenSystem(jacs, raw)
	return &Linearization{
		Keys:      f.Keys(),
		Jacobians: jacs,
		Residual:  raw,
	}, nil
}
