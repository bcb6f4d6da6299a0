package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func assertVec3InDelta(t *testing.T, want, got Vector3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta)
	}
}

func assertRot3InDelta(t *testing.T, want, got Rot3, delta float64) {
	t.Helper()
	w := want.Between(got).Logmap()
	assert.InDelta(t, 0, w.Norm(), delta)
}

func TestRot3ExpmapLogmapRoundTrip(t *testing.T) {
	cases := []Vector3{
		{0, 0, 0},
		{1e-12, 0, 0},
		{0.1, -0.2, 0.3},
		{1, 1, -1},
		{0, math.Pi - 1e-4, 0},
		{2, 2, 1},
	}
	for _, w := range cases {
		r := Rot3Expmap(w)
		assertVec3InDelta(t, w, r.Logmap(), 1e-7)
	}
}

func TestRot3LogmapNearPi(t *testing.T) {
	// Rotation by almost π about X: the antisymmetric part nearly
	// vanishes and the axis must come from the diagonal.
	w := Vector3{math.Pi - 1e-9, 0, 0}
	r := Rot3Expmap(w)
	back := r.Logmap()
	assert.InDelta(t, w.Norm(), back.Norm(), 1e-6)
	assert.InDelta(t, 1, math.Abs(back[0])/back.Norm(), 1e-6)
}

func TestRot3ComposeInverse(t *testing.T) {
	r := Rot3Ypr(0.3, -0.2, 0.7)
	assertRot3InDelta(t, Rot3Identity(), r.Compose(r.Inverse()), tol)
	assertRot3InDelta(t, Rot3Identity(), r.Inverse().Compose(r), tol)
}

func TestRot3RotateUnrotate(t *testing.T) {
	r := Rot3Ypr(1.1, 0.4, -0.6)
	v := Vector3{1, -2, 3}
	assertVec3InDelta(t, v, r.Unrotate(r.Rotate(v)), tol)
	// Rotation preserves length.
	assert.InDelta(t, v.Norm(), r.Rotate(v).Norm(), tol)
}

func TestRot3RetractLocalCoordinates(t *testing.T) {
	a := Rot3Ypr(0.1, 0.2, 0.3)
	b := Rot3Ypr(-0.4, 0.1, 0.9)

	delta := a.LocalCoordinates(b)
	require.Len(t, delta, 3)
	assertRot3InDelta(t, b, a.Retract(delta).(Rot3), tol)

	// Identity perturbation is a no-op.
	assertRot3InDelta(t, a, a.Retract([]float64{0, 0, 0}).(Rot3), tol)
}

func TestRot3LocalCoordinatesPanicsOnTypeMismatch(t *testing.T) {
	a := Rot3Identity()
	assert.Panics(t, func() {
		a.LocalCoordinates(Pose3Identity())
	})
}
