package noise

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiagonalSigmasRejectsNonPositive(t *testing.T) {
	cases := [][]float64{
		{},
		{0},
		{1, -0.5},
		{1, math.NaN()},
		{math.Inf(1)},
	}
	for _, sigmas := range cases {
		_, err := NewDiagonalSigmas(sigmas...)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidNoiseModel)
	}
}

func TestNewDiagonalVariancesRejectsNonPositive(t *testing.T) {
	_, err := NewDiagonalVariances(1, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNoiseModel)

	_, err = NewDiagonalVariances(1, -2)
	assert.ErrorIs(t, err, ErrInvalidNoiseModel)
}

func TestDiagonalWhiten(t *testing.T) {
	m, err := NewDiagonalSigmas(0.5, 2)
	require.NoError(t, err)
	require.Equal(t, 2, m.Dim())

	r := mat.NewVecDense(2, []float64{1, 1})
	w := m.Whiten(r)
	assert.InDelta(t, 2, w.AtVec(0), 1e-12)
	assert.InDelta(t, 0.5, w.AtVec(1), 1e-12)
	// Input untouched.
	assert.Equal(t, 1.0, r.AtVec(0))
}

func TestDiagonalWhitenSystem(t *testing.T) {
	m, err := NewDiagonalSigmas(0.1, 10)
	require.NoError(t, err)

	jac := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	r := mat.NewVecDense(2, []float64{1, 2})
	m.WhitenSystem([]*mat.Dense{jac}, r)

	assert.InDelta(t, 10, r.AtVec(0), 1e-12)
	assert.InDelta(t, 0.2, r.AtVec(1), 1e-12)
	assert.InDelta(t, 10, jac.At(0, 0), 1e-12)
	assert.InDelta(t, 20, jac.At(0, 1), 1e-12)
	assert.InDelta(t, 0.3, jac.At(1, 0), 1e-12)
	assert.InDelta(t, 0.4, jac.At(1, 1), 1e-12)
}

func TestIsotropicAndUnit(t *testing.T) {
	iso, err := NewIsotropic(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2}, iso.Sigmas())

	_, err = NewIsotropic(0, 1)
	assert.ErrorIs(t, err, ErrInvalidNoiseModel)

	unit, err := NewUnit(4)
	require.NoError(t, err)
	r := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	w := unit.Whiten(r)
	assert.InDelta(t, 0, mat.Norm(w, 2)-mat.Norm(r, 2), 1e-12)
}

func TestGaussianCovarianceWhiten(t *testing.T) {
	// Σ = [[4, 2], [2, 3]] is positive definite.
	cov := mat.NewSymDense(2, []float64{4, 2, 2, 3})
	m, err := NewGaussianCovariance(cov)
	require.NoError(t, err)

	// ‖Σ^{-1/2}·r‖² must equal rᵀ·Σ⁻¹·r.
	r := mat.NewVecDense(2, []float64{1, -2})
	w := m.Whiten(r)
	got := mat.Dot(w, w)

	var chol mat.Cholesky
	require.True(t, chol.Factorize(cov))
	solved := mat.NewVecDense(2, nil)
	require.NoError(t, chol.SolveVecTo(solved, r))
	want := mat.Dot(r, solved)

	assert.InDelta(t, want, got, 1e-10)
}

func TestGaussianCovarianceRejectsNonPD(t *testing.T) {
	// Indefinite matrix.
	cov := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err := NewGaussianCovariance(cov)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNoiseModel)
}
