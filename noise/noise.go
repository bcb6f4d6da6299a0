// Package noise provides Gaussian noise models that weight factor
// residuals. A model whitens a raw geometric error (and the matching
// Jacobian rows) by the inverse square root of its covariance, so that the
// optimizer minimizes a plain sum of squares.
package noise

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidNoiseModel is returned when a model is constructed with a
// non-positive-definite covariance, e.g. a zero or negative variance.
var ErrInvalidNoiseModel = errors.New("invalid noise model")

// Model whitens residuals and Jacobians. Implementations are immutable and
// safe for concurrent use.
type Model interface {
	// Dim returns the residual dimension the model applies to.
	Dim() int

	// Whiten returns Σ^{-1/2}·r without mutating r.
	Whiten(r *mat.VecDense) *mat.VecDense

	// WhitenSystem applies Σ^{-1/2} in place to the rows of each Jacobian
	// block and to the residual.
	WhitenSystem(jacobians []*mat.Dense, r *mat.VecDense)

	// Sigmas returns the per-component standard deviations.
	Sigmas() []float64
}

// Diagonal is a noise model with independent per-component variances.
type Diagonal struct {
	sigmas    []float64
	invSigmas []float64
}

// NewDiagonalSigmas builds a Diagonal model from standard deviations.
// Fails with ErrInvalidNoiseModel when any sigma is zero, negative or not
// finite.
func NewDiagonalSigmas(sigmas ...float64) (*Diagonal, error) {
	if len(sigmas) == 0 {
		return nil, fmt.Errorf("%w: empty sigma vector", ErrInvalidNoiseModel)
	}
	inv := make([]float64, len(sigmas))
	for i, s := range sigmas {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: sigma[%d] = %v", ErrInvalidNoiseModel, i, s)
		}
		inv[i] = 1 / s
	}
	out := make([]float64, len(sigmas))
	copy(out, sigmas)
	return &Diagonal{sigmas: out, invSigmas: inv}, nil
}

// NewDiagonalVariances builds a Diagonal model from variances.
func NewDiagonalVariances(variances ...float64) (*Diagonal, error) {
	sigmas := make([]float64, len(variances))
	for i, v := range variances {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: variance[%d] = %v", ErrInvalidNoiseModel, i, v)
		}
		sigmas[i] = math.Sqrt(v)
	}
	return NewDiagonalSigmas(sigmas...)
}

// NewIsotropic builds a Diagonal model with the same sigma on every
// component.
func NewIsotropic(dim int, sigma float64) (*Diagonal, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidNoiseModel, dim)
	}
	sigmas := make([]float64, dim)
	for i := range sigmas {
		sigmas[i] = sigma
	}
	return NewDiagonalSigmas(sigmas...)
}

// NewUnit builds a Diagonal model with unit variances, i.e. no reweighting.
func NewUnit(dim int) (*Diagonal, error) {
	return NewIsotropic(dim, 1)
}

// Dim implements Model.
func (d *Diagonal) Dim() int { return len(d.sigmas) }

// Sigmas implements Model.
func (d *Diagonal) Sigmas() []float64 {
	out := make([]float64, len(d.sigmas))
	copy(out, d.sigmas)
	return out
}

// Whiten implements Model.
func (d *Diagonal) Whiten(r *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(r.Len(), nil)
	for i := 0; i < r.Len(); i++ {
		out.SetVec(i, r.AtVec(i)*d.invSigmas[i])
	}
	return out
}

// WhitenSystem implements Model.
func (d *Diagonal) WhitenSystem(jacobians []*mat.Dense, r *mat.VecDense) {
	for i := 0; i < r.Len(); i++ {
		r.SetVec(i, r.AtVec(i)*d.invSigmas[i])
	}
	for _, j := range jacobians {
		rows, cols := j.Dims()
		for ri := 0; ri < rows; ri++ {
			w := d.invSigmas[ri]
			for ci := 0; ci < cols; ci++ {
				j.Set(ri, ci, j.At(ri, ci)*w)
			}
		}
	}
}

// Covariance returns the model covariance as a diagonal matrix.
func (d *Diagonal) Covariance() *mat.SymDense {
	out := mat.NewSymDense(len(d.sigmas), nil)
	for i, s := range d.sigmas {
		out.SetSym(i, i, s*s)
	}
	return out
}

// Gaussian is a noise model with a full covariance matrix. Whitening uses
// R = L⁻¹ from the Cholesky factorization Σ = L·Lᵀ.
type Gaussian struct {
	dim   int
	right *mat.Dense // L⁻¹, lower triangular
	cov   *mat.SymDense
}

// NewGaussianCovariance builds a Gaussian model from a covariance matrix.
// Fails with ErrInvalidNoiseModel when the covariance is not positive
// definite.
func NewGaussianCovariance(cov *mat.SymDense) (*Gaussian, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty covariance", ErrInvalidNoiseModel)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("%w: covariance not positive definite", ErrInvalidNoiseModel)
	}
	var l mat.TriDense
	chol.LTo(&l)
	var inv mat.Dense
	if err := inv.Inverse(&l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNoiseModel, err)
	}
	kept := mat.NewSymDense(n, nil)
	kept.CopySym(cov)
	return &Gaussian{dim: n, right: &inv, cov: kept}, nil
}

// Dim implements Model.
func (g *Gaussian) Dim() int { return g.dim }

// Sigmas implements Model, returning the square roots of the covariance
// diagonal.
func (g *Gaussian) Sigmas() []float64 {
	out := make([]float64, g.dim)
	for i := range out {
		out[i] = math.Sqrt(g.cov.At(i, i))
	}
	return out
}

// Whiten implements Model.
func (g *Gaussian) Whiten(r *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(r.Len(), nil)
	out.MulVec(g.right, r)
	return out
}

// WhitenSystem implements Model.
func (g *Gaussian) WhitenSystem(jacobians []*mat.Dense, r *mat.VecDense) {
	r.CopyVec(g.Whiten(r))
	for _, j := range jacobians {
		var w mat.Dense
		w.Mul(g.right, j)
		j.Copy(&w)
	}
}

// Covariance returns a copy of the model covariance.
func (g *Gaussian) Covariance() *mat.SymDense {
	out := mat.NewSymDense(g.dim, nil)
	out.CopySym(g.cov)
	return out
}
