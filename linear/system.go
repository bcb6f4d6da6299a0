// Package linear holds the ephemeral linear system produced by
// linearizing a factor graph: the normal equations JᵀJ·δ = -Jᵀb in
// block-structured information form, plus the damped Cholesky solve that
// turns them into a local-coordinate update step. A fresh system is built
// at every linearization point and discarded after the solve.
package linear

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/factor"
)

// ErrUnderconstrained indicates a rank-deficient system: the information
// matrix could not be factorized. The dominant real-world cause is a graph
// without enough absolute references, e.g. an essential-matrix-only chain
// with no scale anchor.
var ErrUnderconstrained = errors.New("underconstrained system")

// ErrUnconstrainedVariable indicates a variable no factor touches; its
// diagonal information block is identically zero.
type ErrUnconstrainedVariable struct {
	Key core.Key
}

func (e *ErrUnconstrainedVariable) Error() string {
	return fmt.Sprintf("underconstrained system: variable %s has no constraints", e.Key)
}

func (e *ErrUnconstrainedVariable) Unwrap() error { return ErrUnderconstrained }

// System is the assembled normal-equations form of a linearized factor
// graph. Variable blocks are laid out in the key order given at
// construction.
type System struct {
	keys    []core.Key
	offsets map[core.Key]int
	dims    map[core.Key]int
	n       int

	hessian  *mat.SymDense // JᵀJ
	gradient *mat.VecDense // Jᵀb
}

// NewSystem allocates an empty system for the given variables. keys and
// dims run in parallel; keys sets the block ordering.
func NewSystem(keys []core.Key, dims []int) *System {
	offsets := make(map[core.Key]int, len(keys))
	dm := make(map[core.Key]int, len(keys))
	n := 0
	for i, k := range keys {
		offsets[k] = n
		dm[k] = dims[i]
		n += dims[i]
	}
	return &System{
		keys:     append([]core.Key(nil), keys...),
		offsets:  offsets,
		dims:     dm,
		n:        n,
		hessian:  mat.NewSymDense(n, nil),
		gradient: mat.NewVecDense(n, nil),
	}
}

// Dim returns the total dimension of the system.
func (s *System) Dim() int { return s.n }

// Keys returns the variable ordering.
func (s *System) Keys() []core.Key { return s.keys }

// DimOf returns the block dimension of a variable.
func (s *System) DimOf(key core.Key) int { return s.dims[key] }

// Add scatters one factor linearization into the normal equations. Each
// factor contributes JᵀJ blocks for every pair of its variables and a Jᵀb
// slice per variable.
func (s *System) Add(lin *factor.Linearization) error {
	for ai, ka := range lin.Keys {
		oa, known := s.offsets[ka]
		if !known {
			return fmt.Errorf("linear: factor references key %s outside the system", ka)
		}
		ja := lin.Jacobians[ai]

		// Gradient slice Jaᵀb.
		var g mat.VecDense
		g.MulVec(ja.T(), lin.Residual)
		for i := 0; i < g.Len(); i++ {
			s.gradient.SetVec(oa+i, s.gradient.AtVec(oa+i)+g.AtVec(i))
		}

		// Hessian blocks JaᵀJb, each unordered pair once.
		for bi := ai; bi < len(lin.Keys); bi++ {
			kb := lin.Keys[bi]
			ob := s.offsets[kb]
			jb := lin.Jacobians[bi]

			var block mat.Dense
			block.Mul(ja.T(), jb)
			rows, cols := block.Dims()
			for i := 0; i < rows; i++ {
				jstart := 0
				if ai == bi {
					jstart = i // diagonal block: upper triangle only
				}
				for j := jstart; j < cols; j++ {
					s.hessian.SetSym(oa+i, ob+j, s.hessian.At(oa+i, ob+j)+block.At(i, j))
				}
			}
		}
	}
	return nil
}

// CheckConstrained fails with ErrUnconstrainedVariable when some variable
// has an identically zero diagonal information block, i.e. no factor
// constrains it.
func (s *System) CheckConstrained() error {
	for _, k := range s.keys {
		o, d := s.offsets[k], s.dims[k]
		zero := true
		for i := o; i < o+d && zero; i++ {
			for j := o; j < o+d; j++ {
				if s.hessian.At(i, j) != 0 {
					zero = false
					break
				}
			}
		}
		if zero {
			return &ErrUnconstrainedVariable{Key: k}
		}
	}
	return nil
}

// Hessian returns the information matrix JᵀJ. The returned matrix is the
// system's own storage; callers must not modify it.
func (s *System) Hessian() *mat.SymDense { return s.hessian }

// Gradient returns Jᵀb, the gradient of the ½‖b+Jδ‖² objective at δ=0.
func (s *System) Gradient() *mat.VecDense { return s.gradient }

// GradientNorm returns ‖Jᵀb‖₂.
func (s *System) GradientNorm() float64 {
	return mat.Norm(s.gradient, 2)
}
