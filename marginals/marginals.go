// Package marginals recovers per-variable uncertainty from a converged
// factor graph: the graph is linearized once more at the solution, the
// information matrix is factorized, and marginal covariance blocks are read
// out of its inverse. The result is valid only for the exact values it was
// computed against.
package marginals

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/graph"
	"github.com/eglrp/my-gtsam/values"
)

// ErrSingularInformation indicates an information matrix that is singular
// or numerically near-singular at the solution: some direction of the
// state is unobserved. The canonical case is a chain of essential-matrix
// constraints whose global translation scale no factor pins down.
var ErrSingularInformation = errors.New("singular information matrix")

// condLimit is the condition-number bound beyond which the information
// matrix is treated as singular even when the factorization succeeds.
const condLimit = 1e12

// Marginals holds the covariance of every variable at a fixed solution.
type Marginals struct {
	offsets map[core.Key]int
	dims    map[core.Key]int
	cov     *mat.SymDense
}

// New linearizes the graph at the given solution and inverts the
// information matrix. Fails with ErrSingularInformation when the system is
// rank deficient or ill conditioned, and with the store's ErrUnknownKey
// when the graph references variables the solution does not hold.
func New(g *graph.Graph, v *values.Values) (*Marginals, error) {
	if err := g.Validate(v); err != nil {
		return nil, err
	}
	sys, err := g.Linearize(v)
	if err != nil {
		return nil, err
	}
	if err := sys.CheckConstrained(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingularInformation, err)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sys.Hessian()); !ok {
		return nil, fmt.Errorf("%w: factorization failed", ErrSingularInformation)
	}
	if cond := chol.Cond(); cond > condLimit {
		return nil, fmt.Errorf("%w: condition number %.3g", ErrSingularInformation, cond)
	}

	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularInformation, err)
	}

	offsets := make(map[core.Key]int)
	dims := make(map[core.Key]int)
	off := 0
	for _, k := range sys.Keys() {
		offsets[k] = off
		dims[k] = sys.DimOf(k)
		off += sys.DimOf(k)
	}
	return &Marginals{offsets: offsets, dims: dims, cov: &cov}, nil
}

// Covariance returns the marginal covariance block of one variable, in its
// local coordinates.
func (m *Marginals) Covariance(key core.Key) (*mat.SymDense, error) {
	o, known := m.offsets[key]
	if !known {
		return nil, &values.ErrUnknownKey{Key: key}
	}
	d := m.dims[key]
	out := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			out.SetSym(i, j, m.cov.At(o+i, o+j))
		}
	}
	return out, nil
}

// JointCovariance returns the joint covariance of a pair of variables: the
// two diagonal blocks plus their cross covariance, ordered k1 then k2.
func (m *Marginals) JointCovariance(k1, k2 core.Key) (*mat.SymDense, error) {
	o1, known := m.offsets[k1]
	if !known {
		return nil, &values.ErrUnknownKey{Key: k1}
	}
	o2, known := m.offsets[k2]
	if !known {
		return nil, &values.ErrUnknownKey{Key: k2}
	}
	d1, d2 := m.dims[k1], m.dims[k2]

	offs := []int{o1, o2}
	dims := []int{d1, d2}
	starts := []int{0, d1}
	out := mat.NewSymDense(d1+d2, nil)
	for bi := 0; bi < 2; bi++ {
		for bj := bi; bj < 2; bj++ {
			for i := 0; i < dims[bi]; i++ {
				jstart := 0
				if bi == bj {
					jstart = i
				}
				for j := jstart; j < dims[bj]; j++ {
					out.SetSym(starts[bi]+i, starts[bj]+j, m.cov.At(offs[bi]+i, offs[bj]+j))
				}
			}
		}
	}
	return out, nil
}
