// Package graph implements the nonlinear factor graph: an ordered
// collection of factors over shared variables, with the total-error and
// linearization operations the optimizer iterates on. The graph holds no
// variable values and no back-pointers; variables are referenced by key
// only.
package graph

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/factor"
	"github.com/eglrp/my-gtsam/linear"
	"github.com/eglrp/my-gtsam/values"
)

// parallelThreshold is the factor count below which the parallel paths
// fall back to sequential evaluation; goroutine fan-out does not pay for
// small graphs.
const parallelThreshold = 64

// Graph is an ordered collection of factors. The order affects only the
// floating-point summation order of the total error, not the result. Not
// safe for concurrent mutation; read operations are safe to run
// concurrently once construction is done.
type Graph struct {
	factors []factor.Factor
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// Add appends a factor. The factor's keys need not exist anywhere yet;
// they are validated against the variable store when optimization starts.
func (g *Graph) Add(f factor.Factor) {
	g.factors = append(g.factors, f)
}

// Len returns the number of factors.
func (g *Graph) Len() int { return len(g.factors) }

// Factor returns the i-th factor.
func (g *Graph) Factor(i int) factor.Factor { return g.factors[i] }

// Keys returns the distinct variable keys referenced by any factor, in
// ascending order.
func (g *Graph) Keys() []core.Key {
	seen := make(map[core.Key]struct{})
	var keys []core.Key
	for _, f := range g.factors {
		for _, k := range f.Keys() {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return core.SortKeys(keys)
}

// Validate checks that every key referenced by a factor exists in the
// store, failing fast with the store's ErrUnknownKey otherwise.
func (g *Graph) Validate(v *values.Values) error {
	for _, f := range g.factors {
		for _, k := range f.Keys() {
			if !v.Has(k) {
				return &values.ErrUnknownKey{Key: k}
			}
		}
	}
	return nil
}

// Error returns the total objective Σ ½‖whitened residual‖² over all
// factors at the given values.
func (g *Graph) Error(v *values.Values) (float64, error) {
	total := 0.0
	for _, f := range g.factors {
		e, err := f.Error(v)
		if err != nil {
			return 0, err
		}
		total += e
	}
	return total, nil
}

// ErrorParallel evaluates the total error with factor evaluations spread
// over maxWorkers goroutines. Falls back to the sequential path for small
// graphs. The summation order is deterministic: partial sums are folded in
// factor order.
func (g *Graph) ErrorParallel(ctx context.Context, v *values.Values, maxWorkers int) (float64, error) {
	if len(g.factors) < parallelThreshold || maxWorkers <= 1 {
		return g.Error(v)
	}

	partial := make([]float64, len(g.factors))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(maxWorkers)
	chunk := (len(g.factors) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(g.factors); start += chunk {
		end := min(start+chunk, len(g.factors))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				e, err := g.factors[i].Error(v)
				if err != nil {
					return err
				}
				partial[i] = e
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	total := 0.0
	for _, e := range partial {
		total += e
	}
	return total, nil
}

// newSystem allocates the linear system for the graph's variables, with
// block dimensions taken from the store.
func (g *Graph) newSystem(v *values.Values) (*linear.System, error) {
	keys := g.Keys()
	dims := make([]int, len(keys))
	for i, k := range keys {
		val, err := v.At(k)
		if err != nil {
			return nil, err
		}
		dims[i] = val.Dim()
	}
	return linear.NewSystem(keys, dims), nil
}

// Linearize evaluates every factor at the given values and assembles the
// block-sparse normal equations.
func (g *Graph) Linearize(v *values.Values) (*linear.System, error) {
	sys, err := g.newSystem(v)
	if err != nil {
		return nil, err
	}
	for _, f := range g.factors {
		lin, err := f.Linearize(v)
		if err != nil {
			return nil, err
		}
		if err := sys.Add(lin); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

// LinearizeParallel evaluates factor Jacobians on the worker pool, each
// factor writing only its own slot, then assembles the system
// sequentially. Falls back to the sequential path for small graphs or a
// nil pool.
func (g *Graph) LinearizeParallel(ctx context.Context, v *values.Values, pool *WorkerPool) (*linear.System, error) {
	if pool == nil || pool.Workers() <= 1 || len(g.factors) < parallelThreshold {
		return g.Linearize(v)
	}

	sys, err := g.newSystem(v)
	if err != nil {
		return nil, err
	}

	lins := make([]*factor.Linearization, len(g.factors))
	errs := make([]error, len(g.factors))
	var wg sync.WaitGroup
	for i, f := range g.factors {
		wg.Add(1)
		submitErr := pool.Submit(ctx, func() {
			defer wg.Done()
			lins[i], errs[i] = f.Linearize(v)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, submitErr
		}
	}
	wg.Wait()

	for i, lerr := range errs {
		if lerr != nil {
			return nil, lerr
		}
		if err := sys.Add(lins[i]); err != nil {
			return nil, err
		}
	}
	return sys, nil
}
