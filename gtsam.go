package gtsam

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/graph"
	"github.com/eglrp/my-gtsam/marginals"
	"github.com/eglrp/my-gtsam/optimizer"
	"github.com/eglrp/my-gtsam/values"
)

// Optimize runs Levenberg-Marquardt on the graph from the given initial
// estimate. The graph and the initial values are treated as read-only; the
// returned values are an independent store holding the last fully-accepted
// estimate. Soft failures (iteration budget, damping saturation) are
// reported through Result.Status with a usable estimate; caller bugs and
// cancellation come back as errors from the package-level taxonomy.
func Optimize(ctx context.Context, g *graph.Graph, initial *values.Values, optFns ...Option) (*values.Values, optimizer.Result, error) {
	o := applyOptions(optFns...)
	logger := o.logger.WithGraphSize(g.Len(), initial.Len())

	start := time.Now()
	solution, res, err := optimizer.New(g, o.config, logger.Logger).Optimize(ctx, initial)
	err = translateError(err)

	o.metrics.RecordOptimize(res.Iterations, time.Since(start), err)
	for _, it := range res.History {
		o.metrics.RecordIteration(it.Lambda, it.Accepted)
	}
	logger.LogOptimize(ctx, res, err)

	return solution, res, err
}

// NewMarginals computes marginal covariances for every variable of the
// graph at a fixed solution, typically the output of Optimize.
func NewMarginals(ctx context.Context, g *graph.Graph, solution *values.Values, optFns ...Option) (*marginals.Marginals, error) {
	o := applyOptions(optFns...)

	start := time.Now()
	m, err := marginals.New(g, solution)
	err = translateError(err)

	o.metrics.RecordMarginals(time.Since(start), err)
	o.logger.LogMarginals(ctx, err)

	return m, err
}

// MarginalCovariance computes the marginal covariance block of a single
// variable at the given solution. When several variables are queried
// against the same solution, build a marginals engine once with
// NewMarginals instead.
func MarginalCovariance(ctx context.Context, g *graph.Graph, solution *values.Values, key core.Key, optFns ...Option) (*mat.SymDense, error) {
	m, err := NewMarginals(ctx, g, solution, optFns...)
	if err != nil {
		return nil, err
	}
	cov, err := m.Covariance(key)
	return cov, translateError(err)
}
