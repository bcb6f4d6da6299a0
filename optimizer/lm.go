// Package optimizer implements Levenberg-Marquardt nonlinear least-squares
// optimization over a factor graph. Each iteration linearizes the graph at
// the current estimate, solves the damped normal equations, tentatively
// retracts every variable and accepts or rejects the step by comparing
// total error. The caller's graph and initial values are never mutated;
// the optimizer works on private copies, so a rejected step is discarded
// by simply not adopting the candidate.
package optimizer

import (
	"context"
	"log/slog"
	"math"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/graph"
	"github.com/eglrp/my-gtsam/linear"
	"github.com/eglrp/my-gtsam/values"
)

// minLambda keeps the damping factor from underflowing to zero across
// many accepted steps.
const minLambda = 1e-12

// Optimizer runs Levenberg-Marquardt over one graph. The iterate loop is
// strictly sequential; within an iteration, factor evaluation is spread
// over a worker pool.
type Optimizer struct {
	graph  *graph.Graph
	config Config
	logger *slog.Logger
}

// New builds an optimizer. A nil logger discards all output.
func New(g *graph.Graph, cfg Config, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Optimizer{graph: g, config: cfg.withDefaults(), logger: logger}
}

// Optimize iterates from the given initial estimate until convergence, the
// iteration budget, damping saturation or context cancellation. The
// returned values are always the last fully-accepted estimate; soft
// failures are reported through Result.Status, while caller bugs (keys
// missing from the store, unconstrained variables) and cancellation are
// reported as errors.
func (o *Optimizer) Optimize(ctx context.Context, initial *values.Values) (*values.Values, Result, error) {
	cfg := o.config
	var res Result

	if err := o.graph.Validate(initial); err != nil {
		return nil, res, err
	}
	if err := checkAllConstrained(o.graph, initial); err != nil {
		return nil, res, err
	}

	current := initial.Copy()
	currErr, err := o.graph.Error(current)
	if err != nil {
		return nil, res, err
	}
	res.InitialError = currErr
	res.FinalError = currErr

	if currErr <= cfg.ErrorTol {
		o.logger.Debug("already at minimum", "error", currErr)
		res.Status = StatusConverged
		return current, res, nil
	}

	workers := cfg.NumWorkers
	pool := graph.NewWorkerPool(workers)
	defer pool.Close()
	if workers <= 0 {
		workers = pool.Workers()
	}

	lambda := cfg.InitialLambda
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			res.Status = StatusInterrupted
			return current, res, ctx.Err()
		default:
		}

		sys, err := o.graph.LinearizeParallel(ctx, current, pool)
		if err != nil {
			return current, res, err
		}
		if iter == 1 {
			if err := sys.CheckConstrained(); err != nil {
				return current, res, err
			}
		}

		prevErr := currErr
		accepted := false
		for retry := 0; retry <= cfg.MaxRetries; retry++ {
			step, serr := sys.Solve(lambda)
			if serr != nil {
				// Not positive definite at this damping; push lambda up
				// and retry like a rejected step.
				lambda *= cfg.LambdaFactor
				if lambda > cfg.MaxLambda {
					o.logger.Warn("damping saturated without a solvable system",
						"iteration", iter, "lambda", lambda, "error", currErr)
					res.Status = StatusLambdaSaturated
					res.FinalError = currErr
					res.Iterations = iter
					return current, res, serr
				}
				continue
			}

			candidate, rerr := retractAll(current, sys, step)
			if rerr != nil {
				return current, res, rerr
			}
			candErr, eerr := o.graph.ErrorParallel(ctx, candidate, workers)
			if eerr != nil {
				return current, res, eerr
			}

			res.History = append(res.History, IterationStats{
				Iteration:   iter,
				Lambda:      lambda,
				ErrorBefore: currErr,
				ErrorAfter:  candErr,
				Accepted:    candErr <= currErr,
			})
			o.logger.Debug("iteration",
				"iteration", iter, "retry", retry, "lambda", lambda,
				"error_before", currErr, "error_after", candErr,
				"accepted", candErr <= currErr)

			if candErr <= currErr {
				current = candidate
				currErr = candErr
				lambda = math.Max(lambda/cfg.LambdaFactor, minLambda)
				accepted = true
				break
			}

			lambda *= cfg.LambdaFactor
			if lambda > cfg.MaxLambda {
				o.logger.Warn("damping saturated without improvement",
					"iteration", iter, "lambda", lambda, "error", currErr)
				res.Status = StatusLambdaSaturated
				res.FinalError = currErr
				res.Iterations = iter
				return current, res, nil
			}
		}

		res.Iterations = iter
		res.FinalError = currErr

		if !accepted {
			o.logger.Warn("retry budget exhausted without improvement",
				"iteration", iter, "lambda", lambda, "error", currErr)
			res.Status = StatusLambdaSaturated
			return current, res, nil
		}

		decrease := prevErr - currErr
		relDecrease := math.Inf(1)
		if prevErr > 0 {
			relDecrease = decrease / prevErr
		}
		if decrease < cfg.AbsoluteErrorTol || relDecrease < cfg.RelativeErrorTol || currErr <= cfg.ErrorTol {
			o.logger.Info("converged",
				"iterations", iter, "initial_error", res.InitialError, "final_error", currErr)
			res.Status = StatusConverged
			return current, res, nil
		}
	}

	o.logger.Warn("iteration budget exhausted",
		"iterations", cfg.MaxIterations, "error", currErr)
	res.Status = StatusMaxIterationsReached
	return current, res, nil
}

// retractAll applies the step to every variable of the system, producing a
// fresh candidate estimate and leaving v untouched.
func retractAll(v *values.Values, sys *linear.System, step *linear.Step) (*values.Values, error) {
	out := v.Copy()
	for _, k := range sys.Keys() {
		nv, err := v.Retract(k, step.Delta(k))
		if err != nil {
			return nil, err
		}
		if err := out.Update(k, nv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkAllConstrained fails when the store holds a variable no factor
// references; such a variable has a structurally zero information block.
func checkAllConstrained(g *graph.Graph, v *values.Values) error {
	referenced := make(map[core.Key]struct{})
	for _, k := range g.Keys() {
		referenced[k] = struct{}{}
	}
	for _, k := range v.Keys() {
		if _, seen := referenced[k]; !seen {
			return &linear.ErrUnconstrainedVariable{Key: k}
		}
	}
	return nil
}
