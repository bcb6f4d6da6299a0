package optimizer

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/factor"
	"github.com/eglrp/my-gtsam/geometry"
	"github.com/eglrp/my-gtsam/graph"
	"github.com/eglrp/my-gtsam/linear"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/values"
)

func isotropic6(t *testing.T, sigma float64) noise.Model {
	t.Helper()
	m, err := noise.NewIsotropic(6, sigma)
	require.NoError(t, err)
	return m
}

func poseDistance(t *testing.T, a, b geometry.Pose3) float64 {
	t.Helper()
	d := a.LocalCoordinates(b)
	sum := 0.0
	for _, x := range d {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestOptimizeSinglePriorOneIteration(t *testing.T) {
	// A single prior is a linear problem in local coordinates: the first
	// Gauss-Newton step lands exactly on the prior mean. Tiny initial
	// damping keeps the step undistorted.
	target := geometry.Pose3Expmap([]float64{0.1, -0.2, 0.3, 1, 2, 3})
	prior, err := factor.NewPrior(0, target, isotropic6(t, 0.5))
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))

	cfg := DefaultConfig()
	cfg.InitialLambda = 1e-12

	solution, res, err := New(g, cfg, nil).Optimize(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Less(t, res.FinalError, 1e-15)

	got, err := solution.Pose3(0)
	require.NoError(t, err)
	assert.Less(t, poseDistance(t, target, got), 1e-7)

	// The caller's initial estimate is untouched.
	orig, err := initial.Pose3(0)
	require.NoError(t, err)
	assert.Less(t, poseDistance(t, geometry.Pose3Identity(), orig), 1e-15)
}

func TestOptimizeChainRecoversGroundTruth(t *testing.T) {
	// Anchored chain with exact relative measurements: the global minimum
	// has zero error and matches the ground-truth trajectory.
	model := isotropic6(t, 0.1)
	step := geometry.Pose3Expmap([]float64{0, 0, 0.2, 1, 0, 0})

	truth := []geometry.Pose3{geometry.Pose3Identity()}
	for i := 1; i < 5; i++ {
		truth = append(truth, truth[i-1].Compose(step))
	}

	g := graph.New()
	prior, err := factor.NewPrior(0, truth[0], model)
	require.NoError(t, err)
	g.Add(prior)
	for i := 1; i < len(truth); i++ {
		between, err := factor.NewBetween(core.Key(i-1), core.Key(i), step, model)
		require.NoError(t, err)
		g.Add(between)
	}

	initial := values.New()
	perturb := []float64{0.05, -0.03, 0.04, 0.2, -0.1, 0.15}
	for i, p := range truth {
		require.NoError(t, initial.Insert(core.Key(i), p.Compose(geometry.Pose3Expmap(perturb))))
	}

	solution, res, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Less(t, res.FinalError, 1e-9)
	assert.Less(t, res.FinalError, res.InitialError)

	for i, p := range truth {
		got, err := solution.Pose3(core.Key(i))
		require.NoError(t, err)
		assert.Lessf(t, poseDistance(t, p, got), 1e-4, "pose %d", i)
	}
}

func TestOptimizeSquareLoop(t *testing.T) {
	// Four poses around a unit square with zero rotation; the fourth
	// odometry edge closes the loop back onto the anchored pose.
	model := isotropic6(t, 0.1)
	edges := []geometry.Vector3{{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0}}

	truth := []geometry.Pose3{geometry.Pose3Identity()}
	for i := 1; i < 4; i++ {
		step := geometry.NewPose3(geometry.Rot3Identity(), edges[i-1])
		truth = append(truth, truth[i-1].Compose(step))
	}

	g := graph.New()
	prior, err := factor.NewPrior(0, truth[0], model)
	require.NoError(t, err)
	g.Add(prior)
	for i := 0; i < 4; i++ {
		step := geometry.NewPose3(geometry.Rot3Identity(), edges[i])
		between, err := factor.NewBetween(core.Key(i), core.Key((i+1)%4), step, model)
		require.NoError(t, err)
		g.Add(between)
	}

	initial := values.New()
	for i, p := range truth {
		noisy := p.Compose(geometry.Pose3Expmap([]float64{0.02, -0.02, 0.03, 0.1, 0.1, -0.05}))
		require.NoError(t, initial.Insert(core.Key(i), noisy))
	}

	solution, res, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Less(t, res.FinalError, 1e-9)

	for i, p := range truth {
		got, err := solution.Pose3(core.Key(i))
		require.NoError(t, err)
		assert.Lessf(t, poseDistance(t, p, got), 1e-3, "pose %d", i)
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	model := isotropic6(t, 0.1)
	target := geometry.Pose3Expmap([]float64{0.1, 0.2, -0.1, 0.5, -0.5, 1})
	prior, err := factor.NewPrior(0, target, model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))

	first, res1, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.NoError(t, err)
	require.Equal(t, StatusConverged, res1.Status)

	// Starting at the solution must not move it.
	second, res2, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res2.Status)
	assert.LessOrEqual(t, res2.Iterations, 1)
	assert.LessOrEqual(t, res2.FinalError, res1.FinalError+1e-15)

	a, err := first.Pose3(0)
	require.NoError(t, err)
	b, err := second.Pose3(0)
	require.NoError(t, err)
	assert.Less(t, poseDistance(t, a, b), 1e-9)
}

func TestOptimizeHistory(t *testing.T) {
	model := isotropic6(t, 1)
	prior, err := factor.NewPrior(0, geometry.Pose3Expmap([]float64{0, 0, 0.5, 1, 0, 0}), model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))

	_, res, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.NoError(t, err)
	require.NotEmpty(t, res.History)
	last := res.History[len(res.History)-1]
	assert.True(t, last.Accepted)
	assert.Equal(t, res.FinalError, last.ErrorAfter)
	for _, st := range res.History {
		assert.Greater(t, st.Lambda, 0.0)
	}
}

func TestOptimizeUnknownKey(t *testing.T) {
	prior, err := factor.NewPrior(7, geometry.Pose3Identity(), isotropic6(t, 1))
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	_, _, err = New(g, DefaultConfig(), nil).Optimize(context.Background(), values.New())
	var unknown *values.ErrUnknownKey
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, core.Key(7), unknown.Key)
}

func TestOptimizeUnreferencedVariable(t *testing.T) {
	prior, err := factor.NewPrior(0, geometry.Pose3Identity(), isotropic6(t, 1))
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))
	require.NoError(t, initial.Insert(1, geometry.Pose3Identity()))

	_, _, err = New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.Error(t, err)
	assert.ErrorIs(t, err, linear.ErrUnderconstrained)
	var free *linear.ErrUnconstrainedVariable
	require.ErrorAs(t, err, &free)
	assert.Equal(t, core.Key(1), free.Key)
}

// brokenFactor reports a finite error but produces a Jacobian no damping
// can make factorizable.
type brokenFactor struct {
	key core.Key
}

func (f *brokenFactor) Keys() []core.Key { return []core.Key{f.key} }

func (f *brokenFactor) Dim() int { return 6 }

func (f *brokenFactor) Error(*values.Values) (float64, error) { return 1, nil }

func (f *brokenFactor) Linearize(*values.Values) (*factor.Linearization, error) {
	jac := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		jac.Set(i, i, math.NaN())
	}
	return &factor.Linearization{
		Keys:      []core.Key{f.key},
		Jacobians: []*mat.Dense{jac},
		Residual:  mat.NewVecDense(6, nil),
	}, nil
}

func TestOptimizeSolveSaturationReportsIteration(t *testing.T) {
	g := graph.New()
	g.Add(&brokenFactor{key: 0})

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))

	_, res, err := New(g, DefaultConfig(), nil).Optimize(context.Background(), initial)
	require.Error(t, err)
	assert.ErrorIs(t, err, linear.ErrUnderconstrained)
	assert.Equal(t, StatusLambdaSaturated, res.Status)

	// The iteration that saturated is accounted for, and the reported
	// error is the last evaluated one.
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 1.0, res.FinalError)
}

func TestOptimizeCancelledContext(t *testing.T) {
	prior, err := factor.NewPrior(0, geometry.Pose3Expmap([]float64{0, 0, 0.5, 1, 0, 0}), isotropic6(t, 1))
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	current, res, err := New(g, DefaultConfig(), nil).Optimize(ctx, initial)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusInterrupted, res.Status)
	require.NotNil(t, current)

	// The returned estimate is the untouched initial one.
	got, perr := current.Pose3(0)
	require.NoError(t, perr)
	assert.Less(t, poseDistance(t, geometry.Pose3Identity(), got), 1e-15)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	def := DefaultConfig()
	assert.Equal(t, def, cfg)
	assert.Equal(t, 100, cfg.MaxIterations)
	assert.Greater(t, cfg.LambdaFactor, 1.0)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "converged", StatusConverged.String())
	assert.Equal(t, "max iterations reached", StatusMaxIterationsReached.String())
	assert.Equal(t, "lambda saturated", StatusLambdaSaturated.String())
	assert.Equal(t, "interrupted", StatusInterrupted.String())
}
