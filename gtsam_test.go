package gtsam

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/factor"
	"github.com/eglrp/my-gtsam/geometry"
	"github.com/eglrp/my-gtsam/graph"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/optimizer"
	"github.com/eglrp/my-gtsam/values"
)

func slamFixture(t *testing.T) (*graph.Graph, *values.Values, []geometry.Pose3) {
	t.Helper()

	model, err := noise.NewIsotropic(6, 0.1)
	require.NoError(t, err)
	step := geometry.NewPose3(geometry.Rot3Expmap(geometry.Vector3{0, 0, 0.3}), geometry.Vector3{2, 0, 0})

	truth := []geometry.Pose3{geometry.Pose3Identity()}
	for i := 1; i < 4; i++ {
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
	for i, p := range truth {
		noisy := p.Compose(geometry.Pose3Expmap([]float64{0.03, -0.02, 0.05, 0.2, -0.1, 0.1}))
		require.NoError(t, initial.Insert(core.Key(i), noisy))
	}
	return g, initial, truth
}

func TestOptimizeEndToEnd(t *testing.T) {
	g, initial, truth := slamFixture(t)

	solution, res, err := Optimize(context.Background(), g, initial)
	require.NoError(t, err)
	assert.Equal(t, optimizer.StatusConverged, res.Status)
	assert.Less(t, res.FinalError, res.InitialError)

	for i, p := range truth {
		got, err := solution.Pose3(core.Key(i))
		require.NoError(t, err)
		d := p.LocalCoordinates(got)
		norm := 0.0
		for _, x := range d {
			norm += x * x
		}
		assert.Lessf(t, math.Sqrt(norm), 1e-3, "pose %d", i)
	}
}

func TestOptimizeOptions(t *testing.T) {
	g, initial, _ := slamFixture(t)

	var metrics BasicMetricsCollector
	_, res, err := Optimize(context.Background(), g, initial,
		WithMaxIterations(50),
		WithDamping(1e-4, 10),
		WithNumWorkers(1),
		WithLogger(NoopLogger()),
		WithMetricsCollector(&metrics),
	)
	require.NoError(t, err)
	assert.Equal(t, optimizer.StatusConverged, res.Status)

	assert.Equal(t, int64(1), metrics.OptimizeCount.Load())
	assert.Equal(t, int64(0), metrics.OptimizeErrors.Load())
	assert.Equal(t, int64(len(res.History)), metrics.IterationCount.Load())
}

func TestOptimizeUnknownKeyTaxonomy(t *testing.T) {
	model, err := noise.NewIsotropic(6, 1)
	require.NoError(t, err)
	prior, err := factor.NewPrior(3, geometry.Pose3Identity(), model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	var metrics BasicMetricsCollector
	_, _, err = Optimize(context.Background(), g, values.New(), WithMetricsCollector(&metrics))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKey)

	// The subpackage detail stays reachable through the wrap.
	var unk *values.ErrUnknownKey
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, core.Key(3), unk.Key)
	assert.Equal(t, int64(1), metrics.OptimizeErrors.Load())
}

func TestOptimizeUnconstrainedTaxonomy(t *testing.T) {
	model, err := noise.NewIsotropic(6, 1)
	require.NoError(t, err)
	prior, err := factor.NewPrior(0, geometry.Pose3Identity(), model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	initial := values.New()
	require.NoError(t, initial.Insert(0, geometry.Pose3Identity()))
	require.NoError(t, initial.Insert(1, geometry.Pose3Identity()))

	_, _, err = Optimize(context.Background(), g, initial)
	assert.ErrorIs(t, err, ErrUnderconstrainedSystem)
}

func TestMarginalCovarianceEndToEnd(t *testing.T) {
	sigma := 0.2
	model, err := noise.NewIsotropic(6, sigma)
	require.NoError(t, err)

	mean := geometry.Pose3Identity()
	prior, err := factor.NewPrior(0, mean, model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(prior)

	v := values.New()
	require.NoError(t, v.Insert(0, mean))

	var metrics BasicMetricsCollector
	cov, err := MarginalCovariance(context.Background(), g, v, 0, WithMetricsCollector(&metrics))
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, sigma*sigma, cov.At(i, i), 1e-12)
	}
	assert.Equal(t, int64(1), metrics.MarginalsCount.Load())
}

func TestMarginalsSingularTaxonomy(t *testing.T) {
	model, err := noise.NewIsotropic(5, 0.01)
	require.NoError(t, err)

	x1 := geometry.Pose3Identity()
	x2 := geometry.NewPose3(geometry.Rot3Identity(), geometry.Vector3{1, 0, 0})
	measured, ok := geometry.EssentialFromPose3(x1.Between(x2))
	require.True(t, ok)

	constraint, err := factor.NewEssentialMatrixConstraint(0, 1, measured, model)
	require.NoError(t, err)

	g := graph.New()
	g.Add(constraint)

	v := values.New()
	require.NoError(t, v.Insert(0, x1))
	require.NoError(t, v.Insert(1, x2))

	_, err = NewMarginals(context.Background(), g, v)
	assert.ErrorIs(t, err, ErrSingularInformationMatrix)
}

func TestValuesDuplicateKeyTaxonomy(t *testing.T) {
	v := values.New()
	require.NoError(t, v.Insert(0, geometry.Pose3Identity()))
	err := translateError(v.Insert(0, geometry.Pose3Identity()))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestNoiseModelTaxonomy(t *testing.T) {
	_, err := noise.NewIsotropic(3, -1)
	err = translateError(err)
	assert.ErrorIs(t, err, ErrInvalidNoiseModel)
}
