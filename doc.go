// Package gtsam provides nonlinear least-squares optimization over factor
// graphs, the estimation machinery behind smoothing-and-mapping problems:
// variables live on manifolds (3D rotations, rigid transforms, epipolar
// directions), factors are probabilistic constraints between them, and a
// Levenberg-Marquardt optimizer recovers the maximum-a-posteriori estimate
// together with marginal covariances.
//
// # Quick Start
//
//	g := graph.New()
//	model, _ := noise.NewIsotropic(6, 0.1)
//	prior, _ := factor.NewPrior(0, geometry.Pose3Identity(), model)
//	g.Add(prior)
//	odo, _ := factor.NewBetween(0, 1, measured, model)
//	g.Add(odo)
//
//	initial := values.New()
//	initial.Insert(0, geometry.Pose3Identity())
//	initial.Insert(1, guess)
//
//	solution, result, err := gtsam.Optimize(ctx, g, initial)
//	cov, err := gtsam.MarginalCovariance(ctx, g, solution, 1)
//
// # Structure
//
// The engine is layered bottom-up:
//
//   - core: variable keys and the manifold Value contract
//   - geometry: Rot3, Pose3, Unit3 and EssentialMatrix manifolds
//   - noise: Gaussian noise models and residual whitening
//   - values: the variable store the optimizer iterates over
//   - factor: prior, between (odometry) and essential-matrix factors
//   - graph: the factor collection, total error and linearization
//   - linear: block normal equations and the damped Cholesky solve
//   - optimizer: the Levenberg-Marquardt state machine
//   - marginals: covariance recovery at the solution
//
// All computation is in-memory and synchronous; factor evaluation inside
// one iteration is parallelized across a worker pool while the iterate
// sequence itself stays strictly sequential. A graph and an initial
// estimate can be shared by concurrent Optimize calls because the engine
// works on private copies.
package gtsam
