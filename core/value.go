package core

// Value is a point on a differentiable manifold. Every variable stored in a
// factor graph implements this contract: the optimizer only ever touches
// variables through Dim, Retract and LocalCoordinates, so new manifold types
// can be added without changes to the engine.
//
// Retract applies a local perturbation expressed in the tangent space at the
// receiver and returns the resulting point; it never mutates the receiver.
// LocalCoordinates is its first-order inverse: the minimal vector that
// retracts the receiver onto other.
//
// LocalCoordinates panics when other is a different manifold type than the
// receiver. Mixing manifold types under one key is a caller bug, not a
// runtime condition.
type Value interface {
	// Dim returns the tangent-space dimensionality.
	Dim() int

	// Retract returns the point reached by the tangent vector delta.
	// len(delta) must equal Dim().
	Retract(delta []float64) Value

	// LocalCoordinates returns the tangent vector at the receiver that
	// reaches other, with len equal to Dim().
	LocalCoordinates(other Value) []float64
}
