package optimizer

// Status is the terminal state of an optimization run.
type Status int

const (
	// StatusConverged means a convergence criterion was met.
	StatusConverged Status = iota

	// StatusMaxIterationsReached means the iteration budget ran out; the
	// returned estimate is the best one found, a soft failure.
	StatusMaxIterationsReached

	// StatusLambdaSaturated means the damping factor reached its bound
	// without any step improving the error; the returned estimate is the
	// last accepted one.
	StatusLambdaSaturated

	// StatusInterrupted means the caller's context was cancelled between
	// iterations; the returned estimate is the last accepted one.
	StatusInterrupted
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIterationsReached:
		return "max iterations reached"
	case StatusLambdaSaturated:
		return "lambda saturated"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// IterationStats records one solve attempt: an outer iteration may carry
// several rejected attempts at increasing lambda before the accepted one.
type IterationStats struct {
	Iteration   int
	Lambda      float64
	ErrorBefore float64
	ErrorAfter  float64
	Accepted    bool
}

// Result summarizes an optimization run.
type Result struct {
	Status       Status
	Iterations   int
	InitialError float64
	FinalError   float64
	History      []IterationStats
}
