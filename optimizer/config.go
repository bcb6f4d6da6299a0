package optimizer

// Config tunes the Levenberg-Marquardt loop. Zero values are replaced by
// the corresponding DefaultConfig fields, so callers can set only what
// they care about.
type Config struct {
	// MaxIterations bounds the number of accepted outer iterations.
	MaxIterations int

	// RelativeErrorTol declares convergence when the relative error
	// decrease of an accepted step falls below it.
	RelativeErrorTol float64

	// AbsoluteErrorTol declares convergence when the absolute error
	// decrease of an accepted step falls below it.
	AbsoluteErrorTol float64

	// ErrorTol declares convergence when the total error itself falls
	// below it, checked before the first iteration as well, so optimizing
	// an already-converged estimate terminates immediately.
	ErrorTol float64

	// InitialLambda is the starting damping factor.
	InitialLambda float64

	// LambdaFactor multiplies lambda on a rejected step and divides it on
	// an accepted one.
	LambdaFactor float64

	// MaxLambda saturates the damping: when lambda would exceed it with
	// no accepted step, the optimizer reports StatusLambdaSaturated.
	MaxLambda float64

	// MaxRetries bounds the solve attempts within one iteration before
	// giving up, independent of MaxLambda.
	MaxRetries int

	// NumWorkers sets the parallelism of linearization and error
	// evaluation. 1 forces sequential evaluation; 0 means GOMAXPROCS.
	NumWorkers int
}

// DefaultConfig returns the defaults used when Config fields are zero.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    100,
		RelativeErrorTol: 1e-7,
		AbsoluteErrorTol: 1e-9,
		ErrorTol:         1e-15,
		InitialLambda:    1e-5,
		LambdaFactor:     10,
		MaxLambda:        1e9,
		MaxRetries:       20,
		NumWorkers:       0,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.RelativeErrorTol <= 0 {
		c.RelativeErrorTol = d.RelativeErrorTol
	}
	if c.AbsoluteErrorTol <= 0 {
		c.AbsoluteErrorTol = d.AbsoluteErrorTol
	}
	if c.ErrorTol <= 0 {
		c.ErrorTol = d.ErrorTol
	}
	if c.InitialLambda <= 0 {
		c.InitialLambda = d.InitialLambda
	}
	if c.LambdaFactor <= 1 {
		c.LambdaFactor = d.LambdaFactor
	}
	if c.MaxLambda <= 0 {
		c.MaxLambda = d.MaxLambda
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}
