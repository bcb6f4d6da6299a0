package gtsam

import (
	"github.com/eglrp/my-gtsam/optimizer"
)

type options struct {
	config  optimizer.Config
	logger  *Logger
	metrics MetricsCollector
}

// Option configures Optimize and MarginalCovariance behavior.
type Option func(*options)

// WithConfig replaces the whole optimizer configuration. Zero fields keep
// their defaults.
func WithConfig(cfg optimizer.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithMaxIterations bounds the number of accepted iterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.config.MaxIterations = n
	}
}

// WithTolerances sets the relative and absolute error-decrease thresholds
// that declare convergence.
func WithTolerances(relative, absolute float64) Option {
	return func(o *options) {
		o.config.RelativeErrorTol = relative
		o.config.AbsoluteErrorTol = absolute
	}
}

// WithDamping sets the initial Levenberg-Marquardt damping factor and the
// multiplier applied on rejected steps.
func WithDamping(initialLambda, lambdaFactor float64) Option {
	return func(o *options) {
		o.config.InitialLambda = initialLambda
		o.config.LambdaFactor = lambdaFactor
	}
}

// WithNumWorkers sets the parallelism of factor evaluation. 1 forces
// sequential evaluation; 0 means GOMAXPROCS.
func WithNumWorkers(n int) Option {
	return func(o *options) {
		o.config.NumWorkers = n
	}
}

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns ...Option) *options {
	o := &options{
		config:  optimizer.DefaultConfig(),
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(o)
	}
	return o
}
