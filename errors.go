package gtsam

import (
	"errors"
	"fmt"

	"github.com/eglrp/my-gtsam/factor"
	"github.com/eglrp/my-gtsam/linear"
	"github.com/eglrp/my-gtsam/marginals"
	"github.com/eglrp/my-gtsam/noise"
	"github.com/eglrp/my-gtsam/values"
)

var (
	// ErrDuplicateKey is returned when a variable is inserted under a key
	// that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnknownKey is returned when a factor references a variable that
	// was never registered, or a lookup misses.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInvalidNoiseModel is returned when a noise model is constructed
	// with a non-positive-definite covariance.
	ErrInvalidNoiseModel = errors.New("invalid noise model")

	// ErrUnderconstrainedSystem is returned when the linearized system is
	// rank deficient, e.g. a variable without constraints or a graph
	// without an absolute reference.
	ErrUnderconstrainedSystem = errors.New("underconstrained system")

	// ErrSingularInformationMatrix is returned by the marginals engine
	// when the information matrix at the solution has unobserved
	// directions.
	ErrSingularInformationMatrix = errors.New("singular information matrix")
)

// translateError maps subpackage errors onto the package-level taxonomy.
// The original error stays reachable through errors.Unwrap / errors.As, so
// callers can still extract details such as the offending key.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dup *values.ErrDuplicateKey
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	var unk *values.ErrUnknownKey
	if errors.As(err, &unk) {
		return fmt.Errorf("%w: %w", ErrUnknownKey, err)
	}
	if errors.Is(err, noise.ErrInvalidNoiseModel) {
		return fmt.Errorf("%w: %w", ErrInvalidNoiseModel, err)
	}
	var dim *factor.ErrDimensionMismatch
	if errors.As(err, &dim) {
		return fmt.Errorf("%w: %w", ErrInvalidNoiseModel, err)
	}
	if errors.Is(err, marginals.ErrSingularInformation) {
		return fmt.Errorf("%w: %w", ErrSingularInformationMatrix, err)
	}
	if errors.Is(err, linear.ErrUnderconstrained) {
		return fmt.Errorf("%w: %w", ErrUnderconstrainedSystem, err)
	}
	if errors.Is(err, factor.ErrDegenerateGeometry) {
		return fmt.Errorf("%w: %w", ErrUnderconstrainedSystem, err)
	}

	return err
}
