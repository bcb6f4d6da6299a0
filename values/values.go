// Package values implements the variable store of a factor graph: a mapping
// from keys to manifold values. The optimizer never mutates a caller's
// store; it works on copies so a rejected step can be rolled back.
package values

import (
	"fmt"

	"github.com/eglrp/my-gtsam/core"
	"github.com/eglrp/my-gtsam/geometry"
)

// ErrDuplicateKey indicates an Insert for a key that already exists.
type ErrDuplicateKey struct {
	Key core.Key
}

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("duplicate key: %s", e.Key)
}

// ErrUnknownKey indicates a lookup or update for a key that does not exist.
type ErrUnknownKey struct {
	Key core.Key
}

func (e *ErrUnknownKey) Error() string {
	return fmt.Sprintf("unknown key: %s", e.Key)
}

// Values maps variable keys to manifold values. The zero value is not
// usable; call New.
type Values struct {
	m map[core.Key]core.Value
}

// New returns an empty store.
func New() *Values {
	return &Values{m: make(map[core.Key]core.Value)}
}

// Insert adds a value under a fresh key. Fails with ErrDuplicateKey when
// the key is already present.
func (v *Values) Insert(key core.Key, val core.Value) error {
	if _, exists := v.m[key]; exists {
		return &ErrDuplicateKey{Key: key}
	}
	v.m[key] = val
	return nil
}

// Update replaces the value under an existing key. Fails with
// ErrUnknownKey when the key is absent.
func (v *Values) Update(key core.Key, val core.Value) error {
	if _, exists := v.m[key]; !exists {
		return &ErrUnknownKey{Key: key}
	}
	v.m[key] = val
	return nil
}

// At returns the value stored under key, or ErrUnknownKey.
func (v *Values) At(key core.Key) (core.Value, error) {
	val, exists := v.m[key]
	if !exists {
		return nil, &ErrUnknownKey{Key: key}
	}
	return val, nil
}

// Pose3 returns the Pose3 stored under key. Fails with ErrUnknownKey when
// absent and panics when the stored value is not a Pose3.
func (v *Values) Pose3(key core.Key) (geometry.Pose3, error) {
	val, err := v.At(key)
	if err != nil {
		return geometry.Pose3{}, err
	}
	p, okcast := val.(geometry.Pose3)
	if !okcast {
		panic(fmt.Sprintf("values: %s is not a Pose3", key))
	}
	return p, nil
}

// Has reports whether key is present.
func (v *Values) Has(key core.Key) bool {
	_, exists := v.m[key]
	return exists
}

// Len returns the number of stored variables.
func (v *Values) Len() int { return len(v.m) }

// Dim returns the total tangent-space dimensionality over all variables.
func (v *Values) Dim() int {
	total := 0
	for _, val := range v.m {
		total += val.Dim()
	}
	return total
}

// Keys returns all keys in ascending order.
func (v *Values) Keys() []core.Key {
	keys := make([]core.Key, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	return core.SortKeys(keys)
}

// Copy returns an independent shallow copy. Values are immutable manifold
// points, so sharing them between copies is safe.
func (v *Values) Copy() *Values {
	out := New()
	for k, val := range v.m {
		out.m[k] = val
	}
	return out
}

// Retract returns the value under key perturbed by the tangent vector
// delta, without mutating the store.
func (v *Values) Retract(key core.Key, delta []float64) (core.Value, error) {
	val, err := v.At(key)
	if err != nil {
		return nil, err
	}
	return val.Retract(delta), nil
}

// LocalCoordinates returns the tangent vector from the value under key to
// other.
func (v *Values) LocalCoordinates(key core.Key, other core.Value) ([]float64, error) {
	val, err := v.At(key)
	if err != nil {
		return nil, err
	}
	return val.LocalCoordinates(other), nil
}
