package core

import (
	"slices"
	"strconv"
)

// Key identifies a variable in a factor graph. Keys are opaque to the
// engine: factors reference variables by Key only, and the variable store
// maps Keys to manifold values. 64-bit so callers can pack a symbol
// character and an index if they want structured keys.
type Key uint64

// String renders the key as a plain decimal index.
func (k Key) String() string {
	return "x" + strconv.FormatUint(uint64(k), 10)
}

// SortKeys returns a copy of keys in ascending order. Variable ordering in
// the assembled linear system follows this order, which keeps block offsets
// deterministic across runs.
func SortKeys(keys []Key) []Key {
	out := slices.Clone(keys)
	slices.Sort(out)
	return out
}
