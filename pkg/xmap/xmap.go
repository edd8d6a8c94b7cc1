package xmap

import (
	"cmp"
	"slices"
)

func Keys[M ~map[K]V, K comparable, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// SortedKeys returns the keys of m in ascending order, so callers that
// iterate over a map get a deterministic sequence.
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := Keys(m)
	slices.Sort(keys)
	return keys
}

// filter returns true means discarding current element
func Filter[M ~map[K]V, K comparable, V any](m M, filter func(k K, v V) bool) M {
	r := make(M, len(m))
	for k, v := range m {
		if !filter(k, v) { // got included
			r[k] = v
		}
	}

	return r
}
