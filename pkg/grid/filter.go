package grid

import (
	"errors"
	"fmt"
	"slices"
)

// Filter rewrites or excludes a combination before it is emitted.
//
// Apply receives a copy of the combination, so it may modify and return it.
// Returning a nil slice or ErrSkip excludes the combination. The returned slice must
// have the same length as the input, with each position keeping its parameter's
// meaning. Any other error stops generation and is handed to the caller unchanged.
type Filter[V any] interface {
	Apply(values []V) ([]V, error)
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc[V any] func(values []V) ([]V, error)

// Apply calls f(values).
func (f FilterFunc[V]) Apply(values []V) ([]V, error) {
	return f(values)
}

// Exclude builds a Filter that drops every combination matching pred and keeps the
// rest unchanged.
func Exclude[V any](pred func(values []V) bool) Filter[V] {
	return FilterFunc[V](func(values []V) ([]V, error) {
		if pred(values) {
			return nil, ErrSkip
		}
		return values, nil
	})
}

// applyFilter runs f over combo and reports whether the result should be emitted.
func applyFilter[V any](f Filter[V], combo []V) ([]V, bool, error) {
	if f == nil {
		return combo, true, nil
	}

	out, err := f.Apply(slices.Clone(combo))
	if errors.Is(err, ErrSkip) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if out == nil {
		return nil, false, nil
	}
	if len(out) != len(combo) {
		return nil, false, fmt.Errorf("%w: got %d values for %d parameters", ErrArityMismatch, len(out), len(combo))
	}
	return out, true, nil
}
