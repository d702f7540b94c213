package grid

import (
	"iter"
	"slices"
	"testing"
)

type options[V any] struct {
	filter Filter[V]
	namer  Namer[V]
}

// Option configures Generate.
type Option[V any] func(*options[V])

// WithFilter rewrites or excludes combinations before they are emitted.
func WithFilter[V any](f Filter[V]) Option[V] {
	return func(o *options[V]) {
		o.filter = f
	}
}

// WithNamer overrides the text form used for generated names. The default is fmt.Sprint.
func WithNamer[V any](n Namer[V]) Option[V] {
	return func(o *options[V]) {
		if n != nil {
			o.namer = n
		}
	}
}

// Generate returns a lazy sequence over every combination of the space's values.
//
// Combinations come in odometer order: the last parameter varies fastest. A parameter
// with no values yields no combinations; a space with no parameters yields one empty
// combination. If the filter fails, the error is yielded once and the sequence ends.
// Ranging over the sequence again regenerates it from the start.
func Generate[V any](space Space[V], opts ...Option[V]) iter.Seq2[Case[V], error] {
	o := options[V]{namer: defaultNamer[V]}
	for _, opt := range opts {
		opt(&o)
	}
	params := space.Params()
	keys := space.Keys()

	return func(yield func(Case[V], error) bool) {
		for _, p := range params {
			if len(p.Values) == 0 {
				return
			}
		}

		idx := make([]int, len(params))
		for {
			combo := make([]V, len(params))
			for i, p := range params {
				combo[i] = p.Values[idx[i]]
			}

			values, keep, err := applyFilter(o.filter, combo)
			if err != nil {
				yield(Case[V]{}, err)
				return
			}
			if keep {
				c := Case[V]{
					Name:   joinName(o.namer, values),
					Keys:   slices.Clone(keys),
					Values: values,
				}
				if !yield(c, nil) {
					return
				}
			}

			if !advance(idx, params) {
				return
			}
		}
	}
}

// advance moves idx to the next combination and reports false once all are visited.
func advance[V any](idx []int, params []Param[V]) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(params[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

// Lists yields each combination as an ordered sequence of values, prefixed by its
// name when addTestName is set. filter may be nil.
func Lists[V any](space Space[V], addTestName bool, filter Filter[V]) iter.Seq2[[]any, error] {
	return mapCases(Generate(space, WithFilter(filter)), func(c Case[V]) []any {
		return c.List(addTestName)
	})
}

// Dicts yields each combination as a map from parameter name to value, with the name
// under TestNameKey when addTestName is set. filter may be nil.
func Dicts[V any](space Space[V], addTestName bool, filter Filter[V]) iter.Seq2[map[string]any, error] {
	return mapCases(Generate(space, WithFilter(filter)), func(c Case[V]) map[string]any {
		return c.Dict(addTestName)
	})
}

func mapCases[V, T any](seq iter.Seq2[Case[V], error], fn func(Case[V]) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for c, err := range seq {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(fn(c), nil) {
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Run runs fn as a subtest for every case of the space, named after the case.
// A generation error fails t after the cases emitted before it have run.
func Run[V any](t *testing.T, space Space[V], fn func(t *testing.T, c Case[V]), opts ...Option[V]) {
	t.Helper()
	for c, err := range Generate(space, opts...) {
		if err != nil {
			t.Fatalf("generate grid: %v", err)
			return
		}
		t.Run(c.Name, func(t *testing.T) {
			fn(t, c)
		})
	}
}
