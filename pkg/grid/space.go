// Package grid generates parameter grids for parametrized tests.
//
// A Space is an ordered list of named parameters, each with its candidate values.
// Generate walks the Cartesian product of those values lazily and emits one Case per
// combination, optionally rewritten or excluded by a Filter.
//
//	space := grid.NewSpace(
//		grid.P[any]("a", 1, 2),
//		grid.P[any]("b", "x", "y"),
//	)
//	for c, err := range grid.Generate(space) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(c.Name, c.Values) // 1_x [1 x], 1_y [1 y], ...
//	}
package grid

import (
	"fmt"
	"math"
	"slices"
)

// Param is one named parameter of a Space.
type Param[V any] struct {
	Name   string
	Values []V
}

// P builds a Param from its name and candidate values.
func P[V any](name string, values ...V) Param[V] {
	return Param[V]{Name: name, Values: values}
}

// Space is an ordered collection of parameters. The order of parameters fixes the
// order of values in every combination and of segments in generated names.
type Space[V any] struct {
	params []Param[V]
}

// NewSpace builds a Space from params. It panics on a duplicate name, which is
// always a programming error in a test table. Use Add to handle it as an error.
func NewSpace[V any](params ...Param[V]) Space[V] {
	var s Space[V]
	for _, p := range params {
		if err := s.Add(p.Name, p.Values...); err != nil {
			panic(err)
		}
	}
	return s
}

// Add appends a parameter. The values slice is copied.
func (s *Space[V]) Add(name string, values ...V) error {
	if s.Has(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateParam, name)
	}
	s.params = append(s.params, Param[V]{Name: name, Values: slices.Clone(values)})
	return nil
}

// Has reports whether a parameter with the given name exists.
func (s Space[V]) Has(name string) bool {
	return slices.ContainsFunc(s.params, func(p Param[V]) bool { return p.Name == name })
}

// Keys returns parameter names in order.
func (s Space[V]) Keys() []string {
	keys := make([]string, len(s.params))
	for i, p := range s.params {
		keys[i] = p.Name
	}
	return keys
}

// Params returns a copy of the parameters in order.
func (s Space[V]) Params() []Param[V] {
	out := make([]Param[V], len(s.params))
	for i, p := range s.params {
		out[i] = Param[V]{Name: p.Name, Values: slices.Clone(p.Values)}
	}
	return out
}

// Len returns the number of parameters.
func (s Space[V]) Len() int {
	return len(s.params)
}

// Count returns the number of combinations the space produces without a filter.
// A space with no parameters has exactly one (empty) combination. A product larger
// than math.MaxInt is reported as math.MaxInt.
func Count[V any](s Space[V]) int {
	n := 1
	for _, p := range s.params {
		size := len(p.Values)
		if size == 0 {
			return 0
		}
		if n > math.MaxInt/size {
			n = math.MaxInt
			continue
		}
		n *= size
	}
	return n
}
