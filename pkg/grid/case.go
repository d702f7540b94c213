package grid

import (
	"fmt"
	"strings"
)

// TestNameKey is the key holding the generated name in Case.Dict.
const TestNameKey = "test_name"

// nameSeparator joins the text form of values in a generated name.
const nameSeparator = "_"

// Case is one emitted combination.
type Case[V any] struct {
	// Name is the text form of every value joined with "_".
	Name string
	// Keys are the parameter names, in space order.
	Keys []string
	// Values holds one value per key, after any filter rewrite.
	Values []V
}

// List returns the values as an ordered sequence, with the name prepended when
// addName is set.
func (c Case[V]) List(addName bool) []any {
	out := make([]any, 0, len(c.Values)+1)
	if addName {
		out = append(out, c.Name)
	}
	for _, v := range c.Values {
		out = append(out, v)
	}
	return out
}

// Dict maps each parameter name to its value. When addName is set the name is stored
// under TestNameKey, replacing a parameter of the same name.
func (c Case[V]) Dict(addName bool) map[string]any {
	out := make(map[string]any, len(c.Keys)+1)
	for i, k := range c.Keys {
		out[k] = c.Values[i]
	}
	if addName {
		out[TestNameKey] = c.Name
	}
	return out
}

// Get returns the value of the named parameter.
func (c Case[V]) Get(key string) (V, bool) {
	for i, k := range c.Keys {
		if k == key {
			return c.Values[i], true
		}
	}
	var zero V
	return zero, false
}

// Namer converts a value into its text form for generated names.
type Namer[V any] func(v V) string

func defaultNamer[V any](v V) string {
	return fmt.Sprint(v)
}

func joinName[V any](namer Namer[V], values []V) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = namer(v)
	}
	return strings.Join(parts, nameSeparator)
}
