// Package maputil provides helpers for nested configuration maps.
package maputil

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Flatten merges nested maps into a single level, keeping each leaf under its own
// key (no prefixing). Any map value is treated as nested, whatever its concrete type;
// non-string keys are converted with fmt.Sprint.
//
// Keys are visited in sorted order at every level, so when a key appears more than
// once the last one visited wins. The input is not modified. A nil map gives an
// empty result.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, m)
	return out
}

func flattenInto(out, m map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if nested, ok := asStringMap(v); ok {
			flattenInto(out, nested)
			continue
		}
		out[k] = v
	}
}

// asStringMap returns v as a map[string]any if it is a map of any kind. Keys that
// print the same (1 and "1") are resolved by type name, the last one winning, so the
// result does not depend on map iteration order.
func asStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}

	type entry struct {
		key, typ string
		val      any
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		entries = append(entries, entry{
			key: fmt.Sprint(k),
			typ: fmt.Sprintf("%T", k),
			val: iter.Value().Interface(),
		})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.key, b.key), cmp.Compare(a.typ, b.typ))
	})

	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.key] = e.val
	}
	return out, true
}
