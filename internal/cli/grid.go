package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/asteroid-belt/testkit/pkg/grid"
)

var (
	gridFile     string
	gridParams   []string
	gridExcludes []string
	gridDict     bool
	gridNoName   bool
	gridOutput   string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print every combination of a parameter space",
	Long: `Print every combination of a parameter space.

Parameters come from a YAML file mapping names to lists of values, from
-p flags, or both. Values are typed by YAML rules, so 1 is an int, 1.5 a
float, true a bool and anything else a string. The last parameter varies
fastest.

Example:
  testkit grid -p batch=1,8 -p device=cpu,cuda
  testkit grid -f space.yaml --dict -o yaml
  testkit grid -p a=1,2 -p b=x,y -x a=2`,
	Args: cobra.NoArgs,
	RunE: runGrid,
}

func init() {
	gridCmd.Flags().StringVarP(&gridFile, "file", "f", "", "YAML file mapping parameter names to value lists")
	gridCmd.Flags().StringArrayVarP(&gridParams, "param", "p", nil, "parameter as name=v1,v2 (repeatable)")
	gridCmd.Flags().StringArrayVarP(&gridExcludes, "exclude", "x", nil, "drop combinations where name=value (repeatable)")
	gridCmd.Flags().BoolVar(&gridDict, "dict", false, "print each case as a mapping instead of a list")
	gridCmd.Flags().BoolVar(&gridNoName, "no-name", false, "omit the generated test name")
	gridCmd.Flags().StringVarP(&gridOutput, "output", "o", "json", "output format: json or yaml")
}

func runGrid(cmd *cobra.Command, args []string) error {
	if gridOutput != "json" && gridOutput != "yaml" {
		return fmt.Errorf("invalid output format %q: want json or yaml", gridOutput)
	}

	var space grid.Space[any]
	if gridFile != "" {
		data, err := os.ReadFile(gridFile)
		if err != nil {
			return fmt.Errorf("read space: %w", err)
		}
		if space, err = parseSpaceYAML(data); err != nil {
			return fmt.Errorf("parse %s: %w", gridFile, err)
		}
	}
	for _, p := range gridParams {
		name, values, err := parseParamFlag(p)
		if err != nil {
			return err
		}
		if err := space.Add(name, values...); err != nil {
			return err
		}
	}
	if space.Len() == 0 {
		return errors.New("no parameters: use --file or --param")
	}

	filter, err := parseExcludes(space, gridExcludes)
	if err != nil {
		return err
	}

	if gridDict {
		rows, err := grid.Collect(grid.Dicts(space, !gridNoName, filter))
		if err != nil {
			return err
		}
		return writeRows(cmd.OutOrStdout(), gridOutput, rows)
	}
	rows, err := grid.Collect(grid.Lists(space, !gridNoName, filter))
	if err != nil {
		return err
	}
	return writeRows(cmd.OutOrStdout(), gridOutput, rows)
}

// parseSpaceYAML reads a mapping of parameter names to value lists, keeping the
// order the names appear in the document.
func parseSpaceYAML(data []byte) (grid.Space[any], error) {
	var space grid.Space[any]

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return space, err
	}
	if len(doc.Content) == 0 {
		return space, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return space, fmt.Errorf("line %d: expected a mapping of parameter names to lists", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		var values []any
		switch val.Kind {
		case yaml.SequenceNode:
			if err := val.Decode(&values); err != nil {
				return space, fmt.Errorf("parameter %q: %w", key.Value, err)
			}
		case yaml.ScalarNode:
			var v any
			if err := val.Decode(&v); err != nil {
				return space, fmt.Errorf("parameter %q: %w", key.Value, err)
			}
			values = []any{v}
		default:
			return space, fmt.Errorf("line %d: parameter %q must be a list", val.Line, key.Value)
		}

		if err := space.Add(key.Value, values...); err != nil {
			return space, err
		}
	}
	return space, nil
}

// parseParamFlag parses name=v1,v2. "name=" declares a parameter with no values.
func parseParamFlag(s string) (string, []any, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid parameter %q: want name=v1,v2", s)
	}
	if raw == "" {
		return name, nil, nil
	}

	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := parseScalar(part)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// parseScalar types a flag value the way YAML would.
func parseScalar(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	if v == nil {
		return strings.TrimSpace(s), nil
	}
	return v, nil
}

// parseExcludes builds a filter dropping combinations whose named parameter has
// the given value. The value is typed like a -p value, so "1.0" matches the float 1
// and "True" matches true; a value also matches when it prints the same.
func parseExcludes(space grid.Space[any], excludes []string) (grid.Filter[any], error) {
	if len(excludes) == 0 {
		return nil, nil
	}

	keys := space.Keys()
	type rule struct {
		index int
		raw   string
		value any
	}
	var rules []rule
	for _, x := range excludes {
		name, raw, ok := strings.Cut(x, "=")
		if !ok {
			return nil, fmt.Errorf("invalid exclude %q: want name=value", x)
		}
		index := slices.Index(keys, strings.TrimSpace(name))
		if index < 0 {
			return nil, fmt.Errorf("invalid exclude %q: unknown parameter %q", x, name)
		}
		value, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude %q: %w", x, err)
		}
		rules = append(rules, rule{index: index, raw: raw, value: value})
	}

	return grid.Exclude(func(values []any) bool {
		for _, r := range rules {
			v := values[r.index]
			if sameScalar(v, r.value) || fmt.Sprint(v) == r.raw {
				return true
			}
		}
		return false
	}), nil
}

// sameScalar compares two decoded values, treating ints and floats as numbers.
func sameScalar(a, b any) bool {
	x, aNum := asFloat(a)
	y, bNum := asFloat(b)
	if aNum || bNum {
		return aNum && bNum && x == y
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func writeRows[T any](w io.Writer, format string, rows []T) error {
	if format == "yaml" {
		if rows == nil {
			rows = []T{}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
