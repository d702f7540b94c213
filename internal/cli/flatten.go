package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/asteroid-belt/testkit/pkg/maputil"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten <file>",
	Short: "Flatten a nested JSON or YAML document into one level",
	Long: `Flatten a nested JSON or YAML document into one level and print it as JSON.

Nested mappings are merged into their parent; only leaf keys are kept.
When two leaves share a key, the one whose path sorts last wins.

Use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlatten,
}

func runFlatten(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	// JSON is a subset of YAML, so one decoder handles both.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(maputil.Flatten(doc)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
