// Package cli provides the command-line interface for testkit.
package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/testkit/internal/config"
	"github.com/asteroid-belt/testkit/internal/log"
	"github.com/asteroid-belt/testkit/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "testkit",
	Short: "Test-suite support tools",
	Long: `Test-suite support tools

Generate parameter grids, check which optional test dependencies are
available, flatten nested config files and clean up scratch directories.

Environment:
  TESTKIT_PYTHON           interpreter used for dependency probes (default python3)
  TESTKIT_PROBE_TIMEOUT    upper bound for a single probe (default 60s)
  TESTKIT_PROBE_CACHE_TTL  how long probe results are cached, 0 disables (default 1h)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			return
		}
		if err := log.Init(cfg.LogDir); err != nil {
			log.Debugf("log init: %v", err)
		}
		log.Debugf("%s: %s %s", version.Info(), cmd.Name(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(rmdirCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context) error {
	defer func() { _ = log.Close() }()

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Revision()),
	)
}
