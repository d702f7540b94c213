package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/testkit/internal/config"
	"github.com/asteroid-belt/testkit/internal/detect"
	"github.com/asteroid-belt/testkit/internal/log"
	"github.com/asteroid-belt/testkit/internal/probecache"
)

var (
	probeNoCache    bool
	probeClearCache bool
	probeShowCache  bool

	// probeOptions lets tests substitute the command runner.
	probeOptions []detect.Option
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	availStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C00"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	depColumn     = lipgloss.NewStyle().Width(24)
	statusColumn  = lipgloss.NewStyle().Width(11)
	versionColumn = lipgloss.NewStyle().Width(14)
)

var probeCmd = &cobra.Command{
	Use:   "probe [dependency...]",
	Short: "Show which optional test dependencies are available",
	Long: `Show which optional test dependencies are available.

Probes the configured Python interpreter for each dependency, or for all
known dependencies when none are named. Results are cached on disk for
TESTKIT_PROBE_CACHE_TTL.

Example:
  testkit probe
  testkit probe timm diffusers --no-cache`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeNoCache, "no-cache", false, "ignore and do not update the probe cache")
	probeCmd.Flags().BoolVar(&probeClearCache, "clear-cache", false, "delete cached probe results and exit")
	probeCmd.Flags().BoolVar(&probeShowCache, "show-cache", false, "print cached probe results without probing")
}

func runProbe(cmd *cobra.Command, args []string) error {
	deps := detect.AllDependencies()
	if len(args) > 0 {
		deps = make([]detect.Dependency, 0, len(args))
		for _, arg := range args {
			dep, err := detect.ParseDependency(arg)
			if err != nil {
				return err
			}
			deps = append(deps, dep)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cacheOnly := probeClearCache || probeShowCache
	if cacheOnly && probeNoCache {
		return errors.New("--no-cache cannot be combined with --clear-cache or --show-cache")
	}

	var opts []detect.Option
	if !probeNoCache && (cfg.Cache.Enabled() || cacheOnly) {
		cache, err := probecache.Open(probecache.DefaultConfig(config.GetPaths(cfg).ProbeCache))
		switch {
		case err != nil && cacheOnly:
			return fmt.Errorf("open probe cache: %w", err)
		case err != nil:
			log.Errorf("probe cache unavailable, probing without it: %v", err)
		default:
			defer func() { _ = cache.Close() }()

			if cacheOnly {
				return runCacheOnly(cmd.OutOrStdout(), cache)
			}
			opts = append(opts, detect.WithCache(cache, cfg.Cache.TTL))
		}
	}
	opts = append(opts, probeOptions...)

	d := detect.New(cfg, opts...)
	results := d.DetectMany(cmd.Context(), deps)
	for _, r := range results {
		log.Debugf("probe %s: detected=%t cached=%t", r.Dependency, r.Detected, r.Cached)
	}

	printProbeTable(cmd.OutOrStdout(), results)
	return nil
}

func runCacheOnly(w io.Writer, cache *probecache.Cache) error {
	if probeClearCache {
		n, err := cache.Purge()
		if err != nil {
			return fmt.Errorf("clear probe cache: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Removed %d cached results from %s\n", n, cache.Path())
		return nil
	}

	entries, err := cache.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No cached probe results.")
		return nil
	}

	results := make([]detect.DetectionResult, len(entries))
	for i, e := range entries {
		results[i] = detect.DetectionResult{
			Dependency: detect.Dependency(e.Dependency),
			Detected:   e.Detected,
			Version:    e.Version,
			Python:     e.Python,
			Reason:     e.Reason,
			Cached:     true,
			CheckedAt:  e.CheckedAt,
		}
	}
	printProbeTable(w, results)
	return nil
}

func printProbeTable(w io.Writer, results []detect.DetectionResult) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(
		depColumn.Render("DEPENDENCY")+statusColumn.Render("STATUS")+versionColumn.Render("VERSION")+"DETAIL"))

	available := 0
	for _, r := range results {
		status := missingStyle.Render(statusColumn.Render("missing"))
		detail := r.Reason
		if r.Detected {
			available++
			status = availStyle.Render(statusColumn.Render("available"))
			detail = ""
		}
		if r.Cached {
			detail = strings.TrimSpace(fmt.Sprintf("cached %s ago %s", time.Since(r.CheckedAt).Round(time.Second), detail))
		}

		_, _ = fmt.Fprintln(w, depColumn.Render(string(r.Dependency))+status+
			versionColumn.Render(r.Version)+detailStyle.Render(detail))
	}

	_, _ = fmt.Fprintf(w, "\n%d of %d available\n", available, len(results))
}
