package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/testkit/internal/log"
	"github.com/asteroid-belt/testkit/pkg/fsutil"
)

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <dir>...",
	Short: "Remove directories, including read-only files inside them",
	Long: `Remove directories, including read-only files inside them.

Missing paths and regular files are skipped. Symbolic links are refused.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRmdir,
}

func runRmdir(cmd *cobra.Command, args []string) error {
	var errs []error
	for _, dir := range args {
		info, statErr := os.Lstat(dir)
		if err := fsutil.RemoveDirectory(dir); err != nil {
			log.Debugf("rmdir %s: %v", dir, err)
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		if statErr != nil || !info.IsDir() {
			log.Debugf("rmdir %s: nothing to remove", dir)
			continue
		}
		log.Printf("Removed %s\n", dir)
	}
	return errors.Join(errs...)
}
