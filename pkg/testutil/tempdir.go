package testutil

import (
	"os"
	"testing"

	"github.com/asteroid-belt/testkit/pkg/fsutil"
)

// TempDir creates a temporary directory that is removed with fsutil.RemoveDirectory
// when the test finishes. Unlike t.TempDir it copes with read-only files left behind
// by exported models and caches.
func TempDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "testkit-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() {
		if err := fsutil.RemoveDirectory(dir); err != nil {
			t.Errorf("remove temp dir: %v", err)
		}
	})
	return dir
}
