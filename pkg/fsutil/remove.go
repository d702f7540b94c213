// Package fsutil provides filesystem helpers shared by tests and the CLI.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// ErrSymlink is returned when RemoveDirectory is pointed at a symbolic link.
var ErrSymlink = errors.New("refusing to remove through a symbolic link")

// RemoveDirectory removes dir and everything below it.
//
// It does nothing if dir does not exist or is not a directory. Read-only entries are
// made writable before removal on Windows, where os.RemoveAll cannot delete them,
// and on other systems when a first attempt fails.
func RemoveDirectory(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("%w: %s", ErrSymlink, dir)
	}
	if !info.IsDir() {
		return nil
	}

	if runtime.GOOS == "windows" {
		if err := makeWritable(dir); err != nil {
			return fmt.Errorf("clear read-only %s: %w", dir, err)
		}
	}

	if err := os.RemoveAll(dir); err == nil {
		return nil
	}

	// Permissions on a nested directory can block removal of its entries.
	if err := makeWritable(dir); err != nil {
		return fmt.Errorf("clear read-only %s: %w", dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

// makeWritable adds owner write (and search, for directories) permission to every
// entry under root.
func makeWritable(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		want := info.Mode().Perm() | 0o200
		if d.IsDir() {
			want |= 0o700
		}
		if want == info.Mode().Perm() {
			return nil
		}
		// Directories are visited before they are read, so fixing them here is enough.
		return os.Chmod(path, want)
	})
}
