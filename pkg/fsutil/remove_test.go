package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveDirectory_RemovesTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "onnx")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "decoder", "weights"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("onnx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decoder", "weights", "w.bin"), []byte("w"), 0o644))

	require.NoError(t, RemoveDirectory(dir))

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveDirectory_MissingIsNoop(t *testing.T) {
	err := RemoveDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NoError(t, err)
}

func TestRemoveDirectory_FileIsLeftAlone(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	require.NoError(t, RemoveDirectory(file))

	_, err := os.Stat(file)
	assert.NoError(t, err)
}

func TestRemoveDirectory_ReadOnlyEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	nested := filepath.Join(dir, "locked")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "blob"), []byte("x"), 0o444))
	require.NoError(t, os.Chmod(nested, 0o555))

	require.NoError(t, RemoveDirectory(dir))

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveDirectory_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	root := t.TempDir()
	target := filepath.Join(root, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	err := RemoveDirectory(link)
	require.ErrorIs(t, err, ErrSymlink)

	_, err = os.Stat(target)
	assert.NoError(t, err, "target must survive")
}

func TestMakeWritable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	file := filepath.Join(dir, "ro")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o400))

	require.NoError(t, makeWritable(dir))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
