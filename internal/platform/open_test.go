package platform

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRoot(t *testing.T, dir string) *os.Root {
	t.Helper()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })
	return root
}

func TestOpenRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("content"), 0o644))
	root := openRoot(t, dir)

	f, info, err := OpenRegular(root, "real.txt")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(len("content")), info.Size())
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestOpenRegularRefuses(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("content"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(dir, "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.Symlink("sub", filepath.Join(dir, "dirlink")))
	root := openRoot(t, dir)

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "link to file", path: "link.txt", want: ErrSymlink},
		{name: "link to directory", path: "dirlink", want: ErrSymlink},
		{name: "directory", path: "sub", want: ErrNotRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, _, err := OpenRegular(root, tt.path)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenRegularMissing(t *testing.T) {
	t.Parallel()

	root := openRoot(t, t.TempDir())
	_, _, err := OpenRegular(root, "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsRegular(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt.meta"), []byte("guid: x"), 0o644))
	require.NoError(t, os.Symlink("real.txt.meta", filepath.Join(dir, "link.txt.meta")))
	root := openRoot(t, dir)

	assert.True(t, IsRegular(root, "real.txt.meta"))
	assert.False(t, IsRegular(root, "link.txt.meta"))
	assert.False(t, IsRegular(root, "missing.meta"))
	assert.False(t, IsRegular(root, "."))
}
