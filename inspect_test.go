package unitypackage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unitypackage/internal/testutil"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	idFile, idDir := testutil.ID('b'), testutil.ID('a')
	files := map[string]string{
		"Src/Sub.meta":       testutil.Meta(idDir),
		"Src/Sub/x.txt":      "twelve bytes",
		"Src/Sub/x.txt.meta": testutil.Meta(idFile),
	}
	pkg, packed := packTree(t, files, "Src", PackWithRootPrefix(RootAssets))

	res, err := Inspect(context.Background(), pkg)
	require.NoError(t, err)

	assert.Equal(t, packed.Digest, res.Digest())
	assert.Equal(t, packed.Size, res.Size())
	assert.Equal(t, packed.TarSize, res.TarSize())
	assert.Equal(t, 1, res.FileCount())
	assert.Equal(t, 1, res.DirectoryCount())
	assert.Empty(t, res.Orphans())
	assert.Equal(t, uint64(12), res.TotalAssetSize())
	assert.Greater(t, res.CompressionRatio(), 0.0)

	entries := res.Entries()
	require.Len(t, entries, 2)

	assert.Equal(t, idDir, entries[0].ID)
	assert.Equal(t, "Assets/Src/Sub", entries[0].Path)
	assert.True(t, entries[0].IsDir())
	assert.True(t, entries[0].HasMeta)

	assert.Equal(t, idFile, entries[1].ID)
	assert.Equal(t, "Assets/Src/Sub/x.txt", entries[1].Path)
	assert.False(t, entries[1].IsDir())
	assert.True(t, entries[1].HasAsset)
	assert.Equal(t, int64(12), entries[1].AssetSize)
	assert.Equal(t, int64(len(testutil.Meta(idFile))), entries[1].MetaSize)
}

func TestInspectOrphans(t *testing.T) {
	t.Parallel()

	kept, orphan := testutil.ID('a'), testutil.ID('b')
	pkg := testutil.WriteArchive(t, t.TempDir(), "in.unitypackage", []testutil.TarEntry{
		testutil.File(orphan, "asset", "lost"),
		testutil.File(kept, "pathname", "Assets/kept.txt"),
		testutil.File(kept, "asset", "kept"),
	})

	res, err := Inspect(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, res.Orphans())
	assert.Equal(t, 1, res.FileCount())
	require.Len(t, res.Entries(), 2)
	assert.True(t, res.Entries()[1].Orphaned())
}

func TestInspectPathnameOnly(t *testing.T) {
	t.Parallel()

	bare, dir := testutil.ID('a'), testutil.ID('b')
	pkg := testutil.WriteArchive(t, t.TempDir(), "in.unitypackage", []testutil.TarEntry{
		testutil.File(bare, "pathname", "Assets/Nothing"),
		testutil.File(dir, "pathname", "Assets/Folder"),
		testutil.File(dir, "asset.meta", testutil.Meta(dir)),
	})

	res, err := Inspect(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DirectoryCount())
	assert.Equal(t, 1, res.EmptyCount())
	assert.Zero(t, res.FileCount())
	assert.Empty(t, res.Orphans())

	entries := res.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Empty())
	assert.False(t, entries[0].IsDir())
	assert.False(t, entries[1].Empty())
	assert.True(t, entries[1].IsDir())

	// Unpack agrees: only the folder with a sidecar is restored.
	dest := filepath.Join(t.TempDir(), "out")
	unpacked, err := Unpack(context.Background(), pkg, dest)
	require.NoError(t, err)
	assert.Equal(t, res.DirectoryCount(), unpacked.Directories)
	assert.Equal(t, res.FileCount(), unpacked.Files)
	assert.NoDirExists(t, filepath.Join(dest, "Nothing"))
	assert.DirExists(t, filepath.Join(dest, "Folder"))
}

func TestInspectErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Inspect(context.Background(), filepath.Join(dir, "missing.unitypackage"))
	require.ErrorIs(t, err, ErrSourceNotFound)

	_, err = Inspect(context.Background(), dir)
	require.ErrorIs(t, err, ErrSourceNotFound)

	id := testutil.ID('a')
	data := testutil.BuildArchive(t, []testutil.TarEntry{
		testutil.File(id, "asset", "x"),
		testutil.File(id, "pathname", "Assets/x.txt"),
	})
	data[len(data)-1] ^= 0xff
	corrupt := filepath.Join(dir, "corrupt.unitypackage")
	require.NoError(t, os.WriteFile(corrupt, data, 0o644))

	_, err = Inspect(context.Background(), corrupt)
	require.ErrorIs(t, err, ErrArchiveRead)
}
