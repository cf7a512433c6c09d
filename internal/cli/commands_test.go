package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unitypackage/internal/testutil"
)

type result struct {
	out  string
	logs string
	code int
}

// execute runs the root command with an empty config file.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	var out, logs bytes.Buffer
	c := New(&logs)
	root := c.RootCommand("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config="+writeConfig(t, "")))

	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), logs: logs.String(), code: ExitCode(err)}
}

func TestPackInspectUnpack(t *testing.T) {
	t.Parallel()

	id := testutil.ID('a')
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"Proj/a.txt":      "alpha",
		"Proj/a.txt.meta": testutil.Meta(id),
	})
	pkg := filepath.Join(dir, "proj.unitypackage")

	res := execute(t, "pack", filepath.Join(dir, "Proj"), pkg, "--root", "assets")
	require.Equal(t, ExitOK, res.code, res.logs)
	assert.Contains(t, res.logs, "New UnityPackage created")

	res = execute(t, "inspect", pkg)
	require.Equal(t, ExitOK, res.code, res.logs)
	assert.Contains(t, res.out, id)
	assert.Contains(t, res.out, "Assets/Proj/a.txt")
	assert.Contains(t, res.out, "1 files, 0 directories, 0 orphans, 0 empty")

	dest := filepath.Join(dir, "out")
	res = execute(t, "unpack", pkg, dest)
	require.Equal(t, ExitOK, res.code, res.logs)
	assert.Equal(t, map[string]string{
		"Proj/":           "",
		"Proj/a.txt":      "alpha",
		"Proj/a.txt.meta": testutil.Meta(id),
	}, testutil.ReadTree(t, dest))
}

func TestUnpackKeepRootFlag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"Proj/a.txt":      "alpha",
		"Proj/a.txt.meta": testutil.Meta(testutil.ID('a')),
	})
	pkg := filepath.Join(dir, "proj.unitypackage")
	require.Equal(t, ExitOK, execute(t, "pack", filepath.Join(dir, "Proj"), pkg, "--root", "packages").code)

	dest := filepath.Join(dir, "out")
	res := execute(t, "unpack", pkg, dest, "--keep-root")
	require.Equal(t, ExitOK, res.code, res.logs)
	assert.FileExists(t, filepath.Join(dest, "Packages", "Proj", "a.txt"))
}

func TestLegacy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"Assets/Foo.txt":      "foo",
		"Assets/Foo.txt.meta": testutil.Meta(testutil.ID('f')),
	})
	pkg := filepath.Join(dir, "foo.unitypackage")

	res := execute(t, "legacy", "P", filepath.Join(dir, "Assets"), pkg, "noConsole")
	require.Equal(t, ExitOK, res.code)
	assert.Empty(t, res.logs)

	dest := filepath.Join(dir, "X")
	res = execute(t, "legacy", "u", pkg, dest)
	require.Equal(t, ExitOK, res.code, res.logs)
	assert.Equal(t, map[string]string{
		"Foo.txt":      "foo",
		"Foo.txt.meta": testutil.Meta(testutil.ID('f')),
	}, testutil.ReadTree(t, dest))
}

func TestCommandExitCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"Src/a.txt":  "a",
		"Empty/":     "",
		"existing":   "x",
		"garbage.up": "not a package",
		"Full/x.txt": "x",
	})
	src := filepath.Join(dir, "Src")
	missing := filepath.Join(dir, "missing")
	existing := filepath.Join(dir, "existing")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", nil, ExitOK},
		{"unknown command", []string{"frobnicate"}, ExitBadArguments},
		{"unknown flag", []string{"pack", src, missing, "--bogus"}, ExitBadArguments},
		{"missing argument", []string{"pack", src}, ExitBadArguments},
		{"bad root", []string{"pack", src, missing + ".up", "--root", "library"}, ExitBadArguments},
		{"legacy bad work", []string{"legacy", "X", src, missing}, ExitBadArguments},
		{"legacy arity", []string{"legacy", "P", src}, ExitBadArguments},
		{"pack source missing", []string{"pack", missing, filepath.Join(dir, "a.up")}, ExitSourceNotFound},
		{"unpack archive missing", []string{"unpack", missing, filepath.Join(dir, "b")}, ExitFileNotFound},
		{"inspect archive missing", []string{"inspect", missing}, ExitFileNotFound},
		{"pack empty", []string{"pack", filepath.Join(dir, "Empty"), filepath.Join(dir, "c.up")}, ExitEmptySource},
		{"legacy pack empty", []string{"legacy", "P", filepath.Join(dir, "Empty"), filepath.Join(dir, "e.up")}, ExitFileNotFound},
		{"legacy pack assets empty", []string{"legacy", "PA", filepath.Join(dir, "Empty"), filepath.Join(dir, "f.up"), "noConsole"}, ExitFileNotFound},
		{"pack destination exists", []string{"pack", src, existing}, ExitDestinationExists},
		{"unpack destination not empty", []string{"unpack", filepath.Join(dir, "garbage.up"), filepath.Join(dir, "Full")}, ExitDestinationExists},
		{"unpack corrupt", []string{"unpack", filepath.Join(dir, "garbage.up"), filepath.Join(dir, "d")}, ExitIOFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := execute(t, tt.args...)
			assert.Equal(t, tt.want, res.code, "logs: %s", res.logs)
		})
	}
}

func TestConfigDefaultsApply(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"Proj/a.txt":      "alpha",
		"Proj/a.txt.meta": testutil.Meta(testutil.ID('a')),
	})
	cfg := writeConfig(t, "default_root = \"assets\"\nkeep_root = true\nlog_level = \"error\"\n")
	pkg := filepath.Join(dir, "proj.unitypackage")

	var logs bytes.Buffer
	root := New(&logs).RootCommand("test")
	root.SetArgs([]string{"pack", filepath.Join(dir, "Proj"), pkg, "--config", cfg})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Empty(t, logs.String())

	root = New(&logs).RootCommand("test")
	dest := filepath.Join(dir, "out")
	root.SetArgs([]string{"unpack", pkg, dest, "--config", cfg})
	require.NoError(t, root.ExecuteContext(context.Background()))

	_, err := os.Stat(filepath.Join(dest, "Assets", "Proj", "a.txt"))
	require.NoError(t, err)
}
