// Package testutil holds fixtures shared by the package tests: asset trees
// on disk and hand-built archives with arbitrary entry order.
package testutil

import (
	"archive/tar"
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meigma/unitypackage/internal/envelope"
)

// ID returns a well-formed identifier made of one repeated hex digit.
func ID(digit byte) string {
	return strings.Repeat(string(digit), 32)
}

// Meta returns sidecar content declaring id, shaped like an editor-written
// sidecar.
func Meta(id string) string {
	return "fileFormatVersion: 2\nguid: " + id + "\nDefaultImporter:\n  externalObjects: {}\n  userData: \n"
}

// WriteTree creates files under dir. Keys are slash-separated paths; a key
// ending in "/" creates an empty directory.
func WriteTree(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(tb, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(tb, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(tb, os.WriteFile(full, []byte(content), 0o644))
	}
}

// ReadTree returns every regular file under dir keyed by its slash path
// relative to dir. Directories appear with a trailing "/" and empty content.
func ReadTree(tb testing.TB, dir string) map[string]string {
	tb.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(tb, err)
	return out
}

// TarEntry is one member of a hand-built archive.
type TarEntry struct {
	Name     string
	Content  string
	Typeflag byte
}

// Dir returns a directory member named "<id>/".
func Dir(id string) TarEntry {
	return TarEntry{Name: id + "/", Typeflag: tar.TypeDir}
}

// File returns a regular file member "<id>/<kind>".
func File(id, kind, content string) TarEntry {
	return TarEntry{Name: id + "/" + kind, Content: content, Typeflag: tar.TypeReg}
}

// BuildTar writes entries, in the given order, as a USTAR stream.
func BuildTar(tb testing.TB, entries []TarEntry) []byte {
	tb.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: e.Typeflag,
			Mode:     0o777,
			Size:     int64(len(e.Content)),
			ModTime:  time.Unix(0, 0),
			Format:   tar.FormatUSTAR,
		}
		if e.Typeflag != tar.TypeReg {
			hdr.Size = 0
		}
		require.NoError(tb, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := tw.Write([]byte(e.Content))
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, tw.Close())
	return buf.Bytes()
}

// BuildArchive wraps BuildTar output in the package envelope.
func BuildArchive(tb testing.TB, entries []TarEntry) []byte {
	tb.Helper()
	var out bytes.Buffer
	_, err := envelope.Write(context.Background(), &out, bytes.NewReader(BuildTar(tb, entries)))
	require.NoError(tb, err)
	return out.Bytes()
}

// WriteArchive writes BuildArchive output to dir/name and returns its path.
func WriteArchive(tb testing.TB, dir, name string, entries []TarEntry) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(p, BuildArchive(tb, entries), 0o644))
	return p
}
