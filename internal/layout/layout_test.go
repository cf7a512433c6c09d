package layout

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0123456789abcdef0123456789abcdef"

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		wantID   string
		wantKind Kind
		wantOK   bool
	}{
		{name: "asset", in: testID + "/asset", wantID: testID, wantKind: KindAsset, wantOK: true},
		{name: "meta", in: testID + "/asset.meta", wantID: testID, wantKind: KindMeta, wantOK: true},
		{name: "pathname", in: testID + "/pathname", wantID: testID, wantKind: KindPathname, wantOK: true},
		{name: "unknown kind", in: testID + "/preview.png", wantID: testID, wantKind: "preview.png", wantOK: true},
		{name: "directory marker", in: testID + "/"},
		{name: "no slash", in: testID},
		{name: "nested", in: testID + "/a/b"},
		{name: "empty id", in: "/asset"},
		{name: "dot dot id", in: "../asset"},
		{name: "backslash id", in: `a\b/asset`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, kind, ok := Split(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, KindAsset.Known())
	assert.True(t, KindMeta.Known())
	assert.True(t, KindPathname.Known())
	assert.False(t, Kind("preview.png").Known())
}

func TestWriterHeaders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDir(testID))
	require.NoError(t, w.WriteBytes(ctx, testID, KindAsset, []byte("content")))
	require.NoError(t, w.WriteBytes(ctx, testID, KindMeta, []byte("guid")))
	require.NoError(t, w.WriteBytes(ctx, testID, KindPathname, []byte("Assets/Foo.txt")))
	require.NoError(t, w.Close())

	// USTAR magic sits at offset 257 of the first header block.
	require.Greater(t, buf.Len(), 512)
	assert.Equal(t, "ustar\x0000", string(buf.Bytes()[257:265]))

	tr := tar.NewReader(bytes.NewReader(buf.Bytes()))
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		assert.Equal(t, int64(0o777), hdr.Mode, hdr.Name)
		assert.Equal(t, int64(0), hdr.ModTime.Unix(), hdr.Name)
	}
	assert.Equal(t, []string{
		testID + "/",
		testID + "/asset",
		testID + "/asset.meta",
		testID + "/pathname",
	}, names)
}

func TestWriterDeterministic(t *testing.T) {
	t.Parallel()

	write := func() []byte {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.WriteDir(testID))
		require.NoError(t, w.WriteBytes(context.Background(), testID, KindPathname, []byte("Assets/Dir")))
		require.NoError(t, w.Close())
		return buf.Bytes()
	}
	assert.Equal(t, write(), write())
}

func TestWriteMemberShortSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.WriteMember(context.Background(), testID, KindAsset, strings.NewReader("abc"), 10)
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	add := func(name string, typ byte, body string) {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: typ, Mode: 0o644, Size: int64(len(body))}))
		if body != "" {
			_, err := tw.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	add(testID+"/", tar.TypeDir, "")
	add(testID+"/pathname", tar.TypeReg, "Assets/Foo.txt")
	add(testID+"/preview.png", tar.TypeReg, "png")
	add("README", tar.TypeReg, "readme")
	add(testID+"/asset", tar.TypeReg, "foo")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: testID + "/link", Typeflag: tar.TypeSymlink, Linkname: "asset"}))
	require.NoError(t, tw.Close())

	var got []Member
	var pathname string
	err := Scan(ctx, &buf, func(m Member, body io.Reader) error {
		got = append(got, m)
		if m.Kind == KindPathname {
			var err error
			pathname, err = ReadPathname(body)
			return err
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []Member{
		{ID: testID, Kind: KindPathname, Size: 14},
		{ID: testID, Kind: KindAsset, Size: 3},
	}, got)
	assert.Equal(t, "Assets/Foo.txt", pathname)
}

func TestScanCallbackError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBytes(context.Background(), testID, KindAsset, []byte("x")))
	require.NoError(t, w.Close())

	boom := errors.New("boom")
	err := Scan(context.Background(), &buf, func(Member, io.Reader) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestScanTruncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBytes(context.Background(), testID, KindAsset, bytes.Repeat([]byte("x"), 4096)))
	require.NoError(t, w.Close())

	truncated := buf.Bytes()[:1024]
	err := Scan(context.Background(), bytes.NewReader(truncated), func(_ Member, body io.Reader) error {
		_, err := io.Copy(io.Discard, body)
		return err
	})
	assert.Error(t, err)
}

func TestReadPathnameTooLarge(t *testing.T) {
	t.Parallel()

	_, err := ReadPathname(strings.NewReader(strings.Repeat("a", MaxPathnameSize+1)))
	assert.ErrorIs(t, err, ErrPathnameTooLarge)
}
