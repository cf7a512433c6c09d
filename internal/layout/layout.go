// Package layout defines how catalog entries are laid out inside a
// package's tar stream.
//
// Every entry owns a directory named after its identifier holding up to
// three members:
//
//	<id>/             directory marker
//	<id>/asset        file content (file entries only)
//	<id>/asset.meta   sidecar content
//	<id>/pathname     UTF-8 archived path
//
// All headers use the USTAR format with mode 0777 and a zero mtime so
// identical catalogs produce identical streams.
package layout

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meigma/unitypackage/internal/fileio"
)

// Kind names a member inside an entry directory.
type Kind string

// Member kinds.
const (
	KindAsset    Kind = "asset"
	KindMeta     Kind = "asset.meta"
	KindPathname Kind = "pathname"
)

// Mode is the permission mode written on every header.
const Mode = 0o777

// MaxPathnameSize bounds the pathname member a reader will accept.
const MaxPathnameSize = 64 << 10

// ErrPathnameTooLarge is returned when a pathname member exceeds MaxPathnameSize.
var ErrPathnameTooLarge = errors.New("layout: pathname too large")

var modTime = time.Unix(0, 0)

// Known reports whether k is one of the recognized member kinds.
func (k Kind) Known() bool {
	switch k {
	case KindAsset, KindMeta, KindPathname:
		return true
	default:
		return false
	}
}

// DirName returns the tar name of the directory marker for id.
func DirName(id string) string {
	return id + "/"
}

// Name returns the tar name of a member.
func Name(id string, kind Kind) string {
	return id + "/" + string(kind)
}

// Split parses a member name of the form "<id>/<kind>".
// It reports false for names with a different shape or an unusable id;
// the kind is returned as-is and may be unknown.
func Split(name string) (id string, kind Kind, ok bool) {
	id, rest, found := strings.Cut(name, "/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", "", false
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `\:`) {
		return "", "", false
	}
	return id, Kind(rest), true
}

// Writer emits entries as USTAR members.
type Writer struct {
	tw  *tar.Writer
	buf []byte
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{tw: tar.NewWriter(w), buf: make([]byte, 32*1024)}
}

// WriteDir writes the directory marker for id.
func (w *Writer) WriteDir(id string) error {
	return w.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     DirName(id),
		Mode:     Mode,
		ModTime:  modTime,
		Format:   tar.FormatUSTAR,
	})
}

// WriteMember writes a member of exactly size bytes read from r.
func (w *Writer) WriteMember(ctx context.Context, id string, kind Kind, r io.Reader, size int64) error {
	name := Name(id, kind)
	err := w.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     Mode,
		Size:     size,
		ModTime:  modTime,
		Format:   tar.FormatUSTAR,
	})
	if err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	n, err := fileio.Copy(ctx, w.tw, io.LimitReader(r, size), w.buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if n != uint64(size) { //nolint:gosec // size is non-negative, checked by WriteHeader
		return fmt.Errorf("write %s: size changed during archive creation: expected %d, got %d", name, size, n)
	}
	return nil
}

// WriteBytes writes a member holding data.
func (w *Writer) WriteBytes(ctx context.Context, id string, kind Kind, data []byte) error {
	return w.WriteMember(ctx, id, kind, bytes.NewReader(data), int64(len(data)))
}

// Close writes the end-of-archive marker.
func (w *Writer) Close() error {
	return w.tw.Close()
}

// Member describes a recognized member during Scan.
type Member struct {
	ID   string
	Kind Kind
	Size int64
}

// Scan reads a tar stream and calls fn for every regular-file member whose
// name splits into an identifier and a known kind. Other members are
// skipped. fn may consume body; unread bytes are discarded.
func Scan(ctx context.Context, r io.Reader, fn func(m Member, body io.Reader) error) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		id, kind, ok := Split(hdr.Name)
		if !ok || !kind.Known() {
			continue
		}
		if err := fn(Member{ID: id, Kind: kind, Size: hdr.Size}, tr); err != nil {
			return err
		}
	}
}

// ReadPathname reads a pathname member body.
func ReadPathname(body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxPathnameSize+1))
	if err != nil {
		return "", fmt.Errorf("read pathname: %w", err)
	}
	if len(data) > MaxPathnameSize {
		return "", ErrPathnameTooLarge
	}
	return string(data), nil
}
