// Package envelope writes and reads the compressed container that wraps a
// package's tar stream.
//
// The container is a single gzip member, but it is assembled by hand so
// every byte outside the deflate payload is fixed:
//
//	1F 8B 08 08 00 00 00 00 04 00   header: deflate, FNAME set, no mtime, XFL=4, OS=0
//	"archtemp.tar" 00               original file name
//	...                             raw deflate stream
//	CRC32 (LE) ISIZE (LE)           trailer over the uncompressed stream
//
// Consumers of the format compare these bytes directly, so the header and
// trailer must not depend on the compressor's own framing.
package envelope

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/meigma/unitypackage/internal/fileio"
)

// Name is the original file name recorded in the header.
const Name = "archtemp.tar"

// TrailerSize is the length of the CRC32 and ISIZE trailer.
const TrailerSize = 8

// DefaultLevel is the deflate level used when none is configured.
const DefaultLevel = flate.DefaultCompression

// header is the fixed 10-byte member header.
var header = [10]byte{0x1f, 0x8b, 0x08, 0x08, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00}

// ErrFormat is returned when the input is not a readable envelope.
var ErrFormat = errors.New("envelope: invalid format")

// Stats describes a written envelope.
type Stats struct {
	// Size is the number of uncompressed bytes consumed from the source.
	Size uint64

	// CRC is the CRC-32 (IEEE) of the uncompressed bytes.
	CRC uint32

	// Written is the total number of envelope bytes emitted.
	Written uint64
}

type config struct {
	level int
}

// Option configures Write.
type Option func(*config)

// WithLevel sets the deflate level, from flate.HuffmanOnly to
// flate.BestCompression. flate.DefaultCompression is the default.
func WithLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// Header returns a copy of the fixed header followed by the
// zero-terminated file name.
func Header() []byte {
	out := make([]byte, 0, len(header)+len(Name)+1)
	out = append(out, header[:]...)
	out = append(out, Name...)
	return append(out, 0)
}

// Write compresses src into dst as a complete envelope.
func Write(ctx context.Context, dst io.Writer, src io.Reader, opts ...Option) (Stats, error) {
	cfg := config{level: DefaultLevel}
	for _, opt := range opts {
		opt(&cfg)
	}

	var written, read fileio.Meter
	cw := written.Writer(dst)
	if _, err := cw.Write(Header()); err != nil {
		return Stats{}, fmt.Errorf("write header: %w", err)
	}

	fw, err := flate.NewWriter(cw, cfg.level)
	if err != nil {
		return Stats{}, fmt.Errorf("create deflate writer: %w", err)
	}

	crc := crc32.NewIEEE()
	if _, err := fileio.Copy(ctx, fw, io.TeeReader(read.Reader(src), crc), nil); err != nil {
		fw.Close()
		return Stats{}, fmt.Errorf("compress: %w", err)
	}
	if err := fw.Close(); err != nil {
		return Stats{}, fmt.Errorf("close deflate writer: %w", err)
	}

	sum := crc.Sum32()
	if _, err := cw.Write(appendTrailer(nil, sum, read.Bytes())); err != nil {
		return Stats{}, fmt.Errorf("write trailer: %w", err)
	}

	return Stats{Size: read.Bytes(), CRC: sum, Written: written.Bytes()}, nil
}

// appendTrailer appends the CRC and the size modulo 2^32, both little-endian.
func appendTrailer(b []byte, crc uint32, size uint64) []byte {
	b = binary.LittleEndian.AppendUint32(b, crc)
	return binary.LittleEndian.AppendUint32(b, uint32(size)) //nolint:gosec // truncation is the format
}

// NewReader returns a reader over the uncompressed stream inside r.
// The trailer is verified when the stream is read to EOF; a mismatch
// surfaces as gzip.ErrChecksum from Read.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return zr, nil
}
