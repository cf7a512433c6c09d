// Package fileio holds the stream plumbing shared by the package writer and
// reader: byte metering for the tar and envelope sizes, and copies that stop
// when the operation is canceled.
package fileio

import (
	"context"
	"io"
)

// Meter tallies the bytes that move through the readers and writers it
// wraps. The zero value is ready to use; a Meter is not safe for
// concurrent use.
type Meter struct {
	n uint64
}

// Bytes returns the running total.
func (m *Meter) Bytes() uint64 {
	return m.n
}

// Reader returns r with every byte read added to m.
func (m *Meter) Reader(r io.Reader) io.Reader {
	return &meteredReader{r: r, m: m}
}

// Writer returns w with every byte written added to m.
func (m *Meter) Writer(w io.Writer) io.Writer {
	return &meteredWriter{w: w, m: m}
}

func (m *Meter) add(n int) {
	if n > 0 {
		m.n += uint64(n) //nolint:gosec // n > 0
	}
}

type meteredReader struct {
	r io.Reader
	m *Meter
}

func (mr *meteredReader) Read(p []byte) (int, error) {
	n, err := mr.r.Read(p)
	mr.m.add(n)
	return n, err
}

type meteredWriter struct {
	w io.Writer
	m *Meter
}

func (mw *meteredWriter) Write(p []byte) (int, error) {
	n, err := mw.w.Write(p)
	mw.m.add(n)
	return n, err
}

// Copy moves src into dst and returns the number of bytes written. The
// context is consulted before every read, so a canceled pack or unpack
// stops within one buffer. A nil buf lets io.CopyBuffer allocate.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	n, err := io.CopyBuffer(dst, &ctxReader{ctx: ctx, r: src}, buf)
	return uint64(n), err //nolint:gosec // io.CopyBuffer never returns a negative count
}

// ctxReader hides any WriterTo on the source so every read goes through
// the cancellation check.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
