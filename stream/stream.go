/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package stream

import (
	"bytes"
	"context"
	"io"

	liberr "github.com/nabbar/aio/errors"
)

const (
	codeGetlineOverflow uint16 = 6400 + iota
	codeGetlineClosed
)

// defaultLineLimit bounds Getline's search when the caller did not
// configure one, so a misbehaving peer that never sends the delimiter
// cannot grow the read buffer without bound.
const defaultLineLimit = 64 * 1024

// Conn is the minimal capability BufferedStream needs from whatever it
// is layered over: iohandle.Handle, a tlsadapter.Stream, or (in tests) a
// net.Conn adapter. It mirrors iohandle.Handle's Read/Write signatures
// (liberr.Error, not plain error) so both compose without extra
// adapting, plus Shutdown/Flush per spec §4.8's stream contract.
type Conn interface {
	Read(ctx context.Context, buf []byte) (int, liberr.Error)
	Write(ctx context.Context, buf []byte) (int, liberr.Error)
	Shutdown(ctx context.Context) liberr.Error
	Flush(ctx context.Context) liberr.Error
}

// BufferedStream is a read-ahead/write-behind wrapper over a Conn,
// grounded on ioutils/bufferReadCloser's bytes.Buffer-backed ReadWriter
// for the buffering shape and ioutils/delim's ReadBytes for Getline's
// "up to and excluding the delimiter" contract (spec §4.8).
type BufferedStream struct {
	conn      Conn
	rd        *Buffer
	wr        *Buffer
	lineLimit int
	bufWrite  bool
}

// Option configures a BufferedStream at construction.
type Option func(*BufferedStream)

// WithLineLimit overrides the maximum number of unread bytes Getline
// will accumulate before giving up with an overflow error.
func WithLineLimit(n int) Option {
	return func(s *BufferedStream) {
		if n > 0 {
			s.lineLimit = n
		}
	}
}

// WithBufferedWrites enables batching Write calls into wr until Flush is
// called, instead of forwarding every Write straight to conn.
func WithBufferedWrites() Option {
	return func(s *BufferedStream) { s.bufWrite = true }
}

// New wraps conn with read-ahead buffering and the options given.
func New(conn Conn, opts ...Option) *BufferedStream {
	s := &BufferedStream{
		conn:      conn,
		rd:        NewBuffer(4096),
		lineLimit: defaultLineLimit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.bufWrite {
		s.wr = NewBuffer(4096)
	}
	return s
}

// fill reads at least one chunk from conn into rd, returning io.EOF
// (wrapped) once the peer has closed with nothing left buffered.
func (s *BufferedStream) fill(ctx context.Context) liberr.Error {
	dst := s.rd.Prepare(4096)
	n, err := s.conn.Read(ctx, dst)
	if n > 0 {
		s.rd.Commit(n)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeGetlineClosed, io.EOF.Error()))
	}
	return nil
}

// Read drains buffered data first, only calling down to conn once the
// read-ahead buffer is empty.
func (s *BufferedStream) Read(ctx context.Context, p []byte) (int, liberr.Error) {
	if s.rd.Len() == 0 {
		if e := s.fill(ctx); e != nil {
			return 0, e
		}
	}
	n := copy(p, s.rd.Data())
	s.rd.Consume(n)
	return n, nil
}

// Getline reads until delim (exclusive) is seen, returning the line
// without the delimiter. It mirrors ioutils/delim's BufferDelim
// contract: a delimiter that never arrives before the peer closes is
// reported as an unexpected-EOF error rather than returning a partial
// line, and a line that grows past the configured limit without the
// delimiter appearing is an overflow error rather than unbounded
// buffering.
func (s *BufferedStream) Getline(ctx context.Context, delim byte) ([]byte, liberr.Error) {
	for {
		if idx := bytes.IndexByte(s.rd.Data(), delim); idx >= 0 {
			line := make([]byte, idx)
			copy(line, s.rd.Data()[:idx])
			s.rd.Consume(idx + 1)
			return line, nil
		}

		if s.lineLimit > 0 && s.rd.Len() >= s.lineLimit {
			return nil, liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeGetlineOverflow, "line exceeds configured limit"))
		}

		if e := s.fill(ctx); e != nil {
			if liberr.IsCode(e, codeGetlineClosed) {
				return nil, liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeGetlineClosed, io.ErrUnexpectedEOF.Error()))
			}
			return nil, e
		}
	}
}

// Write forwards to conn directly, or buffers into wr when
// WithBufferedWrites was set, to be sent on the next Flush.
func (s *BufferedStream) Write(ctx context.Context, p []byte) (int, liberr.Error) {
	if !s.bufWrite {
		return s.conn.Write(ctx, p)
	}
	dst := s.wr.Prepare(len(p))
	copy(dst, p)
	s.wr.Commit(len(p))
	return len(p), nil
}

// Flush sends any buffered writes down to conn and forwards conn's own
// Flush (e.g. disabling TCP_CORK on the underlying socket).
func (s *BufferedStream) Flush(ctx context.Context) liberr.Error {
	if s.bufWrite {
		for s.wr.Len() > 0 {
			n, err := s.conn.Write(ctx, s.wr.Data())
			if err != nil {
				return err
			}
			s.wr.Consume(n)
		}
	}
	return s.conn.Flush(ctx)
}

// Shutdown flushes pending writes then forwards to conn.Shutdown.
func (s *BufferedStream) Shutdown(ctx context.Context) liberr.Error {
	if e := s.Flush(ctx); e != nil {
		return e
	}
	return s.conn.Shutdown(ctx)
}

// Buffered reports how many bytes are currently held in the read-ahead
// buffer without having been returned to a caller yet.
func (s *BufferedStream) Buffered() int { return s.rd.Len() }
