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

package httpproto

import (
	"context"
	"io"
	"strconv"
)

// contentLengthReader drains exactly `remaining` bytes from the
// connection, then reports io.EOF, matching
// HttpSession::_readContent's "recvAll(buffer, len)" fixed-size read.
type contentLengthReader struct {
	conn      *Conn
	ctx       context.Context
	remaining int64
}

func (r *contentLengthReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.conn.s.Read(r.ctx, p)
	if n > 0 {
		r.remaining -= int64(n)
	}
	if err != nil {
		return n, err
	}
	if r.remaining == 0 {
		return n, io.EOF
	}
	return n, nil
}

// untilCloseReader drains the connection until the peer closes it,
// matching _readContent's final branch ("recv until recv returns 0").
// A connection read this way can never be cached afterward: there is
// no framing left to tell where the next response would start.
type untilCloseReader struct {
	conn *Conn
	ctx  context.Context
	done bool
}

func (r *untilCloseReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n, err := r.conn.s.Read(r.ctx, p)
	if err != nil {
		r.done = true
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	if n == 0 {
		r.done = true
		return 0, io.EOF
	}
	return n, nil
}

// chunkedReader decodes HTTP/1.1 chunked transfer-encoding, grounded on
// _readContent's chunked branch: a hex chunk-size line, that many
// bytes, a trailing CRLF, repeated until a zero-size chunk ends the
// body. Chunk extensions are not supported (spec §4.10's Non-goals).
type chunkedReader struct {
	conn      *Conn
	ctx       context.Context
	remaining int64
	done      bool
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	for {
		if r.done {
			return 0, io.EOF
		}
		if r.remaining > 0 {
			n := len(p)
			if int64(n) > r.remaining {
				n = int(r.remaining)
			}
			read, err := r.conn.s.Read(r.ctx, p[:n])
			if read > 0 {
				r.remaining -= int64(read)
			}
			if err != nil {
				return read, err
			}
			if r.remaining == 0 {
				if e := r.consumeChunkCRLF(); e != nil {
					return read, e
				}
			}
			return read, nil
		}

		size, err := r.nextChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			r.done = true
			if e := r.consumeTrailer(); e != nil {
				return 0, e
			}
			return 0, io.EOF
		}
		r.remaining = size
	}
}

func (r *chunkedReader) nextChunkSize() (int64, error) {
	line, err := r.conn.s.Getline(r.ctx, '\n')
	if err != nil {
		return 0, err
	}
	line = trimCR(line)
	n, perr := strconv.ParseInt(string(line), 16, 64)
	if perr != nil || n < 0 {
		return 0, malformed(codeMalformedChunkSize, string(line))
	}
	return n, nil
}

func (r *chunkedReader) consumeChunkCRLF() error {
	line, err := r.conn.s.Getline(r.ctx, '\n')
	if err != nil {
		return err
	}
	if len(trimCR(line)) != 0 {
		return malformed(codeChunkFraming, "chunk not terminated by CRLF")
	}
	return nil
}

// consumeTrailer reads (and discards) any trailer headers following the
// terminal zero-size chunk, up to the final empty line.
func (r *chunkedReader) consumeTrailer() error {
	for {
		line, err := r.conn.s.Getline(r.ctx, '\n')
		if err != nil {
			return err
		}
		if len(trimCR(line)) == 0 {
			return nil
		}
	}
}
