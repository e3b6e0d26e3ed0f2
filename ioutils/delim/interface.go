/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package delim reads delimited chunks off an io.ReadCloser through a bufio.Reader,
// exposing the unread tail of the buffer so callers can splice it onto the next reader
// in a chain (used by the stream package to seed a fresh buffer from a connection's
// leftover bytes after a protocol upgrade or keep-alive reuse).
package delim

import (
	"bufio"
	"errors"
	"io"
)

// ErrInstance is returned by every method once the BufferDelim has been closed.
var ErrInstance = errors.New("delim: instance closed or not initialized")

// BufferDelim reads delimiter-terminated chunks from an underlying io.ReadCloser.
type BufferDelim interface {
	io.ReadCloser
	io.WriterTo

	// Delim returns the delimiter rune configured at construction.
	Delim() rune

	// Reader returns the BufferDelim itself as an io.ReadCloser.
	Reader() io.ReadCloser

	// Copy is equivalent to WriteTo(w).
	Copy(w io.Writer) (n int64, err error)

	// ReadBytes returns the next delimited chunk, delimiter included.
	ReadBytes() ([]byte, error)

	// UnRead returns and drains whatever is currently buffered but unread.
	UnRead() ([]byte, error)
}

// New wraps r in a bufio.Reader sized sizeBufferRead (bufio's default of 4096 is used
// when sizeBufferRead <= 0) and reads chunks delimited by delim.
func New(r io.ReadCloser, delim rune, sizeBufferRead int) BufferDelim {
	var b *bufio.Reader

	if sizeBufferRead > 0 {
		b = bufio.NewReaderSize(r, sizeBufferRead)
	} else {
		b = bufio.NewReader(r)
	}

	return &dlm{
		i: r,
		r: b,
		d: delim,
	}
}
