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

// Package stream is this module's StreamBuffer/BufferedStream (spec
// §4.8): a read-ahead ring buffer over any stream satisfying a minimal
// {Read, Write, Shutdown, Flush} capability, modeled on
// ioutils/bufferReadCloser's bytes.Buffer wrapping for the ring shape and
// ioutils/delim's bufio-backed ReadBytes for Getline's "up to and
// excluding delimiter, UnexpectedEOF if never seen" semantics.
package stream

// Buffer is a growable ring of bytes exposing the four-method contract
// spec §3's StreamBuffer names: Prepare reserves writable space,
// Commit records bytes actually written into it, Data exposes the
// readable span, Consume advances past bytes already read.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// NewBuffer returns an empty Buffer that grows as needed. Callers that
// need a bound (Getline's line-length limit, for instance) enforce it
// themselves by watching Len, per spec §4.8's "buffer sizes are
// bounded" applying to the stream's accumulation policy, not to this
// primitive ring.
func NewBuffer(initialCap int) *Buffer {
	if initialCap <= 0 {
		initialCap = 4096
	}
	return &Buffer{buf: make([]byte, initialCap)}
}

// Len returns the number of unread bytes currently buffered.
func (b *Buffer) Len() int { return b.w - b.r }

// Cap returns the buffer's current backing capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Prepare reserves n writable bytes at the end of the buffer, compacting
// (sliding unread data to the front) or growing the backing slice as
// needed, and returns the writable span. The caller writes into the
// returned slice then calls Commit with however many bytes it actually
// wrote.
func (b *Buffer) Prepare(n int) []byte {
	if n <= 0 {
		return nil
	}

	if cap(b.buf)-b.w < n {
		b.compact()
	}
	if cap(b.buf)-b.w < n {
		b.grow(n)
	}

	return b.buf[b.w : b.w+n]
}

// Commit records that n bytes were written into the span Prepare
// returned, extending the readable region by n.
func (b *Buffer) Commit(n int) {
	b.w += n
	if b.w > len(b.buf) {
		b.w = len(b.buf)
	}
}

// Data returns the currently readable span, valid until the next call to
// Prepare or Consume.
func (b *Buffer) Data() []byte {
	return b.buf[b.r:b.w]
}

// Consume advances past n already-read bytes, resetting the buffer to
// empty (offsets back to zero) once everything has been consumed so
// Prepare never has to compact an empty buffer.
func (b *Buffer) Consume(n int) {
	b.r += n
	if b.r > b.w {
		b.r = b.w
	}
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
}

// compact slides unread data to the front of the backing slice.
func (b *Buffer) compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.r:b.w])
	b.r = 0
	b.w = n
}

// grow extends the backing slice to hold at least n more bytes past w.
func (b *Buffer) grow(n int) {
	need := b.w + n
	newCap := cap(b.buf) * 2
	if newCap < need {
		newCap = need
	}
	nb := make([]byte, newCap)
	copy(nb, b.buf[:b.w])
	b.buf = nb
}

