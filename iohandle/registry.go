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

package iohandle

import (
	"context"

	"github.com/nabbar/aio/ioutils/mapCloser"
)

// Registry tracks every live Handle bound to one reactor so a shutdown
// path can close them all in one sweep instead of leaking descriptors
// that individual call sites forgot to release. It is a thin domain
// wrapper over mapCloser.Closer (kept from the teacher, see DESIGN.md):
// a Handle already satisfies io.Closer.
type Registry struct {
	c mapCloser.Closer
}

// NewRegistry returns a Registry that auto-closes every tracked Handle
// when ctx is done, matching mapCloser's own context-driven cleanup.
func NewRegistry(ctx context.Context) *Registry {
	return &Registry{c: mapCloser.New(ctx)}
}

// Track registers h so CloseAll (or ctx's cancellation) will close it.
func (r *Registry) Track(h *Handle) {
	r.c.Add(h)
}

// Len reports how many handles have been tracked, including ones already
// closed individually or by CloseAll: mapCloser never untracks a closer
// when it is closed, so the count only grows.
func (r *Registry) Len() int {
	return r.c.Len()
}

// CloseAll closes every tracked handle, aggregating errors.
func (r *Registry) CloseAll() error {
	return r.c.Close()
}
