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

// Package iohandle is this module's IoHandle (spec §3/§4.7): a move-only,
// RAII-style wrapper binding a raw fd to a reactor. Go has no move
// semantics, so "move-only" is approximated with a single-owner struct
// guarded by an atomic "consumed" flag that makes Close idempotent and a
// double-use after Close a reported error rather than a silent corruption.
package iohandle

import (
	"context"
	"sync/atomic"

	liberr "github.com/nabbar/aio/errors"
	"github.com/nabbar/aio/ioctx"
	"github.com/google/uuid"
)

const (
	codeClosed uint16 = 6300 + iota
	codeDoubleClose
)

// Handle owns exactly one registered descriptor (socket, file, pipe...).
// The zero value is not usable; construct with Make.
type Handle struct {
	id     uuid.UUID
	fd     int
	kind   ioctx.Kind
	ctx    ioctx.Context
	desc   ioctx.Descriptor
	closed atomic.Bool
}

// Make registers fd with ctx and returns the owning Handle. Per spec
// §4.7, construction is "IoHandle::make(fd, type) registers with the
// current executor's I/O context" — here ctx is passed explicitly rather
// than resolved from ambient state (spec §9's Open Question, resolved in
// DESIGN.md: no thread-local current executor/context anywhere in this
// module).
func Make(ctx ioctx.Context, fd int, kind ioctx.Kind) (*Handle, error) {
	desc, err := ctx.AddDescriptor(fd, kind)
	if err != nil {
		return nil, err
	}

	return &Handle{
		id:   uuid.New(),
		fd:   fd,
		kind: kind,
		ctx:  ctx,
		desc: desc,
	}, nil
}

// ID returns this handle's correlation id, used in log lines to tie
// dial/close/broken events on one descriptor together across calls.
func (h *Handle) ID() uuid.UUID { return h.id }

// Fd returns the raw descriptor. Valid only while the handle is open.
func (h *Handle) Fd() int { return h.fd }

// Kind returns the descriptor's registered type tag.
func (h *Handle) Kind() ioctx.Kind { return h.kind }

// Descriptor returns the backend-owned handle operations are submitted
// against.
func (h *Handle) Descriptor() ioctx.Descriptor { return h.desc }

func (h *Handle) checkOpen() liberr.Error {
	if h.closed.Load() {
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeClosed, "handle already closed"))
	}
	return nil
}

// Read forwards to the bound I/O context's Read, failing fast if the
// handle has already been closed.
func (h *Handle) Read(ctx context.Context, buf []byte) (int, liberr.Error) {
	if e := h.checkOpen(); e != nil {
		return 0, e
	}
	r := h.ctx.Read(ctx, h.desc, buf)
	n, ok := r.Unwrap()
	if !ok {
		return 0, r.Error()
	}
	return n, nil
}

// Write forwards to the bound I/O context's Write.
func (h *Handle) Write(ctx context.Context, buf []byte) (int, liberr.Error) {
	if e := h.checkOpen(); e != nil {
		return 0, e
	}
	r := h.ctx.Write(ctx, h.desc, buf)
	n, ok := r.Unwrap()
	if !ok {
		return 0, r.Error()
	}
	return n, nil
}

// Cancel cancels every pending operation on this handle's descriptor
// without closing it, the backend-level half of a stop request.
func (h *Handle) Cancel() {
	if h.closed.Load() {
		return
	}
	h.ctx.Cancel(h.desc)
}

// Close removes the descriptor from the reactor and closes the
// underlying fd exactly once. A second call returns codeDoubleClose
// rather than silently succeeding, since "a handle is either empty or
// has both fd and descriptor set" (spec §3) — a Handle that has already
// given those up has nothing left to operate on.
//
// Close returns the plain error interface, not liberr.Error, so *Handle
// satisfies io.Closer for iohandle.Registry/mapCloser — returning a
// liberr.Error here would make a nil result compare non-nil once boxed
// into error, the classic typed-nil gotcha.
func (h *Handle) Close() error {
	if e := h.closeCategorized(); e != nil {
		return e
	}
	return nil
}

// CloseErr is Close's categorized-error form, for callers (httpproto,
// httpworker) that want the error category rather than a plain error.
func (h *Handle) CloseErr() liberr.Error {
	return h.closeCategorized()
}

func (h *Handle) closeCategorized() liberr.Error {
	if !h.closed.CompareAndSwap(false, true) {
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeDoubleClose, "handle already closed"))
	}

	h.ctx.Cancel(h.desc)

	var errs []error
	if err := h.ctx.RemoveDescriptor(h.desc); err != nil {
		errs = append(errs, err)
	}
	if err := closeFd(h.fd); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeClosed, errs[0].Error()))
}
