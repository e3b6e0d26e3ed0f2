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

// Package ioctx defines the single contract every completion backend
// (epoll, and by extension any future io_uring/IOCP/Qt-integrated backend)
// must satisfy: register/remove a descriptor, cancel its pending
// operations, and run the asynchronous read/write/accept/connect/poll/
// sendto/recvfrom/sleep primitives spec §4.5 names. Higher layers
// (iohandle, stream, httpproto) depend only on this interface, never on a
// concrete backend.
package ioctx

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/aio/result"
)

// Kind tags what a registered descriptor actually is, mirroring spec §3's
// "type-tagged (socket / file / pipe / tty / pollable)".
type Kind uint8

const (
	KindSocket Kind = iota
	KindFile
	KindPipe
	KindTTY
	KindPollable
)

func (k Kind) String() string {
	switch k {
	case KindSocket:
		return "socket"
	case KindFile:
		return "file"
	case KindPipe:
		return "pipe"
	case KindTTY:
		return "tty"
	case KindPollable:
		return "pollable"
	default:
		return "unknown"
	}
}

// Descriptor is the opaque, backend-owned record bound to a raw OS fd
// (spec §3's IoDescriptor). It carries nothing a caller can act on besides
// identity: backends type-assert it back to their own concrete type.
type Descriptor interface {
	// Fd returns the raw OS file descriptor this Descriptor was registered
	// for.
	Fd() int
	// Kind returns the tag this Descriptor was registered with.
	Kind() Kind
}

// PollEvent is the bitmask poll() waits for / reports, matching the
// POLLIN/POLLOUT/POLLERR/POLLHUP shape every readiness backend exposes.
type PollEvent uint32

const (
	PollIn PollEvent = 1 << iota
	PollOut
	PollErr
	PollHup
)

// Context is the I/O context interface of spec §4.5: a platform-agnostic
// event loop surface that owns a completion source and performs every
// asynchronous operation over a registered Descriptor.
type Context interface {
	// AddDescriptor registers fd (of kind k) with this context and
	// returns the Descriptor handle operations are performed against.
	AddDescriptor(fd int, k Kind) (Descriptor, error)
	// RemoveDescriptor deregisters desc. It must run exactly once per
	// descriptor and only after every pending operation on it has
	// settled (spec §8's invariant).
	RemoveDescriptor(desc Descriptor) error
	// Cancel cancels every operation currently pending on desc.
	Cancel(desc Descriptor)

	// Sleep suspends until d elapses or ctx is done.
	Sleep(ctx context.Context, d time.Duration) result.Result[struct{}]
	// Read reads into buf at the descriptor's current position.
	Read(ctx context.Context, desc Descriptor, buf []byte) result.Result[int]
	// Write writes buf at the descriptor's current position.
	Write(ctx context.Context, desc Descriptor, buf []byte) result.Result[int]
	// Accept accepts one connection on a listening socket descriptor.
	Accept(ctx context.Context, desc Descriptor) result.Result[AcceptResult]
	// Connect connects desc's socket to addr.
	Connect(ctx context.Context, desc Descriptor, addr net.Addr) result.Result[struct{}]
	// SendTo sends buf, optionally to addr (connected sockets pass nil).
	SendTo(ctx context.Context, desc Descriptor, buf []byte, addr net.Addr) result.Result[int]
	// RecvFrom receives into buf, reporting the peer address.
	RecvFrom(ctx context.Context, desc Descriptor, buf []byte) result.Result[RecvFromResult]
	// Poll waits until any of events is ready on desc, or ctx is done.
	Poll(ctx context.Context, desc Descriptor, events PollEvent) result.Result[PollEvent]
}

// AcceptResult is what Accept resolves to: the new connection's raw fd
// plus the peer's address, mirroring spec §4.5's "accept(desc,
// outEndpoint?) -> Task<socket>".
type AcceptResult struct {
	Fd   int
	Peer net.Addr
}

// RecvFromResult is what RecvFrom resolves to.
type RecvFromResult struct {
	N    int
	From net.Addr
}
