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

package ioctx

import (
	"context"
	"errors"
	"syscall"

	liberr "github.com/nabbar/aio/errors"
)

// Code block for this package, following the teacher's per-package
// minimum-code convention (errors/code.go's registrar pattern).
const (
	CodeCanceled uint16 = 6200 + iota
	CodeTimedOut
	CodeWouldBlock
	CodeConnRefused
	CodeConnReset
	CodeAddrInUse
	CodeAccessDenied
	CodeBrokenPipe
	CodeClosed
	CodeUnknownSystem
)

// FromSyscall translates an OS-level error (typically from a non-blocking
// syscall or a net.OpError's Err) into a categorized errors.Error, per
// spec §4.5/§4.6 "system errors mapped into the error taxonomy".
func FromSyscall(err error) liberr.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return liberr.NewCategorized(liberr.CategoryCanceled, liberr.New(CodeCanceled, "operation canceled"))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeTimedOut, "operation timed out"))
	}

	switch {
	case errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK):
		return liberr.NewCategorized(liberr.CategoryPending, liberr.New(CodeWouldBlock, "would block"))
	case errors.Is(err, syscall.ECONNREFUSED):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeConnRefused, "connection refused"))
	case errors.Is(err, syscall.ECONNRESET):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeConnReset, "connection reset"))
	case errors.Is(err, syscall.EADDRINUSE):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeAddrInUse, "address in use"))
	case errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeAccessDenied, "access denied"))
	case errors.Is(err, syscall.EPIPE):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeBrokenPipe, "broken pipe"))
	case errors.Is(err, syscall.EBADF):
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeClosed, "descriptor closed"))
	default:
		return liberr.NewCategorized(liberr.CategorySocket, liberr.New(CodeUnknownSystem, err.Error()))
	}
}
