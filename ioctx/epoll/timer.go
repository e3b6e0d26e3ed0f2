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

package epoll

import (
	"context"
	"time"

	"github.com/nabbar/aio/ioctx"
	"github.com/nabbar/aio/result"
)

// Sleep implements ioctx.Context.Sleep. It does not touch the epoll fd
// at all: a monotonic-clock timer (spec §4.6's "monotonic-clock-based
// timer wheel or native timer integration") is cheaper as a plain
// time.Timer than as an epoll-registered descriptor, and the completion
// still reaches the caller's goroutine the same way every other op does.
func (b *Backend) Sleep(ctx context.Context, d time.Duration) result.Result[struct{}] {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return result.Err[struct{}](ioctx.FromSyscall(ctx.Err()))
		default:
			return result.Ok(struct{}{})
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return result.Ok(struct{}{})
	case <-ctx.Done():
		return result.Err[struct{}](ioctx.FromSyscall(ctx.Err()))
	}
}
