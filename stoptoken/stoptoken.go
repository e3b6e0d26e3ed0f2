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

// Package stoptoken implements the runtime's propagating cancellation
// signal: a Source that can be stopped once, and a Token that observers
// can poll, select on, or register a synchronous callback against.
package stoptoken

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is the read side of a stop signal: every task, awaiter and I/O
// operation in the runtime carries one.
type Token interface {
	// Done returns a channel closed when stop has been requested.
	Done() <-chan struct{}
	// Stopped reports whether stop has already been requested.
	Stopped() bool
	// OnStop registers fn to run when stop is requested. If stop has
	// already been requested, fn runs synchronously before OnStop
	// returns. The returned func unregisters fn; it is a no-op once fn
	// has already run or been unregistered.
	OnStop(fn func()) (unregister func())
	// Context returns a context.Context whose Done channel mirrors this
	// token, for interop with stdlib and third-party APIs that expect one.
	Context() context.Context
}

// Source is the write side: exactly one call to Stop takes effect, every
// further call is a no-op (idempotent per spec §3's task invariants).
type Source struct {
	ctx    context.Context
	cancel context.CancelFunc

	stopped atomic.Bool
	mu      sync.Mutex
	id      uint64
	cbs     map[uint64]func()
}

// New returns a Source with no parent context.
func New() *Source {
	return NewWithContext(context.Background())
}

// NewWithContext returns a Source whose token also stops when parent is
// done, so cancellation composes the way context.Context does (a stop
// token derived from a request context stops when the request does).
func NewWithContext(parent context.Context) *Source {
	ctx, cancel := context.WithCancel(parent)
	s := &Source{
		ctx:    ctx,
		cancel: cancel,
		cbs:    make(map[uint64]func()),
	}

	if parent != nil && parent.Done() != nil {
		go func() {
			select {
			case <-parent.Done():
				s.Stop()
			case <-ctx.Done():
			}
		}()
	}

	return s
}

// Stop requests cancellation. Idempotent: only the first call fires
// registered callbacks and closes Done; later calls return immediately.
func (s *Source) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	cbs := s.cbs
	s.cbs = nil
	s.mu.Unlock()

	s.cancel()

	for _, fn := range cbs {
		fn()
	}
}

// Token returns the read side bound to this Source.
func (s *Source) Token() Token {
	return (*token)(s)
}

type token Source

func (t *token) Done() <-chan struct{} {
	return t.ctx.Done()
}

func (t *token) Stopped() bool {
	return t.stopped.Load()
}

func (t *token) Context() context.Context {
	return t.ctx
}

func (t *token) OnStop(fn func()) (unregister func()) {
	if fn == nil {
		return func() {}
	}

	s := (*Source)(t)

	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		fn()
		return func() {}
	}

	id := s.id
	s.id++
	s.cbs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.cbs != nil {
			delete(s.cbs, id)
		}
		s.mu.Unlock()
	}
}
