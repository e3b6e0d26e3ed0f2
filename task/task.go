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

// Package task is this module's Go realization of the coroutine task
// runtime (spec §4.1/4.3): a Task[T] is a lazy, goroutine-backed unit of
// work producing a result.Result[T], spawned onto an executor.Executor
// and joined or canceled through a WaitHandle[T]/StopHandle.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	liberr "github.com/nabbar/aio/errors"
	"github.com/nabbar/aio/executor"
	"github.com/nabbar/aio/result"
	"github.com/nabbar/aio/stoptoken"
	"github.com/google/uuid"
)

// codePanic is this package's CodeError block for a recovered panic
// surfaced as a result.Err instead of propagating across the goroutine
// boundary.
const (
	codePanic        uint16 = 6100
	codeWaitCanceled uint16 = 6101
)

// Body is the function a Task runs once started. It observes cancellation
// via ctx, mirroring the awaiter contract's stop-request forwarding
// (spec §4.1).
type Body[T any] func(ctx context.Context) result.Result[T]

// Task is a lazy handle to a Body: it does not run until spawned.
type Task[T any] struct {
	body Body[T]
}

// New wraps body into a Task. The Task does not start until Spawn is
// called on it.
func New[T any](body Body[T]) Task[T] {
	return Task[T]{body: body}
}

// state mirrors CoroContext's started/suspended/stopped/completed flags
// (spec §3) as a single atomic uint32.
type state uint32

const (
	statePending state = iota
	stateRunning
	stateStopped
	stateCompleted
)

// spawnContext is the reference-counted TaskSpawnContext of spec §3: it
// retains the running task and its eventual result so the WaitHandle and
// any late joiners observe the same outcome exactly once.
type spawnContext[T any] struct {
	id    uuid.UUID
	refs  int32
	st    atomic.Uint32
	stop  *stoptoken.Source
	done  chan struct{}
	once  sync.Once
	value result.Result[T]
}

func (c *spawnContext[T]) retain() {
	atomic.AddInt32(&c.refs, 1)
}

func (c *spawnContext[T]) release() {
	atomic.AddInt32(&c.refs, -1)
}

func (c *spawnContext[T]) complete(r result.Result[T]) {
	c.once.Do(func() {
		c.value = r
		c.st.Store(uint32(stateCompleted))
		close(c.done)
	})
}

// WaitHandle is the user-visible join point for a spawned Task, per
// spec §4.3.
type WaitHandle[T any] struct {
	ctx *spawnContext[T]
}

// StopHandle is the cancel-only subset of WaitHandle: identity plus the
// ability to request cancellation, without the ability to observe the
// result.
type StopHandle struct {
	stop *stoptoken.Source
	done <-chan struct{}
}

// Stop requests cancellation of the underlying task. Idempotent.
func (h StopHandle) Stop() {
	h.stop.Stop()
}

// Done returns a channel closed once the task has completed, stopped, or
// panicked.
func (h StopHandle) Done() <-chan struct{} {
	return h.done
}

// Spawn detaches t onto ex and returns a WaitHandle joining it. The task
// starts running as soon as ex's run loop next services its queue.
func Spawn[T any](ex executor.Executor, t Task[T]) *WaitHandle[T] {
	ctx := &spawnContext[T]{
		id:   uuid.New(),
		stop: stoptoken.New(),
		done: make(chan struct{}),
	}
	ctx.retain()
	ctx.st.Store(uint32(statePending))

	ex.Post(func() {
		ctx.st.Store(uint32(stateRunning))

		r := runBody(ctx.stop.Token().Context(), t.body)

		if ctx.stop.Token().Stopped() {
			ctx.st.Store(uint32(stateStopped))
		}
		ctx.complete(r)
	})

	return &WaitHandle[T]{ctx: ctx}
}

// runBody executes body, converting a recovered panic into a
// result.Err carrying errors.CategoryInternal, per spec §9's
// error-as-exception-duality decision: no exception propagation across
// the goroutine boundary, only programming-bug recovery.
func runBody[T any](ctx context.Context, body Body[T]) (r result.Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			r = panicResult[T](rec)
		}
	}()

	return body(ctx)
}

// panicResult converts a recovered panic value into a result.Err tagged
// errors.CategoryInternal, per spec §9: a task body panic never crashes
// the executor's run loop, it surfaces as an ordinary error result.
func panicResult[T any](rec interface{}) result.Result[T] {
	e := liberr.New(codePanic, fmt.Sprintf("task panicked: %v", rec))
	return result.Err[T](liberr.NewCategorized(liberr.CategoryInternal, e))
}

// ID returns this spawn's correlation id, generated once per Spawn call
// so a logger can tie a task's start, stop and completion log lines
// together across goroutines.
func (h *WaitHandle[T]) ID() uuid.UUID {
	return h.ctx.id
}

// StopHandle returns the cancel-only view of this task.
func (h *WaitHandle[T]) StopHandle() StopHandle {
	return StopHandle{stop: h.ctx.stop, done: h.ctx.done}
}

// Stop requests cancellation of the underlying task.
func (h *WaitHandle[T]) Stop() {
	h.ctx.stop.Stop()
}

// Done returns a channel closed once the task has completed.
func (h *WaitHandle[T]) Done() <-chan struct{} {
	return h.ctx.done
}

// Wait blocks the calling goroutine until the task completes or ctx is
// done, returning (value, true) when the task's result carries a value,
// or (zero, false) when it carries an error or ctx is done first — the
// Option<T> of spec §4.3 realized as a (T, bool) pair, the idiomatic Go
// shape. A stopped task whose body still returns a value yields
// (value, true).
func (h *WaitHandle[T]) Wait(ctx context.Context) (T, bool) {
	select {
	case <-h.ctx.done:
	case <-ctx.Done():
		var zero T
		return zero, false
	}

	v, ok := h.ctx.value.Unwrap()
	return v, ok
}

// Result returns the completed Result, blocking until the task finishes
// or ctx is done. If ctx is done first, it returns a Result carrying
// errors.CategoryCanceled rather than the task's own outcome.
func (h *WaitHandle[T]) Result(ctx context.Context) result.Result[T] {
	select {
	case <-h.ctx.done:
		return h.ctx.value
	case <-ctx.Done():
		e := liberr.New(codeWaitCanceled, "wait canceled before task completed")
		return result.Err[T](liberr.NewCategorized(liberr.CategoryCanceled, e))
	}
}

// Release decrements the reference count, matching the "dropping the
// last handle without joining detaches and decrements refcount"
// invariant of spec §3. It never blocks and never cancels the task.
func (h *WaitHandle[T]) Release() {
	h.ctx.release()
}

// SpawnBlocking runs fn on its own goroutine, outside any Executor and
// with no cancellation support, for call sites that must invoke a
// blocking stdlib or cgo-backed API without stalling a run loop (spec
// §4.3). The returned channel receives exactly one Result once fn
// returns or panics.
func SpawnBlocking[T any](fn func() T) <-chan result.Result[T] {
	out := make(chan result.Result[T], 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				out <- panicResult[T](rec)
			}
		}()

		out <- result.Ok(fn())
	}()

	return out
}
