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

// Package combinator composes task.WaitHandle values the way the
// runtime's awaiters compose: waiting on whichever finishes first,
// racing a deadline, running a cleanup step regardless of outcome, and
// grouping many spawned tasks under one joinable set.
package combinator

import (
	"context"
	"time"

	"github.com/nabbar/aio/duration"
	"github.com/nabbar/aio/executor"
	"github.com/nabbar/aio/result"
	"github.com/nabbar/aio/task"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// WhenAny waits for the first of handles to complete and returns its
// index and value. If ctx is done before any handle completes, it
// returns (-1, zero, false).
func WhenAny[T any](ctx context.Context, handles ...*task.WaitHandle[T]) (int, T, bool) {
	type outcome struct {
		idx int
		val T
		ok  bool
	}

	first := make(chan outcome, len(handles))
	for i, h := range handles {
		i, h := i, h
		go func() {
			select {
			case <-h.Done():
			case <-ctx.Done():
				return
			}
			v, ok := h.Wait(context.Background())
			select {
			case first <- outcome{idx: i, val: v, ok: ok}:
			default:
			}
		}()
	}

	select {
	case o := <-first:
		return o.idx, o.val, o.ok
	case <-ctx.Done():
		var zero T
		return -1, zero, false
	}
}

// SetTimeout spawns body onto ex with a deadline of d, stopping it and
// resolving to (zero, false) if it has not completed by then — the
// coroutine runtime's setTimeout combinator (spec §4.4).
func SetTimeout[T any](ex executor.Executor, d duration.Duration, body task.Body[T]) (T, bool) {
	h := task.Spawn(ex, task.New(body))

	ctx, cancel := context.WithTimeout(context.Background(), d.Time())
	defer cancel()

	v, ok := h.Wait(ctx)
	if !ok {
		h.Stop()
	}
	return v, ok
}

// SetTimeoutFor is SetTimeout accepting a plain time.Duration, for call
// sites that have not adopted duration.Duration end to end.
func SetTimeoutFor[T any](ex executor.Executor, d time.Duration, body task.Body[T]) (T, bool) {
	return SetTimeout(ex, durationOf(d), body)
}

// ScheduleOn posts body to run on ex's run loop and returns a
// WaitHandle joining it, the combinator form of task.Spawn that takes
// a plain function rather than a task.Body for call sites that never
// observe cancellation (spec §4.4's scheduleOn).
func ScheduleOn[T any](ex executor.Executor, fn func() T) *task.WaitHandle[T] {
	return task.Spawn(ex, task.New(func(ctx context.Context) result.Result[T] {
		return result.Ok(fn())
	}))
}

// Finally runs cleanup after h completes, is stopped, or ctx is done,
// exactly once, regardless of outcome — the runtime's finally
// combinator (spec §4.4), used to release resources an awaiter held
// open for the duration of the wait.
func Finally[T any](ctx context.Context, h *task.WaitHandle[T], cleanup func()) (T, bool) {
	defer cleanup()
	return h.Wait(ctx)
}

// entry pairs a running handle with the index under which it was
// inserted, for TaskGroup's insert/next bookkeeping.
type entry[T any] struct {
	idx int
	h   *task.WaitHandle[T]
}

// TaskGroup holds a running set of spawned tasks and a completed list,
// mirroring spec §4.4's TaskGroup<T>: insert adds a member, next awaits
// and pops the next completion, size reports running+completed, and
// Stop cancels every member and drains them so nothing leaks.
type TaskGroup[T any] struct {
	running   []entry[T]
	completed []T
	nextIdx   int
}

// NewTaskGroup returns an empty group.
func NewTaskGroup[T any]() *TaskGroup[T] {
	return &TaskGroup[T]{}
}

// Insert adds h to the running set and returns the index it was
// inserted under.
func (g *TaskGroup[T]) Insert(h *task.WaitHandle[T]) int {
	idx := g.nextIdx
	g.nextIdx++
	g.running = append(g.running, entry[T]{idx: idx, h: h})
	return idx
}

// Next awaits the next member to complete, removes it from the running
// set, appends its value to the completed list and returns (index,
// value, true). It returns (-1, zero, false) if the group has no
// running members or ctx is done first.
func (g *TaskGroup[T]) Next(ctx context.Context) (int, T, bool) {
	if len(g.running) == 0 {
		var zero T
		return -1, zero, false
	}

	handles := make([]*task.WaitHandle[T], len(g.running))
	for i, e := range g.running {
		handles[i] = e.h
	}

	pos, val, ok := WhenAny(ctx, handles...)
	if pos < 0 {
		var zero T
		return -1, zero, false
	}

	idx := g.running[pos].idx
	g.running = append(g.running[:pos], g.running[pos+1:]...)
	if ok {
		g.completed = append(g.completed, val)
	}
	return idx, val, ok
}

// Size reports the number of members still running plus the number
// already completed.
func (g *TaskGroup[T]) Size() int {
	return len(g.running) + len(g.completed)
}

// Completed returns the values collected by Next so far.
func (g *TaskGroup[T]) Completed() []T {
	return g.completed
}

// Stop forwards cancellation to every running member and drains the
// group, matching "destruction without drain cancels and releases"
// (spec §4.4).
func (g *TaskGroup[T]) Stop() {
	for _, e := range g.running {
		e.h.Stop()
	}
	for _, e := range g.running {
		e.h.Wait(context.Background())
	}
	g.running = nil
}

// WaitAllOrError waits for every handle to complete and collects their
// values in order, or returns the first error reported by any of them.
// Built on golang.org/x/sync/errgroup, the same "first error wins, rest
// drain" semantics the group combinator needs (spec §4.4).
func WaitAllOrError[T any](ctx context.Context, handles ...*task.WaitHandle[T]) ([]T, error) {
	vals := make([]T, len(handles))

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			r := h.Result(gctx)
			if r.IsErr() {
				return r.Error()
			}
			v, _ := r.Unwrap()
			vals[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vals, nil
}

// TaskScope is a lexically scoped set of spawned tasks: WaitAll blocks
// until every member has completed, forwarding ctx's cancellation to
// every member still running (spec §4.4's TaskScope). A zero-value
// TaskScope is unbounded; NewBoundedTaskScope caps how many members may
// be running at once.
type TaskScope[T any] struct {
	members []*task.WaitHandle[T]
	sem     *semaphore.Weighted
}

// NewTaskScope returns an empty, unbounded scope.
func NewTaskScope[T any]() *TaskScope[T] {
	return &TaskScope[T]{}
}

// NewBoundedTaskScope returns an empty scope that never runs more than
// limit members concurrently, built on golang.org/x/sync/semaphore.
func NewBoundedTaskScope[T any](limit int64) *TaskScope[T] {
	return &TaskScope[T]{sem: semaphore.NewWeighted(limit)}
}

// Spawn spawns body onto ex, adds the resulting handle to the scope and
// returns it. If the scope is bounded, Spawn blocks on ctx until a slot
// is free.
func (s *TaskScope[T]) Spawn(ctx context.Context, ex executor.Executor, body task.Body[T]) (*task.WaitHandle[T], error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	release := func() {}
	if s.sem != nil {
		release = func() { s.sem.Release(1) }
	}

	h := task.Spawn(ex, task.New(func(taskCtx context.Context) result.Result[T] {
		defer release()
		return body(taskCtx)
	}))
	s.members = append(s.members, h)
	return h, nil
}

// WaitAll blocks until every member has completed or ctx is done, in
// which case it stops every member still running before returning. It
// returns the values of members that completed with a result.
func (s *TaskScope[T]) WaitAll(ctx context.Context) []T {
	out := make([]T, 0, len(s.members))

	for _, h := range s.members {
		v, ok := h.Wait(ctx)
		if ctx.Err() != nil {
			h.Stop()
			continue
		}
		if ok {
			out = append(out, v)
		}
	}

	return out
}

// durationOf is a small convenience so call sites can pass a plain
// time.Duration where a duration.Duration is expected.
func durationOf(d time.Duration) duration.Duration {
	return duration.Duration(d)
}
