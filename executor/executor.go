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

// Package executor implements the runtime's dispatch queue: a FIFO of
// posted callbacks drained by a single run loop, standing in for the
// stackless-coroutine scheduler's thread-bound executor. Every task and
// I/O backend in this module is bound to exactly one Executor and never
// assumes an ambient/thread-local one (spec §9's Open Question,
// resolved explicitly: see DESIGN.md).
package executor

import (
	"sync"
	"time"

	"github.com/nabbar/aio/logger"
	"github.com/nabbar/aio/stoptoken"
	"github.com/prometheus/client_golang/prometheus"
)

// Executor is a thread-bound dispatcher: post schedules work, run drains
// it until stopped. All callbacks posted to one Executor run on the
// single goroutine that calls Run, serialized with respect to one
// another — the "single-threaded cooperative per executor" model of
// spec §5.
type Executor interface {
	// Post schedules fn for execution on the run loop. Safe to call from
	// any goroutine, including the run loop's own.
	Post(fn func())
	// Schedule is an alias of Post kept for symmetry with spec §4.2's
	// named contract.
	Schedule(fn func())
	// Run drains posted work until tok is stopped, then returns. Only one
	// goroutine may call Run at a time for a given Executor.
	Run(tok stoptoken.Token)
	// Close requests the run loop to stop and waits for it to return. If
	// Run was never called, Close returns at once and any later Run
	// returns as soon as it has run the work already queued.
	Close()
	// Uptime returns the time elapsed since the first call to Run.
	Uptime() time.Duration
	// Depth returns the prometheus gauge tracking the number of callbacks
	// currently queued, for callers that want to register it.
	Depth() prometheus.Gauge
	// WithLogger attaches a logger.Logger that Run uses to report its
	// start and stop, so an operator can see an executor's lifecycle in
	// the same log stream as the I/O and HTTP work it dispatches.
	WithLogger(l logger.Logger) Executor
}

type executor struct {
	mu    sync.Mutex
	q     []func()
	wake  chan struct{}
	start time.Time
	done  chan struct{}
	depth prometheus.Gauge
	close *stoptoken.Source
	name  string
	log   logger.Logger
}

// New returns an Executor with an empty queue. name is used as the
// constant label on the run-loop depth gauge so multiple executors in
// one process are distinguishable once registered.
func New(name string) Executor {
	return &executor{
		wake:  make(chan struct{}, 1),
		close: stoptoken.New(),
		name:  name,
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "aio",
			Subsystem:   "executor",
			Name:        "queue_depth",
			Help:        "Number of callbacks currently queued on this executor's run loop.",
			ConstLabels: prometheus.Labels{"executor": name},
		}),
	}
}

func (e *executor) Post(fn func()) {
	if fn == nil {
		return
	}

	e.mu.Lock()
	e.q = append(e.q, fn)
	n := len(e.q)
	e.mu.Unlock()

	e.depth.Set(float64(n))

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *executor) Schedule(fn func()) {
	e.Post(fn)
}

func (e *executor) Run(tok stoptoken.Token) {
	e.mu.Lock()
	if e.start.IsZero() {
		e.start = time.Now()
	}
	e.done = make(chan struct{})
	e.mu.Unlock()

	if e.log != nil {
		e.log.Info("executor run loop started", "executor", e.name)
	}

	defer func() {
		if e.log != nil {
			e.log.Info("executor run loop stopped", "executor", e.name)
		}
		close(e.done)
	}()

	stop := e.close.Token()
	if tok != nil {
		unregister := tok.OnStop(e.close.Stop)
		defer unregister()
	}

	for {
		e.mu.Lock()
		q := e.q
		e.q = nil
		e.mu.Unlock()

		for _, fn := range q {
			fn()
		}
		e.depth.Set(0)

		select {
		case <-stop.Done():
			e.drain()
			return
		default:
		}

		select {
		case <-stop.Done():
			e.drain()
			return
		case <-e.wake:
		}
	}
}

// drain runs any work posted concurrently with the stop decision, so a
// Post racing with Run's exit is never silently lost.
func (e *executor) drain() {
	e.mu.Lock()
	q := e.q
	e.q = nil
	e.mu.Unlock()

	for _, fn := range q {
		fn()
	}
	e.depth.Set(0)
}

func (e *executor) Close() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	e.close.Stop()

	select {
	case e.wake <- struct{}{}:
	default:
	}

	if done != nil {
		<-done
	}
}

func (e *executor) Uptime() time.Duration {
	e.mu.Lock()
	start := e.start
	e.mu.Unlock()

	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

func (e *executor) Depth() prometheus.Gauge {
	return e.depth
}

func (e *executor) WithLogger(l logger.Logger) Executor {
	e.log = l
	return e
}
