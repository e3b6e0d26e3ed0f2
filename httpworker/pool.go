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

package httpworker

import (
	"context"
	"sync"
	"time"

	"github.com/nabbar/aio/logger"
	"github.com/nabbar/aio/stream"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentDials = 5

// pooledConn is one idle, keep-alive-eligible connection cached under
// its Endpoint, along with when it was returned to the pool so a
// background sweep can evict connections idle past a TTL — the
// original never expired cached connections (spec §4.11 supplements
// that gap, since a real pool must not hold dead sockets forever).
type pooledConn struct {
	conn   stream.Conn
	ep     Endpoint
	idleAt time.Time
}

// worker is the per-Endpoint cache spec §4.10-4.11 names HttpWorker: its
// own idle list and its own activity clock, so Sweep can retire a whole
// endpoint (not just its stale connections) once it has sat empty past
// maxAge, the same way a per-connection TTL retires a single socket.
type worker struct {
	ep       Endpoint
	mu       sync.Mutex
	idle     []*pooledConn
	lastSeen time.Time
}

func newWorker(ep Endpoint) *worker {
	return &worker{ep: ep, lastSeen: time.Now()}
}

func (w *worker) take() *pooledConn {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.idle) == 0 {
		return nil
	}
	last := w.idle[len(w.idle)-1]
	w.idle = w.idle[:len(w.idle)-1]
	w.lastSeen = time.Now()
	return last
}

func (w *worker) put(pc *pooledConn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.idle = append(w.idle, pc)
	w.lastSeen = time.Now()
}

// sweep evicts connections idle past cutoff, returning the evicted
// connections plus whether the worker is now empty and has been idle
// long enough that the pool may retire it entirely.
func (w *worker) sweep(cutoff time.Time) (stale []*pooledConn, drained bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var keep []*pooledConn
	for _, pc := range w.idle {
		if pc.idleAt.Before(cutoff) {
			stale = append(stale, pc)
		} else {
			keep = append(keep, pc)
		}
	}
	w.idle = keep

	return stale, len(w.idle) == 0 && w.lastSeen.Before(cutoff)
}

func (w *worker) drainAll() []*pooledConn {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := w.idle
	w.idle = nil
	return all
}

func (w *worker) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.idle)
}

// Pool caches idle connections per Endpoint, grounded on
// HttpSession::_connect's linear-scan "take the first cached connection
// matching this endpoint" cache (original_source/include/ilias_http_session.hpp),
// generalized to a registry of per-endpoint workers and bounded
// concurrent dials via golang.org/x/sync/semaphore so a burst of
// requests to new hosts cannot open unbounded sockets at once. Per
// spec §4.10-4.11, a worker that sits idle-drained past maxAge is
// retired and its Endpoint published on QuitEvents so a session can
// react (drop any references it was holding, log the eviction).
type Pool struct {
	mu      sync.Mutex
	workers map[Endpoint]*worker
	dialer  *Dialer
	sem     *semaphore.Weighted
	maxAge  time.Duration
	log     logger.Logger
	quit    chan Endpoint

	gaugeIdle    *prometheus.GaugeVec
	gaugeWorkers prometheus.Gauge
}

// NewPool returns a Pool dialing through d, allowing at most
// maxConcurrentDials simultaneous new connections. maxIdleAge bounds
// how long an idle connection, and an idle-drained worker, is kept
// before Sweep evicts it; zero disables the age check (connections and
// workers live until Close).
func NewPool(d *Dialer, maxConcurrentDials int64, maxIdleAge time.Duration) *Pool {
	if maxConcurrentDials <= 0 {
		maxConcurrentDials = defaultMaxConcurrentDials
	}
	return &Pool{
		workers: make(map[Endpoint]*worker),
		dialer:  d,
		sem:     semaphore.NewWeighted(maxConcurrentDials),
		maxAge:  maxIdleAge,
		quit:    make(chan Endpoint, 16),
		gaugeIdle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aio",
			Subsystem: "httpworker",
			Name:      "pool_idle_connections",
			Help:      "Number of idle, keep-alive-eligible connections cached per endpoint.",
		}, []string{"endpoint"}),
		gaugeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aio",
			Subsystem: "httpworker",
			Name:      "pool_workers",
			Help:      "Number of endpoints currently holding a per-endpoint worker in the pool.",
		}),
	}
}

// WithLogger attaches a logger.Logger that Sweep uses to report worker
// eviction, so an operator sees a pooled endpoint disappear from logs
// rather than having to infer it from a metrics dip.
func (p *Pool) WithLogger(l logger.Logger) *Pool {
	p.log = l
	return p
}

// IdleGauge returns the per-endpoint idle-connection-count GaugeVec, for
// callers that want to register it with a prometheus.Registry.
func (p *Pool) IdleGauge() *prometheus.GaugeVec {
	return p.gaugeIdle
}

// WorkerGauge returns the gauge tracking the number of live per-endpoint
// workers, for callers that want to register it.
func (p *Pool) WorkerGauge() prometheus.Gauge {
	return p.gaugeWorkers
}

// QuitEvents returns the channel a per-endpoint worker's Endpoint is
// published on once Sweep retires it for sitting idle-drained past
// maxAge — the "quit event" spec §4.10-4.11 names, letting Session drop
// any endpoint-keyed state of its own in step with the pool.
func (p *Pool) QuitEvents() <-chan Endpoint {
	return p.quit
}

func (p *Pool) workerFor(ep Endpoint, create bool) *worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.workers[ep]
	if !ok {
		if !create {
			return nil
		}
		w = newWorker(ep)
		p.workers[ep] = w
		p.gaugeWorkers.Set(float64(len(p.workers)))
	}
	return w
}

// Take returns a cached idle connection for ep if one exists, else
// dials a new one, blocking on the dial semaphore if the pool is
// already at its concurrent-dial limit.
func (p *Pool) Take(ctx context.Context, ep Endpoint) (stream.Conn, bool, error) {
	if c := p.takeIdle(ep); c != nil {
		return c, true, nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	defer p.sem.Release(1)

	c, err := p.dialer.Dial(ctx, ep)
	if err != nil {
		return nil, false, err
	}
	if p.log != nil {
		p.log.Info("dialed new connection", "endpoint", ep.String())
	}
	return c, false, nil
}

func (p *Pool) takeIdle(ep Endpoint) stream.Conn {
	w := p.workerFor(ep, false)
	if w == nil {
		return nil
	}
	pc := w.take()
	if pc == nil {
		return nil
	}
	p.gaugeIdle.WithLabelValues(ep.String()).Set(float64(w.depth()))
	return pc.conn
}

// Put returns a connection to the idle pool for ep, to be reused by a
// later Take against the same endpoint (spec §4.11's "keep-alive
// connections are cached for reuse").
func (p *Pool) Put(ep Endpoint, c stream.Conn) {
	w := p.workerFor(ep, true)
	w.put(&pooledConn{conn: c, ep: ep, idleAt: time.Now()})
	p.gaugeIdle.WithLabelValues(ep.String()).Set(float64(w.depth()))
}

// Sweep evicts every idle connection older than maxAge, then retires
// (and publishes a quit event for) any worker left with no idle
// connections that has itself been idle past maxAge. Intended to be
// called periodically (e.g. from a combinator-scheduled ticker task)
// rather than on every request.
func (p *Pool) Sweep(ctx context.Context) {
	if p.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.maxAge)

	p.mu.Lock()
	var stale []*pooledConn
	var retired []Endpoint
	for ep, w := range p.workers {
		evicted, drained := w.sweep(cutoff)
		stale = append(stale, evicted...)
		p.gaugeIdle.WithLabelValues(ep.String()).Set(float64(w.depth()))
		if drained {
			delete(p.workers, ep)
			p.gaugeIdle.DeleteLabelValues(ep.String())
			retired = append(retired, ep)
		}
	}
	p.gaugeWorkers.Set(float64(len(p.workers)))
	p.mu.Unlock()

	for _, pc := range stale {
		_ = pc.conn.Shutdown(ctx)
	}

	for _, ep := range retired {
		if p.log != nil {
			p.log.Info("retired idle-drained worker", "endpoint", ep.String())
		}
		select {
		case p.quit <- ep:
		default:
		}
	}
}

// CloseAll shuts down every cached idle connection across every worker,
// used on shutdown.
func (p *Pool) CloseAll(ctx context.Context) {
	p.mu.Lock()
	workers := p.workers
	p.workers = make(map[Endpoint]*worker)
	p.gaugeWorkers.Set(0)
	p.mu.Unlock()

	for ep, w := range workers {
		p.gaugeIdle.DeleteLabelValues(ep.String())
		for _, pc := range w.drainAll() {
			_ = pc.conn.Shutdown(ctx)
		}
	}
}
