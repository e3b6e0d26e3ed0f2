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

package httpsession

import (
	"context"
	"time"

	"github.com/nabbar/aio/certificates"
	dnsmapper "github.com/nabbar/aio/httpcli/dns-mapper"
	"github.com/nabbar/aio/httpworker"
	"github.com/nabbar/aio/ioctx"
	"github.com/nabbar/aio/logger"
)

// DefaultOptions configures NewDefaultSession's assembly of a real
// Dialer/Pool/Session, mirroring the handful of knobs the original's
// HttpSession construction exposed (root CAs, an optional proxy, a
// DNS override table) rather than requiring every caller to wire
// certificates/dns-mapper/logger by hand.
type DefaultOptions struct {
	// RootCAFiles, if non-empty, are loaded into a fresh
	// certificates.TLSConfig via AddRootCAFile instead of relying on
	// the system trust store, for talking to endpoints signed by a
	// private CA.
	RootCAFiles []string
	// DNSOverrides maps "host:port" to a literal replacement address,
	// fed through httpcli/dns-mapper the same way split-horizon test
	// environments remap a hostname without touching /etc/hosts.
	DNSOverrides map[string]string
	// Socks5Addr, if non-empty, routes every dial through that SOCKS5
	// proxy; "user:pass@host:port" carries credentials.
	Socks5Addr string
	// MaxConcurrentDials bounds simultaneous new connections; <= 0
	// uses httpworker's default.
	MaxConcurrentDials int64
	// MaxIdleAge bounds how long an idle connection/worker survives
	// before Sweep evicts it; zero disables the age check.
	MaxIdleAge time.Duration
	// MaxRedirects overrides the session's redirect budget; <= 0 uses
	// the default of 10.
	MaxRedirects int
	// Logger, if set, receives dial, retry, and pool worker eviction
	// events from the assembled Pool and Session.
	Logger logger.Logger
}

// NewDefaultSession assembles a production Session: a certificates.TLSConfig
// (satisfying tlsadapter.Config structurally, no adapter glue needed)
// for https endpoints, an optional httpcli/dns-mapper DNSMapper wired
// through Dialer.WithResolver, and an optional logger.Logger threaded
// into both the Pool and the Session. ctx is the reactor new
// connections register with.
func NewDefaultSession(ctx ioctx.Context, opts DefaultOptions) (*Session, error) {
	tlsCfg := certificates.New()
	for _, f := range opts.RootCAFiles {
		if err := tlsCfg.AddRootCAFile(f); err != nil {
			return nil, err
		}
	}

	dialer := httpworker.NewDialer(ctx, tlsCfg, opts.Socks5Addr)

	if len(opts.DNSOverrides) > 0 {
		mapper := dnsmapper.Config{DNSMapper: opts.DNSOverrides}.New(context.Background(), nil, nil)
		dialer = dialer.WithResolver(mapper)
	}

	pool := httpworker.NewPool(dialer, opts.MaxConcurrentDials, opts.MaxIdleAge)
	if opts.Logger != nil {
		pool = pool.WithLogger(opts.Logger)
	}

	sess, err := New(pool, opts.MaxRedirects)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		sess = sess.WithLogger(opts.Logger)
	}

	return sess, nil
}
