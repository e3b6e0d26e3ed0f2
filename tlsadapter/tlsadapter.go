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

// Package tlsadapter is this module's "streams on streams" TLS layer
// (spec §4.9): it drives crypto/tls.Client over any stream.Conn,
// presenting the exact same Conn contract back out so httpproto can
// treat a TLS connection and a plain one identically. Configuration
// comes from the teacher's certificates.Config, kept and reused for
// its TLS(serverName) *tls.Config builder rather than hand-rolling
// certificate/root-CA plumbing.
package tlsadapter

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	liberr "github.com/nabbar/aio/errors"
	"github.com/nabbar/aio/stream"
)

// Config is the minimal capability this package needs from a TLS
// configuration source: certificates.TLSConfig (kept from the teacher,
// see DESIGN.md) satisfies this, but any per-serverName *tls.Config
// builder works, so tests don't need the teacher's full certificate/CA
// pool machinery just to exercise a handshake.
type Config interface {
	TLS(serverName string) *tls.Config
}

const (
	codeHandshake uint16 = 6500 + iota
	codeRead
	codeWrite
	codeShutdown
)

// rawConnAdapter exposes a stream.Conn as a net.Conn so crypto/tls can
// drive it, since crypto/tls.Client only speaks net.Conn. Deadlines are
// no-ops: cancellation in this module flows through context.Context on
// each call, not through conn-wide deadlines.
type rawConnAdapter struct {
	ctx  context.Context
	conn stream.Conn
}

func (a *rawConnAdapter) Read(p []byte) (int, error) {
	n, err := a.conn.Read(a.ctx, p)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (a *rawConnAdapter) Write(p []byte) (int, error) {
	n, err := a.conn.Write(a.ctx, p)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (a *rawConnAdapter) Close() error {
	if err := a.conn.Shutdown(a.ctx); err != nil {
		return err
	}
	return nil
}

func (a *rawConnAdapter) LocalAddr() net.Addr               { return nil }
func (a *rawConnAdapter) RemoteAddr() net.Addr              { return nil }
func (a *rawConnAdapter) SetDeadline(t time.Time) error      { return nil }
func (a *rawConnAdapter) SetReadDeadline(t time.Time) error  { return nil }
func (a *rawConnAdapter) SetWriteDeadline(t time.Time) error { return nil }

// Stream is a TLS-wrapped stream.Conn: crypto/tls.Conn driven over a
// rawConnAdapter, presenting the same Read/Write/Shutdown/Flush
// contract the unencrypted transport does so BufferedStream and
// httpproto never need to know whether TLS is in play.
type Stream struct {
	tc *tls.Conn
}

// Client wraps conn in a TLS client session for serverName, using cfg's
// TLS(serverName) builder (certificates.Config, kept from the teacher)
// for the certificate/root-CA/ALPN configuration, then performs the
// handshake synchronously before returning.
//
// ctx bounds the handshake only; per-call Read/Write still take their
// own context on each invocation, consistent with the rest of this
// module's explicit-context style.
func Client(ctx context.Context, conn stream.Conn, cfg Config, serverName string) (*Stream, liberr.Error) {
	raw := &rawConnAdapter{ctx: ctx, conn: conn}
	tc := tls.Client(raw, cfg.TLS(serverName))

	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, liberr.NewCategorized(liberr.CategoryTLS, liberr.New(codeHandshake, err.Error()))
	}

	return &Stream{tc: tc}, nil
}

// ConnectionState exposes the negotiated TLS parameters (cipher suite,
// negotiated protocol, peer certificates) for logging/diagnostics.
func (s *Stream) ConnectionState() tls.ConnectionState {
	return s.tc.ConnectionState()
}

// Read implements stream.Conn.
func (s *Stream) Read(ctx context.Context, p []byte) (int, liberr.Error) {
	n, err := s.tc.Read(p)
	if err != nil {
		return n, liberr.NewCategorized(liberr.CategoryTLS, liberr.New(codeRead, err.Error()))
	}
	return n, nil
}

// Write implements stream.Conn.
func (s *Stream) Write(ctx context.Context, p []byte) (int, liberr.Error) {
	n, err := s.tc.Write(p)
	if err != nil {
		return n, liberr.NewCategorized(liberr.CategoryTLS, liberr.New(codeWrite, err.Error()))
	}
	return n, nil
}

// Shutdown sends the TLS close_notify alert and closes the underlying
// stream, per spec §4.9's "graceful TLS shutdown sends close_notify
// before closing the transport".
func (s *Stream) Shutdown(ctx context.Context) liberr.Error {
	if err := s.tc.Close(); err != nil {
		return liberr.NewCategorized(liberr.CategoryTLS, liberr.New(codeShutdown, err.Error()))
	}
	return nil
}

// Flush is a no-op: crypto/tls.Conn has no separate flush step, each
// Write already sends a complete TLS record.
func (s *Stream) Flush(ctx context.Context) liberr.Error { return nil }
