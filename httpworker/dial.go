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

// Package httpworker is this module's per-endpoint HTTP connection pool
// (spec §4.11), grounded on the original HttpSession::_connect's
// "reuse an idle connection cached by endpoint, else dial a new one"
// policy (original_source/include/ilias_http_session.hpp). Dialing
// itself goes through ioctx.Context.Connect (so a pooled connection is
// a regular reactor-registered iohandle.Handle, not a bypassed
// stdlib net.Conn), with an optional SOCKS5 hop via
// golang.org/x/net/proxy for egress through a proxy, and optional TLS
// via tlsadapter for https endpoints.
package httpworker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	liberr "github.com/nabbar/aio/errors"
	"github.com/nabbar/aio/iohandle"
	"github.com/nabbar/aio/ioctx"
	"github.com/nabbar/aio/stream"
	"github.com/nabbar/aio/tlsadapter"
	"golang.org/x/net/proxy"
)

const (
	codeDial uint16 = 6700 + iota
	codeResolve
	codeProxy
)

// Endpoint identifies a pooled connection's destination: host, port,
// and whether it is TLS-protected, since the same host:port dialed
// plain vs TLS are not interchangeable connections.
type Endpoint struct {
	Host string
	Port string
	TLS  bool
}

func (e Endpoint) String() string {
	scheme := "http"
	if e.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, e.Host, e.Port)
}

// Resolver is the minimal capability this package needs for custom
// hostname resolution: httpcli/dns-mapper's DNSMapper (kept from the
// teacher, see DESIGN.md) satisfies this directly via its
// SearchWithCache method, letting operators remap hostnames to
// specific IPs (test environments, split-horizon DNS) the same way the
// teacher's own HTTP client does.
type Resolver interface {
	SearchWithCache(endpoint string) (string, error)
}

// Dialer creates new connections for endpoints not found in the pool.
type Dialer struct {
	ioctx      ioctx.Context
	tls        tlsadapter.Config
	socks5     string
	socks5Auth *proxy.Auth
	resolver   Resolver
}

// NewDialer returns a Dialer that registers new sockets with ctx. tlsCfg
// may be nil if this worker never dials https endpoints. socks5Addr, if
// non-empty, routes every dial through that SOCKS5 proxy (spec §4.11's
// supplemented "optional proxy egress", grounded on original_source's
// use of a proxy-capable transport and golang.org/x/net/proxy from the
// example pack). socks5Addr may carry "user:pass@" userinfo ahead of the
// host:port, mirroring original_source/ilias_socks5.hpp's support for
// both anonymous and authenticated proxies; the userinfo is stripped
// from the dialed address and turned into a *proxy.Auth.
func NewDialer(ctx ioctx.Context, tlsCfg tlsadapter.Config, socks5Addr string) *Dialer {
	addr, auth := splitSocks5Auth(socks5Addr)
	return &Dialer{ioctx: ctx, tls: tlsCfg, socks5: addr, socks5Auth: auth}
}

// splitSocks5Auth pulls "user:pass@" userinfo off the front of a
// configured SOCKS5 address, returning the bare host:port plus a
// *proxy.Auth if credentials were present. addr without userinfo is
// returned unchanged with a nil auth, for anonymous proxies.
func splitSocks5Auth(addr string) (string, *proxy.Auth) {
	if addr == "" {
		return addr, nil
	}

	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr, nil
	}

	userinfo, hostPort := addr[:at], addr[at+1:]
	user := userinfo
	pass := ""
	if c := strings.IndexByte(userinfo, ':'); c >= 0 {
		user, pass = userinfo[:c], userinfo[c+1:]
	}

	if u, err := url.QueryUnescape(user); err == nil {
		user = u
	}
	if p, err := url.QueryUnescape(pass); err == nil {
		pass = p
	}

	return hostPort, &proxy.Auth{User: user, Password: pass}
}

// WithResolver attaches a Resolver (typically an httpcli/dns-mapper
// DNSMapper) whose SearchWithCache is consulted before falling back to
// net.ResolveTCPAddr's standard resolution.
func (d *Dialer) WithResolver(r Resolver) *Dialer {
	d.resolver = r
	return d
}

// Resolve maps host:port through the configured Resolver first, then
// falls back to the host:port pair unchanged so standard resolution
// proceeds normally. Exported so callers can verify their Resolver's
// mappings independently of actually dialing.
func (d *Dialer) Resolve(hostPort string) string {
	if d.resolver == nil {
		return hostPort
	}
	if mapped, err := d.resolver.SearchWithCache(hostPort); err == nil && mapped != "" {
		return mapped
	}
	return hostPort
}

// Dial establishes a new connection to ep and returns it wrapped as a
// buffered, HTTP-ready stream.Conn (TLS-negotiated already, if ep.TLS).
func (d *Dialer) Dial(ctx context.Context, ep Endpoint) (stream.Conn, liberr.Error) {
	if d.socks5 != "" {
		return d.dialViaSocks5(ctx, ep)
	}
	return d.dialDirect(ctx, ep)
}

func (d *Dialer) dialDirect(ctx context.Context, ep Endpoint) (stream.Conn, liberr.Error) {
	hostPort := d.Resolve(net.JoinHostPort(ep.Host, ep.Port))
	addr, err := net.ResolveTCPAddr("tcp", hostPort)
	if err != nil {
		return nil, liberr.NewCategorized(liberr.CategoryAddress, liberr.New(codeResolve, err.Error()))
	}

	family := syscall.AF_INET
	if addr.IP.To4() == nil {
		family = syscall.AF_INET6
	}
	fd, serr := syscall.Socket(family, syscall.SOCK_STREAM|syscall.SOCK_NONBLOCK, 0)
	if serr != nil {
		return nil, liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeDial, serr.Error()))
	}

	desc, derr := d.ioctx.AddDescriptor(fd, ioctx.KindSocket)
	if derr != nil {
		_ = syscall.Close(fd)
		return nil, liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeDial, derr.Error()))
	}

	if r := d.ioctx.Connect(ctx, desc, addr); r.IsErr() {
		_ = d.ioctx.RemoveDescriptor(desc)
		_ = syscall.Close(fd)
		return nil, r.Error()
	}

	h, herr := iohandle.Make(d.ioctx, fd, ioctx.KindSocket)
	if herr != nil {
		_ = syscall.Close(fd)
		return nil, liberr.NewCategorized(liberr.CategorySocket, liberr.New(codeDial, herr.Error()))
	}

	return d.negotiateTLS(ctx, h, ep)
}

// dialViaSocks5 routes the TCP handshake through a SOCKS5 proxy using
// golang.org/x/net/proxy (blocking dialer, run in this goroutine since
// the proxy package has no context-aware/non-blocking variant), then
// adopts the resulting *net.TCPConn's file descriptor into this
// worker's reactor the same way the epoll tests adopt a *net.Listener's
// fd (dup via File(), then register the raw fd).
func (d *Dialer) dialViaSocks5(ctx context.Context, ep Endpoint) (stream.Conn, liberr.Error) {
	dialer, err := proxy.SOCKS5("tcp", d.socks5, d.socks5Auth, proxy.Direct)
	if err != nil {
		return nil, liberr.NewCategorized(liberr.CategorySOCKS5, liberr.New(codeProxy, err.Error()))
	}

	conn, derr := dialer.Dial("tcp", net.JoinHostPort(ep.Host, ep.Port))
	if derr != nil {
		return nil, liberr.NewCategorized(liberr.CategorySOCKS5, liberr.New(codeProxy, derr.Error()))
	}

	tc, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()
		return nil, liberr.NewCategorized(liberr.CategorySOCKS5, liberr.New(codeProxy, "proxy dial did not return a TCP connection"))
	}

	f, ferr := tc.File()
	if ferr != nil {
		_ = conn.Close()
		return nil, liberr.NewCategorized(liberr.CategorySOCKS5, liberr.New(codeProxy, ferr.Error()))
	}
	_ = conn.Close()
	fd := int(f.Fd())

	h, herr := iohandle.Make(d.ioctx, fd, ioctx.KindSocket)
	if herr != nil {
		_ = f.Close()
		return nil, liberr.NewCategorized(liberr.CategorySOCKS5, liberr.New(codeDial, herr.Error()))
	}

	return d.negotiateTLS(ctx, h, ep)
}

func (d *Dialer) negotiateTLS(ctx context.Context, h *iohandle.Handle, ep Endpoint) (stream.Conn, liberr.Error) {
	if !ep.TLS {
		return &handleConn{h: h}, nil
	}
	if d.tls == nil {
		_ = h.Close()
		return nil, liberr.NewCategorized(liberr.CategoryTLS, liberr.New(codeDial, "https endpoint but no TLS configuration set"))
	}
	st, err := tlsadapter.Client(ctx, &handleConn{h: h}, d.tls, ep.Host)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return st, nil
}

// handleConn adapts an *iohandle.Handle (whose Close returns plain
// error) to stream.Conn (which wants Shutdown returning liberr.Error).
type handleConn struct{ h *iohandle.Handle }

func (c *handleConn) Read(ctx context.Context, p []byte) (int, liberr.Error) {
	return c.h.Read(ctx, p)
}

func (c *handleConn) Write(ctx context.Context, p []byte) (int, liberr.Error) {
	return c.h.Write(ctx, p)
}

func (c *handleConn) Shutdown(context.Context) liberr.Error { return c.h.CloseErr() }
func (c *handleConn) Flush(context.Context) liberr.Error    { return nil }
