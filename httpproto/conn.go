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

package httpproto

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	liberr "github.com/nabbar/aio/errors"
	"github.com/nabbar/aio/stream"
)

// BodyMode names which of the three response-body framings (spec
// §4.10, grounded on HttpSession::_readContent) a response uses.
type BodyMode int

const (
	BodyModeNone BodyMode = iota
	BodyModeContentLength
	BodyModeChunked
	BodyModeUntilClose
)

// Options tunes a Conn's leniency around framing edge cases spec.md
// leaves as an explicit, configurable Open Question.
type Options struct {
	// AllowKeepAliveWithoutLength permits a keep-alive response with
	// neither Content-Length nor chunked framing to be read as an
	// until-close body instead of rejected as a bad reply. Default
	// false: "preserve the rejection but allow override by
	// configuration" (spec §9).
	AllowKeepAliveWithoutLength bool
}

// Conn is one HTTP/1.1 request/response cycle's framing state machine
// layered over a stream.BufferedStream — the same buffered stream
// whether the underlying transport is a plain iohandle.Handle or a
// tlsadapter.Stream, since both satisfy stream.Conn.
type Conn struct {
	s      *stream.BufferedStream
	opts   Options
	method string
}

// NewConn wraps s for HTTP/1.1 framing. opts, if given, overrides the
// default strict framing rules.
func NewConn(s *stream.BufferedStream, opts ...Options) *Conn {
	c := &Conn{s: s}
	if len(opts) > 0 {
		c.opts = opts[0]
	}
	return c
}

// WriteRequest sends the request line and headers, then body if
// non-nil, choosing Content-Length framing when bodyLen >= 0 and
// chunked framing when bodyLen < 0 (unknown length), matching
// net/http's own convention for Request.ContentLength.
func (c *Conn) WriteRequest(ctx context.Context, req *Request, body io.Reader, bodyLen int64) liberr.Error {
	c.method = req.Method

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", req.Method, req.Target, req.Proto)
	fmt.Fprintf(&b, "Host: %s\r\n", req.Host)

	chunked := body != nil && bodyLen < 0
	if body != nil {
		if chunked {
			b.WriteString("Transfer-Encoding: chunked\r\n")
		} else {
			fmt.Fprintf(&b, "Content-Length: %d\r\n", bodyLen)
		}
	}

	req.Headers.Each(func(key, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", key, value)
	})
	b.WriteString("\r\n")

	if _, err := c.s.Write(ctx, []byte(b.String())); err != nil {
		return err
	}

	if body != nil {
		if chunked {
			if err := c.writeChunkedBody(ctx, body); err != nil {
				return err
			}
		} else {
			if err := c.writeBody(ctx, body, bodyLen); err != nil {
				return err
			}
		}
	}

	return c.s.Flush(ctx)
}

func (c *Conn) writeBody(ctx context.Context, body io.Reader, n int64) liberr.Error {
	buf := make([]byte, 32*1024)
	var sent int64
	for sent < n {
		m, rerr := body.Read(buf)
		if m > 0 {
			if _, err := c.s.Write(ctx, buf[:m]); err != nil {
				return err
			}
			sent += int64(m)
		}
		if rerr != nil {
			break
		}
	}
	return nil
}

func (c *Conn) writeChunkedBody(ctx context.Context, body io.Reader) liberr.Error {
	buf := make([]byte, 32*1024)
	for {
		m, rerr := body.Read(buf)
		if m > 0 {
			head := fmt.Sprintf("%x\r\n", m)
			if _, err := c.s.Write(ctx, []byte(head)); err != nil {
				return err
			}
			if _, err := c.s.Write(ctx, buf[:m]); err != nil {
				return err
			}
			if _, err := c.s.Write(ctx, []byte("\r\n")); err != nil {
				return err
			}
		}
		if rerr != nil {
			break
		}
	}
	_, err := c.s.Write(ctx, []byte("0\r\n\r\n"))
	return err
}

// ReadResponse parses the status line and header block, grounded on
// HttpSession::_readHeaders: first line is "HTTP/1.1 <code> <reason>",
// followed by "Key: Value" lines until an empty line.
func (c *Conn) ReadResponse(ctx context.Context) (*Response, liberr.Error) {
	line, err := c.s.Getline(ctx, '\n')
	if err != nil {
		return nil, err
	}
	line = trimCR(line)
	if len(line) == 0 {
		return nil, malformed(codeMalformedStatusLine, "empty status line")
	}

	proto, rest, ok := cut(string(line), ' ')
	if !ok {
		return nil, malformed(codeMalformedStatusLine, "missing status code")
	}
	codeStr, status, ok := cut(rest, ' ')
	if !ok {
		codeStr, status = rest, ""
	}
	code, cerr := strconv.Atoi(codeStr)
	if cerr != nil {
		return nil, malformed(codeMalformedStatusLine, "non-numeric status code: "+codeStr)
	}

	resp := &Response{StatusCode: code, Status: status, Proto: proto}

	for {
		line, err = c.s.Getline(ctx, '\n')
		if err != nil {
			return nil, err
		}
		line = trimCR(line)
		if len(line) == 0 {
			break
		}
		key, value, ok := cut(string(line), ':')
		if !ok {
			return nil, malformed(codeMalformedHeader, string(line))
		}
		value = strings.TrimPrefix(value, " ")
		if addErr := resp.Headers.Add(key, value); addErr != nil {
			return nil, malformed(codeMalformedHeader, addErr.Error())
		}
	}

	return resp, nil
}

// ReadBody returns an io.Reader draining the response body according to
// resp's Content-Length/Transfer-Encoding headers, per
// HttpSession::_readContent's three-way mode selection. The returned
// mode is reported so callers (httpsession) can decide whether a
// connection is safe to cache afterward — BodyModeUntilClose means the
// peer signaled end-of-body by closing, so the connection cannot be
// reused.
//
// A HEAD response never carries a body, even if it names a
// Content-Length (spec §4.10's "HEAD responses never have a body"). A
// keep-alive response naming neither Content-Length nor chunked framing
// is rejected as a bad reply unless Options.AllowKeepAliveWithoutLength
// was set, matching the source's "keep-alive with no content-length,
// not HEAD, is declared bad" rule.
func (c *Conn) ReadBody(ctx context.Context, resp *Response) (io.Reader, BodyMode, liberr.Error) {
	if c.method == http.MethodHead {
		return strings.NewReader(""), BodyModeNone, nil
	}

	if cl := resp.Headers.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, BodyModeNone, malformed(codeMalformedContentLength, cl)
		}
		if n == 0 {
			return strings.NewReader(""), BodyModeContentLength, nil
		}
		return &contentLengthReader{conn: c, ctx: ctx, remaining: n}, BodyModeContentLength, nil
	}

	if strings.EqualFold(resp.Headers.Get("Transfer-Encoding"), "chunked") {
		return &chunkedReader{conn: c, ctx: ctx}, BodyModeChunked, nil
	}

	if !c.opts.AllowKeepAliveWithoutLength && strings.EqualFold(resp.Headers.Get("Connection"), "keep-alive") {
		return nil, BodyModeNone, malformed(codeBadReply, "keep-alive response without Content-Length or chunked framing")
	}

	return &untilCloseReader{conn: c, ctx: ctx}, BodyModeUntilClose, nil
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}

// cut splits s at the first occurrence of sep, trimming nothing beyond
// the separator itself.
func cut(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
