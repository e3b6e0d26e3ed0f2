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

// Package httpproto is this module's HTTP/1.1 wire layer (spec §4.10):
// request framing, status-line/header parsing, and the three response
// body modes (Content-Length, chunked, read-until-close). It is
// grounded on the original implementation's HttpSession::_readHeaders
// and _readContent (original_source/include/ilias_http_session.hpp),
// reworked onto stream.BufferedStream's Getline instead of a coroutine
// client, and validates header field names/values with
// golang.org/x/net/http/httpguts the way a Go HTTP stack would rather
// than hand-rolling RFC 7230 token validation.
package httpproto

import (
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is an ordered multi-map of HTTP header fields. Unlike
// http.Header, insertion order is preserved for Write, matching
// HTTP/1.1's wire representation more closely (some servers are picky
// about header ordering).
type Header struct {
	keys []string
	vals []string
}

// Add appends a header field, validating both the field name and value
// per RFC 7230 via httpguts so a malformed field is rejected before it
// ever reaches the wire.
func (h *Header) Add(key, value string) error {
	if !httpguts.ValidHeaderFieldName(key) {
		return errInvalidHeaderName(key)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errInvalidHeaderValue(key)
	}
	h.keys = append(h.keys, key)
	h.vals = append(h.vals, value)
	return nil
}

// Set replaces every existing occurrence of key with a single value.
func (h *Header) Set(key, value string) error {
	h.Del(key)
	return h.Add(key, value)
}

// Del removes every occurrence of key (case-insensitive).
func (h *Header) Del(key string) {
	keys := h.keys[:0]
	vals := h.vals[:0]
	for i, k := range h.keys {
		if strings.EqualFold(k, key) {
			continue
		}
		keys = append(keys, k)
		vals = append(vals, h.vals[i])
	}
	h.keys, h.vals = keys, vals
}

// Get returns the first value for key (case-insensitive), or "" if
// absent — mirrors the original's HttpReply::header::value single-value
// lookup.
func (h *Header) Get(key string) string {
	for i, k := range h.keys {
		if strings.EqualFold(k, key) {
			return h.vals[i]
		}
	}
	return ""
}

// Values returns every value for key, in insertion order.
func (h *Header) Values(key string) []string {
	var out []string
	for i, k := range h.keys {
		if strings.EqualFold(k, key) {
			out = append(out, h.vals[i])
		}
	}
	return out
}

// Each calls fn for every header field in wire order.
func (h *Header) Each(fn func(key, value string)) {
	for i := range h.keys {
		fn(h.keys[i], h.vals[i])
	}
}

// Request is an outgoing HTTP/1.1 request: method, request target
// (already resolved to an absolute path + query by the caller), and
// headers. The body, if any, is supplied separately as an io.Reader at
// send time so large uploads never have to fit in memory at once.
type Request struct {
	Method  string
	Target  string
	Host    string
	Proto   string
	Headers Header
}

// NewRequest builds a Request defaulting Proto to HTTP/1.1, matching
// this package's scope (spec §1's Non-goals exclude HTTP/2 and HTTP/3).
func NewRequest(method, target, host string) *Request {
	return &Request{Method: method, Target: target, Host: host, Proto: "HTTP/1.1"}
}

// Response is a parsed HTTP/1.1 response status line and headers. The
// body is read separately through Conn.ReadBody once the caller has
// decided whether/how to consume it (spec §4.10's "headers and body
// are read in two distinct phases so a caller can inspect
// Content-Length/status before committing to draining the body").
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Headers    Header
}

// IsRedirectStatus reports whether code is one of the redirect statuses
// httpsession follows when chasing a Location header.
func IsRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func errInvalidHeaderName(key string) error {
	return &headerError{field: key, reason: "invalid header field name"}
}

func errInvalidHeaderValue(key string) error {
	return &headerError{field: key, reason: "invalid header field value"}
}

type headerError struct {
	field  string
	reason string
}

func (e *headerError) Error() string { return e.reason + ": " + e.field }
