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
	"io"
	"net/http"
)

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// parseSetCookies parses raw Set-Cookie header values the same way
// net/http's own client does, by handing them to a throwaway
// http.Response and letting (*http.Response).Cookies() do the RFC 6265
// parsing — avoids reimplementing cookie-attribute parsing the corpus
// has no dedicated third-party library for.
func parseSetCookies(values []string) []*http.Cookie {
	if len(values) == 0 {
		return nil
	}
	resp := &http.Response{Header: http.Header{"Set-Cookie": values}}
	return resp.Cookies()
}
