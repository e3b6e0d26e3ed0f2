/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

// Category classifies an error beyond its numeric CodeError. Categories are
// pointer-identified: two errors compare equal iff both their categories and
// their codes agree, matching CodeError's own "minimum code per registrar"
// bucketing but at a coarser, domain-level grain (socket vs DNS vs TLS vs
// HTTP, etc.) than any single package's code block.
type Category struct {
	name string
}

// String returns the category's name.
func (c *Category) String() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Is reports whether e's category is c. A nil category never matches.
func (c *Category) Is(e *Category) bool {
	return c != nil && e != nil && c == e
}

func newCategory(name string) *Category {
	return &Category{name: name}
}

var (
	// CategoryOK marks the absence of error.
	CategoryOK = newCategory("ok")

	// CategoryCanceled marks an operation stopped via cancellation.
	CategoryCanceled = newCategory("canceled")

	// CategoryPending marks a transient not-yet-complete condition
	// (WouldBlock, InProgress) that a backend or awaiter resolves
	// internally and should not normally surface to user code.
	CategoryPending = newCategory("pending")

	// CategorySocket covers socket-family system errors: AccessDenied,
	// AddressInUse, ConnectionRefused, ConnectionReset, TimedOut,
	// WouldBlock and similar OS-level conditions.
	CategorySocket = newCategory("socket")

	// CategoryAddress covers address-family resolution/parsing errors.
	CategoryAddress = newCategory("address")

	// CategoryDNS covers name resolution failures.
	CategoryDNS = newCategory("dns")

	// CategoryTLS covers TLS handshake/certificate errors.
	CategoryTLS = newCategory("tls")

	// CategoryHTTP covers HTTP protocol errors (bad reply, bad request).
	CategoryHTTP = newCategory("http")

	// CategoryWebSocket covers WebSocket framing errors.
	CategoryWebSocket = newCategory("websocket")

	// CategorySOCKS5 covers SOCKS5 proxy handshake errors.
	CategorySOCKS5 = newCategory("socks5")

	// CategoryChannel covers channel errors: broken, empty, full.
	CategoryChannel = newCategory("channel")

	// CategoryInternal covers programming-bug conditions recovered from a
	// panic (nil pointer, invariant violation) rather than propagated as a
	// Go panic across a goroutine boundary.
	CategoryInternal = newCategory("internal")

	// CategoryUser is the start of user-defined error space: categories
	// minted by calling code with NewCategory are distinguishable from
	// every built-in category above but still compare via pointer
	// identity, same as the built-ins.
	CategoryUser = newCategory("user")
)

// NewCategory mints a new user-defined category, distinct from every other
// category including other user-defined ones minted by separate calls.
func NewCategory(name string) *Category {
	return newCategory(name)
}

// categorized is implemented by errors constructed via NewCategorized; it
// lets CategoryOf retrieve the attached Category without requiring every
// Error implementation to carry one.
type categorized interface {
	Category() *Category
}

type catErr struct {
	Error
	cat *Category
}

// Category returns the attached Category.
func (c *catErr) Category() *Category {
	return c.cat
}

// Unwrap exposes the wrapped Error to errors.Is/errors.As.
func (c *catErr) Unwrap() error {
	return c.Error
}

// NewCategorized attaches a Category to an existing Error, returning a new
// Error value that carries both the numeric code and the category.
func NewCategorized(cat *Category, e Error) Error {
	if e == nil {
		return nil
	}
	if cat == nil {
		cat = CategoryUser
	}
	return &catErr{Error: e, cat: cat}
}

// CategoryOf returns the Category attached to e via NewCategorized, or nil
// if e carries none.
func CategoryOf(e error) *Category {
	if e == nil {
		return nil
	}
	if c, ok := e.(categorized); ok {
		return c.Category()
	}
	return nil
}

// SameCategory reports whether a and b were both constructed with
// NewCategorized and share the same Category.
func SameCategory(a, b error) bool {
	ca, cb := CategoryOf(a), CategoryOf(b)
	return ca != nil && ca.Is(cb)
}
