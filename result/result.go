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

// Package result carries the value-or-error sum type every fallible
// operation in this module returns instead of a Go (T, error) pair, so
// task bodies and awaiters have a single thing to pass across a channel.
package result

import liberr "github.com/nabbar/aio/errors"

// Result carries either a value of T or a structured Error, never both.
type Result[T any] struct {
	value T
	err   liberr.Error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure. Passing a nil error is a programming error and
// produces a Result that reports IsErr() == false, since a nil liberr.Error
// is indistinguishable from "no error" by design.
func Err[T any](err liberr.Error) Result[T] {
	return Result[T]{err: err}
}

// IsErr reports whether this Result carries an error.
func (r Result[T]) IsErr() bool {
	return r.err != nil
}

// Error returns the carried error, or nil if the Result is Ok.
func (r Result[T]) Error() liberr.Error {
	return r.err
}

// Unwrap returns the carried value and true, or the zero value and false
// if the Result carries an error.
func (r Result[T]) Unwrap() (T, bool) {
	if r.err != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Must returns the carried value, panicking if the Result carries an
// error. Reserved for call sites that have already checked IsErr, or for
// truly unrecoverable invariant violations (spec §9's exception-for-bugs
// carve-out).
func (r Result[T]) Must() T {
	if r.err != nil {
		panic(r.err)
	}
	return r.value
}

// Map transforms the carried value, passing through any error unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return Ok(fn(r.value))
}
