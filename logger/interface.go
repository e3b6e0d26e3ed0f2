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

package logger

import (
	"io"
	"log"

	logcfg "github.com/nabbar/aio/logger/config"
	logent "github.com/nabbar/aio/logger/entry"
	logfld "github.com/nabbar/aio/logger/fields"
	loglvl "github.com/nabbar/aio/logger/level"
)

// Logger is the main logging entry point used across this module: the
// executor, I/O backends and HTTP worker log connection lifecycle events
// through it rather than fmt/stdlib log.
type Logger interface {
	io.WriteCloser

	// SetOptions applies output destinations (stdout, file, syslog) and
	// rebuilds the internal hook set accordingly.
	SetOptions(opt *logcfg.Options) error
	// GetOptions returns the last options applied via SetOptions, or nil.
	GetOptions() *logcfg.Options

	// SetLevel changes the minimum level logged from now on.
	SetLevel(lvl loglvl.Level)
	// GetLevel returns the current minimum level.
	GetLevel() loglvl.Level

	// SetFields replaces the default fields merged into every entry.
	SetFields(fields logfld.Fields)
	// GetFields returns the default fields merged into every entry.
	GetFields() logfld.Fields

	// Entry builds a new log entry at the given level, pre-populated with
	// the logger's default fields, caller context and message.
	Entry(lvl loglvl.Level, msg string, args ...interface{}) logent.Entry

	// Debug, Info, Warn, Error log a message immediately at the matching level.
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// GetStdLogger returns a standard library *log.Logger that forwards
	// every line written to it as an entry logged at lvl.
	GetStdLogger(lvl loglvl.Level, calldepth int) *log.Logger

	// Clone returns an independent copy sharing the same hooks but with
	// its own default fields and level.
	Clone() Logger
}

// FuncLog is a logger factory, called on every log operation to support
// dynamic logger replacement (swap the backing Logger without rebuilding
// every adapter holding a reference to the factory).
type FuncLog func() Logger

// New returns a new Logger at the given level with no output configured.
// Call SetOptions to attach stdout/file/syslog destinations.
func New(lvl loglvl.Level) Logger {
	return newLogger(lvl)
}
