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
	"context"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	libatm "github.com/nabbar/aio/atomic"
	logcfg "github.com/nabbar/aio/logger/config"
	logent "github.com/nabbar/aio/logger/entry"
	logfld "github.com/nabbar/aio/logger/fields"
	loglvl "github.com/nabbar/aio/logger/level"
	logtps "github.com/nabbar/aio/logger/types"
	"github.com/nabbar/aio/logger/hookstdout"
	"github.com/sirupsen/logrus"
)

type logger struct {
	mu  sync.Mutex
	log *logrus.Logger
	lvl libatm.Value[loglvl.Level]
	fld libatm.Value[logfld.Fields]
	opt libatm.Value[*logcfg.Options]
	hks []logtps.Hook
}

func newLogger(lvl loglvl.Level) *logger {
	l := &logger{
		log: logrus.New(),
		lvl: libatm.NewValue[loglvl.Level](),
		fld: libatm.NewValue[logfld.Fields](),
		opt: libatm.NewValue[*logcfg.Options](),
	}

	l.log.SetOutput(io.Discard)
	l.log.SetLevel(lvl.Logrus())
	l.lvl.Store(lvl)
	l.fld.Store(logfld.New(context.Background()))

	return l
}

func (l *logger) SetLevel(lvl loglvl.Level) {
	l.lvl.Store(lvl)
	l.log.SetLevel(lvl.Logrus())
}

func (l *logger) GetLevel() loglvl.Level {
	return l.lvl.Load()
}

func (l *logger) SetFields(fields logfld.Fields) {
	if fields == nil {
		fields = logfld.New(context.Background())
	}
	l.fld.Store(fields)
}

func (l *logger) GetFields() logfld.Fields {
	return l.fld.Load()
}

func (l *logger) SetOptions(opt *logcfg.Options) error {
	if opt == nil {
		return nil
	}
	if err := opt.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.hks {
		_ = h.Close()
	}
	l.hks = l.hks[:0]
	l.log.ReplaceHooks(make(logrus.LevelHooks))

	if opt.Stdout != nil {
		if h, err := hookstdout.New(opt.Stdout, nil, nil); err != nil {
			return err
		} else if h != nil {
			h.RegisterHook(l.log)
			l.hks = append(l.hks, h)
		}
	}

	l.opt.Store(opt)
	return nil
}

func (l *logger) GetOptions() *logcfg.Options {
	return l.opt.Load()
}

func (l *logger) Entry(lvl loglvl.Level, msg string, args ...interface{}) logent.Entry {
	var (
		file   string
		line   int
		caller string
	)

	if pc, f, n, ok := runtime.Caller(2); ok {
		file, line = f, n
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	e := logent.New(lvl).
		SetLogger(func() *logrus.Logger { return l.log }).
		FieldSet(l.GetFields()).
		SetEntryContext(time.Now(), 0, caller, file, uint64(line), msg)

	if len(args) > 0 {
		e.FieldAdd("args", args)
	}

	return e
}

func (l *logger) Debug(msg string, args ...interface{}) {
	l.Entry(loglvl.DebugLevel, msg, args...).Log()
}

func (l *logger) Info(msg string, args ...interface{}) {
	l.Entry(loglvl.InfoLevel, msg, args...).Log()
}

func (l *logger) Warn(msg string, args ...interface{}) {
	l.Entry(loglvl.WarnLevel, msg, args...).Log()
}

func (l *logger) Error(msg string, args ...interface{}) {
	l.Entry(loglvl.ErrorLevel, msg, args...).Log()
}

func (l *logger) Write(p []byte) (n int, err error) {
	l.Entry(l.GetLevel(), string(p)).Log()
	return len(p), nil
}

func (l *logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for _, h := range l.hks {
		if e := h.Close(); e != nil {
			err = e
		}
	}
	l.hks = l.hks[:0]
	return err
}

func (l *logger) GetStdLogger(lvl loglvl.Level, calldepth int) *log.Logger {
	w := &stdWriter{l: l, lvl: lvl}
	return log.New(w, "", 0)
}

func (l *logger) Clone() Logger {
	n := newLogger(l.GetLevel())
	n.fld.Store(l.GetFields().Clone())
	n.opt.Store(l.GetOptions())

	l.mu.Lock()
	n.hks = l.hks
	n.log = l.log
	l.mu.Unlock()

	return n
}

// stdWriter adapts the standard library's *log.Logger onto Logger.Entry,
// one line per Write call (log.Logger always calls Write once per line).
type stdWriter struct {
	l   *logger
	lvl loglvl.Level
}

func (w *stdWriter) Write(p []byte) (int, error) {
	w.l.Entry(w.lvl, string(p)).Log()
	return len(p), nil
}
