/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package mapCloser

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"

	libatm "github.com/nabbar/aio/atomic"
)

type closer struct {
	c *atomic.Bool
	f context.CancelFunc
	i *atomic.Uint64
	x libatm.MapTyped[uint64, io.Closer]
}

func (o *closer) idx() uint64 {
	return o.i.Load()
}

func (o *closer) idxInc() uint64 {
	o.i.Add(1)
	return o.idx()
}

func (o *closer) Add(clo ...io.Closer) {
	if o == nil || o.x == nil || o.c.Load() {
		return
	}

	for _, c := range clo {
		o.x.Store(o.idxInc(), c)
	}
}

func (o *closer) Get() []io.Closer {
	var res = make([]io.Closer, 0)

	if o == nil || o.x == nil || o.c.Load() {
		return res
	}

	o.x.Range(func(key uint64, val io.Closer) bool {
		if val != nil {
			res = append(res, val)
		}
		return true
	})
	return res
}

func (o *closer) Len() int {
	i := o.idx()

	if i > math.MaxInt {
		return math.MaxInt
	}
	return int(i)
}

func (o *closer) Len64() uint64 {
	return o.idx()
}

func (o *closer) Clean() {
	if o == nil || o.x == nil || o.c.Load() {
		return
	}

	o.i.Store(0)
	o.x.Range(func(key uint64, val io.Closer) bool {
		o.x.Delete(key)
		return true
	})
}

func (o *closer) Clone() Closer {
	if o == nil || o.x == nil || o.c.Load() {
		return nil
	}

	i := new(atomic.Uint64)
	i.Store(o.idx())

	c := new(atomic.Bool)
	c.Store(false)

	n := libatm.NewMapTyped[uint64, io.Closer]()
	o.x.Range(func(key uint64, val io.Closer) bool {
		n.Store(key, val)
		return true
	})

	return &closer{
		c: c,
		f: o.f,
		i: i,
		x: n,
	}
}

func (o *closer) Close() error {
	var e = make([]string, 0)

	if o == nil {
		return fmt.Errorf("not initialized")
	}

	already := o.c.Swap(true)

	if o.f != nil {
		defer o.f()
	}

	if already {
		return fmt.Errorf("already closed")
	} else if o.x == nil {
		return fmt.Errorf("not initialized")
	}

	o.x.Range(func(key uint64, val io.Closer) bool {
		if val == nil {
			return true
		}
		if err := val.Close(); err != nil {
			e = append(e, err.Error())
		}
		return true
	})

	if len(e) > 0 {
		return fmt.Errorf("%s", strings.Join(e, ", "))
	}

	return nil
}
