/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
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
 */

// Package pidcontroller provides a minimal proportional-integral-derivative
// step generator used to build spaced ranges of values between two bounds.
package pidcontroller

import "context"

// Controller generates a monotonic sequence of float64 values between two
// bounds (increasing when end > start, decreasing otherwise), sizing each
// step from the remaining error using proportional, integral and
// derivative rates.
type Controller struct {
	rateP float64
	rateI float64
	rateD float64
}

// New returns a Controller configured with the given rates.
func New(rateP, rateI, rateD float64) *Controller {
	return &Controller{rateP: rateP, rateI: rateI, rateD: rateD}
}

// RangeCtx builds the sequence of values from start to end, stopping early if
// ctx is canceled. The first value is always start and, absent cancellation,
// the last value is always end.
func (c *Controller) RangeCtx(ctx context.Context, start, end float64) []float64 {
	res := make([]float64, 0)

	if start == end {
		return append(res, start)
	}

	var (
		ascending = end > start
		errSum    float64
		lastErr   float64
		cur       = start
	)

	res = append(res, cur)

	for i := 0; i < 64; i++ {
		select {
		case <-ctx.Done():
			return res
		default:
		}

		remaining := end - cur
		if (ascending && remaining <= 0) || (!ascending && remaining >= 0) {
			break
		}

		errSum += remaining
		step := c.rateP*remaining + c.rateI*errSum + c.rateD*(remaining-lastErr)
		lastErr = remaining

		if ascending && step <= 0 {
			step = remaining / 4
		}
		if !ascending && step >= 0 {
			step = remaining / 4
		}

		cur += step

		if (ascending && cur >= end) || (!ascending && cur <= end) {
			break
		}

		res = append(res, cur)
	}

	if res[len(res)-1] != end {
		res = append(res, end)
	}

	return res
}
