/*
 * fdcsim - Wall clock pacing
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package timer

import (
	"context"
	"time"
)

// Default tick of 5ms.
const Interval = 5 * time.Millisecond

// Feeds emulated cycles in step with real time.
type Timer struct {
	interval time.Duration
	perTick  uint64 // Cycles for each tick
}

// Create timer for clock rate in cycles per second.
func NewTimer(interval time.Duration, rate uint64) *Timer {
	perTick := uint64(interval) * rate / uint64(time.Second)
	return &Timer{interval: interval, perTick: max(perTick, 1)}
}

// Cycles delivered for each tick.
func (timer *Timer) PerTick() uint64 {
	return timer.perTick
}

// Call advance once per tick until total cycles delivered or context done.
// Returns cycles delivered.
func (timer *Timer) Run(ctx context.Context, total uint64, advance func(cycles uint64)) (uint64, error) {
	ticker := time.NewTicker(timer.interval)
	defer ticker.Stop()

	done := uint64(0)
	for done < total {
		select {
		case <-ticker.C:
			step := min(timer.perTick, total-done)
			advance(step)
			done += step
		case <-ctx.Done():
			return done, ctx.Err()
		}
	}
	return done, nil
}
