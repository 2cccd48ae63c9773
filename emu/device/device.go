/*
 * fdcsim - Drive interface
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

package device

import (
	"github.com/rcornwell/fdcsim/emu/disc"
)

// Called once per pulse batch. Count is 32 cells, or 16 in 32us mode.
type PulsesCallback func(pulses uint32, count int)

// Interface for drives attached to a controller.
type Drive interface {
	Disc() *disc.Disc // Mounted disc or nil
	Track() int       // Physical head position
	IsTrack0() bool
	Seek(delta int) // Step +/- tracks
	SelectSide(upper bool)
	SetPulsesCallback(cb PulsesCallback)
	IsIndexPulse() bool
	IsWriteProtect() bool
	IsSpinning() bool
	StartSpinning()
	StopSpinning()
	Set32usMode(on bool)       // 16 cell batches for MFM
	WritePulses(pulses uint32) // Replace cells under head
}
