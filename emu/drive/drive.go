/*
 * fdcsim - Floppy drive
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

package drive

import (
	"fmt"

	"github.com/rcornwell/fdcsim/emu/device"
	"github.com/rcornwell/fdcsim/emu/disc"
	"github.com/rcornwell/fdcsim/emu/event"
	debug "github.com/rcornwell/fdcsim/util/debug"
)

const (
	// 2MHz clock at 300 RPM.
	CyclesPerRev = 400000

	// Index hole covers first 2% of revolution.
	indexPercent = 2
)

const (
	// Debug options.
	debugStep = 1 << iota
	debugMotor
	debugWrite
	debugMount
)

var debugOption = map[string]int{
	"STEP":  debugStep,
	"MOTOR": debugMotor,
	"WRITE": debugWrite,
	"MOUNT": debugMount,
}

var debugMsk int

// Enable debug options.
func Debug(opt string) error {
	flag, err := debug.ParseOption("DRIVE", debugOption, opt)
	if err != nil {
		return err
	}
	debugMsk |= flag
	return nil
}

type Drive struct {
	id       int
	sched    *event.Scheduler
	task     *event.Task
	disc     *disc.Disc
	callback device.PulsesCallback
	spinning bool
	upper    bool // Side 1 selected
	track    int  // Physical track
	track40  bool // Double step for 40 track discs
	headPos  int  // Word under head
	half     bool // Lower half of word next in 32us mode
	mode32us bool
}

// Create drive with its rotation task on scheduler.
func New(id int, sched *event.Scheduler) *Drive {
	drive := &Drive{id: id, sched: sched}
	drive.task = sched.NewTask(drive.tick)
	return drive
}

// Drive number.
func (drive *Drive) ID() int {
	return drive.id
}

// Put disc in drive.
func (drive *Drive) Mount(d *disc.Disc) {
	drive.Unmount()
	drive.disc = d
	drive.wrapHead()
	debug.DebugDrivef(drive.id, debugMsk, debugMount, "mount, %d tracks", d.TracksUsed())
}

// Remove disc, saving any pending track.
func (drive *Drive) Unmount() {
	if drive.disc == nil {
		return
	}
	drive.disc.Flush()
	drive.disc = nil
	debug.DebugDrivef(drive.id, debugMsk, debugMount, "unmount")
}

// Mounted disc.
func (drive *Drive) Disc() *disc.Disc {
	return drive.disc
}

func (drive *Drive) Track() int {
	return drive.track
}

func (drive *Drive) IsTrack0() bool {
	return drive.track == 0
}

// Selected side, 0 or 1.
func (drive *Drive) Side() int {
	if drive.upper {
		return 1
	}
	return 0
}

// Logical steps move two physical tracks.
func (drive *Drive) Set40TrackMode(on bool) {
	drive.track40 = on
}

// Step head, clamped to the end stops.
func (drive *Drive) Seek(delta int) {
	if drive.track40 {
		delta *= 2
	}
	track := min(max(drive.track+delta, 0), disc.MaxTracks-1)
	if track == drive.track {
		return
	}
	drive.flush()
	debug.DebugDrivef(drive.id, debugMsk, debugStep, "seek %d to %d", drive.track, track)
	drive.track = track
	drive.wrapHead()
}

func (drive *Drive) SelectSide(upper bool) {
	if drive.upper == upper {
		return
	}
	drive.flush()
	drive.upper = upper
	drive.wrapHead()
}

func (drive *Drive) SetPulsesCallback(cb device.PulsesCallback) {
	drive.callback = cb
}

// Index hole under sensor, always on with no disc.
func (drive *Drive) IsIndexPulse() bool {
	if drive.disc == nil {
		return true
	}
	return drive.headPos < drive.trackLength()*indexPercent/100
}

func (drive *Drive) IsWriteProtect() bool {
	if drive.disc == nil {
		return false
	}
	return drive.disc.WriteProtected()
}

func (drive *Drive) IsSpinning() bool {
	return drive.spinning
}

// Start motor, first batch arrives one batch time later.
func (drive *Drive) StartSpinning() {
	if drive.spinning {
		return
	}
	drive.spinning = true
	debug.DebugDrivef(drive.id, debugMsk, debugMotor, "spin up")
	drive.task.Schedule(drive.batchTime())
}

func (drive *Drive) StopSpinning() {
	if !drive.spinning {
		return
	}
	drive.spinning = false
	drive.task.Cancel()
	drive.flush()
	debug.DebugDrivef(drive.id, debugMsk, debugMotor, "spin down")
}

// Deliver 16 cell batches for MFM.
func (drive *Drive) Set32usMode(on bool) {
	if drive.mode32us == on {
		return
	}
	drive.mode32us = on
	drive.half = false
}

// Replace cells of the batch just delivered. Ignored if write protected.
func (drive *Drive) WritePulses(pulses uint32) {
	if drive.disc == nil || drive.disc.WriteProtected() {
		return
	}
	side := drive.Side()
	debug.DebugDrivef(drive.id, debugMsk, debugWrite, "write %d/%d %d %08x",
		side, drive.track, drive.headPos, pulses)
	if drive.mode32us {
		drive.disc.WriteHalfPulses(side, drive.track, drive.headPos, drive.half, uint16(pulses))
		return
	}
	drive.disc.WritePulses(side, drive.track, drive.headPos, pulses)
}

// Position in revolution, 0 to 1.
func (drive *Drive) HeadPosition() float64 {
	return float64(drive.halfPos()) / float64(2*drive.trackLength())
}

// Cycles since index.
func (drive *Drive) HeadTime() uint64 {
	return drive.halfTime(drive.halfPos())
}

// Nominal length unless track holds data.
func (drive *Drive) trackLength() int {
	if drive.disc == nil {
		return disc.TrackWords
	}
	length := drive.disc.GetTrack(drive.Side(), drive.track).Length()
	if length == 0 {
		return disc.TrackWords
	}
	return length
}

func (drive *Drive) halfPos() int {
	pos := drive.headPos * 2
	if drive.half {
		pos++
	}
	return pos
}

// Cycle of half word from index.
func (drive *Drive) halfTime(pos int) uint64 {
	return uint64(pos) * CyclesPerRev / uint64(2*drive.trackLength())
}

// Cycles until next batch.
func (drive *Drive) batchTime() uint64 {
	pos := drive.halfPos()
	step := 2
	if drive.mode32us {
		step = 1
	}
	return drive.halfTime(pos+step) - drive.halfTime(pos)
}

// Keep head on track after a length change.
func (drive *Drive) wrapHead() {
	if drive.headPos >= drive.trackLength() {
		drive.headPos = 0
		drive.half = false
	}
}

func (drive *Drive) flush() {
	if drive.disc != nil {
		drive.disc.Flush()
	}
}

// Word under head, blank areas return weak bits.
func (drive *Drive) readWord() uint32 {
	if drive.disc == nil {
		return 0
	}
	pulses := drive.disc.ReadPulses(drive.Side(), drive.track, drive.headPos)
	if pulses == 0 {
		pulses = weakPulses(drive.sched.Epoch() ^ uint64(drive.id)<<56)
	}
	return pulses
}

// Noise over unformatted media, repeatable for a given seed.
func weakPulses(seed uint64) uint32 {
	seed += 0x9e3779b97f4a7c15
	seed = (seed ^ (seed >> 30)) * 0xbf58476d1ce4e5b9
	seed = (seed ^ (seed >> 27)) * 0x94d049bb133111eb
	seed ^= seed >> 31
	pulses := uint32(seed) & uint32(seed>>32)
	// No two pulses in adjacent cells.
	return pulses &^ (pulses >> 1)
}

// Deliver one batch and schedule the next.
func (drive *Drive) tick() {
	word := drive.readWord()
	count := 32
	pulses := word
	if drive.mode32us {
		count = 16
		if drive.half {
			pulses = word & 0xffff
		} else {
			pulses = word >> 16
		}
	}
	if drive.callback != nil {
		drive.callback(pulses, count)
	}
	// Callback may have stopped or restarted motor.
	if !drive.spinning || drive.task.Scheduled() {
		return
	}

	if drive.mode32us && !drive.half {
		drive.half = true
	} else {
		drive.half = false
		drive.headPos++
		if drive.headPos >= drive.trackLength() {
			drive.headPos = 0
			drive.flush()
		}
	}
	drive.task.Schedule(drive.batchTime())
}

func (drive *Drive) String() string {
	return fmt.Sprintf("drive %d track %d side %d", drive.id, drive.track, drive.Side())
}
