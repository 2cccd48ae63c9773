/*
 * fdcsim - Disc bitstream model
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

package disc

import (
	"fmt"
	"log/slog"

	debug "github.com/rcornwell/fdcsim/util/debug"
)

const (
	Sides     = 2
	MaxTracks = 84

	// 200ms revolution in 2us cells, packed 32 per word.
	TrackWords    = 3125
	CellsPerWord  = 32
	MaxTrackWords = 3190 // Slack for long tracks.
)

const (
	// Debug options.
	debugFlush = 1 << iota
	debugWrite
	debugBuild
)

var debugOption = map[string]int{
	"FLUSH": debugFlush,
	"WRITE": debugWrite,
	"BUILD": debugBuild,
}

var debugMsk int

// Enable debug options.
func Debug(opt string) error {
	flag, err := debug.ParseOption("DISC", debugOption, opt)
	if err != nil {
		return err
	}
	debugMsk |= flag
	return nil
}

// Track of pulse words, each bit is one 2us cell. Zero words are no flux.
type Track struct {
	pulses [MaxTrackWords]uint32
	length int // Words in use, zero for unformatted.
}

// Words in use.
func (t *Track) Length() int {
	return t.length
}

// Cells in use.
func (t *Track) Cells() int {
	return t.length * CellsPerWord
}

// Pulse word at position.
func (t *Track) Pulses(pos int) uint32 {
	return t.pulses[pos]
}

// One cell, 0 or 1.
func (t *Track) Cell(cell int) uint64 {
	return uint64(t.pulses[cell/CellsPerWord]>>(CellsPerWord-1-cell%CellsPerWord)) & 1
}

// Set track length in words.
func (t *Track) SetLength(words int) {
	if words < 0 || words > MaxTrackWords {
		panic(fmt.Sprintf("disc: track length %d out of range", words))
	}
	t.length = words
}

// Called once for each track flushed after being written.
type WriteTrackFunc func(side int, track int, t *Track) error

type Disc struct {
	tracks       [Sides][MaxTracks]Track
	tracksUsed   int
	writeProtect bool
	dirty        bool
	dirtySide    int
	dirtyTrack   int
	writeTrack   WriteTrackFunc
}

// Create a blank unformatted disc.
func NewDisc() *Disc {
	return &Disc{}
}

func checkPosition(side int, track int) {
	if side < 0 || side >= Sides || track < 0 || track >= MaxTracks {
		panic(fmt.Sprintf("disc: side %d track %d out of range", side, track))
	}
}

// Return track, tracks past the last used are blank.
func (d *Disc) GetTrack(side int, track int) *Track {
	checkPosition(side, track)
	return &d.tracks[side][track]
}

// Number of tracks with content.
func (d *Disc) TracksUsed() int {
	return d.tracksUsed
}

func (d *Disc) WriteProtected() bool {
	return d.writeProtect
}

func (d *Disc) SetWriteProtect(wp bool) {
	d.writeProtect = wp
}

// Register function to save tracks after they are written.
func (d *Disc) SetWriteTrackCallback(fn WriteTrackFunc) {
	d.writeTrack = fn
}

// Start building a track from the beginning.
func (d *Disc) BuildTrack(side int, track int) *TrackBuilder {
	checkPosition(side, track)
	if track >= d.tracksUsed {
		d.tracksUsed = track + 1
	}
	t := &d.tracks[side][track]
	clear(t.pulses[:])
	t.length = 0
	debug.DebugTrackf(side, track, debugMsk, debugBuild, "build")
	return &TrackBuilder{track: t}
}

// Read pulse word, blank tracks read as zero.
func (d *Disc) ReadPulses(side int, track int, pos int) uint32 {
	checkPosition(side, track)
	t := &d.tracks[side][track]
	if pos >= t.length {
		return 0
	}
	return t.pulses[pos]
}

// Mark track as being written. Only one track may be dirty.
func (d *Disc) BeginWrite(side int, track int) {
	checkPosition(side, track)
	if d.dirty {
		if d.dirtySide != side || d.dirtyTrack != track {
			panic(fmt.Sprintf("disc: write to side %d track %d with side %d track %d dirty",
				side, track, d.dirtySide, d.dirtyTrack))
		}
		return
	}
	d.dirty = true
	d.dirtySide = side
	d.dirtyTrack = track
	t := &d.tracks[side][track]
	if t.length == 0 {
		// Writing formats the track.
		t.length = TrackWords
	}
	if track >= d.tracksUsed {
		d.tracksUsed = track + 1
	}
}

// Write pulse word.
func (d *Disc) WritePulses(side int, track int, pos int, pulses uint32) {
	d.BeginWrite(side, track)
	t := &d.tracks[side][track]
	if pos >= t.length {
		panic(fmt.Sprintf("disc: write past end of track %d at %d", track, pos))
	}
	t.pulses[pos] = pulses
	debug.DebugTrackf(side, track, debugMsk, debugWrite, "write %d %08x", pos, pulses)
}

// Write 16 cells into upper or lower half of a word.
func (d *Disc) WriteHalfPulses(side int, track int, pos int, lower bool, pulses uint16) {
	word := d.ReadPulses(side, track, pos)
	if lower {
		word = (word & 0xffff0000) | uint32(pulses)
	} else {
		word = (word & 0x0000ffff) | (uint32(pulses) << 16)
	}
	d.WritePulses(side, track, pos, word)
}

// Whether a track is waiting to be saved.
func (d *Disc) IsDirty() bool {
	return d.dirty
}

// Save dirty track with callback.
func (d *Disc) Flush() {
	if !d.dirty {
		return
	}
	d.dirty = false
	debug.DebugTrackf(d.dirtySide, d.dirtyTrack, debugMsk, debugFlush, "flush")
	if d.writeTrack == nil {
		return
	}
	err := d.writeTrack(d.dirtySide, d.dirtyTrack, &d.tracks[d.dirtySide][d.dirtyTrack])
	if err != nil {
		slog.Error("disc: write back failed", "side", d.dirtySide, "track", d.dirtyTrack, "error", err)
	}
}
