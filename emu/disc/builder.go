/*
 * fdcsim - Track builder
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
)

const (
	maxCells = MaxTrackWords * CellsPerWord

	// Longest gap between pulses FM or MFM will produce.
	maxPulseCells = 4
)

// Appends encoded bytes or raw pulses to a track.
type TrackBuilder struct {
	track      *Track
	cell       int    // Next cell to write
	crc        uint16 // Running CRC
	lastMFMBit bool   // Last data bit written in MFM
	warned     bool   // Out of range pulse already reported
	truncated  bool   // Ran out of room for pulse deltas
}

// Current position in cells.
func (b *TrackBuilder) Cells() int {
	return b.cell
}

// Current CRC.
func (b *TrackBuilder) CRC() uint16 {
	return b.crc
}

// Add count cells from low bits of pulses, oldest in highest bit.
func (b *TrackBuilder) appendCells(pulses uint32, count int) {
	if b.cell+count > maxCells {
		panic(fmt.Sprintf("disc: track builder overflow at cell %d", b.cell))
	}
	for i := count - 1; i >= 0; i-- {
		if (pulses>>uint(i))&1 != 0 {
			b.track.pulses[b.cell/CellsPerWord] |= 1 << uint(CellsPerWord-1-b.cell%CellsPerWord)
		}
		b.cell++
	}
	words := (b.cell + CellsPerWord - 1) / CellsPerWord
	if words > b.track.length {
		b.track.length = words
	}
}

// Reset CRC for a mark, MFM starts past the A1 sync bytes.
func (b *TrackBuilder) ResetCRC(mfm bool) {
	b.crc = CRCInit(mfm)
}

// Set CRC to value.
func (b *TrackBuilder) SetCRC(crc uint16) {
	b.crc = crc
}

// Add FM byte with clocks, data goes into CRC.
func (b *TrackBuilder) AppendFMByte(clocks byte, data byte) {
	b.appendCells(FMTo2usPulses(clocks, data), 32)
	b.crc = CRCAddByte(b.crc, data)
}

// Add FM data byte with normal clocks.
func (b *TrackBuilder) AppendFMData(data byte) {
	b.AppendFMByte(DataClocks, data)
}

// Add FM address mark, restarting CRC.
func (b *TrackBuilder) AppendFMMark(mark byte) {
	b.ResetCRC(false)
	b.AppendFMByte(MarkClocks, mark)
}

// Add count copies of a FM byte, used for gaps.
func (b *TrackBuilder) AppendRepeatFMByte(data byte, count int) {
	for range count {
		b.AppendFMData(data)
	}
}

// Add MFM byte.
func (b *TrackBuilder) AppendMFMByte(data byte) {
	var pulses uint16
	b.lastMFMBit, pulses = MFMToPulses(b.lastMFMBit, data)
	b.appendCells(uint32(pulses), 16)
	b.crc = CRCAddByte(b.crc, data)
}

// Add count copies of a MFM byte.
func (b *TrackBuilder) AppendRepeatMFMByte(data byte, count int) {
	for range count {
		b.AppendMFMByte(data)
	}
}

// Add three A1 sync bytes with missing clock, CRC starts after them.
func (b *TrackBuilder) AppendMFMSync() {
	for range 3 {
		b.appendCells(uint32(MFMSyncA1), 16)
	}
	b.lastMFMBit = true
	b.ResetCRC(true)
}

// Add the running CRC as two bytes.
func (b *TrackBuilder) AppendCRC(mfm bool) {
	crc := b.crc
	if mfm {
		b.AppendMFMByte(byte(crc >> 8))
		b.AppendMFMByte(byte(crc))
	} else {
		b.AppendFMData(byte(crc >> 8))
		b.AppendFMData(byte(crc))
	}
}

// Add 32 raw cells.
func (b *TrackBuilder) AppendPulses(pulses uint32) {
	b.appendCells(pulses, 32)
}

// Add one flux transition deltaUs after the previous one. Returns false once
// the track is full.
func (b *TrackBuilder) AppendPulseDelta(deltaUs float64) bool {
	if b.truncated {
		return false
	}
	cells := int(deltaUs/2 + 0.5)
	if cells < 1 || cells > maxPulseCells*2 {
		if !b.warned {
			slog.Warn("disc: pulse width out of range", "us", deltaUs, "cell", b.cell)
			b.warned = true
		}
		if cells < 1 {
			cells = 1
		}
	}
	if b.cell+cells > maxCells {
		slog.Warn("disc: pulse data truncated", "cell", b.cell)
		b.truncated = true
		return false
	}
	// Runs longer than 32 cells are written as empty words first.
	for cells > 32 {
		b.appendCells(0, 32)
		cells -= 32
	}
	b.appendCells(1, cells)
	return true
}

// Pad track to nominal length with gap bytes.
func (b *TrackBuilder) FillFM(data byte) {
	for b.cell+32 <= TrackWords*CellsPerWord {
		b.AppendFMData(data)
	}
	if b.track.length < TrackWords {
		b.track.length = TrackWords
	}
}

// Pad MFM track to nominal length.
func (b *TrackBuilder) FillMFM(data byte) {
	for b.cell+16 <= TrackWords*CellsPerWord {
		b.AppendMFMByte(data)
	}
	if b.track.length < TrackWords {
		b.track.length = TrackWords
	}
}
