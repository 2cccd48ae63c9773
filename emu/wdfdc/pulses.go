/*
 * fdcsim - WD177x pulse and byte processing
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

package wdfdc

import (
	"github.com/rcornwell/fdcsim/emu/disc"
	debug "github.com/rcornwell/fdcsim/util/debug"
)

// Called by selected drive for each batch of cells.
func (fdc *FDC) pulses(pulses uint32, count int) {
	fdc.checkIndex()
	if fdc.writeGate {
		fdc.drive.WritePulses(fdc.wword)
		fdc.writeNext()
		return
	}
	if fdc.state == stateIdle {
		return
	}
	for i := count - 1; i >= 0; i-- {
		fdc.shiftBit(uint64(pulses>>uint(i)) & 1)
	}
	fdc.byteTime()
}

// Shift one cell through the mark detector and byte assembler.
func (fdc *FDC) shiftBit(bit uint64) {
	fdc.sr = (fdc.sr << 1) | bit
	switch fdc.state {
	case stateSyncingForID, stateSyncingForData:
		fdc.findMark()
	case stateInID, stateInData:
		fdc.bitCount++
		if fdc.bitCount == fdc.byteCells() {
			fdc.bitCount = 0
			fdc.byteIn(fdc.decodeByte())
		}
	case stateReadTrack:
		fdc.bitCount++
		if fdc.trackMark() {
			fdc.bitCount = 0
			fdc.deliver(fdc.decodeByte())
			return
		}
		if fdc.bitCount == fdc.byteCells() {
			fdc.bitCount = 0
			fdc.deliver(fdc.decodeByte())
		}
	}
}

// Last byte in shift register.
func (fdc *FDC) decodeByte() byte {
	if fdc.mfm {
		return disc.PulsesToMFM(uint16(fdc.sr))
	}
	_, data, _ := disc.PulsesToFM(uint32(fdc.sr))
	return data
}

// Wanted address mark for current state.
func (fdc *FDC) wantMark(value byte) bool {
	if fdc.state == stateSyncingForID {
		return value == disc.MarkID
	}
	return value >= disc.MarkDeleted && value <= disc.MarkData
}

// Check shift register for an address mark.
func (fdc *FDC) findMark() {
	if !fdc.mfm {
		clocks, data, iffy := disc.PulsesToFM(uint32(fdc.sr))
		if !iffy && clocks == disc.MarkClocks && fdc.wantMark(data) {
			fdc.markFound(data)
		}
		return
	}
	if !fdc.inSync {
		if fdc.sr&0xffffffffffff == disc.MFMSyncPattern {
			fdc.inSync = true
			fdc.bitCount = 0
		}
		return
	}
	fdc.bitCount++
	if fdc.bitCount < 16 {
		return
	}
	fdc.bitCount = 0
	value := fdc.decodeByte()
	if value == 0xa1 {
		// Extra sync byte.
		return
	}
	fdc.inSync = false
	if fdc.wantMark(value) {
		fdc.markFound(value)
	}
}

// Address mark found, start reading field.
func (fdc *FDC) markFound(value byte) {
	fdc.crc = disc.CRCAddByte(disc.CRCInit(fdc.mfm), value)
	fdc.bitCount = 0
	fdc.inSync = false
	if fdc.state == stateSyncingForID {
		debug.Debugf("FDC", debugMsk, debugDetail, "id mark at %d", fdc.drive.Track())
		fdc.state = stateInID
		fdc.idCount = 0
		return
	}
	debug.Debugf("FDC", debugMsk, debugDetail, "data mark %02x", value)
	fdc.deleted = value == disc.MarkDeleted || value == disc.MarkDeleted+1
	if fdc.deleted {
		fdc.status |= stRecordType
	}
	fdc.state = stateInData
	fdc.byteCount = 0
}

// Read track realigns on marks.
func (fdc *FDC) trackMark() bool {
	if fdc.mfm {
		return fdc.sr&0xffff == uint64(disc.MFMSyncA1)
	}
	clocks, data, iffy := disc.PulsesToFM(uint32(fdc.sr))
	if iffy {
		return false
	}
	return (clocks == disc.MarkClocks && (data == disc.MarkID || (data >= disc.MarkDeleted && data <= disc.MarkData))) ||
		(clocks == disc.IndexClocks && data == disc.MarkIndex)
}

// One byte of an ID or data field.
func (fdc *FDC) byteIn(value byte) {
	fdc.crc = disc.CRCAddByte(fdc.crc, value)
	if fdc.state == stateInID {
		fdc.idBuf[fdc.idCount] = value
		fdc.idCount++
		if fdc.ctx == ctxReadAddress {
			fdc.deliver(value)
		}
		if fdc.idCount == len(fdc.idBuf) {
			fdc.idDone()
		}
		return
	}
	if fdc.byteCount < fdc.sizeBytes {
		fdc.deliver(value)
	}
	fdc.byteCount++
	if fdc.byteCount == fdc.sizeBytes+2 {
		fdc.dataDone()
	}
}

// Pass byte to host, flag lost data if last not taken.
func (fdc *FDC) deliver(value byte) {
	if fdc.drq {
		fdc.status |= stLostData
	}
	debug.Debugf("FDC", debugMsk, debugData, "read %02x", value)
	fdc.data = value
	fdc.setDRQ(true)
}

// Counts in byte times, once per batch.
func (fdc *FDC) byteTime() {
	switch fdc.state {
	case stateSyncingForData:
		fdc.window--
		if fdc.window <= 0 {
			debug.Debugf("FDC", debugMsk, debugDetail, "no data mark")
			fdc.resync()
		}
	case stateWriteGap:
		// First count is the batch holding the ID CRC.
		fdc.gapCount++
		if fdc.gapCount == fdc.params.leadInDRQ+1 {
			fdc.setDRQ(true)
		}
		if fdc.gapCount <= fdc.writeGapBytes() {
			return
		}
		if fdc.drq {
			fdc.setDRQ(false)
			fdc.finish(stLostData)
			return
		}
		fdc.lastBit = false
		fdc.state = stateWriteLeadIn
		fdc.writeGate = true
		fdc.writeNext()
	}
}

// Encode one data byte and add it to the CRC.
func (fdc *FDC) encodeByte(value byte) uint32 {
	fdc.crc = disc.CRCAddByte(fdc.crc, value)
	if fdc.mfm {
		var pulses uint16
		fdc.lastBit, pulses = disc.MFMToPulses(fdc.lastBit, value)
		return uint32(pulses)
	}
	return disc.FMTo2usPulses(disc.DataClocks, value)
}

func (fdc *FDC) queueByte(value byte, count int) {
	for range count {
		fdc.wqueue = append(fdc.wqueue, fdc.encodeByte(value))
	}
}

// Queue an address mark, CRC restarts.
func (fdc *FDC) queueMark(value byte) {
	if fdc.mfm {
		for range 3 {
			fdc.wqueue = append(fdc.wqueue, uint32(disc.MFMSyncA1))
		}
		fdc.lastBit = true
		fdc.crc = disc.CRCInit(true)
		fdc.wqueue = append(fdc.wqueue, fdc.encodeByte(value))
		return
	}
	fdc.crc = disc.CRCAddByte(disc.CRCInit(false), value)
	fdc.wqueue = append(fdc.wqueue, disc.FMTo2usPulses(disc.MarkClocks, value))
}

func (fdc *FDC) queueCRC() {
	crc := fdc.crc
	fdc.queueByte(byte(crc>>8), 1)
	fdc.queueByte(byte(crc), 1)
}

// Set up word for next batch, write gate drops when done.
func (fdc *FDC) writeNext() {
	for len(fdc.wqueue) == 0 {
		if !fdc.fillWrite() {
			return
		}
	}
	fdc.wword = fdc.wqueue[0]
	fdc.wqueue = fdc.wqueue[1:]
}

// Generate more words for current write state.
func (fdc *FDC) fillWrite() bool {
	switch fdc.state {
	case stateWriteLeadIn:
		fdc.queueByte(0x00, fdc.syncBytes())
		fdc.state = stateWriteMarker
	case stateWriteMarker:
		fdc.queueMark(fdc.writeMark())
		fdc.state = stateWriteBody
		fdc.byteCount = 0
	case stateWriteBody:
		value := fdc.data
		if fdc.drq {
			fdc.status |= stLostData
			value = 0
		}
		debug.Debugf("FDC", debugMsk, debugWrite, "write %02x", value)
		fdc.queueByte(value, 1)
		fdc.byteCount++
		if fdc.byteCount < fdc.sizeBytes {
			fdc.setDRQ(true)
		} else {
			fdc.state = stateWriteCRC
		}
	case stateWriteCRC:
		fdc.queueCRC()
		fdc.queueByte(fdc.gapByte(), 1)
		fdc.state = stateWriteDone
	case stateWriteDone:
		fdc.writeGate = false
		fdc.sectorDone()
		return false
	case stateFormat:
		fdc.formatNext()
	default:
		fdc.writeGate = false
		return false
	}
	return true
}

// Index seen, write whole track.
func (fdc *FDC) startFormat() {
	fdc.state = stateFormat
	fdc.fmtRoutine = fmtGap1
	fdc.fmtCount = int(fdc.fmtParams[0])
	fdc.fmtSector = int(fdc.fmtParams[1])
	fdc.lastBit = false
	fdc.writeGate = true
	fdc.waitIndex(1, phaseFormatDone)
	fdc.writeNext()
}

// Format next routine dispatch.
func (fdc *FDC) formatNext() {
	size := fdc.fmtParams[2] & 3
	switch fdc.fmtRoutine {
	case fmtGap1:
		if fdc.mfm {
			fdc.queueByte(0x4e, 60)
		} else {
			fdc.queueByte(0xff, 16)
		}
		fdc.fmtRoutine = fmtID
		if fdc.fmtCount == 0 {
			fdc.fmtRoutine = fmtGap4
		}
	case fmtID:
		side := byte(0)
		if fdc.control&fdc.params.side != 0 {
			side = 1
		}
		fdc.queueByte(0x00, fdc.syncBytes())
		fdc.queueMark(disc.MarkID)
		fdc.queueByte(fdc.track, 1)
		fdc.queueByte(side, 1)
		fdc.queueByte(byte(fdc.fmtSector), 1)
		fdc.queueByte(size, 1)
		fdc.queueCRC()
		fdc.fmtRoutine = fmtGap2
	case fmtGap2:
		fdc.queueByte(fdc.gapByte(), fdc.writeGapBytes())
		fdc.fmtRoutine = fmtData
	case fmtData:
		fdc.queueByte(0x00, fdc.syncBytes())
		fdc.queueMark(disc.MarkData)
		fdc.queueByte(0xe5, 128<<size)
		fdc.queueCRC()
		fdc.fmtRoutine = fmtGap3
	case fmtGap3:
		fdc.queueByte(fdc.gapByte(), int(fdc.fmtParams[3]))
		fdc.fmtSector++
		fdc.fmtCount--
		fdc.fmtRoutine = fmtID
		if fdc.fmtCount == 0 {
			fdc.fmtRoutine = fmtGap4
		}
	case fmtGap4:
		fdc.queueByte(fdc.gapByte(), 1)
	}
}
