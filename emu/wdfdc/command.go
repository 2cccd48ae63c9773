/*
 * fdcsim - WD177x command processing
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

func commandType(cmd byte) cmdType {
	switch {
	case cmd&0x80 == 0:
		return typeI
	case cmd&0xc0 == 0x80:
		return typeII
	case cmd&0xf0 == 0xd0:
		return typeIV
	default:
		return typeIII
	}
}

func isWriteCommand(cmd byte) bool {
	return cmd&0xe0 == 0xa0 || cmd&0xf0 == 0xf0
}

// Handle write to command register.
func (fdc *FDC) writeCommand(cmd byte) {
	if commandType(cmd) == typeIV {
		fdc.forceInterrupt(cmd)
		return
	}
	if fdc.Busy() {
		debug.Debugf("FDC", debugMsk, debugCmd, "command %02x ignored, busy", cmd)
		return
	}
	if fdc.drive == nil {
		panic(fdc.params.name + ": command issued with no drive selected")
	}

	debug.Debugf("FDC", debugMsk, debugCmd, "command %02x track %d sector %d data %02x",
		cmd, fdc.track, fdc.sector, fdc.data)
	fdc.command = cmd
	fdc.cmdType = commandType(cmd)
	fdc.status = stBusy
	fdc.indexState = indexNone
	fdc.setIRQ(false)
	fdc.setDRQ(false)

	if fdc.cmdType != typeI {
		if fdc.drive.Disc() == nil {
			fdc.finish(stNotReady)
			return
		}
		if isWriteCommand(cmd) && fdc.drive.IsWriteProtect() {
			fdc.finish(stWriteProt)
			return
		}
	}

	if !fdc.motorOn {
		fdc.setMotor(true)
		if cmd&flgNoSpinUp == 0 && fdc.drive.Disc() != nil {
			fdc.state = stateSpinUpWait
			fdc.waitIndex(spinUpRevs, phaseSpunUp)
			return
		}
	}
	fdc.spunUp()
}

// Motor is up to speed, start the command proper.
func (fdc *FDC) spunUp() {
	cmd := fdc.command
	if fdc.cmdType == typeI {
		if fdc.state == stateSpinUpWait {
			fdc.status |= stSpinUp
		}
		fdc.startSeek()
		return
	}
	if fdc.cmdType == typeII && cmd&flgSettle != 0 {
		fdc.startTimer(stateSettle, fdc.params.settleMs)
		return
	}
	fdc.settled()
}

// Head settled, type II and III commands start here.
func (fdc *FDC) settled() {
	cmd := fdc.command
	switch {
	case fdc.cmdType == typeI:
		fdc.searchID(ctxVerify)
	case cmd&0xe0 == 0x80:
		fdc.searchID(ctxReadSector)
	case cmd&0xe0 == 0xa0:
		fdc.searchID(ctxWriteSector)
	case cmd&0xf0 == 0xc0:
		fdc.searchID(ctxReadAddress)
	case cmd&0xf0 == 0xe0:
		fdc.state = stateReadTrackWait
		fdc.waitIndex(1, phaseReadTrack)
	default:
		fdc.state = stateFormatParams
		fdc.fmtCount = 0
		fdc.setDRQ(true)
	}
}

// Abort and raise interrupt according to flags.
func (fdc *FDC) forceInterrupt(cmd byte) {
	debug.Debugf("FDC", debugMsk, debugCmd, "force interrupt %02x state %s", cmd, fdc.state)
	if fdc.Busy() {
		fdc.abort()
		fdc.status &^= stBusy
		fdc.setDRQ(false)
	} else {
		fdc.status = 0
	}
	fdc.command = cmd
	fdc.cmdType = typeIV
	fdc.setIRQ(false)
	switch {
	case cmd&flgNowIRQ != 0:
		fdc.setIRQ(true)
		fdc.armSpindown()
	case cmd&flgIndexIRQ != 0:
		fdc.waitIndex(1, phaseIndexIRQ)
	default:
		fdc.armSpindown()
	}
}

// Stop whatever is in progress.
func (fdc *FDC) abort() {
	fdc.timer.Cancel()
	fdc.state = stateIdle
	fdc.writeGate = false
	fdc.wqueue = fdc.wqueue[:0]
	fdc.inSync = false
}

// Command complete.
func (fdc *FDC) finish(status byte) {
	debug.Debugf("FDC", debugMsk, debugCmd, "command %02x done status %02x", fdc.command, fdc.status|status)
	fdc.abort()
	fdc.status = (fdc.status | status) &^ stBusy
	fdc.setIRQ(true)
	fdc.armSpindown()
}

// Count index pulses to motor off.
func (fdc *FDC) armSpindown() {
	fdc.indexState = indexNone
	if !fdc.motorOn || fdc.spindown == SpindownNever {
		return
	}
	// Without a disc there are no index edges to count.
	if fdc.spindown == SpindownNow || fdc.drive == nil || fdc.drive.Disc() == nil {
		fdc.setMotor(false)
		return
	}
	fdc.indexState = indexSpindown
	fdc.indexCount = fdc.spindown
}

// Run phase after count index pulses.
func (fdc *FDC) waitIndex(count int, next phase) {
	fdc.indexState = indexNextPhase
	fdc.indexCount = count
	fdc.phase = next
}

func (fdc *FDC) startTimer(next state, ms int) {
	fdc.state = next
	fdc.timer.Reschedule(uint64(ms) * cyclesPerMs)
}

func (fdc *FDC) timerExpired() {
	switch fdc.state {
	case stateSettle:
		fdc.settled()
	case stateSeekStep:
		fdc.stepDone()
	}
}

// Evaluate index pulse edge, first thing each batch.
func (fdc *FDC) checkIndex() {
	index := fdc.drive.IsIndexPulse()
	rising := index && !fdc.lastIndex
	fdc.lastIndex = index
	if !rising || fdc.indexState == indexNone {
		return
	}
	fdc.indexCount--
	if fdc.indexCount > 0 {
		return
	}
	switch fdc.indexState {
	case indexTimeout:
		debug.Debugf("FDC", debugMsk, debugCmd, "timeout state %s", fdc.state)
		if fdc.cmdType == typeI {
			fdc.finish(stSeekError)
		} else {
			fdc.finish(stRNF)
		}
	case indexSpindown:
		fdc.indexState = indexNone
		fdc.setMotor(false)
	case indexNextPhase:
		fdc.indexState = indexNone
		fdc.nextPhase()
	}
}

func (fdc *FDC) nextPhase() {
	switch fdc.phase {
	case phaseSpunUp:
		fdc.spunUp()
	case phaseReadTrack:
		fdc.state = stateReadTrack
		fdc.bitCount = 0
		fdc.waitIndex(1, phaseReadTrackDone)
	case phaseReadTrackDone:
		fdc.finish(0)
	case phaseFormat:
		fdc.startFormat()
	case phaseFormatDone:
		fdc.finish(0)
	case phaseIndexIRQ:
		fdc.setIRQ(true)
		fdc.armSpindown()
	}
}

// Type I command setup.
func (fdc *FDC) startSeek() {
	cmd := fdc.command
	fdc.steps = 0
	switch cmd & 0xe0 {
	case 0x00:
		if cmd&0x10 == 0 {
			// Restore.
			fdc.track = 0xff
			fdc.data = 0
		}
		fdc.seekStep()
		return
	case 0x20:
	case 0x40:
		fdc.stepDir = 1
	case 0x60:
		fdc.stepDir = -1
	}
	if cmd&flgUpdate != 0 {
		fdc.track += byte(fdc.stepDir)
	}
	fdc.stepHead()
}

// Seek and restore step until track register matches.
func (fdc *FDC) seekStep() {
	restore := fdc.command&0xf0 == 0x00
	if restore && fdc.drive.IsTrack0() {
		fdc.track = 0
		fdc.seekDone()
		return
	}
	if fdc.track == fdc.data {
		fdc.seekDone()
		return
	}
	if restore && fdc.steps >= maxRestoreSteps {
		fdc.finish(stSeekError)
		return
	}
	fdc.steps++
	if fdc.data > fdc.track {
		fdc.stepDir = 1
	} else {
		fdc.stepDir = -1
	}
	fdc.track += byte(fdc.stepDir)
	fdc.stepHead()
}

// Step drive once and wait step time.
func (fdc *FDC) stepHead() {
	if fdc.stepDir < 0 && fdc.drive.IsTrack0() {
		fdc.track = 0
	} else {
		fdc.drive.Seek(fdc.stepDir)
	}
	fdc.extraStep = fdc.onBadTrack()
	debug.Debugf("FDC", debugMsk, debugStep, "step %d to %d track reg %d",
		fdc.stepDir, fdc.drive.Track(), fdc.track)
	fdc.startTimer(stateSeekStep, fdc.params.stepMs[fdc.command&3])
}

// Head is on a track in the bad track table.
func (fdc *FDC) onBadTrack() bool {
	for _, bad := range fdc.badTracks[fdc.unit] {
		if bad >= 0 && bad == fdc.drive.Track() {
			return true
		}
	}
	return false
}

func (fdc *FDC) stepDone() {
	if fdc.extraStep {
		debug.Debugf("FDC", debugMsk, debugStep, "skip bad track %d", fdc.drive.Track())
		fdc.drive.Seek(fdc.stepDir)
		fdc.extraStep = fdc.onBadTrack()
		fdc.startTimer(stateSeekStep, fdc.params.stepMs[fdc.command&3])
		return
	}
	if fdc.command&0xe0 == 0x00 {
		fdc.seekStep()
		return
	}
	fdc.seekDone()
}

// Type I stepping finished, verify if asked.
func (fdc *FDC) seekDone() {
	if fdc.command&flgVerify == 0 {
		fdc.finish(0)
		return
	}
	if fdc.drive.Disc() == nil {
		fdc.finish(stSeekError)
		return
	}
	fdc.mismatches = 0
	fdc.startTimer(stateSettle, fdc.params.settleMs)
}

// Look for an ID mark, timeout after a few revolutions.
func (fdc *FDC) searchID(ctx callContext) {
	fdc.ctx = ctx
	fdc.indexState = indexTimeout
	fdc.indexCount = timeoutRevs
	fdc.resync()
}

// Go back to hunting for an ID mark.
func (fdc *FDC) resync() {
	fdc.state = stateSyncingForID
	fdc.inSync = false
	fdc.bitCount = 0
}

// Six ID bytes read.
func (fdc *FDC) idDone() {
	crcOK := fdc.crc == 0
	id := fdc.idBuf
	debug.Debugf("FDC", debugMsk, debugDetail, "id %d %d %d %d crc ok %v",
		id[0], id[1], id[2], id[3], crcOK)
	switch fdc.ctx {
	case ctxReadAddress:
		fdc.sector = id[0]
		if !crcOK {
			fdc.finish(stCRCError)
			return
		}
		fdc.finish(0)
	case ctxVerify:
		if id[0] != fdc.track {
			fdc.mismatches++
			if fdc.mismatches >= maxVerifyMismatch {
				fdc.finish(stSeekError)
				return
			}
			fdc.resync()
			return
		}
		if !crcOK {
			fdc.status |= stCRCError
			fdc.resync()
			return
		}
		fdc.status &^= stCRCError
		fdc.finish(0)
	default:
		if id[0] != fdc.track || id[2] != fdc.sector {
			fdc.resync()
			return
		}
		if !crcOK {
			fdc.status |= stCRCError
			fdc.resync()
			return
		}
		fdc.status &^= stCRCError
		fdc.sizeBytes = 128 << (id[3] & 3)
		if fdc.ctx == ctxReadSector {
			fdc.state = stateSyncingForData
			fdc.inSync = false
			fdc.window = fmDataWindow
			if fdc.mfm {
				fdc.window = mfmDataWindow
			}
			return
		}
		fdc.state = stateWriteGap
		fdc.gapCount = 0
	}
}

// Sector data and CRC read.
func (fdc *FDC) dataDone() {
	if fdc.crc != 0 {
		fdc.finish(stCRCError)
		return
	}
	fdc.sectorDone()
}

// Move to next sector on multiple, else done.
func (fdc *FDC) sectorDone() {
	if fdc.command&flgMultiple == 0 {
		fdc.finish(0)
		return
	}
	fdc.sector++
	fdc.searchID(fdc.ctx)
}

// Format parameters from data register. Write Track here takes sector
// count, first sector, size code and gap 3 then lays out gaps and marks
// itself, instead of the chip's raw byte stream with F5/F6/F7 escapes.
func (fdc *FDC) formatParam(value byte) {
	fdc.fmtParams[fdc.fmtCount] = value
	fdc.fmtCount++
	if fdc.fmtCount < len(fdc.fmtParams) {
		fdc.setDRQ(true)
		return
	}
	debug.Debugf("FDC", debugMsk, debugCmd, "format %d sectors from %d size %d gap3 %d",
		fdc.fmtParams[0], fdc.fmtParams[1], fdc.fmtParams[2], fdc.fmtParams[3])
	fdc.state = stateFormatWaitIndex
	fdc.waitIndex(1, phaseFormat)
}

// Bytes of gap before the write splice.
func (fdc *FDC) writeGapBytes() int {
	if fdc.mfm {
		return 22
	}
	return 11
}

// Sync zero bytes before a mark.
func (fdc *FDC) syncBytes() int {
	if fdc.mfm {
		return 12
	}
	return 6
}

// Gap filler byte.
func (fdc *FDC) gapByte() byte {
	if fdc.mfm {
		return 0x4e
	}
	return 0xff
}

// Cells in one byte.
func (fdc *FDC) byteCells() int {
	if fdc.mfm {
		return 16
	}
	return 32
}

// Data mark for write sector.
func (fdc *FDC) writeMark() byte {
	if fdc.command&flgDeleted != 0 {
		return disc.MarkDeleted
	}
	return disc.MarkData
}
