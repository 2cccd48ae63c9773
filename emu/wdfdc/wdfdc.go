/*
 * fdcsim - WD1770/1772 floppy disc controller
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
	"fmt"

	"github.com/rcornwell/fdcsim/emu/device"
	"github.com/rcornwell/fdcsim/emu/event"
	debug "github.com/rcornwell/fdcsim/util/debug"
)

type Variant int

const (
	WD1770 Variant = iota // Acorn Model B interface
	WD1772                // Master interface
)

// Host side of the controller.
type Host interface {
	SetInterrupt(level bool)   // INTRQ
	SetDataRequest(level bool) // DRQ
}

// Register offsets from base.
const (
	regStatus = iota // Command on write
	regTrack
	regSector
	regData
)

// Status bits.
const (
	stBusy       = 0x01
	stIndex      = 0x02 // Type I
	stDRQ        = 0x02 // Type II and III
	stTrack0     = 0x04 // Type I
	stLostData   = 0x04 // Type II and III
	stCRCError   = 0x08
	stSeekError  = 0x10 // Type I
	stRNF        = 0x10 // Type II and III
	stSpinUp     = 0x20 // Type I
	stRecordType = 0x20 // Deleted data mark
	stWriteProt  = 0x40
	stMotorOn    = 0x80
	stNotReady   = 0x80
)

// Command flags.
const (
	flgVerify   = 0x04
	flgNoSpinUp = 0x08
	flgUpdate   = 0x10 // Step update track register
	flgSettle   = 0x04
	flgMultiple = 0x10
	flgDeleted  = 0x01
	flgIndexIRQ = 0x04 // Force interrupt on index
	flgNowIRQ   = 0x08 // Force interrupt now
)

const (
	cyclesPerMs = 2000

	// Index pulses.
	spinUpRevs    = 6
	timeoutRevs   = 6
	spindownRevs  = 10
	SpindownNow   = 0
	SpindownNever = 0xff

	maxRestoreSteps   = 255
	maxVerifyMismatch = 3
	maxBadTracks      = 2

	// Bytes from end of ID to data mark.
	fmDataWindow  = 30
	mfmDataWindow = 43
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
	debugDetail
	debugStep
	debugWrite
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
	"STEP":   debugStep,
	"WRITE":  debugWrite,
}

var debugMsk int

// Enable debug options.
func Debug(opt string) error {
	flag, err := debug.ParseOption("FDC", debugOption, opt)
	if err != nil {
		return err
	}
	debugMsk |= flag
	return nil
}

// Parameters that differ between chips and boards.
type variantParams struct {
	name        string
	controlAddr uint16
	regBase     uint16
	drive0      byte // Control latch bits
	drive1      byte
	side        byte
	single      byte // FM when set
	reset       byte // Reset when clear
	stepMs      [4]int
	settleMs    int
	leadInDRQ   int // Gap bytes before first write DRQ
}

var variants = [...]variantParams{
	WD1770: {
		name:        "WD1770",
		controlAddr: 0xfe80,
		regBase:     0xfe84,
		drive0:      0x01,
		drive1:      0x02,
		side:        0x04,
		single:      0x08,
		reset:       0x20,
		stepMs:      [4]int{6, 12, 20, 30},
		settleMs:    30,
		leadInDRQ:   2,
	},
	WD1772: {
		name:        "WD1772",
		controlAddr: 0xfe24,
		regBase:     0xfe28,
		drive0:      0x01,
		drive1:      0x02,
		side:        0x10,
		single:      0x20,
		reset:       0x04,
		stepMs:      [4]int{6, 12, 2, 3},
		settleMs:    15,
		leadInDRQ:   1,
	},
}

type cmdType int

const (
	typeI cmdType = iota
	typeII
	typeIII
	typeIV
)

// Main state.
type state int

const (
	stateIdle state = iota
	stateSpinUpWait
	stateSettle
	stateSeekStep
	stateSyncingForID
	stateInID
	stateSyncingForData
	stateInData
	stateWriteGap
	stateWriteLeadIn
	stateWriteMarker
	stateWriteBody
	stateWriteCRC
	stateWriteDone
	stateFormatParams
	stateFormatWaitIndex
	stateFormat
	stateReadTrackWait
	stateReadTrack
)

var stateName = [...]string{
	"idle", "spin up", "settle", "seek", "sync id", "in id", "sync data",
	"in data", "write gap", "write lead in", "write marker", "write body",
	"write crc", "write done", "format params", "format wait", "format",
	"read track wait", "read track",
}

func (s state) String() string {
	return stateName[s]
}

// What index pulses are counted for.
type indexState int

const (
	indexNone indexState = iota
	indexTimeout
	indexSpindown
	indexNextPhase
)

// Action when index countdown reaches zero.
type phase int

const (
	phaseSpunUp phase = iota
	phaseReadTrack
	phaseReadTrackDone
	phaseFormat
	phaseFormatDone
	phaseIndexIRQ
)

// Why an ID is being searched for.
type callContext int

const (
	ctxVerify callContext = iota
	ctxReadSector
	ctxWriteSector
	ctxReadAddress
)

// Next block written by format.
type formatRoutine int

const (
	fmtGap1 formatRoutine = iota
	fmtID
	fmtGap2
	fmtData
	fmtGap3
	fmtGap4
)

type FDC struct {
	params *variantParams
	sched  *event.Scheduler
	timer  *event.Task
	host   Host
	drives []device.Drive
	drive  device.Drive // Selected drive or nil
	unit   int          // Selected drive number, -1 none

	// Host registers.
	control byte
	command byte
	status  byte
	track   byte
	sector  byte
	data    byte
	inReset bool

	cmdType   cmdType
	state     state
	ctx       callContext
	irq       bool
	drq       bool
	motorOn   bool
	mfm       bool
	writeGate bool

	// Index pulse handling.
	lastIndex  bool
	indexState indexState
	indexCount int
	phase      phase
	spindown   int

	// Seek.
	stepDir    int
	steps      int
	extraStep  bool
	mismatches int
	badTracks  [][maxBadTracks]int

	// Bit and byte level.
	sr        uint64 // Incoming cells
	bitCount  int
	inSync    bool // MFM sync seen, collecting mark
	crc       uint16
	byteCount int
	window    int
	idBuf     [6]byte
	idCount   int
	sizeBytes int
	deleted   bool

	// Write side.
	wqueue   []uint32 // Encoded words to write
	wword    uint32   // Word committed on next batch
	lastBit  bool     // Last MFM data bit written
	gapCount int

	// Format.
	fmtParams  [4]byte // Sectors, first sector, size code, gap3
	fmtCount   int
	fmtSector  int
	fmtRoutine formatRoutine
}

// Create controller with drives. Drive numbers follow argument order.
func New(variant Variant, sched *event.Scheduler, host Host, drives ...device.Drive) *FDC {
	fdc := &FDC{
		params:   &variants[variant],
		sched:    sched,
		host:     host,
		drives:   drives,
		unit:     -1,
		sector:   1,
		stepDir:  1,
		spindown: spindownRevs,
	}
	fdc.badTracks = make([][maxBadTracks]int, len(drives))
	for i := range fdc.badTracks {
		for j := range maxBadTracks {
			fdc.badTracks[i][j] = -1
		}
	}
	fdc.timer = sched.NewTask(fdc.timerExpired)
	fdc.control = fdc.params.reset
	for i, drive := range drives {
		unit := i
		drive.SetPulsesCallback(func(pulses uint32, count int) {
			if fdc.unit == unit {
				fdc.pulses(pulses, count)
			}
		})
	}
	return fdc
}

// Chip name.
func (fdc *FDC) Name() string {
	return fdc.params.name
}

// Control latch address.
func (fdc *FDC) ControlAddr() uint16 {
	return fdc.params.controlAddr
}

// First controller register address.
func (fdc *FDC) RegisterBase() uint16 {
	return fdc.params.regBase
}

// Control latch value selecting drive, side and density with reset released.
func (fdc *FDC) ControlValue(unit int, upper bool, mfm bool) byte {
	p := fdc.params
	value := p.reset
	switch unit {
	case 0:
		value |= p.drive0
	case 1:
		value |= p.drive1
	}
	if upper {
		value |= p.side
	}
	if !mfm {
		value |= p.single
	}
	return value
}

// Physical tracks skipped when stepping, two per drive.
func (fdc *FDC) SetBadTracks(unit int, tracks ...int) error {
	if unit < 0 || unit >= len(fdc.drives) {
		return fmt.Errorf("bad track drive %d out of range", unit)
	}
	if len(tracks) > maxBadTracks {
		return fmt.Errorf("only %d bad tracks allowed per drive", maxBadTracks)
	}
	for j := range maxBadTracks {
		fdc.badTracks[unit][j] = -1
		if j < len(tracks) {
			fdc.badTracks[unit][j] = tracks[j]
		}
	}
	return nil
}

// Index pulses before motor off after a command, 0 now, 0xff never.
func (fdc *FDC) SetSpindown(revs int) {
	fdc.spindown = revs
}

// Read a host register.
func (fdc *FDC) Read(addr uint16) byte {
	p := fdc.params
	if addr == p.controlAddr {
		return fdc.control
	}
	if addr < p.regBase || addr > p.regBase+regData {
		return 0xff
	}
	switch addr - p.regBase {
	case regStatus:
		fdc.setIRQ(false)
		return fdc.readStatus()
	case regTrack:
		return fdc.track
	case regSector:
		return fdc.sector
	default:
		fdc.setDRQ(false)
		return fdc.data
	}
}

// Write a host register.
func (fdc *FDC) Write(addr uint16, value byte) {
	p := fdc.params
	if addr == p.controlAddr {
		fdc.writeControl(value)
		return
	}
	if addr < p.regBase || addr > p.regBase+regData || fdc.inReset {
		return
	}
	switch addr - p.regBase {
	case regStatus:
		fdc.writeCommand(value)
	case regTrack:
		fdc.track = value
	case regSector:
		fdc.sector = value
	default:
		fdc.data = value
		fdc.setDRQ(false)
		if fdc.state == stateFormatParams {
			fdc.formatParam(value)
		}
	}
}

// Status register with live bits.
func (fdc *FDC) readStatus() byte {
	status := fdc.status
	if fdc.motorOn {
		status |= stMotorOn
	}
	if fdc.cmdType == typeI || fdc.cmdType == typeIV {
		status &^= stIndex | stTrack0 | stWriteProt
		if fdc.drive != nil {
			if fdc.drive.IsIndexPulse() {
				status |= stIndex
			}
			if fdc.drive.IsTrack0() {
				status |= stTrack0
			}
			if fdc.drive.IsWriteProtect() {
				status |= stWriteProt
			}
		}
		return status
	}
	if fdc.drq {
		status |= stDRQ
	}
	return status
}

// Drive select, side, density and reset.
func (fdc *FDC) writeControl(value byte) {
	p := fdc.params
	fdc.control = value
	if value&p.reset == 0 {
		fdc.Reset()
		fdc.inReset = true
		return
	}
	fdc.inReset = false

	unit := -1
	switch value & (p.drive0 | p.drive1) {
	case p.drive0:
		unit = 0
	case p.drive1:
		unit = 1
	}
	if unit >= len(fdc.drives) {
		unit = -1
	}
	fdc.mfm = value&p.single == 0
	fdc.selectDrive(unit)
	if fdc.drive != nil {
		fdc.drive.SelectSide(value&p.side != 0)
		fdc.drive.Set32usMode(fdc.mfm)
	}
}

// Change drive, motor line follows to new drive.
func (fdc *FDC) selectDrive(unit int) {
	if unit == fdc.unit {
		return
	}
	debug.Debugf("FDC", debugMsk, debugDetail, "select drive %d", unit)
	if fdc.drive != nil && fdc.motorOn {
		fdc.drive.StopSpinning()
	}
	fdc.unit = unit
	fdc.drive = nil
	if unit >= 0 {
		fdc.drive = fdc.drives[unit]
		fdc.lastIndex = fdc.drive.IsIndexPulse()
		if fdc.motorOn {
			fdc.drive.StartSpinning()
		}
	}
}

// Master reset, command aborted without interrupt.
func (fdc *FDC) Reset() {
	debug.Debugf("FDC", debugMsk, debugCmd, "reset")
	fdc.abort()
	fdc.status = 0
	fdc.sector = 1
	fdc.cmdType = typeI
	fdc.indexState = indexNone
	fdc.setMotor(false)
	fdc.setIRQ(false)
	fdc.setDRQ(false)
}

func (fdc *FDC) setIRQ(level bool) {
	if fdc.irq == level {
		return
	}
	fdc.irq = level
	if fdc.host != nil {
		fdc.host.SetInterrupt(level)
	}
}

func (fdc *FDC) setDRQ(level bool) {
	if fdc.drq == level {
		return
	}
	fdc.drq = level
	if fdc.host != nil {
		fdc.host.SetDataRequest(level)
	}
}

func (fdc *FDC) setMotor(on bool) {
	if fdc.motorOn == on {
		return
	}
	fdc.motorOn = on
	debug.Debugf("FDC", debugMsk, debugDetail, "motor %v", on)
	if fdc.drive == nil {
		return
	}
	if on {
		fdc.lastIndex = fdc.drive.IsIndexPulse()
		fdc.drive.StartSpinning()
	} else {
		fdc.drive.StopSpinning()
	}
}

// Interrupt line level.
func (fdc *FDC) Interrupt() bool {
	return fdc.irq
}

// Data request line level.
func (fdc *FDC) DataRequest() bool {
	return fdc.drq
}

// Busy executing a command.
func (fdc *FDC) Busy() bool {
	return fdc.status&stBusy != 0
}

func (fdc *FDC) String() string {
	return fmt.Sprintf("%s cmd %02x status %02x track %d sector %d data %02x state %s",
		fdc.params.name, fdc.command, fdc.readStatus(), fdc.track, fdc.sector, fdc.data, fdc.state)
}
