/*
 * fdcsim - System core
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

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcornwell/fdcsim/emu/device"
	"github.com/rcornwell/fdcsim/emu/disc"
	"github.com/rcornwell/fdcsim/emu/drive"
	"github.com/rcornwell/fdcsim/emu/event"
	"github.com/rcornwell/fdcsim/emu/timer"
	"github.com/rcornwell/fdcsim/emu/wdfdc"
	"github.com/rcornwell/fdcsim/util/discimage"
)

const (
	NumDrives = 2

	CyclesPerSecond = 2000000

	hostQuantum = 32 // Cycles between host polls of DRQ
	commandRevs = 50 // Revolutions before a command is abandoned
)

// Register offsets as seen by the host.
const (
	RegStatus = iota // Command on write
	RegTrack
	RegSector
	RegData
)

// Controller commands.
const (
	CmdRestore     = 0x00
	CmdSeek        = 0x10
	CmdStep        = 0x20
	CmdStepIn      = 0x40
	CmdStepOut     = 0x60
	CmdReadSector  = 0x80
	CmdWriteSector = 0xa0
	CmdReadAddress = 0xc0
	CmdForceInt    = 0xd0
	CmdReadTrack   = 0xe0
	CmdWriteTrack  = 0xf0

	FlagUpdate  = 0x10 // Step commands update track register
	FlagVerify  = 0x04
	FlagDeleted = 0x01
)

var (
	ErrTimeout = errors.New("controller command timed out") // Busy after many revolutions.
	ErrNoImage = errors.New("no image attached")            // Drive is empty.
)

// Scheduler, drives and controller, with the system acting as host.
type System struct {
	config Config
	sched  *event.Scheduler
	drives [NumDrives]*drive.Drive
	images [NumDrives]*discimage.Image
	fdc    *wdfdc.FDC
	irq    bool
	drq    bool
	irqs   int // Interrupts raised
}

// Outcome of a command run to completion.
type Result struct {
	Status byte
	Data   []byte // Bytes read through the data register
	Cycles uint64
}

// Build system and attach configured images.
func New(cfg Config) (*System, error) {
	sys := &System{config: cfg, sched: event.NewScheduler()}
	devs := make([]device.Drive, NumDrives)
	for i := range sys.drives {
		sys.drives[i] = drive.New(i, sys.sched)
		sys.drives[i].Set40TrackMode(cfg.Drives[i].Track40)
		devs[i] = sys.drives[i]
	}
	sys.fdc = wdfdc.New(cfg.Variant, sys.sched, sys, devs...)
	if cfg.Spindown != spindownDefault {
		sys.fdc.SetSpindown(cfg.Spindown)
	}
	for i, dc := range cfg.Drives {
		if len(dc.BadTracks) != 0 {
			if err := sys.fdc.SetBadTracks(i, dc.BadTracks...); err != nil {
				return nil, err
			}
		}
		if dc.File == "" {
			continue
		}
		if err := sys.Attach(i, dc.File, dc.options()); err != nil {
			_ = sys.Close()
			return nil, err
		}
	}
	slog.Info("system created", "controller", sys.fdc.Name())
	return sys, nil
}

// Interrupt line from controller.
func (sys *System) SetInterrupt(level bool) {
	if level && !sys.irq {
		sys.irqs++
	}
	sys.irq = level
}

// Data request line from controller.
func (sys *System) SetDataRequest(level bool) {
	sys.drq = level
}

func (sys *System) Scheduler() *event.Scheduler {
	return sys.sched
}

func (sys *System) FDC() *wdfdc.FDC {
	return sys.fdc
}

func (sys *System) Drive(unit int) *drive.Drive {
	return sys.drives[unit]
}

// Image attached to drive, nil if none.
func (sys *System) Image(unit int) *discimage.Image {
	return sys.images[unit]
}

// Interrupts raised since start.
func (sys *System) Interrupts() int {
	return sys.irqs
}

// Attach image file to drive.
func (sys *System) Attach(unit int, fileName string, opts discimage.Options) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	if err := sys.Detach(unit); err != nil && !errors.Is(err, ErrNoImage) {
		return err
	}
	img, err := discimage.Load(fileName, opts)
	if err != nil {
		return fmt.Errorf("drive %d: %w", unit, err)
	}
	sys.images[unit] = img
	sys.drives[unit].Set40TrackMode(opts.DoubleStep)
	sys.drives[unit].Mount(img.Disc())
	return nil
}

// Remove image from drive, saving pending writes.
func (sys *System) Detach(unit int) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	img := sys.images[unit]
	if img == nil {
		return ErrNoImage
	}
	sys.drives[unit].Unmount()
	sys.images[unit] = nil
	if err := img.Close(); err != nil {
		slog.Error("disc image write back failed", "file", img.Name(), "error", err)
		return err
	}
	return nil
}

// Detach all images.
func (sys *System) Close() error {
	var errs []error
	for unit := range sys.images {
		if err := sys.Detach(unit); err != nil && !errors.Is(err, ErrNoImage) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run cycles paced to the wall clock, returns cycles run.
func (sys *System) RunRealtime(ctx context.Context, cycles uint64) (uint64, error) {
	return timer.NewTimer(timer.Interval, CyclesPerSecond).Run(ctx, cycles, sys.Run)
}

// Advance time in slices no longer than the next event, as a CPU would.
func (sys *System) Run(cycles uint64) {
	for cycles > 0 {
		step := min(sys.sched.Headroom(), cycles)
		sys.sched.Polltime(step)
		cycles -= step
	}
}

func (sys *System) ReadRegister(reg int) byte {
	return sys.fdc.Read(sys.fdc.RegisterBase() + uint16(reg))
}

func (sys *System) WriteRegister(reg int, value byte) {
	sys.fdc.Write(sys.fdc.RegisterBase()+uint16(reg), value)
}

// Choose drive, side and density through the control latch.
func (sys *System) Select(unit int, side int, mfm bool) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	sys.fdc.Write(sys.fdc.ControlAddr(), sys.fdc.ControlValue(unit, side != 0, mfm))
	return nil
}

func isWrite(cmd byte) bool {
	return cmd&0xe0 == CmdWriteSector || cmd&0xf0 == CmdWriteTrack
}

// Issue command and service DRQ until it completes. Writes take bytes
// from out, padding with zero.
func (sys *System) Execute(cmd byte, out []byte) (Result, error) {
	start := sys.sched.Epoch()
	limit := uint64(commandRevs) * drive.CyclesPerRev
	write := isWrite(cmd)
	res := Result{}
	sys.WriteRegister(RegStatus, cmd)
	for sys.fdc.Busy() {
		if sys.sched.Epoch()-start > limit {
			sys.WriteRegister(RegStatus, CmdForceInt)
			res.Status = sys.ReadRegister(RegStatus)
			return res, fmt.Errorf("%w: command %02x", ErrTimeout, cmd)
		}
		sys.Run(hostQuantum)
		if !sys.drq {
			continue
		}
		if write {
			value := byte(0)
			if len(out) != 0 {
				value, out = out[0], out[1:]
			}
			sys.WriteRegister(RegData, value)
		} else {
			res.Data = append(res.Data, sys.ReadRegister(RegData))
		}
	}
	if sys.drq && !write {
		res.Data = append(res.Data, sys.ReadRegister(RegData))
	}
	res.Status = sys.ReadRegister(RegStatus)
	res.Cycles = sys.sched.Epoch() - start
	return res, nil
}

// Seek to track, verifying the ID when verify set.
func (sys *System) Seek(track byte, verify bool) (byte, error) {
	sys.WriteRegister(RegData, track)
	cmd := byte(CmdSeek)
	if verify {
		cmd |= FlagVerify
	}
	res, err := sys.Execute(cmd, nil)
	return res.Status, err
}

// Return head to track zero.
func (sys *System) Restore() (byte, error) {
	res, err := sys.Execute(CmdRestore, nil)
	return res.Status, err
}

// Seek and read one sector.
func (sys *System) ReadSector(track byte, sector byte) (Result, error) {
	if status, err := sys.Seek(track, false); err != nil {
		return Result{Status: status}, err
	}
	sys.WriteRegister(RegSector, sector)
	return sys.Execute(CmdReadSector, nil)
}

// Seek and write one sector.
func (sys *System) WriteSector(track byte, sector byte, data []byte, deleted bool) (Result, error) {
	if status, err := sys.Seek(track, false); err != nil {
		return Result{Status: status}, err
	}
	sys.WriteRegister(RegSector, sector)
	cmd := byte(CmdWriteSector)
	if deleted {
		cmd |= FlagDeleted
	}
	return sys.Execute(cmd, data)
}

// Next ID field under the head.
func (sys *System) ReadAddress() (Result, error) {
	return sys.Execute(CmdReadAddress, nil)
}

// Sector IDs on a track of a mounted disc, taken straight from the bitstream.
func (sys *System) Sectors(unit int, side int, track int) ([]disc.Sector, error) {
	if err := checkUnit(unit); err != nil {
		return nil, err
	}
	d := sys.drives[unit].Disc()
	if d == nil {
		return nil, ErrNoImage
	}
	if side < 0 || side >= disc.Sides || track < 0 || track >= disc.MaxTracks {
		return nil, fmt.Errorf("side %d track %d out of range", side, track)
	}
	return disc.FindSectorIDs(d.GetTrack(side, track)), nil
}

// Controller, drives and images.
func (sys *System) Status() string {
	var str strings.Builder
	fmt.Fprintf(&str, "cycle %d irqs %d\n", sys.sched.Epoch(), sys.irqs)
	str.WriteString(sys.fdc.String())
	str.WriteByte('\n')
	for unit, drv := range sys.drives {
		str.WriteString(drv.String())
		if img := sys.images[unit]; img != nil {
			fmt.Fprintf(&str, " %s (%d tracks)", img.Name(), img.Tracks())
		}
		str.WriteByte('\n')
	}
	return str.String()
}
