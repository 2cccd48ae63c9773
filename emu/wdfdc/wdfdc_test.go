/*
 * fdcsim - Controller tests
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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rcornwell/fdcsim/emu/disc"
	"github.com/rcornwell/fdcsim/emu/drive"
	"github.com/rcornwell/fdcsim/emu/event"
)

const (
	cmdRestore   = 0x00
	cmdSeek      = 0x10
	cmdStepIn    = 0x40
	cmdStepOut   = 0x60
	cmdRead      = 0x80
	cmdWrite     = 0xa0
	cmdReadAddr  = 0xc0
	cmdReadTrack = 0xe0
	cmdFormat    = 0xf0
	cmdForce     = 0xd0

	revolution = drive.CyclesPerRev
)

type testHost struct {
	irq  bool
	irqs int
	drq  bool
	drqs int
}

func (host *testHost) SetInterrupt(level bool) {
	if level && !host.irq {
		host.irqs++
	}
	host.irq = level
}

func (host *testHost) SetDataRequest(level bool) {
	if level && !host.drq {
		host.drqs++
	}
	host.drq = level
}

type testSystem struct {
	sched *event.Scheduler
	disc  *disc.Disc
	drive *drive.Drive
	host  *testHost
	fdc   *FDC
	base  uint16
}

// One drive with a blank disc, selected, side 0.
func newSystem(variant Variant, mfm bool) *testSystem {
	sys := &testSystem{
		sched: event.NewScheduler(),
		disc:  disc.NewDisc(),
		host:  &testHost{},
	}
	sys.drive = drive.New(0, sys.sched)
	sys.drive.Mount(sys.disc)
	sys.fdc = New(variant, sys.sched, sys.host, sys.drive)
	sys.base = sys.fdc.RegisterBase()
	sys.setControl(false, mfm)
	return sys
}

func (sys *testSystem) setControl(upper bool, mfm bool) {
	sys.fdc.Write(sys.fdc.ControlAddr(), sys.fdc.ControlValue(0, upper, mfm))
}

func (sys *testSystem) command(cmd byte) {
	sys.fdc.Write(sys.base+regStatus, cmd)
}

func (sys *testSystem) status() byte {
	return sys.fdc.Read(sys.base + regStatus)
}

// Run until command done, reading data on DRQ.
func (sys *testSystem) runRead(t *testing.T, revs int) []byte {
	t.Helper()
	var data []byte
	for limit := uint64(revs) * revolution; limit > 0 && sys.fdc.Busy(); limit -= 32 {
		sys.sched.Polltime(32)
		if sys.fdc.DataRequest() {
			data = append(data, sys.fdc.Read(sys.base+regData))
		}
	}
	if sys.fdc.Busy() {
		t.Fatalf("command still busy, state %s", sys.fdc.state)
	}
	return data
}

// Run until command done, supplying data on DRQ.
func (sys *testSystem) runWrite(t *testing.T, revs int, data []byte) int {
	t.Helper()
	n := 0
	for limit := uint64(revs) * revolution; limit > 0 && sys.fdc.Busy(); limit -= 32 {
		sys.sched.Polltime(32)
		if sys.fdc.DataRequest() && n < len(data) {
			sys.fdc.Write(sys.base+regData, data[n])
			n++
		}
	}
	if sys.fdc.Busy() {
		t.Fatalf("command still busy, state %s", sys.fdc.state)
	}
	return n
}

func payload(seed int, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(seed + i*3)
	}
	return data
}

// Format disc tracks with ten 256 byte sectors numbered from zero.
func formatDisc(d *disc.Disc, mfm bool, tracks int, side int) {
	for track := range tracks {
		sectors := make([]disc.Sector, 10)
		for i := range sectors {
			sectors[i] = disc.Sector{
				Track:    byte(track),
				Head:     byte(side),
				Sector:   byte(i),
				SizeCode: 1,
				Data:     payload(track*10+i, 256),
			}
		}
		d.FormatTrack(side, track, disc.StandardLayout(mfm), sectors)
	}
}

// Read one FM sector from a spun down drive.
func TestReadSectorFM(t *testing.T) {
	sys := newSystem(WD1770, false)
	want := payload(0x55, 256)
	sys.disc.FormatTrack(0, 0, disc.StandardLayout(false), []disc.Sector{
		{Track: 0, Sector: 0, SizeCode: 1, Data: want},
	})
	sys.fdc.Write(sys.base+regTrack, 0)
	sys.fdc.Write(sys.base+regSector, 0)
	sys.command(cmdRead)
	if !sys.fdc.Busy() {
		t.Fatal("read did not start")
	}
	got := sys.runRead(t, 12)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sector data mismatch (-want +got):\n%s", diff)
	}
	if sys.host.irqs != 1 {
		t.Errorf("interrupts %d expected 1", sys.host.irqs)
	}
	status := sys.status()
	if status&0x7f != 0 {
		t.Errorf("status %02x expected no errors", status)
	}
	if status&stMotorOn == 0 {
		t.Error("motor not on after read")
	}
	if sys.host.irq {
		t.Error("interrupt not cleared by status read")
	}
}

// All sectors of MFM tracks on both variants.
func TestReadSectorMFM(t *testing.T) {
	for _, variant := range []Variant{WD1770, WD1772} {
		sys := newSystem(variant, true)
		formatDisc(sys.disc, true, 3, 0)
		sys.drive.Seek(2)
		sys.fdc.Write(sys.base+regTrack, 2)
		for sector := range 10 {
			sys.fdc.Write(sys.base+regSector, byte(sector))
			sys.command(cmdRead)
			got := sys.runRead(t, 12)
			if diff := cmp.Diff(payload(20+sector, 256), got); diff != "" {
				t.Errorf("%s sector %d mismatch (-want +got):\n%s", sys.fdc.Name(), sector, diff)
			}
			if sys.status()&0x7f != 0 {
				t.Errorf("%s sector %d status %02x", sys.fdc.Name(), sector, sys.status())
			}
		}
	}
}

// Read sectors on side 1.
func TestReadSide1(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 1)
	sys.setControl(true, false)
	sys.fdc.Write(sys.base+regSector, 7)
	sys.command(cmdRead | flgNoSpinUp)
	got := sys.runRead(t, 8)
	if diff := cmp.Diff(payload(7, 256), got); diff != "" {
		t.Errorf("side 1 mismatch (-want +got):\n%s", diff)
	}
}

// Missing sector times out after index pulses.
func TestRecordNotFound(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regSector, 12)
	sys.command(cmdRead | flgNoSpinUp)
	start := sys.sched.Epoch()
	sys.runRead(t, 12)
	if status := sys.status(); status != stRNF|stMotorOn {
		t.Errorf("status %02x expected %02x", status, stRNF|stMotorOn)
	}
	revs := (sys.sched.Epoch() - start) / revolution
	if revs < timeoutRevs-1 || revs > timeoutRevs {
		t.Errorf("timeout after %d revolutions", revs)
	}
	if sys.host.irqs != 1 {
		t.Errorf("interrupts %d expected 1", sys.host.irqs)
	}
}

// Bad data CRC, deleted data and lost data.
func TestReadErrors(t *testing.T) {
	sys := newSystem(WD1770, false)
	sectors := []disc.Sector{
		{Sector: 0, SizeCode: 1, DataCRCError: true},
		{Sector: 1, SizeCode: 1, Deleted: true},
		{Sector: 2, SizeCode: 1, HeaderCRCError: true},
		{Sector: 3, SizeCode: 0},
	}
	sys.disc.FormatTrack(0, 0, disc.StandardLayout(false), sectors)

	sys.fdc.Write(sys.base+regSector, 0)
	sys.command(cmdRead | flgNoSpinUp)
	sys.runRead(t, 8)
	if sys.status()&0x7f != stCRCError {
		t.Errorf("data crc status %02x", sys.status())
	}

	sys.fdc.Write(sys.base+regSector, 1)
	sys.command(cmdRead | flgNoSpinUp)
	got := sys.runRead(t, 8)
	if sys.status()&0x7f != stRecordType || len(got) != 256 {
		t.Errorf("deleted status %02x length %d", sys.status(), len(got))
	}

	sys.fdc.Write(sys.base+regSector, 2)
	sys.command(cmdRead | flgNoSpinUp)
	sys.runRead(t, 8)
	if sys.status()&0x7f != stCRCError|stRNF {
		t.Errorf("header crc status %02x", sys.status())
	}

	// Never read data register.
	sys.fdc.Write(sys.base+regSector, 3)
	sys.command(cmdRead | flgNoSpinUp)
	for sys.fdc.Busy() {
		sys.sched.Polltime(128)
	}
	if sys.status()&0x7f != stLostData|stDRQ {
		t.Errorf("lost data status %02x", sys.status())
	}
}

// Write protected disc is refused before the motor starts.
func TestWriteProtect(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.disc.SetWriteProtect(true)
	before := make([]uint32, disc.TrackWords)
	for i := range before {
		before[i] = sys.disc.ReadPulses(0, 0, i)
	}
	sys.command(cmdWrite | flgNoSpinUp)
	if sys.fdc.Busy() {
		t.Fatal("write to protected disc still busy")
	}
	if sys.status()&0x7f != stWriteProt {
		t.Errorf("status %02x expected %02x", sys.status(), stWriteProt)
	}
	if sys.host.irqs != 1 {
		t.Errorf("interrupts %d expected 1", sys.host.irqs)
	}
	sys.sched.Polltime(2 * revolution)
	if sys.fdc.writeGate || sys.disc.IsDirty() {
		t.Error("write gate raised on protected disc")
	}
	for i := range before {
		if sys.disc.ReadPulses(0, 0, i) != before[i] {
			t.Fatalf("word %d changed", i)
		}
	}
	sys.command(cmdFormat)
	if sys.status()&0x7f != stWriteProt {
		t.Errorf("format status %02x", sys.status())
	}
}

// No disc gives not ready at once.
func TestNoDisc(t *testing.T) {
	sys := newSystem(WD1770, false)
	sys.drive.Unmount()
	sys.command(cmdRead)
	if sys.fdc.Busy() || sys.status()&stNotReady == 0 {
		t.Errorf("status %02x expected not ready", sys.status())
	}
	if sys.drive.IsSpinning() {
		t.Error("drive spinning without disc")
	}
}

func TestNoDrivePanics(t *testing.T) {
	sys := newSystem(WD1770, false)
	sys.fdc.Write(sys.fdc.params.controlAddr, sys.fdc.params.reset)
	defer func() {
		if recover() == nil {
			t.Error("command without drive did not panic")
		}
	}()
	sys.command(cmdRestore)
}

// Write sectors then read back with the controller and the sector finder.
func TestWriteSector(t *testing.T) {
	for _, mfm := range []bool{false, true} {
		sys := newSystem(WD1772, mfm)
		formatDisc(sys.disc, mfm, 1, 0)
		want := payload(0xa0, 256)
		sys.fdc.Write(sys.base+regSector, 4)
		sys.command(cmdWrite)
		n := sys.runWrite(t, 12, want)
		if n != 256 {
			t.Errorf("MFM %v wrote %d bytes", mfm, n)
		}
		if sys.status()&0x7f != 0 {
			t.Errorf("MFM %v write status %02x", mfm, sys.status())
		}

		sys.command(cmdRead | flgNoSpinUp)
		got := sys.runRead(t, 8)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("MFM %v read back mismatch (-want +got):\n%s", mfm, diff)
		}

		sectors := disc.FindSectors(sys.disc.GetTrack(0, 0))
		if len(sectors) != 10 {
			t.Fatalf("MFM %v found %d sectors", mfm, len(sectors))
		}
		for i, s := range sectors {
			if s.HeaderCRCError || s.DataCRCError || s.ByteLength != 256 {
				t.Errorf("MFM %v sector %d damaged", mfm, i)
			}
			expect := payload(i, 256)
			if i == 4 {
				expect = want
			}
			if diff := cmp.Diff(expect, s.Data); diff != "" {
				t.Errorf("MFM %v sector %d mismatch (-want +got):\n%s", mfm, i, diff)
			}
		}
	}
}

// Deleted data mark written with a0 flag.
func TestWriteDeleted(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regSector, 2)
	sys.command(cmdWrite | flgNoSpinUp | flgDeleted)
	sys.runWrite(t, 8, payload(9, 256))
	sys.command(cmdRead | flgNoSpinUp)
	sys.runRead(t, 8)
	if sys.status()&stRecordType == 0 {
		t.Errorf("status %02x expected deleted", sys.status())
	}
}

// Not supplying data loses the write.
func TestWriteLostData(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regSector, 1)
	sys.command(cmdWrite | flgNoSpinUp)
	sys.runWrite(t, 8, nil)
	if sys.status()&0x7f != stLostData {
		t.Errorf("status %02x expected lost data", sys.status())
	}
	if sys.disc.IsDirty() {
		t.Error("track written without data")
	}
}

// Multiple sector read runs to record not found.
func TestReadMultiple(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regSector, 7)
	sys.command(cmdRead | flgNoSpinUp | flgMultiple)
	got := sys.runRead(t, 12)
	if len(got) != 3*256 {
		t.Fatalf("read %d bytes expected %d", len(got), 3*256)
	}
	want := append(append(payload(7, 256), payload(8, 256)...), payload(9, 256)...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("multiple read mismatch (-want +got):\n%s", diff)
	}
	if sys.status()&0x7f != stRNF {
		t.Errorf("status %02x expected record not found", sys.status())
	}
	if sys.fdc.sector != 10 {
		t.Errorf("sector register %d expected 10", sys.fdc.sector)
	}
}

func TestReadAddress(t *testing.T) {
	sys := newSystem(WD1770, true)
	formatDisc(sys.disc, true, 4, 0)
	sys.drive.Seek(3)
	sys.command(cmdReadAddr | flgNoSpinUp)
	got := sys.runRead(t, 8)
	if len(got) != 6 {
		t.Fatalf("read address returned %d bytes", len(got))
	}
	if got[0] != 3 || got[3] != 1 {
		t.Errorf("address %v", got)
	}
	crc := disc.CRCAddBytes(disc.CRCAddByte(disc.CRCInit(true), disc.MarkID), got)
	if crc != 0 {
		t.Errorf("address crc residue %04x", crc)
	}
	if sys.fdc.sector != 3 {
		t.Errorf("sector register %d expected 3", sys.fdc.sector)
	}
}

func TestReadTrack(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.command(cmdReadTrack | flgNoSpinUp)
	got := sys.runRead(t, 4)
	if len(got) < disc.TrackWords-10 || len(got) > disc.TrackWords+10 {
		t.Errorf("read track %d bytes", len(got))
	}
	if got[0] != 0xff {
		t.Errorf("first byte %02x expected gap", got[0])
	}
	found := false
	for i := range len(got) - 4 {
		if got[i] == disc.MarkID && got[i+1] == 0 && got[i+3] == 0 {
			found = true
			break
		}
	}
	if !found {
		t.Error("read track missing first ID")
	}
}

// Format then find the sectors.
func TestFormat(t *testing.T) {
	for _, mfm := range []bool{false, true} {
		sys := newSystem(WD1770, mfm)
		sys.drive.Seek(5)
		sys.fdc.Write(sys.base+regTrack, 5)
		count := byte(10)
		if mfm {
			count = 16
		}
		sys.command(cmdFormat | flgNoSpinUp)
		sys.runWrite(t, 4, []byte{count, 0, 1, 21})
		if sys.status()&0x7f != 0 {
			t.Errorf("MFM %v format status %02x", mfm, sys.status())
		}
		sectors := disc.FindSectors(sys.disc.GetTrack(0, 5))
		if len(sectors) != int(count) {
			t.Fatalf("MFM %v found %d sectors", mfm, len(sectors))
		}
		blank := make([]byte, 256)
		for i := range blank {
			blank[i] = 0xe5
		}
		for i, s := range sectors {
			if s.Track != 5 || int(s.Sector) != i || s.IsMFM != mfm {
				t.Errorf("MFM %v sector %d id %d/%d", mfm, i, s.Track, s.Sector)
			}
			if s.HeaderCRCError || s.DataCRCError {
				t.Errorf("MFM %v sector %d crc error", mfm, i)
			}
			if diff := cmp.Diff(blank, s.Data); diff != "" {
				t.Errorf("MFM %v sector %d data (-want +got):\n%s", mfm, i, diff)
			}
		}
	}
}

// Seek with verify over formatted tracks.
func TestSeekVerify(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 10, 0)
	sys.fdc.Write(sys.base+regData, 7)
	sys.command(cmdSeek | flgVerify | flgNoSpinUp)
	sys.runRead(t, 8)
	if sys.status()&stSeekError != 0 || sys.status()&stCRCError != 0 {
		t.Errorf("seek status %02x", sys.status())
	}
	if sys.fdc.track != 7 || sys.drive.Track() != 7 {
		t.Errorf("track register %d drive %d expected 7", sys.fdc.track, sys.drive.Track())
	}

	sys.command(cmdRestore | flgNoSpinUp)
	sys.runRead(t, 2)
	if sys.fdc.track != 0 || !sys.drive.IsTrack0() {
		t.Errorf("restore track register %d drive %d", sys.fdc.track, sys.drive.Track())
	}
	if sys.status()&stTrack0 == 0 {
		t.Errorf("status %02x missing track 0", sys.status())
	}
}

// Step commands and track register update.
func TestStep(t *testing.T) {
	sys := newSystem(WD1772, false)
	sys.command(cmdStepIn | flgUpdate | flgNoSpinUp)
	sys.runRead(t, 1)
	sys.command(cmdStepIn | flgNoSpinUp)
	sys.runRead(t, 1)
	if sys.fdc.track != 1 || sys.drive.Track() != 2 {
		t.Errorf("track register %d drive %d", sys.fdc.track, sys.drive.Track())
	}
	sys.command(0x20 | flgUpdate | flgNoSpinUp)
	sys.runRead(t, 1)
	if sys.fdc.track != 2 || sys.drive.Track() != 3 {
		t.Errorf("step track register %d drive %d", sys.fdc.track, sys.drive.Track())
	}
	sys.command(cmdStepOut | flgUpdate | flgNoSpinUp)
	sys.runRead(t, 1)
	if sys.fdc.track != 1 || sys.drive.Track() != 2 {
		t.Errorf("step out track register %d drive %d", sys.fdc.track, sys.drive.Track())
	}
}

// Step timing follows the rate bits.
func TestStepRate(t *testing.T) {
	sys := newSystem(WD1770, false)
	sys.fdc.Write(sys.base+regData, 4)
	sys.command(cmdSeek | flgNoSpinUp | 3)
	start := sys.sched.Epoch()
	for sys.fdc.Busy() {
		sys.sched.Polltime(100)
	}
	elapsed := sys.sched.Epoch() - start
	want := uint64(4 * 30 * cyclesPerMs)
	if elapsed < want || elapsed > want+100 {
		t.Errorf("seek took %d cycles expected %d", elapsed, want)
	}
}

// Head settle delay on type II commands with E set.
func TestSettle(t *testing.T) {
	tests := []struct {
		variant Variant
		ms      uint64
	}{
		{WD1770, 30},
		{WD1772, 15},
	}
	for _, test := range tests {
		sys := newSystem(test.variant, false)
		formatDisc(sys.disc, false, 1, 0)
		sys.fdc.Write(sys.base+regTrack, 0)
		sys.fdc.Write(sys.base+regSector, 0)
		sys.command(cmdRead | flgSettle | flgNoSpinUp)
		settle := test.ms * cyclesPerMs
		sys.sched.Polltime(settle - 1)
		if sys.fdc.state != stateSettle {
			t.Errorf("%s settled early in state %s", sys.fdc.Name(), sys.fdc.state)
		}
		sys.sched.Polltime(1)
		if sys.fdc.state == stateSettle {
			t.Errorf("%s still settling after %d cycles", sys.fdc.Name(), settle)
		}
		sys.runRead(t, 2)
		if sys.status()&stRNF != 0 {
			t.Errorf("%s status %02x after settle", sys.fdc.Name(), sys.status())
		}
	}

	// No delay without E.
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.command(cmdRead | flgNoSpinUp)
	if sys.fdc.state == stateSettle {
		t.Error("settle without E flag")
	}
}

// Spin down of zero drops the motor as the command ends.
func TestSpindownNow(t *testing.T) {
	sys := newSystem(WD1770, false)
	sys.fdc.SetSpindown(SpindownNow)
	sys.command(cmdRestore | flgNoSpinUp)
	sys.runRead(t, 2)
	if sys.status()&stMotorOn != 0 || sys.drive.IsSpinning() {
		t.Errorf("motor on after command, status %02x", sys.status())
	}
	if sys.host.irqs != 1 {
		t.Errorf("interrupts %d expected 1", sys.host.irqs)
	}
}

// Bad track table skips physical tracks.
func TestBadTracks(t *testing.T) {
	sys := newSystem(WD1770, false)
	// Physical track 3 unusable, logical tracks shifted up.
	for physical := range 8 {
		if physical == 3 {
			continue
		}
		logical := physical
		if physical > 3 {
			logical--
		}
		sys.disc.FormatTrack(0, physical, disc.StandardLayout(false), []disc.Sector{
			{Track: byte(logical), Sector: 0, SizeCode: 1},
		})
	}

	sys.fdc.Write(sys.base+regData, 5)
	sys.command(cmdSeek | flgVerify | flgNoSpinUp)
	sys.runRead(t, 10)
	if sys.status()&stSeekError == 0 {
		t.Errorf("status %02x expected seek error without table", sys.status())
	}

	sys.command(cmdRestore | flgNoSpinUp)
	sys.runRead(t, 2)
	if err := sys.fdc.SetBadTracks(0, 3); err != nil {
		t.Fatal(err)
	}
	sys.fdc.Write(sys.base+regData, 5)
	sys.command(cmdSeek | flgVerify | flgNoSpinUp)
	sys.runRead(t, 10)
	if sys.status()&stSeekError != 0 {
		t.Errorf("status %02x with bad track table", sys.status())
	}
	if sys.drive.Track() != 6 || sys.fdc.track != 5 {
		t.Errorf("drive %d track register %d", sys.drive.Track(), sys.fdc.track)
	}

	// Stepping back over the bad track.
	sys.fdc.Write(sys.base+regData, 2)
	sys.command(cmdSeek | flgVerify | flgNoSpinUp)
	sys.runRead(t, 10)
	if sys.status()&stSeekError != 0 || sys.drive.Track() != 2 {
		t.Errorf("status %02x drive %d", sys.status(), sys.drive.Track())
	}

	if sys.fdc.SetBadTracks(0, 1, 2, 3) == nil {
		t.Error("three bad tracks accepted")
	}
	if sys.fdc.SetBadTracks(4, 1) == nil {
		t.Error("bad drive accepted")
	}
}

// Spin up waits for index pulses and sets spin up status.
func TestSpinUp(t *testing.T) {
	sys := newSystem(WD1770, false)
	sys.command(cmdRestore)
	start := sys.sched.Epoch()
	sys.runRead(t, 10)
	revs := (sys.sched.Epoch() - start) / revolution
	if revs < spinUpRevs-1 || revs > spinUpRevs {
		t.Errorf("spin up took %d revolutions", revs)
	}
	status := sys.status()
	if status&stSpinUp == 0 || status&stMotorOn == 0 {
		t.Errorf("status %02x expected spin up and motor on", status)
	}
	// Motor off after idle index pulses.
	sys.sched.Polltime((spindownRevs + 1) * revolution)
	if sys.status()&stMotorOn != 0 || sys.drive.IsSpinning() {
		t.Error("motor still on after spin down")
	}
}

func TestForceInterrupt(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regSector, 20)
	sys.command(cmdRead | flgNoSpinUp)
	sys.sched.Polltime(revolution)
	sys.command(cmdForce | flgNowIRQ)
	if sys.fdc.Busy() {
		t.Error("force interrupt did not stop command")
	}
	if sys.host.irqs != 1 {
		t.Errorf("interrupts %d expected 1", sys.host.irqs)
	}

	// Silent abort.
	sys.command(cmdRead | flgNoSpinUp)
	sys.sched.Polltime(revolution)
	sys.command(cmdForce)
	if sys.fdc.Busy() || sys.host.irqs != 1 {
		t.Errorf("silent abort busy %v interrupts %d", sys.fdc.Busy(), sys.host.irqs)
	}

	// Interrupt on next index.
	sys.command(cmdForce | flgIndexIRQ)
	if sys.host.irqs != 1 {
		t.Error("index interrupt raised early")
	}
	sys.sched.Polltime(revolution)
	if sys.host.irqs != 2 {
		t.Errorf("interrupts %d expected 2", sys.host.irqs)
	}
}

// Reset aborts without interrupt and keeps track register.
func TestReset(t *testing.T) {
	sys := newSystem(WD1770, false)
	formatDisc(sys.disc, false, 1, 0)
	sys.fdc.Write(sys.base+regTrack, 0)
	sys.fdc.Write(sys.base+regSector, 20)
	sys.fdc.Write(sys.base+regData, 0x42)
	sys.command(cmdRead | flgNoSpinUp)
	sys.sched.Polltime(revolution)
	sys.fdc.Write(sys.fdc.params.controlAddr, sys.fdc.params.drive0)
	if sys.fdc.Busy() || sys.host.irqs != 0 {
		t.Errorf("reset busy %v interrupts %d", sys.fdc.Busy(), sys.host.irqs)
	}
	if sys.fdc.sector != 1 || sys.fdc.data != 0x42 {
		t.Errorf("sector %d data %02x after reset", sys.fdc.sector, sys.fdc.data)
	}
	if sys.drive.IsSpinning() {
		t.Error("motor on after reset")
	}
	// Registers ignored while held in reset.
	sys.fdc.Write(sys.base+regTrack, 9)
	if sys.fdc.track != 0 {
		t.Error("track register written in reset")
	}
	sys.setControl(false, false)
	sys.fdc.Write(sys.base+regTrack, 9)
	if sys.fdc.track != 9 {
		t.Error("track register not written after reset")
	}
}

// Register decode for both boards.
func TestRegisterMap(t *testing.T) {
	tests := []struct {
		variant Variant
		control uint16
		base    uint16
	}{
		{WD1770, 0xfe80, 0xfe84},
		{WD1772, 0xfe24, 0xfe28},
	}
	for _, test := range tests {
		sys := newSystem(test.variant, false)
		if sys.fdc.ControlAddr() != test.control || sys.fdc.RegisterBase() != test.base {
			t.Errorf("%s addresses %04x %04x", sys.fdc.Name(), sys.fdc.ControlAddr(), sys.fdc.RegisterBase())
		}
		sys.fdc.Write(test.base+regSector, 0x12)
		sys.fdc.Write(test.base+regTrack, 0x34)
		if sys.fdc.Read(test.base+regSector) != 0x12 || sys.fdc.Read(test.base+regTrack) != 0x34 {
			t.Errorf("%s register readback failed", sys.fdc.Name())
		}
		if sys.fdc.Read(test.base+8) != 0xff {
			t.Errorf("%s unmapped register not 0xff", sys.fdc.Name())
		}
	}
}
