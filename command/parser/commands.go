/*
 * fdcsim - Command executer
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

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	core "github.com/rcornwell/fdcsim/emu/core"
	"github.com/rcornwell/fdcsim/util/discimage"
	"github.com/rcornwell/fdcsim/util/hex"
)

var cmdList = []cmd{
	{Name: "attach", Min: 2, Process: attach, Complete: attachComplete},
	{Name: "address", Min: 2, Process: address},
	{Name: "catalogue", Min: 2, Process: catalogue},
	{Name: "detach", Min: 1, Process: detach},
	{Name: "quit", Min: 1, Process: quit},
	{Name: "read", Min: 3, Process: read},
	{Name: "restore", Min: 3, Process: restore},
	{Name: "run", Min: 2, Process: run},
	{Name: "sectors", Min: 3, Process: sectors},
	{Name: "seek", Min: 3, Process: seek, Complete: seekComplete},
	{Name: "select", Min: 3, Process: selectDrive, Complete: selectComplete},
	{Name: "status", Min: 2, Process: status},
}

var densities = []string{"fm", "mfm"}

// Handle attach <unit> <file> [wp] [track40] [ssd|dsd|adf|adl].
func attach(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Attach")

	unit, err := line.getNumber()
	if err != nil {
		return false, errors.New("attach requires drive number")
	}
	file, ok := line.parseQuoteString()
	if !ok || file == "" {
		return false, errors.New("attach requires file name")
	}

	opts := discimage.Options{Writable: true}
	for {
		word := line.getWord()
		if word == "" {
			break
		}
		switch word {
		case "wp":
			opts.Writable = false
		case "track40":
			opts.DoubleStep = true
		default:
			format, err := discimage.ParseFormat(word)
			if err != nil {
				return false, err
			}
			opts.Format = format
		}
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	if err := sys.Attach(unit, file, opts); err != nil {
		return false, err
	}
	fmt.Fprintf(output, "drive %d: %s, %d tracks\n", unit, file, sys.Image(unit).Tracks())
	return false, nil
}

// Handle detach <unit>.
func detach(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Detach")

	unit, err := line.getNumber()
	if err != nil {
		return false, errors.New("detach requires drive number")
	}
	return false, sys.Detach(unit)
}

// Handle select <unit> [side] [fm|mfm].
func selectDrive(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Select")

	unit, err := line.getNumber()
	if err != nil {
		return false, errors.New("select requires drive number")
	}
	side, err := line.getOptNumber(0)
	if err != nil || side > 1 {
		return false, errors.New("side must be 0 or 1")
	}
	mfm := false
	switch line.getWord() {
	case "", "fm":
	case "mfm":
		mfm = true
	default:
		return false, errors.New("density must be fm or mfm")
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	return false, sys.Select(unit, side, mfm)
}

// Show controller and drives.
func status(line *cmdLine, sys *core.System) (bool, error) {
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	fmt.Fprint(output, sys.Status())
	return false, nil
}

// Return head to track zero.
func restore(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Restore")
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	st, err := sys.Restore()
	fmt.Fprintf(output, "status %02X\n", st)
	return false, err
}

// Handle seek <track> [verify].
func seek(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Seek")

	track, err := line.getNumber()
	if err != nil || track > 0xff {
		return false, errors.New("seek requires track number")
	}
	verify := false
	switch line.getWord() {
	case "":
	case "verify":
		verify = true
	default:
		return false, errors.New("seek option must be verify")
	}
	st, err := sys.Seek(byte(track), verify)
	fmt.Fprintf(output, "status %02X\n", st)
	return false, err
}

// Handle read <track> <sector>, sector dumped in hex.
func read(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Read")

	track, err := line.getNumber()
	if err != nil || track > 0xff {
		return false, errors.New("read requires track number")
	}
	sector, err := line.getNumber()
	if err != nil || sector > 0xff {
		return false, errors.New("read requires sector number")
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	res, err := sys.ReadSector(byte(track), byte(sector))
	if err != nil {
		return false, err
	}
	fmt.Fprintf(output, "status %02X, %d bytes\n", res.Status, len(res.Data))
	fmt.Fprint(output, hex.Dump(res.Data))
	return false, nil
}

// Next ID field under head.
func address(line *cmdLine, sys *core.System) (bool, error) {
	slog.Debug("Command Address")
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	res, err := sys.ReadAddress()
	if err != nil {
		return false, err
	}
	if len(res.Data) != 6 {
		fmt.Fprintf(output, "status %02X, no address\n", res.Status)
		return false, nil
	}
	id := res.Data
	fmt.Fprintf(output, "status %02X, track %d head %d sector %d size %d crc %02X%02X\n",
		res.Status, id[0], id[1], id[2], id[3], id[4], id[5])
	return false, nil
}

// Handle sectors <unit> <side> <track>, IDs taken from the bitstream.
func sectors(line *cmdLine, sys *core.System) (bool, error) {
	unit, err := line.getNumber()
	if err != nil {
		return false, errors.New("sectors requires drive number")
	}
	side, err := line.getNumber()
	if err != nil {
		return false, errors.New("sectors requires side")
	}
	track, err := line.getNumber()
	if err != nil {
		return false, errors.New("sectors requires track")
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	ids, err := sys.Sectors(unit, side, track)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		density := "FM"
		if id.IsMFM {
			density = "MFM"
		}
		crc := ""
		if id.HeaderCRCError {
			crc = " crc error"
		}
		fmt.Fprintf(output, "%-3s %3d %3d %3d %d%s\n", density, id.Track, id.Head, id.Sector, id.SizeCode, crc)
	}
	fmt.Fprintf(output, "%d sectors\n", len(ids))
	return false, nil
}

// Handle catalogue [unit].
func catalogue(line *cmdLine, sys *core.System) (bool, error) {
	unit, err := line.getOptNumber(0)
	if err != nil {
		return false, err
	}
	cat, err := sys.ReadCatalogue(unit)
	if err != nil {
		return false, err
	}
	fmt.Fprint(output, cat.String())
	return false, nil
}

// Handle run <cycles> [realtime].
func run(line *cmdLine, sys *core.System) (bool, error) {
	cycles, err := line.getNumber()
	if err != nil {
		return false, errors.New("run requires cycle count")
	}
	switch line.getWord() {
	case "":
		sys.Run(uint64(cycles))
	case "realtime":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		done, err := sys.RunRealtime(ctx, uint64(cycles))
		fmt.Fprintf(output, "%d cycles run\n", done)
		if err != nil && !errors.Is(err, context.Canceled) {
			return false, err
		}
	default:
		return false, errors.New("run option must be realtime")
	}
	return false, nil
}

// Handle commands that quit simulation.
func quit(_ *cmdLine, _ *core.System) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}
