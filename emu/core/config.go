/*
 * fdcsim - System configuration
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
	"errors"
	"fmt"
	"strconv"
	"strings"

	config "github.com/rcornwell/fdcsim/config/configparser"
	"github.com/rcornwell/fdcsim/emu/disc"
	"github.com/rcornwell/fdcsim/emu/wdfdc"
	"github.com/rcornwell/fdcsim/util/discimage"
)

const spindownDefault = -1

// Drive settings from configuration.
type DriveConfig struct {
	File      string           // Image attached at start
	Format    discimage.Format // Zero to use file extension
	Writable  bool             // Written tracks saved to image
	Track40   bool             // 40 track image, drive double steps
	BadTracks []int
}

// Whole system settings.
type Config struct {
	Variant  wdfdc.Variant
	Spindown int // Revolutions, -1 for controller default
	Drives   [NumDrives]DriveConfig
}

var current = DefaultConfig()

// Model B 1770 with two empty writable drives.
func DefaultConfig() Config {
	cfg := Config{Variant: wdfdc.WD1770, Spindown: spindownDefault}
	for i := range cfg.Drives {
		cfg.Drives[i].Writable = true
	}
	return cfg
}

// Settings collected from configuration files so far.
func CurrentConfig() Config {
	return current
}

// Discard loaded settings, used by tests.
func ResetConfig() {
	current = DefaultConfig()
}

// Image options for a drive.
func (dc DriveConfig) options() discimage.Options {
	return discimage.Options{Format: dc.Format, Writable: dc.Writable, DoubleStep: dc.Track40}
}

// register configuration lines on initialize.
func init() {
	config.RegisterSwitch("WD1770", func(int, string, []config.Option) error {
		current.Variant = wdfdc.WD1770
		return nil
	})
	config.RegisterSwitch("WD1772", func(int, string, []config.Option) error {
		current.Variant = wdfdc.WD1772
		return nil
	})
	config.RegisterModel("DRIVE", config.TypeModel, createDrive)
	config.RegisterModel("BADTRACKS", config.TypeModel, createBadTracks)
	config.RegisterFile("SPINDOWN", createSpindown)
}

func checkUnit(unit int) error {
	if unit < 0 || unit >= NumDrives {
		return fmt.Errorf("drive %d out of range", unit)
	}
	return nil
}

// DRIVE <n> FILE=<name> [FORMAT=<type>] [WP|WRITE] [TRACK40].
func createDrive(unit int, _ string, options []config.Option) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	dc := DriveConfig{Writable: true, BadTracks: current.Drives[unit].BadTracks}
	for _, opt := range options {
		switch opt.Name {
		case "FILE":
			if opt.EqualOpt == "" {
				return errors.New("file option requires name")
			}
			dc.File = opt.EqualOpt
		case "FORMAT":
			format, err := discimage.ParseFormat(opt.EqualOpt)
			if err != nil {
				return err
			}
			dc.Format = format
		case "WP", "RO":
			dc.Writable = false
		case "WRITE", "RW":
			dc.Writable = true
		case "TRACK40":
			dc.Track40 = true
		default:
			return errors.New("invalid drive option: " + opt.Name)
		}
	}
	current.Drives[unit] = dc
	return nil
}

// BADTRACKS <n> TRACKS=<t1>[,<t2>].
func createBadTracks(unit int, _ string, options []config.Option) error {
	if err := checkUnit(unit); err != nil {
		return err
	}
	var tracks []int
	for _, opt := range options {
		if opt.Name != "TRACKS" {
			return errors.New("invalid bad track option: " + opt.Name)
		}
		for _, value := range append([]string{opt.EqualOpt}, opt.Value...) {
			if value == "" {
				continue
			}
			track, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("bad track %q: %w", value, err)
			}
			if track < 0 || track >= disc.MaxTracks {
				return fmt.Errorf("bad track %d out of range", track)
			}
			tracks = append(tracks, track)
		}
	}
	if len(tracks) == 0 || len(tracks) > 2 {
		return errors.New("bad tracks requires one or two tracks")
	}
	current.Drives[unit].BadTracks = tracks
	return nil
}

// SPINDOWN <revolutions>|NOW|NEVER.
func createSpindown(_ int, value string, _ []config.Option) error {
	switch strings.ToUpper(value) {
	case "NOW":
		current.Spindown = wdfdc.SpindownNow
	case "NEVER":
		current.Spindown = wdfdc.SpindownNever
	default:
		revs, err := strconv.Atoi(value)
		if err != nil || revs < 0 || revs > wdfdc.SpindownNever {
			return fmt.Errorf("spindown %q not a revolution count", value)
		}
		current.Spindown = revs
	}
	return nil
}
