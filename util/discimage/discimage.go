/*
 * fdcsim - Flat sector disc images
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

package discimage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcornwell/fdcsim/emu/disc"
)

type Format int

const (
	// Supported image formats.
	FormatSSD Format = 1 + iota // DFS single sided
	FormatDSD                   // DFS double sided, tracks interleaved
	FormatADF                   // ADFS single sided
	FormatADL                   // ADFS double sided, tracks interleaved

	sectorSize = 256
	maxTracks  = 80
)

var (
	ErrFormat    = errors.New("unknown image format")     // Format not recognized.
	ErrSize      = errors.New("image too large")          // More tracks than a disc holds.
	ErrTruncated = errors.New("image has partial sector") // Size not whole sectors.
)

type geometry struct {
	sides   int
	sectors int
	mfm     bool
}

var geometries = map[Format]geometry{
	FormatSSD: {sides: 1, sectors: 10},
	FormatDSD: {sides: 2, sectors: 10},
	FormatADF: {sides: 1, sectors: 16, mfm: true},
	FormatADL: {sides: 2, sectors: 16, mfm: true},
}

var formatNames = map[string]Format{
	"SSD": FormatSSD,
	"DSD": FormatDSD,
	"ADF": FormatADF,
	"ADM": FormatADF,
	"ADL": FormatADL,
}

// Parse format name.
func ParseFormat(name string) (Format, error) {
	format, ok := formatNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFormat, name)
	}
	return format, nil
}

// Guess format from file extension.
func FormatFromName(fileName string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

func (format Format) String() string {
	for name, f := range formatNames {
		if f == format && name != "ADM" {
			return name
		}
	}
	return "unknown"
}

// How an image is attached.
type Options struct {
	Format     Format
	Writable   bool // Save written tracks back to file
	DoubleStep bool // 40 track image in 80 track drive
}

// Disc backed by an image file.
type Image struct {
	file    *os.File
	name    string
	opts    Options
	geom    geometry
	tracks  int
	disc    *disc.Disc
	lastErr error
}

// Open image file and build its disc.
func Load(fileName string, opts Options) (*Image, error) {
	var err error
	if opts.Format == 0 {
		opts.Format, err = FormatFromName(fileName)
		if err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	d, tracks, err := decode(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	img := &Image{name: fileName, opts: opts, geom: geometries[opts.Format], tracks: tracks, disc: d}
	if !opts.Writable {
		d.SetWriteProtect(true)
		return img, nil
	}
	img.file, err = os.OpenFile(fileName, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	d.SetWriteTrackCallback(img.writeTrack)
	slog.Info("disc image attached", "file", fileName, "format", opts.Format.String(), "tracks", tracks)
	return img, nil
}

// Build disc from image bytes.
func Decode(data []byte, opts Options) (*disc.Disc, error) {
	d, _, err := decode(data, opts)
	return d, err
}

func decode(data []byte, opts Options) (*disc.Disc, int, error) {
	geom, ok := geometries[opts.Format]
	if !ok {
		return nil, 0, ErrFormat
	}
	if len(data)%sectorSize != 0 {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	trackBytes := geom.sides * geom.sectors * sectorSize
	tracks := (len(data) + trackBytes - 1) / trackBytes
	if tracks > maxTracks {
		return nil, 0, fmt.Errorf("%w: %d tracks", ErrSize, tracks)
	}
	if tracks == 0 {
		tracks = maxTracks
	}
	stride := 1
	if opts.DoubleStep {
		stride = 2
	}

	d := disc.NewDisc()
	layout := disc.StandardLayout(geom.mfm)
	for track := range tracks {
		for side := range geom.sides {
			sectors := make([]disc.Sector, geom.sectors)
			for sector := range sectors {
				sectors[sector] = disc.Sector{
					Track:    byte(track),
					Head:     byte(side),
					Sector:   byte(sector),
					SizeCode: 1,
					Data:     sectorData(data, geom.offset(track, side, sector)),
				}
			}
			d.FormatTrack(side, track*stride, layout, sectors)
		}
	}
	return d, tracks, nil
}

// Sector bytes, zero past end of image.
func sectorData(data []byte, offset int) []byte {
	sector := make([]byte, sectorSize)
	if offset < len(data) {
		copy(sector, data[offset:])
	}
	return sector
}

// File offset of a sector.
func (geom geometry) offset(track int, side int, sector int) int {
	return ((track*geom.sides+side)*geom.sectors + sector) * sectorSize
}

// Disc built from image.
func (img *Image) Disc() *disc.Disc {
	return img.disc
}

// Image file name.
func (img *Image) Name() string {
	return img.name
}

// Tracks in image.
func (img *Image) Tracks() int {
	return img.tracks
}

// Save flushed track sectors to file.
func (img *Image) writeTrack(side int, track int, t *disc.Track) error {
	if side >= img.geom.sides {
		return fmt.Errorf("%s: write to side %d of single sided image", img.name, side)
	}
	if img.opts.DoubleStep {
		if track%2 != 0 {
			return fmt.Errorf("%s: write to odd track %d of 40 track image", img.name, track)
		}
		track /= 2
	}
	for _, sector := range disc.FindSectors(t) {
		if sector.HeaderCRCError || sector.DataCRCError || sector.IsMFM != img.geom.mfm {
			slog.Warn("disc image: bad sector not saved", "file", img.name, "track", track, "sector", sector.Sector)
			continue
		}
		if int(sector.Track) != track || int(sector.Sector) >= img.geom.sectors || sector.ByteLength != sectorSize {
			slog.Warn("disc image: sector does not fit image", "file", img.name, "track", track,
				"id", fmt.Sprintf("%d/%d/%d", sector.Track, sector.Sector, sector.SizeCode))
			continue
		}
		offset := img.geom.offset(track, side, int(sector.Sector))
		if _, err := img.file.WriteAt(sector.Data, int64(offset)); err != nil {
			img.lastErr = err
			return err
		}
	}
	if track >= img.tracks {
		img.tracks = track + 1
	}
	return nil
}

// Flush pending track and close file.
func (img *Image) Close() error {
	img.disc.Flush()
	if img.file == nil {
		return img.lastErr
	}
	err := img.file.Close()
	img.file = nil
	if img.lastErr != nil {
		return img.lastErr
	}
	return err
}

// Flatten disc sectors into image bytes, missing sectors are zero.
func Encode(d *disc.Disc, opts Options, tracks int) ([]byte, error) {
	geom, ok := geometries[opts.Format]
	if !ok {
		return nil, ErrFormat
	}
	if tracks > maxTracks {
		return nil, ErrSize
	}
	stride := 1
	if opts.DoubleStep {
		stride = 2
	}
	data := make([]byte, tracks*geom.sides*geom.sectors*sectorSize)
	for track := range tracks {
		for side := range geom.sides {
			for _, sector := range disc.FindSectors(d.GetTrack(side, track*stride)) {
				if sector.HeaderCRCError || sector.DataCRCError || int(sector.Sector) >= geom.sectors ||
					sector.ByteLength != sectorSize {
					continue
				}
				copy(data[geom.offset(track, side, int(sector.Sector)):], sector.Data)
			}
		}
	}
	return data, nil
}
