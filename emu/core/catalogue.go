/*
 * fdcsim - DFS catalogue
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
	"strings"
)

const (
	catalogueSize = 256
	statusErrors  = 0x1c // Record errors and lost data
)

var ErrNotDFS = errors.New("not a DFS catalogue") // Sector 1 file count invalid.

// File entry from catalogue sectors.
type CatalogueEntry struct {
	Dir    byte
	Name   string
	Locked bool
	Load   uint32
	Exec   uint32
	Length uint32
	Start  int // First sector
}

// DFS catalogue from track 0 sectors 0 and 1.
type Catalogue struct {
	Title   string
	Cycle   byte
	Boot    int
	Sectors int
	Files   []CatalogueEntry
}

// Read DFS catalogue of drive as a host would, side 0 single density.
func (sys *System) ReadCatalogue(unit int) (*Catalogue, error) {
	if err := sys.Select(unit, 0, false); err != nil {
		return nil, err
	}
	if sys.images[unit] == nil {
		return nil, ErrNoImage
	}
	if _, err := sys.Restore(); err != nil {
		return nil, err
	}
	var sectors [2][]byte
	for i := range sectors {
		res, err := sys.ReadSector(0, byte(i))
		if err != nil {
			return nil, err
		}
		if res.Status&statusErrors != 0 || len(res.Data) != catalogueSize {
			return nil, fmt.Errorf("catalogue sector %d status %02x", i, res.Status)
		}
		sectors[i] = res.Data
	}
	return ParseCatalogue(sectors[0], sectors[1])
}

// Decode the two catalogue sectors.
func ParseCatalogue(names []byte, info []byte) (*Catalogue, error) {
	if len(names) < catalogueSize || len(info) < catalogueSize {
		return nil, ErrNotDFS
	}
	count := int(info[5])
	if count&7 != 0 {
		return nil, ErrNotDFS
	}
	cat := &Catalogue{
		Title:   strings.TrimRight(string(names[0:8])+string(info[0:4]), "\x00 "),
		Cycle:   info[4],
		Boot:    int(info[6]>>4) & 3,
		Sectors: int(info[6]&3)<<8 | int(info[7]),
	}
	for pos := 8; pos <= count; pos += 8 {
		name := names[pos : pos+8]
		attr := info[pos : pos+8]
		mixed := attr[6]
		cat.Files = append(cat.Files, CatalogueEntry{
			Dir:    name[7] & 0x7f,
			Name:   strings.TrimRight(string(name[0:7]), " \x00"),
			Locked: name[7]&0x80 != 0,
			Load:   word18(attr[0], attr[1], mixed>>2),
			Exec:   word18(attr[2], attr[3], mixed>>6),
			Length: word18(attr[4], attr[5], mixed>>4),
			Start:  int(mixed&3)<<8 | int(attr[7]),
		})
	}
	return cat, nil
}

// Two bytes plus two high bits.
func word18(lo byte, hi byte, top byte) uint32 {
	return uint32(top&3)<<16 | uint32(hi)<<8 | uint32(lo)
}

func (entry CatalogueEntry) String() string {
	lock := ' '
	if entry.Locked {
		lock = 'L'
	}
	return fmt.Sprintf("%c.%-7s %c %06X %06X %06X %03X", entry.Dir, entry.Name, lock,
		entry.Load, entry.Exec, entry.Length, entry.Start)
}

func (cat *Catalogue) String() string {
	var str strings.Builder
	fmt.Fprintf(&str, "%-12s cycle %02X boot %d sectors %d\n", cat.Title, cat.Cycle, cat.Boot, cat.Sectors)
	for _, entry := range cat.Files {
		str.WriteString(entry.String())
		str.WriteByte('\n')
	}
	return str.String()
}
