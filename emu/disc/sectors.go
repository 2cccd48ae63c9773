/*
 * fdcsim - Sector discovery
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

// Sector recovered from a track's pulses.
type Sector struct {
	IsMFM          bool
	Track          byte // Header fields
	Head           byte
	Sector         byte
	SizeCode       byte
	HeaderCRCError bool
	IDCell         int // Cell following ID mark
	DataCell       int // Cell following data mark, -1 if none
	Deleted        bool
	ByteLength     int
	DataCRCError   bool
	Data           []byte
}

type mark struct {
	cell  int  // First cell after mark byte
	mfm   bool // Found with MFM sync
	value byte
}

var sectorSizes = []int{128, 256, 512, 1024, 2048}

func isDataMark(value byte) bool {
	return value >= MarkDeleted && value <= MarkData
}

func cellsPerByte(mfm bool) int {
	if mfm {
		return 16
	}
	return 32
}

// Scan track for FM marks and MFM sync sequences.
func scanMarks(t *Track) []mark {
	var marks []mark
	var sr uint64
	cells := t.Cells()
	for i := 0; i < cells; i++ {
		sr = (sr << 1) | t.Cell(i)
		clocks, data, iffy := PulsesToFM(uint32(sr))
		if !iffy && clocks == MarkClocks && (data == MarkID || isDataMark(data)) {
			marks = append(marks, mark{cell: i + 1, value: data})
			continue
		}
		if sr&0xffffffffffff != MFMSyncPattern || i+16 >= cells {
			continue
		}
		// Mark byte follows the sync.
		var pulses uint16
		for range 16 {
			i++
			sr = (sr << 1) | t.Cell(i)
			pulses = (pulses << 1) | uint16(sr&1)
		}
		value := PulsesToMFM(pulses)
		if value == MarkID || isDataMark(value) {
			marks = append(marks, mark{cell: i + 1, mfm: true, value: value})
		}
	}
	return marks
}

// Decode count bytes starting at cell, ok is false if track ends first.
func readBytes(t *Track, cell int, count int, mfm bool) ([]byte, bool) {
	step := cellsPerByte(mfm)
	if cell+count*step > t.Cells() {
		return nil, false
	}
	out := make([]byte, count)
	for n := range count {
		var pulses uint32
		for range step {
			pulses = (pulses << 1) | uint32(t.Cell(cell))
			cell++
		}
		if mfm {
			out[n] = PulsesToMFM(uint16(pulses))
		} else {
			_, out[n], _ = PulsesToFM(pulses)
		}
	}
	return out, true
}

// Return headers of all sectors on track.
func FindSectorIDs(t *Track) []Sector {
	return findSectors(t, scanMarks(t), false)
}

// Return sectors with their data.
func FindSectors(t *Track) []Sector {
	return findSectors(t, scanMarks(t), true)
}

func findSectors(t *Track, marks []mark, withData bool) []Sector {
	var sectors []Sector
	for i, m := range marks {
		if m.value != MarkID {
			continue
		}
		header, ok := readBytes(t, m.cell, 6, m.mfm)
		if !ok {
			continue
		}
		crc := CRCAddByte(CRCInit(m.mfm), MarkID)
		crc = CRCAddBytes(crc, header[:4])
		sector := Sector{
			IsMFM:          m.mfm,
			Track:          header[0],
			Head:           header[1],
			Sector:         header[2],
			SizeCode:       header[3],
			HeaderCRCError: crc != uint16(header[4])<<8|uint16(header[5]),
			IDCell:         m.cell,
			DataCell:       -1,
		}
		if withData {
			findData(t, marks[i+1:], &sector)
		}
		sectors = append(sectors, sector)
	}
	return sectors
}

// Find data mark after ID and recover payload.
func findData(t *Track, marks []mark, sector *Sector) {
	var dataMark *mark
	end := t.Cells()
	for i := range marks {
		if marks[i].value == MarkID {
			end = marks[i].cell
			break
		}
		if dataMark == nil && marks[i].mfm == sector.IsMFM && isDataMark(marks[i].value) {
			dataMark = &marks[i]
		}
	}
	if dataMark == nil {
		return
	}
	if dataMark.cell >= end {
		return
	}

	sector.DataCell = dataMark.cell
	sector.Deleted = dataMark.value == MarkDeleted || dataMark.value == MarkDeleted+1
	gap := (end - dataMark.cell) / cellsPerByte(sector.IsMFM)
	size := guessSize(gap)

	var first []byte
	for ; size >= sectorSizes[0]; size /= 2 {
		data, ok := readBytes(t, dataMark.cell, size+2, sector.IsMFM)
		if !ok {
			continue
		}
		crc := CRCAddByte(CRCInit(sector.IsMFM), dataMark.value)
		crc = CRCAddBytes(crc, data[:size])
		if first == nil {
			first = data[:size]
		}
		if crc == uint16(data[size])<<8|uint16(data[size+1]) {
			sector.ByteLength = size
			sector.Data = data[:size]
			return
		}
	}
	sector.DataCRCError = true
	sector.Data = first
	sector.ByteLength = len(first)
}

// Nearest sector size that fits in gap bytes along with the CRC.
func guessSize(gap int) int {
	best := sectorSizes[0]
	for _, size := range sectorSizes {
		if abs(gap-size) < abs(gap-best) {
			best = size
		}
	}
	for best > sectorSizes[0] && best+2 > gap {
		best /= 2
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
