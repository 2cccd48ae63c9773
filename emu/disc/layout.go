/*
 * fdcsim - Standard track layouts
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

// Gap sizes used to lay out a track.
type Layout struct {
	MFM  bool
	Gap1 int // After index
	Gap2 int // Between ID and data
	Gap3 int // After data
}

// IBM style gaps used by Acorn DFS and ADFS.
func StandardLayout(mfm bool) Layout {
	if mfm {
		return Layout{MFM: true, Gap1: 60, Gap2: 22, Gap3: 24}
	}
	return Layout{Gap1: 16, Gap2: 11, Gap3: 21}
}

// Lay out a whole track from sector headers and data. Short data is padded
// with 0xE5. The CRC error flags in the sectors write bad CRCs.
func (d *Disc) FormatTrack(side int, track int, layout Layout, sectors []Sector) {
	b := d.BuildTrack(side, track)
	if layout.MFM {
		b.AppendRepeatMFMByte(0x4e, layout.Gap1)
	} else {
		b.AppendRepeatFMByte(0xff, layout.Gap1)
	}
	for _, s := range sectors {
		b.appendMark(layout.MFM, MarkID)
		b.appendData(layout.MFM, []byte{s.Track, s.Head, s.Sector, s.SizeCode})
		b.appendCRC(layout.MFM, s.HeaderCRCError)
		b.appendGap(layout.MFM, layout.Gap2)

		mark := MarkData
		if s.Deleted {
			mark = MarkDeleted
		}
		size := 128 << (s.SizeCode & 7)
		data := make([]byte, size)
		n := copy(data, s.Data)
		for i := n; i < size; i++ {
			data[i] = 0xe5
		}
		b.appendMark(layout.MFM, mark)
		b.appendData(layout.MFM, data)
		b.appendCRC(layout.MFM, s.DataCRCError)
		b.appendGap(layout.MFM, layout.Gap3)
	}
	if layout.MFM {
		b.FillMFM(0x4e)
	} else {
		b.FillFM(0xff)
	}
}

// Sync zeros then the mark.
func (b *TrackBuilder) appendMark(mfm bool, mark byte) {
	if mfm {
		b.AppendRepeatMFMByte(0x00, 12)
		b.AppendMFMSync()
		b.AppendMFMByte(mark)
		return
	}
	b.AppendRepeatFMByte(0x00, 6)
	b.AppendFMMark(mark)
}

func (b *TrackBuilder) appendData(mfm bool, data []byte) {
	for _, by := range data {
		if mfm {
			b.AppendMFMByte(by)
		} else {
			b.AppendFMData(by)
		}
	}
}

func (b *TrackBuilder) appendCRC(mfm bool, corrupt bool) {
	if corrupt {
		b.crc ^= 0x5a5a
	}
	b.AppendCRC(mfm)
}

func (b *TrackBuilder) appendGap(mfm bool, count int) {
	if mfm {
		b.AppendRepeatMFMByte(0x4e, count)
	} else {
		b.AppendRepeatFMByte(0xff, count)
	}
}
