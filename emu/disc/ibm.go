/*
 * fdcsim - IBM FM/MFM encoding and CRC
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

const (
	// Address marks.
	MarkIndex   byte = 0xFC
	MarkID      byte = 0xFE
	MarkData    byte = 0xFB
	MarkDeleted byte = 0xF8

	// FM clock patterns with missing clocks for marks.
	MarkClocks  byte = 0xC7
	IndexClocks byte = 0xD7
	DataClocks  byte = 0xFF

	// MFM sync bytes with a missing clock.
	MFMSyncA1 uint16 = 0x4489
	MFMSyncC2 uint16 = 0x5224

	// Three A1 sync bytes in a row.
	MFMSyncPattern uint64 = 0x448944894489

	crcPoly uint16 = 0x1021
	crcFM   uint16 = 0xffff
	crcMFM  uint16 = 0xcdb4 // crcFM after three A1 sync bytes.
)

// Encode FM clock and data bits as 32 2us cells, first cell in bit 31.
// Each bit takes four cells: clock, gap, data, gap.
func FMTo2usPulses(clocks byte, data byte) uint32 {
	var pulses uint32
	for i := 7; i >= 0; i-- {
		pulses <<= 4
		if (clocks>>i)&1 != 0 {
			pulses |= 0x8
		}
		if (data>>i)&1 != 0 {
			pulses |= 0x2
		}
	}
	return pulses
}

// Decode 32 cells of FM. Iffy is set when a pulse falls off the 4 cell grid.
func PulsesToFM(pulses uint32) (clocks byte, data byte, iffy bool) {
	for i := 7; i >= 0; i-- {
		nibble := (pulses >> (uint(i) * 4)) & 0xf
		clocks <<= 1
		data <<= 1
		if nibble&0x8 != 0 {
			clocks |= 1
		}
		if nibble&0x2 != 0 {
			data |= 1
		}
		if nibble&0x5 != 0 {
			iffy = true
		}
	}
	return clocks, data, iffy
}

// Encode a byte as 16 MFM cells. A clock goes between two zero bits.
// Returns the last data bit for the next call.
func MFMToPulses(lastBit bool, data byte) (bool, uint16) {
	var pulses uint16
	for i := 7; i >= 0; i-- {
		bit := (data>>i)&1 != 0
		pulses <<= 2
		if bit {
			pulses |= 0x1
		} else if !lastBit {
			pulses |= 0x2
		}
		lastBit = bit
	}
	return lastBit, pulses
}

// Decode 16 MFM cells, clock cells are ignored.
func PulsesToMFM(pulses uint16) byte {
	var data byte
	for i := 7; i >= 0; i-- {
		data <<= 1
		if (pulses>>(uint(i)*2))&1 != 0 {
			data |= 1
		}
	}
	return data
}

// Starting CRC, MFM has the three A1 sync bytes already included.
func CRCInit(mfm bool) uint16 {
	if mfm {
		return crcMFM
	}
	return crcFM
}

// Add one byte to CRC-16/CCITT.
func CRCAddByte(crc uint16, data byte) uint16 {
	crc ^= uint16(data) << 8
	for range 8 {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ crcPoly
		} else {
			crc <<= 1
		}
	}
	return crc
}

// Add a run of bytes to CRC.
func CRCAddBytes(crc uint16, data []byte) uint16 {
	for _, by := range data {
		crc = CRCAddByte(crc, by)
	}
	return crc
}
