// Copyright (C) 2018-2021  Nexedi SA and Contributors.
//                          Kirill Smelkov <kirr@nexedi.com>
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// You can also Link and Combine this program with other software covered by
// the terms of any of the Free Software licenses or any of the Open Source
// Initiative approved licenses and Convey the resulting work. Corresponding
// source of such a combination shall include the source code for all other
// software used.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.
// See https://www.nexedi.com/licensing for rationale and options.

package evt
// record transcoding between raw on-disk form and directly usable contents

import (
	"encoding/binary"
	"strings"
	"time"

	"lab.nexedi.com/kirr/go123/mem"

	"github.com/JackBro/evttools/sid"
	"github.com/JackBro/evttools/wstr"
)

// RecordData is the raw on-disk form of one record: the fixed header plus
// the variable tail. The tail carries the NUL-terminated UTF-16LE source
// and computer names, the 4-aligned SID blob, the message strings, the
// binary payload, alignment padding and the trailing copy of the record
// length.
type RecordData struct {
	Header RecordHeader
	Data   *mem.Buf // variable tail; len = Header.Length - RecordHeaderLen
}

// Release releases the memory of the variable tail.
//
// The caller must not use d.Data afterwards.
func (d *RecordData) Release() {
	if d.Data != nil {
		d.Data.Release()
		d.Data = nil
	}
}

// RecordContents is the decoded form of a record's variable data. It owns
// all its memory - nothing aliases the raw tail it was decoded from.
//
// Identification fields - record number, event ID, type, category - stay in
// RecordHeader: the caller fills them in before Encode and reads them from
// there after Decode.
type RecordContents struct {
	TimeGenerated time.Time
	TimeWritten   time.Time
	SourceName    string
	ComputerName  string
	UserSid       string // "" when the record carries no SID
	Strings       []string
	Data          []byte
}

// DecodeFlaws is a bitmask of independent problems found while decoding a
// record. Zero means the record decoded cleanly.
type DecodeFlaws uint32

const (
	DecodeInvalid        DecodeFlaws = 1 << iota // tail missing or shorter than any valid record
	DecodeSourceName                             // source name did not decode
	DecodeComputerName                           // computer name did not decode
	DecodeStrings                                // some message string did not decode
	DecodeSidOverflow                            // SID offset/length outside the tail
	DecodeSid                                    // SID blob did not decode
	DecodeDataOverflow                           // payload offset/length outside the tail
	DecodeLengthMismatch                         // trailing length copy differs from header
)

func (f DecodeFlaws) Error() string {
	bad := []string{}
	add := func(bit DecodeFlaws, text string) {
		if f&bit != 0 {
			bad = append(bad, text)
		}
	}
	add(DecodeInvalid, "invalid record")
	add(DecodeSourceName, "source name")
	add(DecodeComputerName, "computer name")
	add(DecodeStrings, "strings")
	add(DecodeSidOverflow, "SID overflow")
	add(DecodeSid, "SID")
	add(DecodeDataOverflow, "data overflow")
	add(DecodeLengthMismatch, "head/tail lengths mismatch")
	return "decode: bad " + strings.Join(bad, ", ")
}

// EncodeFlaws is a bitmask of problems found while encoding record contents.
type EncodeFlaws uint32

const (
	EncodeSourceName EncodeFlaws = 1 << iota
	EncodeComputerName
	EncodeStrings
	EncodeSid
)

func (f EncodeFlaws) Error() string {
	bad := []string{}
	add := func(bit EncodeFlaws, text string) {
		if f&bit != 0 {
			bad = append(bad, text)
		}
	}
	add(EncodeSourceName, "source name")
	add(EncodeComputerName, "computer name")
	add(EncodeStrings, "strings")
	add(EncodeSid, "SID")
	return "encode: bad " + strings.Join(bad, ", ")
}

// Decode extracts the variable data of a record into directly usable form.
//
// Decoding is best-effort: independent problems accumulate as flaw bits and
// whatever was decodable is still returned, so a partly corrupt record
// keeps its readable fields. On-disk offsets count from the record start
// and are converted to tail positions here; a converted range that leaves
// the tail is flagged as overflow instead of being read.
func Decode(d *RecordData) (*RecordContents, DecodeFlaws) {
	c := &RecordContents{}
	if d.Data == nil || len(d.Data.Data) < RecordMinLen-RecordHeaderLen {
		return c, DecodeInvalid
	}

	hdr := &d.Header
	tail := d.Data.Data
	limit := int64(len(tail)) - 4 // tail minus the trailing length copy
	flaws := DecodeFlaws(0)

	c.TimeGenerated = time.Unix(int64(hdr.TimeGenerated), 0).UTC()
	c.TimeWritten = time.Unix(int64(hdr.TimeWritten), 0).UTC()

	// the names sit back-to-back at the beginning of the tail; if the
	// source name does not decode the computer name position is unknown
	// and it is not attempted.
	s, n, err := wstr.Decode(tail, len(tail))
	if err != nil {
		flaws |= DecodeSourceName
	} else {
		c.SourceName = s
		s, _, err = wstr.Decode(tail[n:], len(tail)-n)
		if err != nil {
			flaws |= DecodeComputerName
		} else {
			c.ComputerName = s
		}
	}

	if hdr.NumStrings > 0 {
		off := int64(hdr.StringOffset) - RecordHeaderLen
		if off < 0 || off > int64(len(tail)) {
			flaws |= DecodeStrings
		} else {
			for i := uint16(0); i < hdr.NumStrings; i++ {
				s, n, err := wstr.Decode(tail[off:], int(int64(len(tail))-off))
				if err != nil {
					flaws |= DecodeStrings
					break
				}
				c.Strings = append(c.Strings, s)
				off += int64(n)
			}
		}
	}

	if hdr.UserSidLength > 0 {
		off := int64(hdr.UserSidOffset) - RecordHeaderLen
		l := int64(hdr.UserSidLength)
		if off < 0 || off+l > limit {
			flaws |= DecodeSidOverflow
		} else {
			s, err := sid.String(tail[off : off+l])
			if err != nil {
				flaws |= DecodeSid
			} else {
				c.UserSid = s
			}
		}
	}

	if hdr.DataLength > 0 {
		off := int64(hdr.DataOffset) - RecordHeaderLen
		l := int64(hdr.DataLength)
		if off < 0 || off+l > limit {
			flaws |= DecodeDataOverflow
		} else {
			c.Data = append([]byte(nil), tail[off:off+l]...)
		}
	}

	if binary.LittleEndian.Uint32(tail[len(tail)-4:]) != hdr.Length {
		flaws |= DecodeLengthMismatch
	}

	return c, flaws
}

// Encode packs contents into the on-disk record form.
//
// It builds the variable tail and fills the derived header fields: times,
// string count and offset, SID and payload geometry, and the total record
// length rounded up to a multiple of 4. The identification fields of
// out.Header are left untouched for the caller. An absent SID encodes as
// both SID offset and length zero.
//
// Unlike Decode, encoding is all-or-nothing: on any conversion failure out
// is left unmodified and the flaws tell which parts did not convert.
func Encode(c *RecordContents, out *RecordData) EncodeFlaws {
	flaws := EncodeFlaws(0)
	tail := []byte{}

	b, err := wstr.Encode(c.SourceName)
	if err != nil {
		flaws |= EncodeSourceName
	} else {
		tail = append(tail, b...)
	}
	b, err = wstr.Encode(c.ComputerName)
	if err != nil {
		flaws |= EncodeComputerName
	} else {
		tail = append(tail, b...)
	}

	hdr := out.Header
	hdr.TimeGenerated = uint32(c.TimeGenerated.Unix())
	hdr.TimeWritten = uint32(c.TimeWritten.Unix())

	if c.UserSid == "" {
		hdr.UserSidOffset = 0
		hdr.UserSidLength = 0
	} else {
		b, err := sid.Parse(c.UserSid)
		if err != nil {
			flaws |= EncodeSid
		} else {
			tail = pad4(tail) // the SID blob is 4-aligned inside the record
			hdr.UserSidOffset = RecordHeaderLen + uint32(len(tail))
			hdr.UserSidLength = uint32(len(b))
			tail = append(tail, b...)
		}
	}

	hdr.StringOffset = RecordHeaderLen + uint32(len(tail))
	hdr.NumStrings = uint16(len(c.Strings))
	for _, s := range c.Strings {
		b, err := wstr.Encode(s)
		if err != nil {
			flaws |= EncodeStrings
			break
		}
		tail = append(tail, b...)
	}

	if flaws != 0 {
		return flaws
	}

	hdr.DataOffset = RecordHeaderLen + uint32(len(tail))
	hdr.DataLength = uint32(len(c.Data))
	tail = append(tail, c.Data...)

	hdr.Length = round4(RecordHeaderLen + uint32(len(tail)) + 4)
	tail = pad4(tail)
	tail = binary.LittleEndian.AppendUint32(tail, hdr.Length)

	buf := mem.BufAlloc(len(tail))
	copy(buf.Data, tail)
	out.Header = hdr
	out.Data = buf
	return 0
}
