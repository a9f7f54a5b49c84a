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
// on-disk structures definition + codec for them

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const (
	// Magic marks the file header, every record and the EOF record.
	// On disk it reads as "LfLe".
	Magic = 0x654c664c

	// on-disk sizes
	HeaderLen       = 0x30 // file header
	RecordHeaderLen = 56   // fixed part of a record
	EOFLen          = 0x28 // EOF record

	// RecordMinLen is the shortest well-formed record: fixed header, empty
	// NUL-terminated source and computer names, trailing length copy.
	RecordMinLen = RecordHeaderLen + 2 + 2 + 4

	// file format version
	majorVersion = 1
	minorVersion = 1
)

// Header flags.
const (
	FlagDirty   = 0x0001 // header changes not yet synced to disk
	FlagWrap    = 0x0002 // records have wrapped over the end of the file
	FlagLogFull = 0x0004 // an append was refused because the log was full
	FlagArchive = 0x0008 // user marked the log for archival
)

// Event types.
const (
	EventError        = 0x0001
	EventWarning      = 0x0002
	EventInformation  = 0x0004
	EventAuditSuccess = 0x0008
	EventAuditFailure = 0x0010
)

// EOF record magic words.
const (
	eofMagic1 = 0x11111111
	eofMagic2 = 0x22222222
	eofMagic3 = 0x33333333
	eofMagic4 = 0x44444444
)

// Header represents the fixed header at the beginning of a log file.
type Header struct {
	HeaderSize          uint32 // must be HeaderLen
	Signature           uint32 // must be Magic
	MajorVersion        uint32
	MinorVersion        uint32
	StartOffset         uint32 // offset of the oldest record
	EndOffset           uint32 // offset of the EOF record
	CurrentRecordNumber uint32 // number the next appended record gets
	OldestRecordNumber  uint32 // number of the oldest record; 0 when the log is empty
	MaxSize             uint32 // size of the log file
	Flags               uint32
	Retention           uint32 // retention period in seconds; unused by this engine
	EndHeaderSize       uint32 // must be HeaderLen
}

// RecordHeader represents the fixed part of an event record.
//
// StringOffset, UserSidOffset and DataOffset count from the start of the
// record, i.e. the variable tail begins at offset RecordHeaderLen.
type RecordHeader struct {
	Length              uint32 // whole record length; multiple of 4, repeated at record end
	Signature           uint32 // must be Magic
	RecordNumber        uint32
	TimeGenerated       uint32 // Unix seconds
	TimeWritten         uint32 // Unix seconds
	EventID             uint32
	EventType           uint16
	NumStrings          uint16
	EventCategory       uint16
	ReservedFlags       uint16
	ClosingRecordNumber uint32
	StringOffset        uint32
	UserSidLength       uint32
	UserSidOffset       uint32
	DataLength          uint32
	DataOffset          uint32
}

// EOFRecord represents the sentinel that terminates the chain of records.
// Its counters mirror the file header so that scavenging tools can recover
// the log geometry when the header is lost.
type EOFRecord struct {
	Length              uint32 // must be EOFLen
	One                 uint32 // eofMagic1
	Two                 uint32 // eofMagic2
	Three               uint32 // eofMagic3
	Four                uint32 // eofMagic4
	BeginRecord         uint32 // copy of Header.StartOffset
	EndRecord           uint32 // copy of Header.EndOffset
	CurrentRecordNumber uint32
	OldestRecordNumber  uint32
	LengthEnd           uint32 // must be EOFLen
}

// LogError is returned on log read / decode errors.
type LogError struct {
	Pos  int64  // position of the structure the error is about
	Subj string // about what .Err is
	Err  error  // actual error
}

func (e *LogError) Error() string {
	return fmt.Sprintf("log @%v: %v: %v", e.Pos, e.Subj, e.Err)
}

func (e *LogError) Cause() error  { return e.Err }
func (e *LogError) Unwrap() error { return e.Err }

// checkErrAt creates LogError for a structure located at pos.
func checkErrAt(pos int64, format string, a ...interface{}) error {
	return &LogError{pos, "check", fmt.Errorf(format, a...)}
}

// --- field table codec ---

// field describes one fixed-width little-endian word of an on-disk structure.
//
// The structure itself is captured by the get/set closures, so one table
// describes both encoding and decoding of its structure.
type field struct {
	wid int // 1, 2, 4 or 8
	get func() uint64
	set func(uint64)
}

// fieldTable is an ordered run of fields as they appear on disk.
//
// Subslicing a table gives partial load/store over a contiguous field range.
type fieldTable []field

func f16(p *uint16) field {
	return field{2,
		func() uint64 { return uint64(*p) },
		func(v uint64) { *p = uint16(v) }}
}

func f32(p *uint32) field {
	return field{4,
		func() uint64 { return uint64(*p) },
		func(v uint64) { *p = uint32(v) }}
}

// wsize returns the total on-disk size of the fields.
func (t fieldTable) wsize() int {
	n := 0
	for _, f := range t {
		n += f.wid
	}
	return n
}

// load reads the fields from r in table order.
func (t fieldTable) load(r io.Reader) error {
	var b [8]byte
	for _, f := range t {
		x := b[:f.wid]
		_, err := io.ReadFull(r, x)
		if err != nil {
			return err
		}
		var v uint64
		switch f.wid {
		case 1:
			v = uint64(x[0])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(x))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(x))
		case 8:
			v = binary.LittleEndian.Uint64(x)
		default:
			panic("field: invalid width")
		}
		f.set(v)
	}
	return nil
}

// store writes the fields to w in table order.
func (t fieldTable) store(w io.Writer) error {
	var b [8]byte
	for _, f := range t {
		x := b[:f.wid]
		v := f.get()
		switch f.wid {
		case 1:
			x[0] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(x, uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(x, uint32(v))
		case 8:
			binary.LittleEndian.PutUint64(x, v)
		default:
			panic("field: invalid width")
		}
		_, err := w.Write(x)
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Header) fields() fieldTable {
	return fieldTable{
		f32(&h.HeaderSize),
		f32(&h.Signature),
		f32(&h.MajorVersion),
		f32(&h.MinorVersion),
		f32(&h.StartOffset),
		f32(&h.EndOffset),
		f32(&h.CurrentRecordNumber),
		f32(&h.OldestRecordNumber),
		f32(&h.MaxSize),
		f32(&h.Flags),
		f32(&h.Retention),
		f32(&h.EndHeaderSize),
	}
}

func (rh *RecordHeader) fields() fieldTable {
	return fieldTable{
		f32(&rh.Length),
		f32(&rh.Signature),
		f32(&rh.RecordNumber),
		f32(&rh.TimeGenerated),
		f32(&rh.TimeWritten),
		f32(&rh.EventID),
		f16(&rh.EventType),
		f16(&rh.NumStrings),
		f16(&rh.EventCategory),
		f16(&rh.ReservedFlags),
		f32(&rh.ClosingRecordNumber),
		f32(&rh.StringOffset),
		f32(&rh.UserSidLength),
		f32(&rh.UserSidOffset),
		f32(&rh.DataLength),
		f32(&rh.DataOffset),
	}
}

func (e *EOFRecord) fields() fieldTable {
	return fieldTable{
		f32(&e.Length),
		f32(&e.One),
		f32(&e.Two),
		f32(&e.Three),
		f32(&e.Four),
		f32(&e.BeginRecord),
		f32(&e.EndRecord),
		f32(&e.CurrentRecordNumber),
		f32(&e.OldestRecordNumber),
		f32(&e.LengthEnd),
	}
}

// --- file header ---

// NewHeader returns the header of a fresh empty log occupying size bytes.
func NewHeader(size uint32) Header {
	return Header{
		HeaderSize:          HeaderLen,
		Signature:           Magic,
		MajorVersion:        majorVersion,
		MinorVersion:        minorVersion,
		StartOffset:         HeaderLen,
		EndOffset:           HeaderLen,
		CurrentRecordNumber: 1,
		OldestRecordNumber:  0,
		MaxSize:             size,
		EndHeaderSize:       HeaderLen,
	}
}

// Load reads and decodes the file header from r.
func (h *Header) Load(r io.Reader) error {
	return noEOF(h.fields().load(r))
}

// Store encodes and writes the file header to w.
func (h *Header) Store(w io.Writer) error {
	return h.fields().store(w)
}

// HeaderFlaws is a bitmask of problems found in a file header.
type HeaderFlaws uint32

const (
	HeaderBadLength HeaderFlaws = 1 << iota
	HeaderBadSignature
	HeaderBadVersion
)

func (f HeaderFlaws) Error() string {
	bad := []string{}
	if f&HeaderBadLength != 0 {
		bad = append(bad, "length")
	}
	if f&HeaderBadSignature != 0 {
		bad = append(bad, "signature")
	}
	if f&HeaderBadVersion != 0 {
		bad = append(bad, "version")
	}
	return "invalid header: bad " + strings.Join(bad, ", ")
}

// Check verifies the static header fields and reports all problems found
// at once as HeaderFlaws.
func (h *Header) Check() error {
	f := HeaderFlaws(0)
	if h.HeaderSize != HeaderLen || h.EndHeaderSize != HeaderLen {
		f |= HeaderBadLength
	}
	if h.Signature != Magic {
		f |= HeaderBadSignature
	}
	if h.MajorVersion != majorVersion || h.MinorVersion != minorVersion {
		f |= HeaderBadVersion
	}
	if f != 0 {
		return f
	}
	return nil
}

// Dirty reports whether the header carries the dirty flag, i.e. whether the
// file was not closed properly by its last writer.
func (h *Header) Dirty() bool {
	return h.Flags&FlagDirty != 0
}

// --- EOF record ---

// eof returns the EOF record mirroring h.
func (h *Header) eof() EOFRecord {
	return EOFRecord{
		Length:              EOFLen,
		One:                 eofMagic1,
		Two:                 eofMagic2,
		Three:               eofMagic3,
		Four:                eofMagic4,
		BeginRecord:         h.StartOffset,
		EndRecord:           h.EndOffset,
		CurrentRecordNumber: h.CurrentRecordNumber,
		OldestRecordNumber:  h.OldestRecordNumber,
		LengthEnd:           EOFLen,
	}
}

// check verifies the magic words and the trailing length copy.
// .Length is assumed to be already verified by the caller.
func (e *EOFRecord) check() error {
	if e.One != eofMagic1 || e.Two != eofMagic2 ||
		e.Three != eofMagic3 || e.Four != eofMagic4 {
		return fmt.Errorf("invalid EOF record magic")
	}
	if e.LengthEnd != EOFLen {
		return fmt.Errorf("EOF record head/tail lengths mismatch: %v, %v", e.Length, e.LengthEnd)
	}
	return nil
}
