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

// Package evt provides access to legacy Windows event log files (.evt).
//
// A log file is circular: the fixed-size file starts with a 48-byte header,
// event records are laid out one after another in the rest of the file, and
// an EOF record sits after the newest event record. When the file fills up,
// writing wraps over the beginning of the data region and the oldest
// records get overwritten. All on-disk words are little-endian; the header,
// every record and the EOF record carry magic signatures and redundant
// length copies, which is what makes scavenging damaged files possible.
//
// Log is the engine over one such file: create or open, sequential record
// reads, appends with optional overwriting of old records, proper close.
// Decode and Encode transcode between the raw record form (RecordData) and
// directly usable contents (RecordContents). Search locates structure
// signatures in files whose header was lost.
//
// The engine keeps a single cursor and is not safe for concurrent use.
//
// See https://learn.microsoft.com/en-us/windows/win32/eventlog/event-log-file-format
// for the reference description of the format.
package evt

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"lab.nexedi.com/kirr/go123/mem"
	"lab.nexedi.com/kirr/go123/xerr"

	"github.com/JackBro/evttools/fileio"
)

// Log is an event log engine over one file.
type Log struct {
	file   fileio.File
	header Header

	changed bool // in-memory state differs from what is on disk
	closed  bool

	// length of the record at StartOffset; 0 = not yet known.
	// Eviction needs it to know how far to advance the start of the log.
	oldestLen uint32
}

var (
	// ErrLogFull is returned by Append when the record does not fit and
	// overwriting old records is not allowed (or not possible).
	ErrLogFull = errors.New("log is full")

	// ErrNumberOverflow is returned by Append when the 32-bit record
	// counter cannot go past the requested record number.
	ErrNumberOverflow = errors.New("record number overflow")

	// ErrClosed is returned by operations on an already closed log.
	ErrClosed = errors.New("log is closed")
)

// wrapFill is the pattern filling the dead span between the last record
// before the wrap point and the file end.
var wrapFill = [4]byte{0x27, 0, 0, 0}

// Create initializes an empty log of the given file size over f.
//
// The file is truncated to size and receives a fresh dirty header. The
// caller keeps ownership of f and must keep it open while the log is used.
func Create(f fileio.File, size uint32) (_ *Log, err error) {
	defer xerr.Contextf(&err, "evt: create")

	if size < HeaderLen+EOFLen {
		return nil, fmt.Errorf("size %d is too small to hold the header and the EOF record", size)
	}
	err = f.Truncate(int64(size))
	if err != nil {
		return nil, err
	}

	l := &Log{file: f, header: NewHeader(size)}
	l.header.Flags = FlagDirty
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}
	err = l.header.Store(f)
	if err != nil {
		return nil, err
	}
	l.changed = true

	// leave the cursor at the (empty) data region
	_, err = f.Seek(HeaderLen, io.SeekStart)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Open opens a log over an existing file and validates its header.
//
// The cursor is positioned at the oldest record.
func Open(f fileio.File) (_ *Log, err error) {
	defer xerr.Contextf(&err, "evt: open")

	flen, err := f.Size()
	if err != nil {
		return nil, err
	}
	if flen < HeaderLen {
		return nil, checkErrAt(0, "file is too small (%d bytes)", flen)
	}

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}
	l := &Log{file: f}
	err = l.header.Load(f)
	if err != nil {
		return nil, err
	}
	err = l.header.Check()
	if err != nil {
		return nil, &LogError{0, "check", err}
	}
	h := &l.header
	if !(HeaderLen <= h.StartOffset && int64(h.StartOffset) <= flen &&
		HeaderLen <= h.EndOffset && int64(h.EndOffset) <= flen) {
		return nil, checkErrAt(0, "offsets out of range: start %#x, end %#x, file %#x bytes",
			h.StartOffset, h.EndOffset, flen)
	}

	_, err = f.Seek(int64(h.StartOffset), io.SeekStart)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Header returns a copy of the in-memory file header.
func (l *Log) Header() Header {
	return l.header
}

// Rewind positions the cursor at the oldest record.
func (l *Log) Rewind() error {
	if l.closed {
		return ErrClosed
	}
	_, err := l.file.Seek(int64(l.header.StartOffset), io.SeekStart)
	return err
}

// free returns how much room the data region has for new writes.
func (l *Log) free() int64 {
	h := &l.header
	if h.OldestRecordNumber == 0 {
		return int64(h.MaxSize) - HeaderLen
	}
	start, end := int64(h.StartOffset), int64(h.EndOffset)
	if start > end {
		return start - end
	}
	return (int64(h.MaxSize) - end) + (start - HeaderLen)
}

// fits reports whether a record of the given total length, followed by the
// EOF record, fits into the free room without evicting anything. The wrap
// accounting matches prepareWrite: a dead span before the wrap point counts
// as consumed.
func (l *Log) fits(recLen uint32) bool {
	h := &l.header
	need := int64(recLen) + EOFLen
	endSpace := int64(h.MaxSize) - int64(h.EndOffset)
	if endSpace < RecordHeaderLen {
		need += endSpace
	}
	return l.free() >= need
}

// loadRecHead reads length/signature/record number of the record at pos.
func (l *Log) loadRecHead(pos int64) (RecordHeader, error) {
	rh := RecordHeader{}
	_, err := l.file.Seek(pos, io.SeekStart)
	if err != nil {
		return rh, err
	}
	err = rh.fields()[:3].load(l.file)
	if err != nil {
		return rh, noEOF(err)
	}
	if rh.Signature != Magic {
		return rh, checkErrAt(pos, "bad record signature %#010x", rh.Signature)
	}
	return rh, nil
}

// evictOldest frees the oldest record, advancing the start of the log over
// it.
//
// writePos is where the pending write will go; it becomes the collapsed
// start/end position in case the evicted record was also the newest one.
func (l *Log) evictOldest(writePos int64) error {
	h := &l.header
	if h.OldestRecordNumber == 0 {
		return checkErrAt(int64(h.StartOffset), "evict on empty log")
	}

	if l.oldestLen == 0 {
		rh, err := l.loadRecHead(int64(h.StartOffset))
		if err != nil {
			return err
		}
		l.oldestLen = rh.Length
	}

	// where the record after the oldest one begins
	endSpace := int64(h.MaxSize) - int64(h.StartOffset) - int64(l.oldestLen)
	empty := false
	var next int64
	if endSpace < 0 {
		// the oldest record wrapped over the file end
		next = HeaderLen - endSpace
	} else {
		next = int64(h.StartOffset) + int64(l.oldestLen)
		// compare the raw record end to the end offset before snapping:
		// the newest record can end inside the slack where no record
		// header fits
		empty = next == int64(h.EndOffset)
		if !empty && endSpace < RecordHeaderLen {
			// no record header fits behind it; records continue from
			// the data region start
			next = HeaderLen
		}
	}

	if empty || next == int64(h.EndOffset) {
		// that was also the newest record - the log is now empty
		h.OldestRecordNumber = 0
		h.StartOffset = uint32(writePos)
		h.EndOffset = uint32(writePos)
		h.Flags &^= FlagWrap
		l.oldestLen = 0
		l.changed = true
		return nil
	}

	rh, err := l.loadRecHead(next)
	if err != nil {
		return err
	}
	h.StartOffset = uint32(next)
	h.OldestRecordNumber = rh.RecordNumber
	l.oldestLen = rh.Length
	l.changed = true
	return nil
}

// prepareWrite makes room for a block of n bytes at the write position,
// evicting oldest records as needed while keeping reserve more bytes of
// room behind the block. contig gives how much of the block must stay
// contiguous: the fixed header for a record, the whole of the EOF record.
// It returns the position where the block must be written and leaves the
// cursor there.
func (l *Log) prepareWrite(n, reserve, contig uint32) (pos int64, err error) {
	h := &l.header
	origin := int64(h.EndOffset) // current write point
	pos = origin
	endSpace := int64(h.MaxSize) - origin
	need := int64(n) + int64(reserve)

	fill := int64(0)
	switch {
	case endSpace < int64(contig):
		// the contiguous part does not fit before the file end: the span
		// is dead - fill it with the pattern and continue from the data
		// region start
		fill = endSpace
		need += endSpace
		h.Flags |= FlagWrap
		pos = HeaderLen
	case endSpace < int64(n):
		// the block will wrap; its tail continues over the data region start
		h.Flags |= FlagWrap
	}

	for l.free() < need {
		if h.OldestRecordNumber == 0 {
			// even the whole data region is not enough
			return 0, ErrLogFull
		}
		err = l.evictOldest(pos)
		if err != nil {
			return 0, err
		}
	}

	if fill > 0 {
		_, err = l.file.Seek(origin, io.SeekStart)
		if err != nil {
			return 0, err
		}
		b := make([]byte, fill)
		for i := range b {
			b[i] = wrapFill[i&3]
		}
		_, err = l.file.Write(b)
		if err != nil {
			return 0, err
		}
		l.changed = true
	}

	_, err = l.file.Seek(pos, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// Append writes one record at the end of the log.
//
// rec must come fully formed, in particular rec.Header.Length must cover
// both header and tail the way Encode leaves them, and the record number
// must be nonzero; the usual choice for it is Header().CurrentRecordNumber.
//
// With overwrite the oldest records are evicted until the new one fits.
// Without it a log with not enough free room refuses the append with
// ErrLogFull, sets the log-full header flag and changes nothing else.
func (l *Log) Append(rec *RecordData, overwrite bool) (err error) {
	if l.closed {
		return ErrClosed
	}
	defer xerr.Contextf(&err, "evt: append record #%d", rec.Header.RecordNumber)

	h := &l.header
	if rec.Header.RecordNumber == 0 {
		return fmt.Errorf("record number 0 is invalid")
	}
	if rec.Header.RecordNumber == math.MaxUint32 {
		return ErrNumberOverflow
	}
	recLen := rec.Header.Length
	if rec.Data == nil || int64(len(rec.Data.Data)) != int64(recLen)-RecordHeaderLen {
		return fmt.Errorf("malformed record: length %d does not match tail", recLen)
	}

	if !overwrite && !l.fits(recLen) {
		h.Flags |= FlagLogFull
		l.changed = true
		return ErrLogFull
	}

	pos, err := l.prepareWrite(recLen, EOFLen, RecordHeaderLen)
	if err != nil {
		return err
	}

	// header first, then the tail split at the wrap point
	err = rec.Header.fields().store(l.file)
	if err != nil {
		return err
	}

	tail := rec.Data.Data
	endSpace := int64(h.MaxSize) - (pos + RecordHeaderLen)
	var end int64
	if int64(len(tail)) > endSpace {
		_, err = l.file.Write(tail[:endSpace])
		if err == nil {
			_, err = l.file.Seek(HeaderLen, io.SeekStart)
		}
		if err == nil {
			_, err = l.file.Write(tail[endSpace:])
		}
		end = HeaderLen + int64(len(tail)) - endSpace
	} else {
		_, err = l.file.Write(tail)
		end = pos + RecordHeaderLen + int64(len(tail))
	}
	if err != nil {
		return err
	}

	if h.OldestRecordNumber == 0 {
		// the log was empty - this record is now also the oldest
		h.OldestRecordNumber = rec.Header.RecordNumber
		h.StartOffset = uint32(pos)
		l.oldestLen = recLen
	}
	h.CurrentRecordNumber = rec.Header.RecordNumber + 1
	h.EndOffset = uint32(end)
	h.Flags &^= FlagLogFull
	l.changed = true
	return nil
}

// ReadRecord reads the record at the current cursor position and advances
// the cursor past it.
//
// At the end of the log - the EOF record, or the end offset - it returns
// io.EOF. The returned record is backed by freshly allocated memory owned
// by the caller; Release it when done.
func (l *Log) ReadRecord() (_ *RecordData, err error) {
	if l.closed {
		return nil, ErrClosed
	}
	// NOTE io.EOF is the end-of-log indicator and is returned as is, not wrapped

	h := &l.header
	flen, err := l.file.Size()
	if err != nil {
		return nil, err
	}
	offset, err := l.file.Tell()
	if err != nil {
		return nil, err
	}

	if offset == int64(h.EndOffset) {
		return nil, io.EOF
	}

	// too close to the file end to hold even a record header - records
	// continue from the data region start
	if flen-offset < RecordHeaderLen {
		offset = HeaderLen
		_, err = l.file.Seek(offset, io.SeekStart)
		if err != nil {
			return nil, err
		}
		if offset == int64(h.EndOffset) {
			return nil, io.EOF
		}
	}

	rh := RecordHeader{}
	t := rh.fields()
	err = t[:1].load(l.file) // length comes first in both record kinds
	if err != nil {
		return nil, noEOF(err)
	}

	if rh.Length == EOFLen {
		// overlay the EOF record on what was read so far
		eof := EOFRecord{Length: rh.Length}
		err = eof.fields()[1:].load(l.file)
		if err != nil {
			return nil, noEOF(err)
		}
		err = eof.check()
		if err != nil {
			return nil, &LogError{offset, "check", err}
		}
		return nil, io.EOF
	}

	if rh.Length < RecordMinLen || int64(rh.Length) > flen-HeaderLen {
		return nil, checkErrAt(offset, "invalid record length %d", rh.Length)
	}

	err = t[1:].load(l.file)
	if err != nil {
		return nil, noEOF(err)
	}
	if rh.Signature != Magic {
		return nil, checkErrAt(offset, "bad record signature %#010x", rh.Signature)
	}

	tailLen := int64(rh.Length) - RecordHeaderLen
	buf := mem.BufAlloc64(tailLen)
	pos := offset + RecordHeaderLen
	if pos+tailLen > flen {
		// the tail continues over the data region start
		if h.Flags&FlagWrap == 0 {
			buf.Release()
			return nil, checkErrAt(offset, "record overruns file end but the log did not wrap")
		}
		n := flen - pos
		_, err = io.ReadFull(l.file, buf.Data[:n])
		if err == nil {
			_, err = l.file.Seek(HeaderLen, io.SeekStart)
		}
		if err == nil {
			_, err = io.ReadFull(l.file, buf.Data[n:])
		}
	} else {
		_, err = io.ReadFull(l.file, buf.Data)
	}
	if err != nil {
		buf.Release()
		return nil, noEOF(err)
	}

	if offset == int64(h.StartOffset) {
		// remember the oldest record geometry for eviction accounting
		l.oldestLen = rh.Length
	}

	return &RecordData{Header: rh, Data: buf}, nil
}

// Close writes out the EOF record and the final header and invalidates the
// log. If nothing was changed, nothing is written.
//
// The file itself stays open - it belongs to the caller.
func (l *Log) Close() (err error) {
	if l.closed {
		return nil
	}
	l.closed = true
	if !l.changed {
		return nil
	}
	defer xerr.Contextf(&err, "evt: close")

	h := &l.header
	pos, err := l.prepareWrite(EOFLen, 0, EOFLen)
	if err != nil {
		return err
	}
	if h.OldestRecordNumber == 0 {
		// no records to point at - both offsets designate the EOF record
		h.StartOffset = uint32(pos)
	}
	h.EndOffset = uint32(pos)

	eof := h.eof()
	err = eof.fields().store(l.file)
	if err != nil {
		return err
	}

	h.Flags &^= FlagDirty
	_, err = l.file.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	return h.Store(l.file)
}
