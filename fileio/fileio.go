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

// Package fileio provides the file capability the evt log engine works through.
//
// The engine does positioned sequential reads and writes over a single
// cursor. File captures exactly that surface, so the engine can be driven
// by anything byte-addressable, not only an OS file. No buffering is done
// anywhere - every call maps 1:1 to the underlying object.
package fileio

import (
	"io"
	"os"
)

// File is a positioned byte store.
//
// Read and Write operate at the current position and advance it.
type File interface {
	io.Reader
	io.Writer

	// Tell returns the current position.
	Tell() (int64, error)

	// Seek repositions the cursor the same way os.File.Seek does.
	Seek(offset int64, whence int) (int64, error)

	// Size returns the current length of the file.
	Size() (int64, error)

	// Truncate changes the length of the file.
	Truncate(size int64) error
}

// OSFile adapts an *os.File to File.
type OSFile struct {
	f *os.File
}

// NewOSFile wraps an already-open OS file.
func NewOSFile(f *os.File) *OSFile {
	return &OSFile{f: f}
}

// Open opens the named file for reading and writing.
func Open(path string) (*OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &OSFile{f: f}, nil
}

// Create creates or truncates the named file and opens it for reading and
// writing.
func Create(path string) (*OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}
	return &OSFile{f: f}, nil
}

func (f *OSFile) Read(p []byte) (int, error)  { return f.f.Read(p) }
func (f *OSFile) Write(p []byte) (int, error) { return f.f.Write(p) }

func (f *OSFile) Tell() (int64, error) {
	return f.f.Seek(0, io.SeekCurrent)
}

func (f *OSFile) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

func (f *OSFile) Size() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (f *OSFile) Truncate(size int64) error {
	return f.f.Truncate(size)
}

// Close closes the underlying OS file.
func (f *OSFile) Close() error {
	return f.f.Close()
}

// Name returns the name of the underlying OS file.
func (f *OSFile) Name() string {
	return f.f.Name()
}
