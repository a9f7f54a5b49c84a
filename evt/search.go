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
// scavenging for structure signatures in damaged or mispositioned files

import (
	"io"

	"github.com/JackBro/evttools/fileio"
)

// SearchResult tells what kind of structure Search found.
type SearchResult int

const (
	NotFound SearchResult = iota
	FoundHeader
	FoundRecord
)

// Search scans forward from the current position of f for the signature of
// a file header or of a record, examining at most max bytes.
//
// Every structure of the format starts with its length word immediately
// followed by the magic signature, so the scan keeps the last 8 bytes in a
// small circular window, slides it one byte at a time, and on a signature
// hit classifies the find by the length in front of it: the header length
// means a file header, anything at least as long as the shortest valid
// record means a record; other lengths are noise and the scan goes on.
//
// On a find the cursor is left at the start of the found structure, so the
// caller can load it directly. Passing max bytes without a match reports
// NotFound with no error and leaves the cursor where scanning stopped.
func Search(f fileio.File, max int64) (SearchResult, error) {
	var win [8]byte
	_, err := io.ReadFull(f, win[:])
	if err != nil {
		return NotFound, noEOF(err)
	}
	searched := int64(8)

	// little-endian dword at circular position i
	rd := func(i int64) uint32 {
		return uint32(win[i&7]) | uint32(win[(i+1)&7])<<8 |
			uint32(win[(i+2)&7])<<16 | uint32(win[(i+3)&7])<<24
	}

	for {
		if rd(searched-4) == Magic {
			length := rd(searched - 8)
			if length == HeaderLen || length >= RecordMinLen {
				// step back over length+signature so the cursor
				// addresses the structure start
				_, err = f.Seek(-8, io.SeekCurrent)
				if err != nil {
					return NotFound, err
				}
				if length == HeaderLen {
					return FoundHeader, nil
				}
				return FoundRecord, nil
			}
		}

		if searched >= max {
			return NotFound, nil
		}
		i := searched & 7
		_, err = io.ReadFull(f, win[i:i+1])
		if err != nil {
			return NotFound, noEOF(err)
		}
		searched++
	}
}
