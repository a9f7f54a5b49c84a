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

// Package wstr converts between UTF-8 strings and the NUL-terminated
// UTF-16 little-endian form used inside .evt records.
//
// Both directions are strict: Decode rejects unpaired surrogates and a
// missing terminator, Encode rejects invalid UTF-8. Conversion errors must
// surface as hard failures so that record transcoding can report them per
// field instead of substituting replacement characters.
package wstr

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Decode decodes one NUL-terminated UTF-16LE string from the beginning of b.
//
// At most max bytes are examined. It returns the decoded string and the
// number of bytes consumed, including the terminator.
func Decode(b []byte, max int) (string, int, error) {
	if max > len(b) {
		max = len(b)
	}

	units := []uint16{}
	n := 0
	for {
		if n+2 > max {
			return "", 0, fmt.Errorf("wstr: no terminator in %d bytes", max)
		}
		u := binary.LittleEndian.Uint16(b[n:])
		n += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}

	s, err := utf16ToString(units)
	if err != nil {
		return "", 0, err
	}
	return s, n, nil
}

// utf16ToString is like utf16.Decode but fails on unpaired surrogates
// instead of emitting U+FFFD.
func utf16ToString(units []uint16) (string, error) {
	r := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u < 0xd800 || u >= 0xe000:
			r = append(r, rune(u))

		case u < 0xdc00:
			// high surrogate; must be followed by low
			if i+1 >= len(units) {
				return "", fmt.Errorf("wstr: truncated surrogate pair %#04x", u)
			}
			u2 := units[i+1]
			if !(0xdc00 <= u2 && u2 < 0xe000) {
				return "", fmt.Errorf("wstr: invalid surrogate pair %#04x %#04x", u, u2)
			}
			r = append(r, utf16.DecodeRune(rune(u), rune(u2)))
			i++

		default:
			return "", fmt.Errorf("wstr: unpaired low surrogate %#04x", u)
		}
	}
	return string(r), nil
}

// Encode encodes s as NUL-terminated UTF-16LE.
func Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("wstr: invalid UTF-8 in %q", s)
	}

	units := utf16.Encode([]rune(s))
	b := make([]byte, 2*(len(units)+1)) // + terminator
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b, nil
}
