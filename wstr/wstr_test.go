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

package wstr

import (
	"bytes"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	testv := []struct {
		s string
		b []byte
	}{
		{"", []byte{0, 0}},
		{"abc", []byte{'a', 0, 'b', 0, 'c', 0, 0, 0}},
		{"мир", []byte{0x3c, 0x04, 0x38, 0x04, 0x40, 0x04, 0, 0}},
		// U+1F600 needs a surrogate pair
		{"\U0001F600", []byte{0x3d, 0xd8, 0x00, 0xde, 0, 0}},
	}

	for _, tt := range testv {
		b, err := Encode(tt.s)
		if err != nil {
			t.Errorf("encode %q: %v", tt.s, err)
			continue
		}
		if !bytes.Equal(b, tt.b) {
			t.Errorf("encode %q: % x; want % x", tt.s, b, tt.b)
		}

		s, n, err := Decode(tt.b, len(tt.b))
		if err != nil {
			t.Errorf("decode % x: %v", tt.b, err)
			continue
		}
		if s != tt.s || n != len(tt.b) {
			t.Errorf("decode % x: %q (%d bytes); want %q (%d bytes)", tt.b, s, n, tt.s, len(tt.b))
		}
	}
}

func TestDecodeConsumed(t *testing.T) {
	// only the first string is consumed; the rest stays for the next call
	b := []byte{'a', 0, 0, 0, 'b', 0, 0, 0}
	s, n, err := Decode(b, len(b))
	if err != nil {
		t.Fatal(err)
	}
	if s != "a" || n != 4 {
		t.Errorf("decode: %q (%d bytes); want %q (4 bytes)", s, n, "a")
	}
}

func TestDecodeErrors(t *testing.T) {
	testv := [][]byte{
		{},                             // no room for a terminator
		{'a'},                          // odd size
		{'a', 0, 'b', 0},               // no terminator
		{0x3d, 0xd8, 0, 0},             // high surrogate terminated early
		{0x3d, 0xd8, 'x', 0, 0, 0},     // high surrogate not followed by low
		{0x00, 0xdc, 0, 0},             // lone low surrogate
	}
	for _, b := range testv {
		_, _, err := Decode(b, len(b))
		if err == nil {
			t.Errorf("decode % x unexpectedly succeeded", b)
		}
	}
}

func TestEncodeInvalid(t *testing.T) {
	_, err := Encode("bad \xff utf8")
	if err == nil {
		t.Errorf("encoding invalid UTF-8 unexpectedly succeeded")
	}
}
