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

package sid

import (
	"bytes"
	"testing"
)

func TestStringParse(t *testing.T) {
	testv := []struct {
		s string
		b []byte
	}{
		// S-1-0 carries no sub-authorities at all
		{"S-1-0", []byte{1, 0, 0, 0, 0, 0, 0, 0}},

		// BUILTIN\Administrators
		{"S-1-5-32-544", []byte{
			1, 2, 0, 0, 0, 0, 0, 5,
			32, 0, 0, 0,
			0x20, 0x02, 0, 0,
		}},

		// a typical domain account
		{"S-1-5-21-1000-2000-3000-513", []byte{
			1, 5, 0, 0, 0, 0, 0, 5,
			0xe8, 0x03, 0, 0,
			0xd0, 0x07, 0, 0,
			0xb8, 0x0b, 0, 0,
			0x01, 0x02, 0, 0,
		}},

		// 48-bit authority uses all six big-endian bytes
		{"S-1-281474976710655", []byte{1, 0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range testv {
		b, err := Parse(tt.s)
		if err != nil {
			t.Errorf("parse %q: %v", tt.s, err)
			continue
		}
		if !bytes.Equal(b, tt.b) {
			t.Errorf("parse %q: % x; want % x", tt.s, b, tt.b)
		}

		s, err := String(tt.b)
		if err != nil {
			t.Errorf("string % x: %v", tt.b, err)
			continue
		}
		if s != tt.s {
			t.Errorf("string % x: %q; want %q", tt.b, s, tt.s)
		}
	}
}

func TestParseErrors(t *testing.T) {
	testv := []string{
		"",
		"S",
		"S-1",                 // no authority
		"X-1-5",               // wrong prefix
		"S-256-5",             // revision does not fit a byte
		"S-1-281474976710656", // authority does not fit 48 bits
		"S-1-5-x",             // non-numeric sub-authority
		"S-1-5-4294967296",    // sub-authority does not fit 32 bits
	}
	for _, s := range testv {
		if _, err := Parse(s); err == nil {
			t.Errorf("parse %q unexpectedly succeeded", s)
		}
	}
}

func TestStringErrors(t *testing.T) {
	testv := [][]byte{
		{},                              // empty
		{1, 0, 0, 0, 0, 0, 0},           // truncated fixed part
		{1, 1, 0, 0, 0, 0, 0, 5},        // count says 1, no sub-authority bytes
		{1, 0, 0, 0, 0, 0, 0, 5, 1, 0},  // trailing garbage
	}
	for _, b := range testv {
		if _, err := String(b); err == nil {
			t.Errorf("string % x unexpectedly succeeded", b)
		}
	}
}
