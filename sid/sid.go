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

// Package sid converts Windows security identifiers between the textual
// "S-R-A-S1-S2-..." form and the binary blob stored inside .evt records.
//
// The binary layout is: revision (1 byte), sub-authority count (1 byte),
// authority (6 bytes, big-endian), then count sub-authorities as 32-bit
// little-endian words.
package sid

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// headerLen is the size of the fixed part of a binary SID.
const headerLen = 8

// maxAuthority is the largest identifier authority (48 bits on the wire).
const maxAuthority = 1<<48 - 1

// String converts a binary SID blob to its textual form.
func String(b []byte) (string, error) {
	if len(b) < headerLen {
		return "", fmt.Errorf("sid: truncated blob (%d bytes)", len(b))
	}

	revision := b[0]
	n := int(b[1])
	if len(b) != headerLen+4*n {
		return "", fmt.Errorf("sid: blob length %d does not match %d sub-authorities", len(b), n)
	}

	var authority uint64
	for _, c := range b[2:headerLen] {
		authority = authority<<8 | uint64(c)
	}

	s := strings.Builder{}
	fmt.Fprintf(&s, "S-%d-%d", revision, authority)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&s, "-%d", binary.LittleEndian.Uint32(b[headerLen+4*i:]))
	}
	return s.String(), nil
}

// Parse converts a textual SID to its binary form.
func Parse(s string) ([]byte, error) {
	part := strings.Split(s, "-")
	if len(part) < 3 || part[0] != "S" {
		return nil, fmt.Errorf("sid: invalid %q", s)
	}

	revision, err := strconv.ParseUint(part[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("sid: invalid revision in %q", s)
	}
	authority, err := strconv.ParseUint(part[2], 10, 64)
	if err != nil || authority > maxAuthority {
		return nil, fmt.Errorf("sid: invalid authority in %q", s)
	}

	sub := part[3:]
	if len(sub) > 255 {
		return nil, fmt.Errorf("sid: too many sub-authorities in %q", s)
	}

	b := make([]byte, headerLen+4*len(sub))
	b[0] = byte(revision)
	b[1] = byte(len(sub))
	for i := headerLen - 1; i >= 2; i-- {
		b[i] = byte(authority)
		authority >>= 8
	}
	for i, text := range sub {
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sid: invalid sub-authority %q in %q", text, s)
		}
		binary.LittleEndian.PutUint32(b[headerLen+4*i:], uint32(v))
	}
	return b, nil
}
