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

package evttools
// the CSV dialect shared by csv2evt and evt2csv
//
// Line 1 carries the log file size in bytes as its only field. Every other
// line is one record with 11 fields:
//
//	record number, time generated, time written, event ID, event type,
//	category, source name, computer name, SID, strings, data
//
// Times are "YYYY-MM-DD HH:MM:SS" in UTC. The event type is a symbolic
// name when one exists for the value and a plain number otherwise. An
// empty SID field means the record carries no SID. The strings field packs
// the message strings separated by '|' with '\' escaping both '|' and
// itself. The data field is the binary payload in base64.

import (
	"fmt"
	"strconv"

	"lab.nexedi.com/kirr/go123/xfmt"

	"github.com/JackBro/evttools/evt"
)

const timeLayout = "2006-01-02 15:04:05"

// recordFields is how many fields a record line carries.
const recordFields = 11

var eventTypeName = map[uint16]string{
	evt.EventError:        "Error",
	evt.EventWarning:      "Warning",
	evt.EventInformation:  "Information",
	evt.EventAuditSuccess: "Audit Success",
	evt.EventAuditFailure: "Audit Failure",
}

// eventTypeString returns the symbolic name of an event type, or its
// decimal representation when there is no name for it.
func eventTypeString(t uint16) string {
	if name, ok := eventTypeName[t]; ok {
		return name
	}
	return strconv.FormatUint(uint64(t), 10)
}

// parseEventType is the reverse of eventTypeString.
func parseEventType(s string) (uint16, error) {
	for t, name := range eventTypeName {
		if name == s {
			return t, nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid event type %q", s)
	}
	return uint16(v), nil
}

// joinStrings packs message strings into one CSV field.
func joinStrings(v []string) string {
	buf := xfmt.Buffer{}
	for i, s := range v {
		if i > 0 {
			buf .Cb('|')
		}
		for j := 0; j < len(s); j++ {
			c := s[j]
			if c == '\\' || c == '|' {
				buf .Cb('\\')
			}
			buf .Cb(c)
		}
	}
	return string(buf.Bytes())
}

// splitStrings undoes joinStrings.
//
// An empty field means no strings at all, so one lone empty string does
// not round-trip; such records do not occur in practice.
func splitStrings(s string) []string {
	if s == "" {
		return nil
	}
	v := []string{}
	cur := []byte{}
	esc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			cur = append(cur, c)
			esc = false
		case c == '\\':
			esc = true
		case c == '|':
			v = append(v, string(cur))
			cur = cur[:0]
		default:
			cur = append(cur, c)
		}
	}
	return append(v, string(cur))
}
