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

import (
	"reflect"
	"testing"

	"github.com/JackBro/evttools/evt"
)

func TestStringsField(t *testing.T) {
	testv := []struct {
		v     []string
		field string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a|b"},
		{[]string{"a|b", `c\d`}, `a\|b|c\\d`},
		{[]string{"a", "", "b"}, "a||b"},
	}

	for _, tt := range testv {
		if field := joinStrings(tt.v); field != tt.field {
			t.Errorf("join %q: %q; want %q", tt.v, field, tt.field)
		}
		if v := splitStrings(tt.field); !reflect.DeepEqual(v, tt.v) {
			t.Errorf("split %q: %q; want %q", tt.field, v, tt.v)
		}
	}

	// one lone empty string does not round-trip: its field is
	// indistinguishable from no strings at all
	if field := joinStrings([]string{""}); field != "" {
		t.Errorf("join one empty string: %q; want %q", field, "")
	}
}

func TestEventTypeField(t *testing.T) {
	testv := []struct {
		t     uint16
		field string
	}{
		{evt.EventError, "Error"},
		{evt.EventWarning, "Warning"},
		{evt.EventInformation, "Information"},
		{evt.EventAuditSuccess, "Audit Success"},
		{evt.EventAuditFailure, "Audit Failure"},
		{13, "13"},
		{0, "0"},
	}

	for _, tt := range testv {
		if field := eventTypeString(tt.t); field != tt.field {
			t.Errorf("format type %d: %q; want %q", tt.t, field, tt.field)
		}
		v, err := parseEventType(tt.field)
		if err != nil {
			t.Errorf("parse type %q: %v", tt.field, err)
			continue
		}
		if v != tt.t {
			t.Errorf("parse type %q: %d; want %d", tt.field, v, tt.t)
		}
	}

	if _, err := parseEventType("Catastrophe"); err == nil {
		t.Errorf("parsing unknown event type unexpectedly succeeded")
	}
}
