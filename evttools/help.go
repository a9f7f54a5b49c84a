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
// registry for all help topics

import "lab.nexedi.com/kirr/go123/prog"

const helpCSVFormat =
`Csv2evt and evt2csv exchange event logs in a simple CSV dialect.

The first line carries a single field - the size of the log file in bytes.
Every other line is one record with the following 11 fields:

	1. record number
	2. time generated	"YYYY-MM-DD HH:MM:SS", UTC
	3. time written		"YYYY-MM-DD HH:MM:SS", UTC
	4. event ID
	5. event type		Information, Warning, Error, Audit Success,
				Audit Failure, or a plain number
	6. category
	7. source name
	8. computer name
	9. SID			textual form "S-R-A-S1-..."; empty = no SID
	10. strings		items separated by '|'; '\' escapes '|' and '\'
	11. data		binary payload in base64

For example:

	131072
	1,2021-03-02 11:00:01,2021-03-02 11:00:01,1000,Information,0,MyService,HOST1,S-1-5-18,service started|ok,AAEC
`

var helpTopics = prog.HelpRegistry{
	{Name: "csvformat", Summary: "CSV rendition of an event log", Text: helpCSVFormat},
}
