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

// Package evttools provides tools for working with legacy Windows event
// log files (.evt).
package evttools

import "lab.nexedi.com/kirr/go123/prog"

// registry of all evttools commands
var commands = prog.CommandRegistry{
	// NOTE the order commands are listed here is the order they appear in help
	{Name: "info",    Summary: infoSummary,    Usage: infoUsage,    Main: infoMain},
	{Name: "evt2csv", Summary: evt2csvSummary, Usage: evt2csvUsage, Main: evt2csvMain},
	{Name: "csv2evt", Summary: csv2evtSummary, Usage: csv2evtUsage, Main: csv2evtMain},
}

// main evttools driver
var Prog = prog.MainProg{
	Name:       "evt",
	Summary:    "Evt is a tool for working with legacy Windows event log files",
	Commands:   commands,
	HelpTopics: helpTopics,
}
