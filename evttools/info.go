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

// Evtinfo - print general information about an event log file

package evttools

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lab.nexedi.com/kirr/go123/prog"

	"github.com/JackBro/evttools/evt"
	"github.com/JackBro/evttools/fileio"
)

// paramFunc renders 1 log parameter from the file header.
type paramFunc func(h evt.Header) string

func dec(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
func hex(v uint32) string { return fmt.Sprintf("%#x", v) }

func flagString(flags uint32) string {
	names := []string{}
	for _, f := range []struct {
		bit  uint32
		name string
	}{
		{evt.FlagDirty, "dirty"},
		{evt.FlagWrap, "wrap"},
		{evt.FlagLogFull, "logfull"},
		{evt.FlagArchive, "archive"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	s := hex(flags)
	if len(names) > 0 {
		s += " (" + strings.Join(names, ", ") + ")"
	}
	return s
}

var infov = []struct {
	name     string
	getParam paramFunc
}{
	{"version", func(h evt.Header) string {
		return fmt.Sprintf("%d.%d", h.MajorVersion, h.MinorVersion)
	}},
	{"maxsize", func(h evt.Header) string { return dec(h.MaxSize) }},
	{"start_offset", func(h evt.Header) string { return hex(h.StartOffset) }},
	{"end_offset", func(h evt.Header) string { return hex(h.EndOffset) }},
	{"oldest_record", func(h evt.Header) string { return dec(h.OldestRecordNumber) }},
	{"current_record", func(h evt.Header) string { return dec(h.CurrentRecordNumber) }},
	{"flags", func(h evt.Header) string { return flagString(h.Flags) }},
	{"retention", func(h evt.Header) string { return dec(h.Retention) }},
}

var infoDict = map[string]paramFunc{}

func init() {
	for _, info := range infov {
		infoDict[info.name] = info.getParam
	}
}

// Info prints general information about an event log file.
func Info(w io.Writer, f fileio.File, parameterv []string) error {
	l, err := evt.Open(f)
	if err != nil {
		return err
	}
	defer l.Close()
	h := l.Header()

	wantnames := false
	if len(parameterv) == 0 {
		for _, info := range infov {
			parameterv = append(parameterv, info.name)
		}
		wantnames = true
	}

	for _, parameter := range parameterv {
		getParam, ok := infoDict[parameter]
		if !ok {
			return fmt.Errorf("invalid parameter: %s", parameter)
		}

		out := ""
		if wantnames {
			out += parameter + "="
		}
		out += getParam(h)
		fmt.Fprintf(w, "%s\n", out)
	}

	return nil
}

// ----------------------------------------

const infoSummary = "print general information about an event log file"

func infoUsage(w io.Writer) {
	fmt.Fprintf(w,
`Usage: evt info [OPTIONS] <file.evt> [parameter ...]
Print general information about an event log file.

By default info prints information about all log parameters. If one or
more parameter names are given as arguments, info prints the value of each
named parameter on its own line.

Options:

	-h --help	show this help
`)
}

func infoMain(argv []string) {
	flags := flag.FlagSet{Usage: func() { infoUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.Parse(argv[1:])

	argv = flags.Args()
	if len(argv) < 1 {
		flags.Usage()
		prog.Exit(2)
	}

	f, err := fileio.Open(argv[0])
	if err != nil {
		prog.Fatal(err)
	}

	err = Info(os.Stdout, f, argv[1:])
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		prog.Fatal(err)
	}
}
