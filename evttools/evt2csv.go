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

// Evt2csv - dump an event log file as CSV

package evttools

import (
	"encoding/base64"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"lab.nexedi.com/kirr/go123/prog"
	"lab.nexedi.com/kirr/go123/xerr"

	"github.com/JackBro/evttools/evt"
	"github.com/JackBro/evttools/fileio"
)

// Evt2CsvOptions adjusts how Evt2Csv dumps the log.
type Evt2CsvOptions struct {
	// Diag receives per-record diagnostics; nil means stderr.
	Diag *log.Logger
}

// Evt2Csv dumps all records of the event log in f as CSV to out, oldest to
// newest.
//
// Records that do not decode cleanly are reported to the diagnostics sink
// and skipped; the dump goes on.
func Evt2Csv(f fileio.File, out io.Writer, opt *Evt2CsvOptions) (err error) {
	defer xerr.Contextf(&err, "evt2csv")

	if opt == nil {
		opt = &Evt2CsvOptions{}
	}
	diag := opt.Diag
	if diag == nil {
		diag = log.New(os.Stderr, "evt2csv: ", 0)
	}

	l, err := evt.Open(f)
	if err != nil {
		return err
	}
	defer func() {
		err2 := l.Close()
		if err == nil {
			err = err2
		}
	}()

	h := l.Header()
	if h.Dirty() {
		diag.Printf("the log was not closed properly and may be inconsistent")
	}

	w := csv.NewWriter(out)
	size, err := f.Size()
	if err != nil {
		return err
	}
	err = w.Write([]string{strconv.FormatInt(size, 10)})
	if err != nil {
		return err
	}

	err = l.Rewind()
	if err != nil {
		return err
	}
	for {
		rec, err2 := l.ReadRecord()
		if err2 == io.EOF {
			break
		}
		if err2 != nil {
			return err2
		}

		c, flaws := evt.Decode(rec)
		if flaws != 0 {
			diag.Printf("record #%d: %v (record skipped)", rec.Header.RecordNumber, flaws)
			rec.Release()
			continue
		}
		err2 = w.Write(formatRecord(&rec.Header, c))
		rec.Release()
		if err2 != nil {
			return err2
		}
	}

	w.Flush()
	return w.Error()
}

// formatRecord converts one decoded record into a CSV record line.
func formatRecord(hdr *evt.RecordHeader, c *evt.RecordContents) []string {
	return []string{
		strconv.FormatUint(uint64(hdr.RecordNumber), 10),
		c.TimeGenerated.UTC().Format(timeLayout),
		c.TimeWritten.UTC().Format(timeLayout),
		strconv.FormatUint(uint64(hdr.EventID), 10),
		eventTypeString(hdr.EventType),
		strconv.FormatUint(uint64(hdr.EventCategory), 10),
		c.SourceName,
		c.ComputerName,
		c.UserSid,
		joinStrings(c.Strings),
		base64.StdEncoding.EncodeToString(c.Data),
	}
}

// ----------------------------------------

const evt2csvSummary = "dump an event log file as CSV"

func evt2csvUsage(w io.Writer) {
	fmt.Fprintf(w,
`Usage: evt evt2csv [OPTIONS] <file.evt> [out.csv]
Dump an event log file as CSV, oldest record first.

Output goes to stdout unless an output file is given. The first output
line gives the size of the log file; the rest is one line per record (see
'evt help csvformat').

Options:

	-a	append to the output file instead of truncating it
	-h --help	show this help
`)
}

func evt2csvMain(argv []string) {
	appendOut := false
	flags := flag.FlagSet{Usage: func() { evt2csvUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.BoolVar(&appendOut, "a", false, "append to the output file")
	flags.Parse(argv[1:])

	argv = flags.Args()
	if len(argv) < 1 || len(argv) > 2 {
		flags.Usage()
		prog.Exit(2)
	}

	f, err := fileio.Open(argv[0])
	if err != nil {
		prog.Fatal(err)
	}

	out := io.Writer(os.Stdout)
	var outf *os.File
	if len(argv) == 2 {
		mode := os.O_WRONLY | os.O_CREATE
		if appendOut {
			mode |= os.O_APPEND
		} else {
			mode |= os.O_TRUNC
		}
		outf, err = os.OpenFile(argv[1], mode, 0666)
		if err != nil {
			prog.Fatal(err)
		}
		out = outf
	}

	err = Evt2Csv(f, out, nil)
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if outf != nil {
		err2 = outf.Close()
		if err == nil {
			err = err2
		}
	}
	if err != nil {
		prog.Fatal(err)
	}
}
