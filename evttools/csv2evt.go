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

// Csv2evt - build an event log file from its CSV rendition

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
	"time"

	"github.com/pkg/errors"
	"lab.nexedi.com/kirr/go123/prog"
	"lab.nexedi.com/kirr/go123/xerr"

	"github.com/JackBro/evttools/evt"
	"github.com/JackBro/evttools/fileio"
)

// Csv2EvtOptions adjusts how Csv2Evt builds the log.
type Csv2EvtOptions struct {
	Renumber    bool // number records sequentially instead of taking numbers from the input
	Append      bool // append to an existing log instead of creating a fresh one; implies Renumber
	NoOverwrite bool // fail when the log fills up instead of overwriting old records

	// Diag receives per-record diagnostics; nil means stderr.
	Diag *log.Logger
}

// Csv2Evt reads the CSV rendition of an event log from in and writes the
// records into the log file f.
//
// Bad input lines are reported to the diagnostics sink and skipped; the
// conversion goes on. Log-full and I/O conditions end the run with an error,
// except that a full log without NoOverwrite switches the run into
// overwriting old records, with a warning.
func Csv2Evt(in io.Reader, f fileio.File, opt *Csv2EvtOptions) (err error) {
	defer xerr.Contextf(&err, "csv2evt")

	if opt == nil {
		opt = &Csv2EvtOptions{}
	}
	diag := opt.Diag
	if diag == nil {
		diag = log.New(os.Stderr, "csv2evt: ", 0)
	}
	renumber := opt.Renumber || opt.Append

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1 // lines are validated individually

	// line 1: log file size
	row, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("empty input")
		}
		return err
	}
	size := uint64(0)
	if len(row) == 1 {
		size, err = strconv.ParseUint(row[0], 10, 32)
	}
	if len(row) != 1 || err != nil {
		return fmt.Errorf("line 1: expected the log file size")
	}

	var l *evt.Log
	if opt.Append {
		l, err = evt.Open(f)
	} else {
		l, err = evt.Create(f, uint32(size))
	}
	if err != nil {
		return err
	}
	defer func() {
		err2 := l.Close()
		if err == nil {
			err = err2
		}
	}()

	overwrite := false
	for {
		row, err2 := r.Read()
		if err2 == io.EOF {
			return nil
		}
		if err2 != nil {
			diag.Printf("%v (line skipped)", err2) // csv errors carry the line number
			continue
		}
		line, _ := r.FieldPos(0)

		c, hdr, err2 := parseRecord(row)
		if err2 != nil {
			diag.Printf("line %d: %v (record skipped)", line, err2)
			continue
		}

		// record numbering: sequential when renumbering, otherwise
		// input numbers must ascend; gaps are tolerated with a warning
		cur := l.Header().CurrentRecordNumber
		switch {
		case renumber:
			hdr.RecordNumber = cur
		case hdr.RecordNumber == 0:
			diag.Printf("line %d: record number 0 is invalid (record skipped)", line)
			continue
		case hdr.RecordNumber < cur:
			diag.Printf("line %d: record number %d is not ascending (record skipped)", line, hdr.RecordNumber)
			continue
		case hdr.RecordNumber > cur && l.Header().OldestRecordNumber != 0:
			diag.Printf("line %d: record numbers jump from %d to %d", line, cur-1, hdr.RecordNumber)
		}

		rec := &evt.RecordData{Header: hdr}
		if flaws := evt.Encode(c, rec); flaws != 0 {
			diag.Printf("line %d: %v (record skipped)", line, flaws)
			continue
		}

		err2 = l.Append(rec, overwrite)
		if errors.Cause(err2) == evt.ErrLogFull && !overwrite && !opt.NoOverwrite {
			diag.Printf("the log is full; overwriting oldest records")
			overwrite = true
			err2 = l.Append(rec, true)
		}
		rec.Release()
		if err2 != nil {
			return err2
		}
	}
}

// parseRecord converts one CSV record line into record contents plus the
// identification header fields that Encode leaves to the caller.
func parseRecord(row []string) (*evt.RecordContents, evt.RecordHeader, error) {
	hdr := evt.RecordHeader{Signature: evt.Magic}
	c := &evt.RecordContents{}
	if len(row) != recordFields {
		return nil, hdr, fmt.Errorf("expected %d fields, got %d", recordFields, len(row))
	}

	num, err := strconv.ParseUint(row[0], 10, 32)
	if err != nil {
		return nil, hdr, fmt.Errorf("invalid record number %q", row[0])
	}
	hdr.RecordNumber = uint32(num)

	c.TimeGenerated, err = time.Parse(timeLayout, row[1])
	if err != nil {
		return nil, hdr, fmt.Errorf("invalid generation time %q", row[1])
	}
	c.TimeWritten, err = time.Parse(timeLayout, row[2])
	if err != nil {
		return nil, hdr, fmt.Errorf("invalid write time %q", row[2])
	}

	eventID, err := strconv.ParseUint(row[3], 10, 32)
	if err != nil {
		return nil, hdr, fmt.Errorf("invalid event ID %q", row[3])
	}
	hdr.EventID = uint32(eventID)

	hdr.EventType, err = parseEventType(row[4])
	if err != nil {
		return nil, hdr, err
	}

	category, err := strconv.ParseUint(row[5], 10, 16)
	if err != nil {
		return nil, hdr, fmt.Errorf("invalid category %q", row[5])
	}
	hdr.EventCategory = uint16(category)

	c.SourceName = row[6]
	c.ComputerName = row[7]
	c.UserSid = row[8]
	c.Strings = splitStrings(row[9])

	if row[10] != "" {
		c.Data, err = base64.StdEncoding.DecodeString(row[10])
		if err != nil {
			return nil, hdr, fmt.Errorf("invalid base64 data")
		}
	}

	return c, hdr, nil
}

// ----------------------------------------

const csv2evtSummary = "build an event log file from its CSV rendition"

func csv2evtUsage(w io.Writer) {
	fmt.Fprintf(w,
`Usage: evt csv2evt [OPTIONS] <file.evt>
Build an event log file from its CSV rendition read from stdin.

The first input line gives the size of the log file to create; the rest is
one line per record (see 'evt help csvformat').

Options:

	-r	renumber records sequentially, ignoring input record numbers
	-a	append records to an existing log (implies -r)
	-w	fail when the log fills up instead of overwriting old records
	-h --help	show this help
`)
}

func csv2evtMain(argv []string) {
	opt := Csv2EvtOptions{}
	flags := flag.FlagSet{Usage: func() { csv2evtUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.BoolVar(&opt.Renumber, "r", false, "renumber records sequentially")
	flags.BoolVar(&opt.Append, "a", false, "append to an existing log")
	flags.BoolVar(&opt.NoOverwrite, "w", false, "never overwrite old records")
	flags.Parse(argv[1:])

	argv = flags.Args()
	if len(argv) != 1 {
		flags.Usage()
		prog.Exit(2)
	}

	var f *fileio.OSFile
	var err error
	if opt.Append {
		f, err = fileio.Open(argv[0])
	} else {
		f, err = fileio.Create(argv[0])
	}
	if err != nil {
		prog.Fatal(err)
	}

	err = Csv2Evt(os.Stdin, f, &opt)
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		prog.Fatal(err)
	}
}
