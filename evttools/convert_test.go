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
	"bytes"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JackBro/evttools/fileio"
)

// diagLog collects diagnostics into a buffer for asserting on them.
func diagLog(buf *bytes.Buffer) *log.Logger {
	return log.New(buf, "", 0)
}

// xlogFromCSV builds an event log file from its CSV rendition, requiring a
// clean conversion.
func xlogFromCSV(t *testing.T, input string, opt *Csv2EvtOptions) *fileio.OSFile {
	t.Helper()
	f, err := fileio.Create(filepath.Join(t.TempDir(), "x.evt"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	diag := &bytes.Buffer{}
	if opt == nil {
		opt = &Csv2EvtOptions{}
	}
	opt.Diag = diagLog(diag)
	err = Csv2Evt(strings.NewReader(input), f, opt)
	require.NoError(t, err)
	require.Equal(t, "", diag.String())
	return f
}

func TestConvertRoundTrip(t *testing.T) {
	input := `4096
1,2009-02-13 23:31:30,2009-02-13 23:31:33,1000,Information,0,Service Control Manager,HOST,S-1-5-18,hello|wo\|rld,3q2+7w==
2,2009-02-13 23:31:40,2009-02-13 23:31:41,7,13,5,Another Source,HOST,,,
`
	f := xlogFromCSV(t, input, nil)

	diag := &bytes.Buffer{}
	out := &bytes.Buffer{}
	err := Evt2Csv(f, out, &Evt2CsvOptions{Diag: diagLog(diag)})
	require.NoError(t, err)
	require.Equal(t, "", diag.String())
	require.Equal(t, input, out.String())
}

func TestConvertBadLines(t *testing.T) {
	input := `4096
1,2009-02-13 23:31:30,not a time,1000,Error,0,Svc,HOST,,,
only three,fields,here
2,2009-02-13 23:31:40,2009-02-13 23:31:41,7,Warning,0,Svc,HOST,,m,
`
	f, err := fileio.Create(filepath.Join(t.TempDir(), "x.evt"))
	require.NoError(t, err)
	defer f.Close()

	diag := &bytes.Buffer{}
	err = Csv2Evt(strings.NewReader(input), f, &Csv2EvtOptions{Diag: diagLog(diag)})
	require.NoError(t, err)

	// both bad lines reported, each with its line number
	report := diag.String()
	require.Contains(t, report, "line 2")
	require.Contains(t, report, "line 3")
	require.Equal(t, 2, strings.Count(report, "(record skipped)"))

	// only the good record made it into the log
	out := &bytes.Buffer{}
	err = Evt2Csv(f, out, &Evt2CsvOptions{Diag: diagLog(diag)})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "2,"))
}

func TestConvertRenumber(t *testing.T) {
	input := `4096
70,2009-02-13 23:31:30,2009-02-13 23:31:33,1,Error,0,Svc,HOST,,,
71,2009-02-13 23:31:40,2009-02-13 23:31:41,2,Error,0,Svc,HOST,,,
`
	f := xlogFromCSV(t, input, &Csv2EvtOptions{Renumber: true})

	out := &bytes.Buffer{}
	err := Evt2Csv(f, out, &Evt2CsvOptions{Diag: diagLog(&bytes.Buffer{})})
	require.NoError(t, err)
	lines := strings.Split(out.String(), "\n")
	require.True(t, strings.HasPrefix(lines[1], "1,"))
	require.True(t, strings.HasPrefix(lines[2], "2,"))
}

func TestInfo(t *testing.T) {
	input := `4096
1,2009-02-13 23:31:30,2009-02-13 23:31:33,1,Error,0,Svc,HOST,,,
2,2009-02-13 23:31:40,2009-02-13 23:31:41,2,Error,0,Svc,HOST,,,
`
	f := xlogFromCSV(t, input, nil)

	out := &bytes.Buffer{}
	err := Info(out, f, []string{"version", "maxsize", "oldest_record", "current_record", "flags"})
	require.NoError(t, err)
	require.Equal(t, "1.1\n4096\n1\n3\n0\n", out.String())

	// unknown parameters are rejected
	err = Info(out, f, []string{"no_such_parameter"})
	require.Error(t, err)
}
