/*
 * fdcsim - Command parser tests
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	core "github.com/rcornwell/fdcsim/emu/core"
)

func newSystem(t *testing.T) (*core.System, *bytes.Buffer) {
	t.Helper()
	sys, err := core.New(core.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sys.Close() })
	buf := &bytes.Buffer{}
	output = buf
	t.Cleanup(func() { output = os.Stdout })
	return sys, buf
}

func writeImage(t *testing.T) string {
	t.Helper()
	data := make([]byte, 2*10*256)
	for i := range data {
		data[i] = byte(i / 256)
	}
	copy(data, "TESTDISC")
	copy(data[256:], []byte{'N', 'A', 'M', 'E', 0, 0, 0, 0})
	fileName := filepath.Join(t.TempDir(), "test.ssd")
	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return fileName
}

func runLine(t *testing.T, sys *core.System, line string) {
	t.Helper()
	quit, err := ProcessCommand(line, sys)
	if err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
	if quit {
		t.Fatalf("%q quit", line)
	}
}

func TestMatchList(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"at", []string{"attach"}},
		{"ad", []string{"address"}},
		{"a", nil},
		{"se", nil},
		{"sel", []string{"select"}},
		{"selectx", nil},
		{"status", []string{"status"}},
		{"q", []string{"quit"}},
		{"", nil},
	}
	for _, test := range tests {
		var got []string
		for _, m := range matchList(test.command) {
			got = append(got, m.Name)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("match %q (-want +got):\n%s", test.command, diff)
		}
	}
}

func TestLineScanning(t *testing.T) {
	line := cmdLine{line: `  12 "a ""b"" c" word9 3x # comment`}
	num, err := line.getNumber()
	if err != nil || num != 12 {
		t.Errorf("number %d %v", num, err)
	}
	str, ok := line.parseQuoteString()
	if !ok || str != `a "b" c` {
		t.Errorf("quoted string %q %v", str, ok)
	}
	if word := line.getWord(); word != "word9" {
		t.Errorf("word %q", word)
	}
	if _, err := line.getNumber(); err == nil {
		t.Errorf("3x accepted as number")
	}
	if err := line.checkEOL(); err == nil {
		t.Errorf("3x not reported as extra text")
	}
	line = cmdLine{line: "  # comment"}
	if def, err := line.getOptNumber(7); err != nil || def != 7 {
		t.Errorf("optional number %d %v", def, err)
	}
	if err := line.checkEOL(); err != nil {
		t.Errorf("comment reported as extra text")
	}
}

func TestProcessErrors(t *testing.T) {
	sys, _ := newSystem(t)
	lines := []string{
		"bogus",
		"se 1",
		"seek",
		"seek 3 fast",
		"select x",
		"select 0 2",
		"select 0 0 gcr",
		"read 1",
		"attach 0",
		"detach 1",
		"run",
		"run 10 fast",
		"status now",
		"123",
	}
	for _, line := range lines {
		if _, err := ProcessCommand(line, sys); err == nil {
			t.Errorf("%q accepted", line)
		}
	}
	if quit, err := ProcessCommand("   ", sys); quit || err != nil {
		t.Errorf("empty line gave %v %v", quit, err)
	}
	if quit, _ := ProcessCommand("quit", sys); !quit {
		t.Errorf("quit did not quit")
	}
}

func TestCommands(t *testing.T) {
	sys, buf := newSystem(t)
	fileName := writeImage(t)

	runLine(t, sys, "attach 0 "+fileName+" wp")
	if !strings.Contains(buf.String(), "2 tracks") {
		t.Errorf("attach output %q", buf.String())
	}
	runLine(t, sys, "select 0 0 fm")

	buf.Reset()
	runLine(t, sys, "read 1 3")
	if !strings.HasPrefix(buf.String(), "status 80, 256 bytes\n000: 0D 0D") {
		t.Errorf("read output:\n%s", buf.String())
	}

	buf.Reset()
	runLine(t, sys, "address")
	if !strings.Contains(buf.String(), "track 1 head 0") {
		t.Errorf("address output %q", buf.String())
	}

	buf.Reset()
	runLine(t, sys, "sectors 0 0 1")
	if !strings.HasPrefix(buf.String(), "FM    1   0   0 1\n") || !strings.HasSuffix(buf.String(), "10 sectors\n") {
		t.Errorf("sectors output:\n%s", buf.String())
	}

	buf.Reset()
	runLine(t, sys, "catalogue 0")
	if !strings.HasPrefix(buf.String(), "TESTDISCNAME cycle 00") {
		t.Errorf("catalogue output %q", buf.String())
	}

	buf.Reset()
	runLine(t, sys, "seek 0 verify")
	var st byte
	if _, err := fmt.Sscanf(buf.String(), "status %X", &st); err != nil || st&0x14 != 0x04 {
		t.Errorf("seek output %q", buf.String())
	}

	start := sys.Scheduler().Epoch()
	runLine(t, sys, "run 5000")
	if sys.Scheduler().Epoch()-start != 5000 {
		t.Errorf("run advanced %d", sys.Scheduler().Epoch()-start)
	}

	buf.Reset()
	runLine(t, sys, "run 20000 realtime")
	if buf.String() != "20000 cycles run\n" {
		t.Errorf("realtime output %q", buf.String())
	}

	buf.Reset()
	runLine(t, sys, "status")
	if !strings.Contains(buf.String(), "test.ssd") {
		t.Errorf("status output:\n%s", buf.String())
	}
	runLine(t, sys, "detach 0")
	if sys.Image(0) != nil {
		t.Errorf("image still attached")
	}
}

func TestCompleteCmd(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"games.ssd", "gamma.dsd", "other.adl"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		line string
		want []string
	}{
		{"st", []string{"status "}},
		{"s", []string{"sectors ", "seek ", "select ", "status "}},
		{"select 0 0 m", []string{"select 0 0 mfm"}},
		{"select 1 ", []string{"select 1 fm", "select 1 mfm"}},
		{"seek 10 v", []string{"seek 10 verify"}},
		{"seek 10", nil},
		{"attach 0 " + dir + "/gam", []string{"attach 0 " + dir + "/games.ssd", "attach 0 " + dir + "/gamma.dsd"}},
		{"attach x", nil},
		{"se 0", nil},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, CompleteCmd(test.line)); diff != "" {
			t.Errorf("complete %q (-want +got):\n%s", test.line, diff)
		}
	}
}
