/*
 * fdcsim - Configuration file parser test cases
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

package configparser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testOptions []Option
	testUnit    int
	testValue   string
	testType    string
)

func cleanUpConfig() {
	ResetModels()
	testOptions = nil
	testUnit = -99
	testValue = "error"
	testType = ""
}

func recordAs(ty string) CreateFunc {
	return func(unit int, value string, options []Option) error {
		testUnit = unit
		testValue = value
		testType = ty
		testOptions = options
		return nil
	}
}

func TestModelLine(t *testing.T) {
	cleanUpConfig()
	RegisterModel("drive", TypeModel, recordAs("model"))

	err := LoadConfig(strings.NewReader("DRIVE 1 FILE=games.ssd WP, ro  # comment\n"))
	if err != nil {
		t.Fatalf("Unable to parse model line: %v", err)
	}
	if testType != "model" || testUnit != 1 {
		t.Errorf("Model not created, unit %d got %d", 1, testUnit)
	}
	want := []Option{
		{Name: "FILE", EqualOpt: "games.ssd"},
		{Name: "WP", Value: []string{"ro"}},
	}
	if diff := cmp.Diff(want, testOptions); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}
}

func TestModelRequiresUnit(t *testing.T) {
	cleanUpConfig()
	RegisterModel("drive", TypeModel, recordAs("model"))
	if err := LoadConfig(strings.NewReader("drive file=x\n")); err == nil {
		t.Error("Model without unit accepted")
	}
}

func TestSwitch(t *testing.T) {
	cleanUpConfig()
	RegisterSwitch("wd1770", recordAs("switch"))
	if err := LoadConfig(strings.NewReader("\n# Acorn interface\nwd1770\n")); err != nil {
		t.Fatalf("Unable to parse switch: %v", err)
	}
	if testType != "switch" || testUnit != NoUnit {
		t.Errorf("Switch not created got %s unit %d", testType, testUnit)
	}
	if err := LoadConfig(strings.NewReader("wd1770 extra\n")); err == nil {
		t.Error("Switch with options accepted")
	}
}

func TestFileOption(t *testing.T) {
	cleanUpConfig()
	RegisterFile("debugfile", recordAs("option"))
	err := LoadConfig(strings.NewReader(`DEBUGFILE "my ""trace"" file.log"` + "\n"))
	if err != nil {
		t.Fatalf("Unable to parse file option: %v", err)
	}
	if testValue != `my "trace" file.log` {
		t.Errorf("File name wrong got %q", testValue)
	}
	if err := LoadConfig(strings.NewReader("DEBUGFILE \"unterminated\n")); err == nil {
		t.Error("Unterminated quote accepted")
	}
	if err := LoadConfig(strings.NewReader("DEBUGFILE\n")); err == nil {
		t.Error("Missing file name accepted")
	}
}

func TestOptionsLine(t *testing.T) {
	cleanUpConfig()
	RegisterModel("debug", TypeOptions, recordAs("options"))
	if err := LoadConfig(strings.NewReader("debug drive 0 step,detail\n")); err != nil {
		t.Fatalf("Unable to parse options: %v", err)
	}
	if testValue != "DRIVE" || testUnit != 0 {
		t.Errorf("Options target wrong got %s unit %d", testValue, testUnit)
	}
	want := []Option{{Name: "STEP", Value: []string{"detail"}}}
	if diff := cmp.Diff(want, testOptions); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}
	if err := LoadConfig(strings.NewReader("debug fdc cmd\n")); err != nil {
		t.Fatalf("Unable to parse options: %v", err)
	}
	if testUnit != NoUnit {
		t.Errorf("Unit should be unset got %d", testUnit)
	}
}

func TestUnknownModel(t *testing.T) {
	cleanUpConfig()
	if err := LoadConfig(strings.NewReader("bogus 1\n")); err == nil {
		t.Error("Unknown model accepted")
	}
}

func TestCreateError(t *testing.T) {
	cleanUpConfig()
	failure := errors.New("no such file")
	RegisterModel("drive", TypeModel, func(int, string, []Option) error {
		return failure
	})
	err := LoadConfig(strings.NewReader("drive 0 file=none\n"))
	if !errors.Is(err, failure) {
		t.Errorf("Create error not wrapped got %v", err)
	}
}
