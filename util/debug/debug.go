/*
 * fdcsim - Log debug data to a file
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

package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	config "github.com/rcornwell/fdcsim/config/configparser"
)

var (
	logFile io.Writer
	logName string
	mu      sync.Mutex
)

func write(prefix string, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return
	}
	fmt.Fprintf(logFile, prefix+": "+format+"\n", a...)
}

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		write(module, format, a...)
	}
}

// Drive debug message.
func DebugDrivef(drive int, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		write(fmt.Sprintf("Drive %d", drive), format, a...)
	}
}

// Track debug message.
func DebugTrackf(side int, track int, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		write(fmt.Sprintf("Side %d track %d", side, track), format, a...)
	}
}

// Look up option in a package's debug table.
func ParseOption(module string, table map[string]int, opt string) (int, error) {
	flag, ok := table[strings.ToUpper(opt)]
	if !ok {
		return 0, errors.New(module + " debug option invalid: " + opt)
	}
	return flag, nil
}

// Send debug output to writer, used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logFile = w
	logName = ""
}

// register debug file on initialize.
func init() {
	config.RegisterFile("DEBUGFILE", create)
}

// Create the debug file.
func create(_ int, fileName string, _ []config.Option) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		return fmt.Errorf("can't have more then one debug file, previous: %s", logName)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s: %w", fileName, err)
	}

	logFile = file
	logName = fileName
	return nil
}
