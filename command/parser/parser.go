/*
 * fdcsim - Command parser
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
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	core "github.com/rcornwell/fdcsim/emu/core"
)

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Process  func(*cmdLine, *core.System) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

// Where command output goes.
var output io.Writer = os.Stdout

// Execute the command line given, returns true to quit.
func ProcessCommand(commandLine string, sys *core.System) (bool, error) {
	line := cmdLine{line: commandLine}
	command := line.getWord()
	if command == "" {
		line.skipSpace()
		if line.isEOL() {
			return false, nil
		}
		return false, errors.New("invalid command: " + commandLine)
	}

	match := matchList(command)
	if len(match) == 0 {
		return false, errors.New("command not found: " + command)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + command)
	}

	return match[0].Process(&line, sys)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	// If command empty just return.
	if command == "" {
		return []cmd{}
	}

	// Try and match one command.
	var match []cmd
	for _, m := range cmdList {
		if m.Name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// At end of a word.
func (line *cmdLine) atSeparator() bool {
	return line.isEOL() || unicode.IsSpace(rune(line.line[line.pos]))
}

// Parse string that is "string" or just string.
func (line *cmdLine) parseQuoteString() (string, bool) {
	line.skipSpace()
	if line.isEOL() {
		return "", false
	}

	if line.line[line.pos] != '"' {
		start := line.pos
		for !line.atSeparator() {
			line.pos++
		}
		return line.line[start:line.pos], true
	}

	// "" inside quotes is a quote.
	line.pos++
	var value strings.Builder
	for line.pos < len(line.line) {
		by := line.line[line.pos]
		line.pos++
		if by == '"' {
			if line.pos < len(line.line) && line.line[line.pos] == '"' {
				value.WriteByte('"')
				line.pos++
				continue
			}
			return value.String(), true
		}
		value.WriteByte(by)
	}
	return value.String(), false
}

// Parse a decimal number.
func (line *cmdLine) getNumber() (int, error) {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() && unicode.IsDigit(rune(line.line[line.pos])) {
		line.pos++
	}
	if start == line.pos || !line.atSeparator() {
		line.pos = start
		return 0, errors.New("not a number")
	}
	return strconv.Atoi(line.line[start:line.pos])
}

// Number if one follows, else def.
func (line *cmdLine) getOptNumber(def int) (int, error) {
	start := line.pos
	line.skipSpace()
	if line.isEOL() || !unicode.IsDigit(rune(line.line[line.pos])) {
		line.pos = start
		return def, nil
	}
	return line.getNumber()
}

// Parse word of letters and digits, starting with a letter.
func (line *cmdLine) getWord() string {
	line.skipSpace()
	if line.isEOL() || !unicode.IsLetter(rune(line.line[line.pos])) {
		return ""
	}

	start := line.pos
	for !line.isEOL() {
		by := rune(line.line[line.pos])
		if !unicode.IsLetter(by) && !unicode.IsDigit(by) {
			break
		}
		line.pos++
	}
	if !line.atSeparator() {
		line.pos = start
		return ""
	}
	return strings.ToLower(line.line[start:line.pos])
}

// Nothing but comment left.
func (line *cmdLine) checkEOL() error {
	line.skipSpace()
	if !line.isEOL() {
		return errors.New("extra text on line: " + line.line[line.pos:])
	}
	return nil
}
