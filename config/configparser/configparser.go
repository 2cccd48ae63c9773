/*
 * fdcsim - Configuration file parser
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Unit number passed when line has none.
const NoUnit = -1

// Option following the model and unit.
type Option struct {
	Name     string   // Name of option.
	EqualOpt string   // Value of string after =.
	Value    []string // Comma separated values after option.
}

// Current option line being parsed.
type optionLine struct {
	line string // Current option line.
	pos  int    // Current position in line.
}

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> ::= <model> [<whitespace> <unit>] *(<whitespace> <option>) |
 *            <model> <whitespace> <quoteopt>
 * <model> ::= <letter> *(<letter> | <number>)
 * <unit> ::= <number>
 * <option> ::= <string> ['=' <quoteopt>] *(',' *(<whitespace>) <string>)
 * <quoteopt> ::= <string> | '"' *(<any> | '""') '"'
 */

const (
	TypeModel   = 1 + iota // Requires unit number.
	TypeOption             // Single value, usually a file name.
	TypeOptions            // Name followed by list of options.
	TypeSwitch             // Model name only.
)

type CreateFunc func(unit int, value string, options []Option) error

// Model creation list.
type modelDef struct {
	create CreateFunc
	ty     int
}

var models = map[string]modelDef{}

var lineNumber int

// Register should be called from init functions.
func RegisterModel(mod string, ty int, fn CreateFunc) {
	models[strings.ToUpper(mod)] = modelDef{create: fn, ty: ty}
}

// Register switch with no parameters.
func RegisterSwitch(mod string, fn CreateFunc) {
	RegisterModel(mod, TypeSwitch, fn)
}

// Register option taking a file name.
func RegisterFile(mod string, fn CreateFunc) {
	RegisterModel(mod, TypeOption, fn)
}

// Remove all registered models, used by tests.
func ResetModels() {
	models = map[string]modelDef{}
}

// Load in a configuration file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file)
}

// Process configuration from a reader.
func LoadConfig(rd io.Reader) error {
	lineNumber = 0
	reader := bufio.NewReader(rd)
	for {
		text, err := reader.ReadString('\n')
		lineNumber++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := optionLine{line: strings.TrimRight(text, "\r\n")}
		if perr := line.parseLine(); perr != nil {
			return perr
		}
	}
}

// Parse one line from file.
func (line *optionLine) parseLine() error {
	model := line.getName()
	if model == "" {
		line.skipSpace()
		if line.isEOL() {
			return nil
		}
		return fmt.Errorf("invalid model name line: %d [%d]", lineNumber, line.pos)
	}
	model = strings.ToUpper(model)
	def, ok := models[model]
	if !ok {
		return fmt.Errorf("no type: %s registered, line: %d", model, lineNumber)
	}

	switch def.ty {
	case TypeModel:
		line.skipSpace()
		unit, ok := line.parseUnit()
		if !ok {
			return fmt.Errorf("%s requires unit number, line: %d", model, lineNumber)
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return wrap(model, def.create(unit, "", options))

	case TypeOption:
		line.skipSpace()
		value, ok := line.parseQuoteString()
		if !ok || value == "" {
			return fmt.Errorf("option: %s not followed by value, line: %d", model, lineNumber)
		}
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("option: %s has extra text, line: %d", model, lineNumber)
		}
		return wrap(model, def.create(NoUnit, value, nil))

	case TypeOptions:
		line.skipSpace()
		first := line.getName()
		if first == "" {
			return fmt.Errorf("option: %s not followed by name, line: %d", model, lineNumber)
		}
		unit := NoUnit
		line.skipSpace()
		if u, ok := line.parseUnit(); ok {
			unit = u
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return wrap(model, def.create(unit, strings.ToUpper(first), options))

	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("switch: %s followed by options, line: %d", model, lineNumber)
		}
		return wrap(model, def.create(NoUnit, "", nil))
	}
	return nil
}

func wrap(model string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s line %d: %w", model, lineNumber, err)
}

// Skip forward over line until none whitespace character found.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *optionLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

// Grab name starting with letter.
func (line *optionLine) getName() string {
	line.skipSpace()
	if line.isEOL() || !unicode.IsLetter(rune(line.line[line.pos])) {
		return ""
	}
	start := line.pos
	for !line.isEOL() {
		by := rune(line.line[line.pos])
		if !unicode.IsLetter(by) && !unicode.IsNumber(by) && by != '_' {
			break
		}
		line.pos++
	}
	return line.line[start:line.pos]
}

// Decimal unit number.
func (line *optionLine) parseUnit() (int, bool) {
	start := line.pos
	for !line.isEOL() && unicode.IsDigit(rune(line.line[line.pos])) {
		line.pos++
	}
	if start == line.pos {
		return NoUnit, false
	}
	unit, err := strconv.Atoi(line.line[start:line.pos])
	if err != nil {
		return NoUnit, false
	}
	return unit, true
}

// Parse string that is "string" or just string. "" inside quotes is a quote.
func (line *optionLine) parseQuoteString() (string, bool) {
	if line.pos >= len(line.line) || line.line[line.pos] != '"' {
		start := line.pos
		for !line.isEOL() {
			by := line.line[line.pos]
			if unicode.IsSpace(rune(by)) || by == ',' {
				break
			}
			line.pos++
		}
		return line.line[start:line.pos], true
	}

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
	// Hit end of line inside quotes.
	return value.String(), false
}

// Parse one option.
func (line *optionLine) parseOption() (*Option, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}
	name := line.getName()
	if name == "" {
		return nil, fmt.Errorf("invalid option encountered line: %d [%d]", lineNumber, line.pos)
	}
	option := Option{Name: strings.ToUpper(name)}

	if !line.isEOL() && line.line[line.pos] == '=' {
		line.pos++
		value, ok := line.parseQuoteString()
		if !ok {
			return nil, fmt.Errorf("invalid quoted string line: %d [%d]", lineNumber, line.pos)
		}
		option.EqualOpt = value
	}

	line.skipSpace()
	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++
		line.skipSpace()
		value, _ := line.parseQuoteString()
		if value != "" {
			option.Value = append(option.Value, value)
		}
		line.skipSpace()
	}
	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	options := []Option{}
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			return options, nil
		}
		options = append(options, *option)
	}
}
