/*
 * fdcsim - Command completion
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
	"path/filepath"
	"slices"
	"strings"
)

// Called to complete a command line, during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	// We have a command, let it try and complete it.
	if !line.isEOL() {
		// See if there is a completer for this command.
		match := matchList(name)
		if len(match) != 1 {
			return nil
		}

		if match[0].Complete != nil {
			return match[0].Complete(&line)
		}
		return nil
	}

	// Try and match one command.
	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name+" ")
		}
	}
	slices.Sort(matches)
	return matches
}

// Complete last word of line from list.
func (line *cmdLine) completeWord(words []string) []string {
	start := line.pos
	line.skipSpace()
	if line.pos == start {
		return nil
	}
	leading := line.line[:line.pos]
	partial := strings.ToLower(line.line[line.pos:])
	var matches []string
	for _, word := range words {
		if strings.HasPrefix(word, partial) {
			matches = append(matches, leading+word)
		}
	}
	return matches
}

// Complete file name after drive number.
func attachComplete(line *cmdLine) []string {
	if _, err := line.getNumber(); err != nil {
		return nil
	}
	line.skipSpace()
	leading := line.line[:line.pos]
	files, err := filepath.Glob(line.line[line.pos:] + "*")
	if err != nil {
		return nil
	}
	matches := make([]string, 0, len(files))
	for _, file := range files {
		matches = append(matches, leading+file)
	}
	return matches
}

// Complete density after drive and side.
func selectComplete(line *cmdLine) []string {
	if _, err := line.getNumber(); err != nil {
		return nil
	}
	if _, err := line.getOptNumber(0); err != nil {
		return nil
	}
	return line.completeWord(densities)
}

func seekComplete(line *cmdLine) []string {
	if _, err := line.getNumber(); err != nil {
		return nil
	}
	return line.completeWord([]string{"verify"})
}
