/*
 * fdcsim - Console reader
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

package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"github.com/rcornwell/fdcsim/command/parser"
	"github.com/rcornwell/fdcsim/emu/core"
)

const historyName = ".fdcsim_history"

// History file in home directory, empty if none.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyName)
}

func loadHistory(line *liner.State, name string) {
	file, err := os.Open(name)
	if err != nil {
		return
	}
	defer file.Close()
	if _, err := line.ReadHistory(file); err != nil {
		slog.Warn("monitor history not loaded", "file", name, "error", err)
	}
}

func saveHistory(line *liner.State, name string) {
	file, err := os.Create(name)
	if err != nil {
		slog.Warn("monitor history not saved", "file", name, "error", err)
		return
	}
	defer file.Close()
	if _, err := line.WriteHistory(file); err != nil {
		slog.Warn("monitor history not saved", "file", name, "error", err)
	}
}

// Run monitor commands against system until quit or end of input.
func ConsoleReader(sys *core.System) {
	line := liner.NewLiner()
	defer line.Close()

	history := historyFile()
	if history != "" {
		loadHistory(line, history)
		defer saveHistory(line, history)
	}

	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(func(line string) []string {
		return parser.CompleteCmd(line)
	})

	for {
		command, err := line.Prompt("fdc> ")
		if err == nil {
			if command != "" {
				line.AppendHistory(command)
			}
			quit, err := parser.ProcessCommand(command, sys)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return
		}
		slog.Error("error reading line: " + err.Error())
		return
	}
}
