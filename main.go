/*
 * fdcsim - Floppy disc subsystem emulator
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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	reader "github.com/rcornwell/fdcsim/command/reader"
	config "github.com/rcornwell/fdcsim/config/configparser"
	core "github.com/rcornwell/fdcsim/emu/core"
	logger "github.com/rcornwell/fdcsim/util/logger"

	_ "github.com/rcornwell/fdcsim/config/debugconfig"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "fdcsim.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optCatalogue := getopt.IntLong("catalogue", 't', -1, "Print catalogue of drive and exit", "drive")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("[image0 [image1]]")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logOut io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer file.Close()
		logOut = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger := slog.New(logger.NewHandler(logOut, &slog.HandlerOptions{Level: programLevel, AddSource: false}, *optDebug))
	slog.SetDefault(Logger)

	Logger.Info("fdcsim Started")
	if _, err := os.Stat(*optConfig); err == nil {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	} else if getopt.IsSet("config") {
		Logger.Error("Configuration file " + *optConfig + " can't be found")
		os.Exit(1)
	}

	cfg := core.CurrentConfig()
	args := getopt.Args()
	if len(args) > core.NumDrives {
		getopt.Usage()
		os.Exit(1)
	}
	for unit, name := range args {
		cfg.Drives[unit].File = name
	}

	sys, err := core.New(cfg)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	status := 0
	if *optCatalogue >= 0 {
		cat, err := sys.ReadCatalogue(*optCatalogue)
		if err != nil {
			Logger.Error(err.Error())
			status = 1
		} else {
			fmt.Print(cat.String())
		}
	} else {
		reader.ConsoleReader(sys)
	}

	if err := sys.Close(); err != nil {
		status = 1
	}
	Logger.Info("fdcsim stopped")
	if status != 0 {
		os.Exit(status)
	}
}
