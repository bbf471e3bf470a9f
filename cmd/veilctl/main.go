// Copyright 2024 The Veil Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Binary veilctl sends signals to running instances from the host side.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"veil.dev/veil/pkg/log"
)

var (
	dir     = flag.String("dir", "/var/run/veil", "directory containing instance endpoints")
	debug   = flag.Bool("debug", false, "enable debug logging")
	logPath = flag.String("log", "", "log file path, stderr if empty")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(killCmd), "")
	subcommands.Register(new(tgkillCmd), "")

	flag.Parse()

	logFile := os.Stderr
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Warningf("opening log file %q: %v", *logPath, err)
			os.Exit(1)
		}
		logFile = f
	}
	e := log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	level := log.Info
	if *debug {
		level = log.Debug
	}
	log.SetTarget(e)
	log.SetLevel(level)

	os.Exit(int(subcommands.Execute(context.Background())))
}
