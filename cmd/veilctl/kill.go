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

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/sentry/ipc"
	"veil.dev/veil/pkg/sentry/kernel"
)

// killCmd implements subcommands.Command for the "kill" command.
type killCmd struct {
	signal int
}

// Name implements subcommands.Command.Name.
func (*killCmd) Name() string {
	return "kill"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*killCmd) Synopsis() string {
	return "sends a signal to an instance"
}

// Usage implements subcommands.Command.Usage.
func (*killCmd) Usage() string {
	return "kill [-signal=<num>] <pid>\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (k *killCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&k.signal, "signal", int(linux.SIGTERM), "signal to send to the process")
}

// Execute implements subcommands.Command.Execute.
func (k *killCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pid, err := strconv.ParseInt(f.Arg(0), 10, 32)
	if err != nil {
		fmt.Printf("invalid pid %q: %v\n", f.Arg(0), err)
		return subcommands.ExitUsageError
	}
	sig := linux.Signal(k.signal)
	if sig != 0 && !sig.IsValid() {
		fmt.Printf("invalid signal %d\n", k.signal)
		return subcommands.ExitUsageError
	}

	router := ipc.NewRouter(*dir, 0)
	info := kernel.SignalInfoNoInfo(sig, 0)
	if err := router.SendSignal(kernel.ProcessID(pid), info); err != nil {
		fmt.Printf("sending signal %d to %d: %v\n", sig, pid, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
