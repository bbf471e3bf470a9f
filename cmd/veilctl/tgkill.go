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

// tgkillCmd implements subcommands.Command for the "tgkill" command.
type tgkillCmd struct {
	signal int
}

// Name implements subcommands.Command.Name.
func (*tgkillCmd) Name() string {
	return "tgkill"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*tgkillCmd) Synopsis() string {
	return "sends a signal to a single thread of an instance"
}

// Usage implements subcommands.Command.Usage.
func (*tgkillCmd) Usage() string {
	return "tgkill [-signal=<num>] <pid> <tid>\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (t *tgkillCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&t.signal, "signal", int(linux.SIGTERM), "signal to send to the thread")
}

// Execute implements subcommands.Command.Execute.
func (t *tgkillCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pid, err := strconv.ParseInt(f.Arg(0), 10, 32)
	if err != nil {
		fmt.Printf("invalid pid %q: %v\n", f.Arg(0), err)
		return subcommands.ExitUsageError
	}
	tid, err := strconv.ParseInt(f.Arg(1), 10, 32)
	if err != nil {
		fmt.Printf("invalid tid %q: %v\n", f.Arg(1), err)
		return subcommands.ExitUsageError
	}
	sig := linux.Signal(t.signal)
	if sig != 0 && !sig.IsValid() {
		fmt.Printf("invalid signal %d\n", t.signal)
		return subcommands.ExitUsageError
	}

	router := ipc.NewRouter(*dir, 0)
	info := &linux.SignalInfo{
		Signo: int32(sig),
		Code:  linux.SignalInfoTkill,
	}
	if err := router.SendSignalToThread(kernel.ProcessID(pid), kernel.ThreadID(tid), info); err != nil {
		fmt.Printf("sending signal %d to %d/%d: %v\n", sig, pid, tid, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
