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

// Package ipc carries signals between instances. Each instance listens on a
// unix domain socket named after its process ID; a signal addressed to
// another process is a small JSON message sent to that process's socket.
package ipc

import (
	"fmt"
	"path/filepath"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/sentry/kernel"
)

// SignalMessage is the wire format of one signal delivery.
type SignalMessage struct {
	// Sender is the process ID of the sending process.
	Sender kernel.ProcessID `json:"sender"`

	// Target is the process ID of the receiving process.
	Target kernel.ProcessID `json:"target"`

	// Signo is the signal number. 0 probes for existence only.
	Signo int32 `json:"signo"`

	// Code is the siginfo code, typically SI_USER or SI_TKILL.
	Code int32 `json:"code"`

	// TID, if nonzero, directs the signal at a specific thread of the
	// target process instead of the process as a whole.
	TID kernel.ThreadID `json:"tid,omitempty"`
}

// SignalInfo converts the message to the siginfo the target observes.
func (m *SignalMessage) SignalInfo() *linux.SignalInfo {
	info := &linux.SignalInfo{
		Signo: m.Signo,
		Code:  m.Code,
	}
	info.SetPID(int32(m.Sender))
	return info
}

// Response acknowledges one SignalMessage.
type Response struct {
	// Errno is 0 on success, or the errno the delivery failed with.
	Errno int32 `json:"errno"`
}

// SocketPath returns the endpoint path for the instance hosting pid.
func SocketPath(dir string, pid kernel.ProcessID) string {
	return filepath.Join(dir, fmt.Sprintf("veil.%d.sock", pid))
}

// socketGlob matches every instance endpoint in dir.
func socketGlob(dir string) string {
	return filepath.Join(dir, "veil.*.sock")
}
