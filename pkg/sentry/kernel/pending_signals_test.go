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

package kernel

import (
	"testing"

	"veil.dev/veil/pkg/abi/linux"
)

func TestPendingSignalsEnqueueIdempotent(t *testing.T) {
	var p pendingSignals
	first := SignalInfoNoInfo(linux.SIGUSR1, 42)
	if !p.enqueue(first) {
		t.Error("first enqueue reported already pending")
	}
	second := SignalInfoNoInfo(linux.SIGUSR1, 43)
	if p.enqueue(second) {
		t.Error("duplicate enqueue reported newly pending")
	}
	// A repeat occurrence overwrites the stored info.
	info := p.dequeueSpecific(linux.SIGUSR1)
	if info == nil {
		t.Fatal("dequeueSpecific returned nil")
	}
	if got := info.PID(); got != 43 {
		t.Errorf("retained sender: got %d, want 43", got)
	}
	if p.dequeueSpecific(linux.SIGUSR1) != nil {
		t.Error("signal still pending after dequeue")
	}
}

func TestPendingSignalsDequeueOrderAndMask(t *testing.T) {
	var p pendingSignals
	p.enqueue(SignalInfoPriv(linux.SIGTERM))
	p.enqueue(SignalInfoPriv(linux.SIGHUP))
	p.enqueue(SignalInfoPriv(linux.SIGUSR1))

	// Masked signals are skipped in favor of the lowest unmasked one.
	info := p.dequeue(linux.SignalSetOf(linux.SIGHUP))
	if info == nil || linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Fatalf("masked dequeue: got %+v, want SIGUSR1", info)
	}
	info = p.dequeue(0)
	if info == nil || linux.Signal(info.Signo) != linux.SIGHUP {
		t.Fatalf("unmasked dequeue: got %+v, want SIGHUP", info)
	}
	if info = p.dequeue(linux.SignalSetOf(linux.SIGTERM)); info != nil {
		t.Errorf("fully masked dequeue: got %+v, want nil", info)
	}
	p.discardSpecific(linux.SIGTERM)
	if info = p.dequeue(0); info != nil {
		t.Errorf("dequeue after discard: got %+v, want nil", info)
	}
}
