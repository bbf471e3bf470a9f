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
	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/bits"
)

// pendingSignals holds a set of pending signals. At most one instance of each
// signal number is retained; enqueueing a signal that is already pending keeps
// the original SignalInfo and reports that nothing changed. Real-time signal
// queueing is not supported.
type pendingSignals struct {
	// pendingSet is the set of signals with at least one instance pending.
	pendingSet linux.SignalSet

	// infos holds the SignalInfo for each pending signal, indexed by
	// (signal number - 1). infos[i] is meaningful only when the
	// corresponding bit of pendingSet is set.
	infos [linux.SignalMaximum]linux.SignalInfo
}

// enqueue adds the signal described by info to p. It returns true if the
// signal was newly enqueued, and false if an instance of the same signal was
// already pending. The presence bit is idempotent, but a repeat occurrence
// overwrites the stored info.
//
// Preconditions: info.Signo() is a valid signal number.
func (p *pendingSignals) enqueue(info *linux.SignalInfo) bool {
	sig := linux.Signal(info.Signo)
	newlyPending := p.pendingSet&linux.SignalSetOf(sig) == 0
	p.pendingSet |= linux.SignalSetOf(sig)
	p.infos[sig.Index()] = *info
	return newlyPending
}

// dequeue removes and returns the lowest-numbered pending signal not in mask.
// If no unmasked signal is pending, dequeue returns nil.
func (p *pendingSignals) dequeue(mask linux.SignalSet) *linux.SignalInfo {
	// "Lowest-numbered signals are dequeued first." - Linux signal(7).
	deliverable := uint64(p.pendingSet &^ mask)
	if deliverable == 0 {
		return nil
	}
	sig := linux.Signal(bits.TrailingZeros64(deliverable) + 1)
	return p.dequeueSpecific(sig)
}

// dequeueSpecific removes and returns a pending instance of the given signal,
// or nil if no instance of that signal is pending.
func (p *pendingSignals) dequeueSpecific(sig linux.Signal) *linux.SignalInfo {
	set := linux.SignalSetOf(sig)
	if p.pendingSet&set == 0 {
		return nil
	}
	p.pendingSet &^= set
	info := p.infos[sig.Index()]
	return &info
}

// discardSpecific removes any pending instance of the given signal.
func (p *pendingSignals) discardSpecific(sig linux.Signal) {
	p.pendingSet &^= linux.SignalSetOf(sig)
}
