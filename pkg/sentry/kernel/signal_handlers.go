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
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/sync"
)

// SignalHandlers holds information about signal actions, shared by all tasks
// in a thread group.
type SignalHandlers struct {
	// mu protects actions, and is the outermost lock in the signal locking
	// model: it is never acquired while any per-thread lock is held.
	mu sync.Mutex

	// actions is the action to be taken upon receiving each signal, indexed
	// by (signal number - 1).
	actions [linux.SignalMaximum]linux.SigAction
}

// NewSignalHandlers returns a new SignalHandlers with all signal dispositions
// set to their defaults.
func NewSignalHandlers() *SignalHandlers {
	return &SignalHandlers{}
}

// SigAction returns the disposition for the given signal.
func (sh *SignalHandlers) SigAction(sig linux.Signal) linux.SigAction {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.actions[sig.Index()]
}

// SetSigAction atomically sets the disposition for the given signal to
// *actptr (if actptr is not nil) and returns the old disposition. The mask in
// the installed action is sanitized so that the non-maskable signals can
// never be masked during handler execution.
//
// SIGKILL and SIGSTOP are rejected with EINVAL before the lock is taken,
// query included, as are invalid signal numbers.
func (sh *SignalHandlers) SetSigAction(sig linux.Signal, actptr *linux.SigAction) (linux.SigAction, error) {
	if !sig.IsValid() || sig == linux.SIGKILL || sig == linux.SIGSTOP {
		return linux.SigAction{}, linuxerr.EINVAL
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	oldact := sh.actions[sig.Index()]
	if actptr != nil {
		act := *actptr
		act.Mask &^= UnblockableSignals
		sh.actions[sig.Index()] = act
	}
	return oldact, nil
}

// IsIgnored returns true if the signal is ignored: either its handler is
// SIG_IGN, or its handler is SIG_DFL and the default action for the signal
// is to ignore it.
func (sh *SignalHandlers) IsIgnored(sig linux.Signal) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.isIgnoredLocked(sig)
}

func (sh *SignalHandlers) isIgnoredLocked(sig linux.Signal) bool {
	h := sh.actions[sig.Index()].Handler
	return h == linux.SIG_IGN || (h == linux.SIG_DFL && defaultActionOf(sig) == SignalActionIgnore)
}

// SignalAction is the default action to take on receipt of a signal whose
// handler is SIG_DFL.
type SignalAction int

// Possible defaults for signal actions.
const (
	SignalActionTerm SignalAction = iota
	SignalActionCore
	SignalActionStop
	SignalActionIgnore
)

// defaultActionOf returns the default action for the given signal.
func defaultActionOf(sig linux.Signal) SignalAction {
	switch sig {
	case linux.SIGQUIT, linux.SIGILL, linux.SIGTRAP, linux.SIGABRT, linux.SIGBUS,
		linux.SIGFPE, linux.SIGSEGV, linux.SIGSYS, linux.SIGXCPU, linux.SIGXFSZ:
		return SignalActionCore
	case linux.SIGSTOP, linux.SIGTSTP, linux.SIGTTIN, linux.SIGTTOU:
		return SignalActionStop
	case linux.SIGCHLD, linux.SIGCONT, linux.SIGURG, linux.SIGWINCH:
		return SignalActionIgnore
	default:
		// Including signals not defined by POSIX and real-time signals.
		return SignalActionTerm
	}
}
