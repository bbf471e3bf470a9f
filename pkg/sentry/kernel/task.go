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
	"veil.dev/veil/pkg/log"
	"veil.dev/veil/pkg/sentry/arch"
	"veil.dev/veil/pkg/sentry/usermem"
	"veil.dev/veil/pkg/sync"
)

// A Resumer can force a host-level resume of a vehicle that was previously
// suspended at the host, as opposed to cooperatively blocked. Signal delivery
// triggers it in addition to the cooperative wakeup.
type Resumer interface {
	Resume()
}

// Task represents a thread of execution in the untrusted application. It
// includes registers and any thread-specific state that you would normally
// expect.
//
// All fields that are "owned by the task goroutine" can only be mutated by
// the task goroutine while it is running. The task goroutine does not require
// synchronization to read these fields, although it still requires
// synchronization as described for those fields to mutate them.
type Task struct {
	// k is the kernel that this task belongs to. The k pointer is immutable.
	k *Kernel

	// tg is the thread group that this task belongs to. The tg pointer is
	// immutable.
	tg *ThreadGroup

	// interruptChan is notified whenever the task is interrupted (usually by
	// a pending signal). interruptChan is effectively a condition variable
	// that can be used in select statements. It has a buffer of length 1 so
	// that an interrupt delivered between mask installation and blocking is
	// never lost.
	interruptChan chan struct{}

	// resume, if not nil, is invoked on interrupt to also resume the task's
	// vehicle at the host level.
	resume Resumer

	// image is the task's current execution context.
	//
	// image is exclusive to the task goroutine, except that the trap bridge
	// writes it while the task is stopped in a fault.
	image arch.Context

	// memory provides access to the task's address space.
	memory usermem.IO

	// mu protects the fields below. It is the thread's own lock from the
	// ownership model: mask, alternate stack and the thread-directed pending
	// set are mutated only under mu, including cross-thread enqueues.
	mu sync.Mutex

	// signalMask is the set of signals whose delivery is currently blocked.
	// The non-maskable signals never appear in it.
	signalMask linux.SignalSet

	// If the task goroutine is currently executing Task.Sigtimedwait,
	// realSignalMask is the previous value of signalMask, which has
	// temporarily been replaced by Sigtimedwait. Otherwise, realSignalMask
	// is 0.
	realSignalMask linux.SignalSet

	// If haveSavedSignalMask is true, savedSignalMask is the signal mask
	// that should be applied after the task has either delivered one signal
	// to a user handler or is about to resume execution in the untrusted
	// application.
	//
	// Both haveSavedSignalMask and savedSignalMask are exclusive to the task
	// goroutine.
	haveSavedSignalMask bool
	savedSignalMask     linux.SignalSet

	// signalStack is the alternate signal stack used by signal handlers for
	// this task.
	signalStack linux.SignalStack

	// pendingSignals is the set of pending signals that may be handled only
	// by this task.
	//
	// pendingSignals is protected by mu.
	pendingSignals pendingSignals
}

// TaskConfig defines the configuration of a new Task.
type TaskConfig struct {
	// ThreadGroup is the ThreadGroup the new task belongs to.
	ThreadGroup *ThreadGroup

	// Memory is the task's view of application memory.
	Memory usermem.IO

	// SignalMask is the new task's initial signal mask.
	SignalMask linux.SignalSet

	// Resumer, if not nil, is used to resume the task's host vehicle.
	Resumer Resumer
}

// NewTask creates a new task defined by cfg and adds it to the registry.
func (k *Kernel) NewTask(cfg TaskConfig) (*Task, error) {
	tg := cfg.ThreadGroup
	if tg == nil {
		tg = k.process
	}
	t := &Task{
		k:             k,
		tg:            tg,
		interruptChan: make(chan struct{}, 1),
		resume:        cfg.Resumer,
		memory:        cfg.Memory,
		signalMask:    cfg.SignalMask &^ UnblockableSignals,
	}
	tg.ts.mu.Lock()
	if _, err := tg.ts.assignTIDLocked(t); err != nil {
		tg.ts.mu.Unlock()
		return nil, err
	}
	tg.ts.mu.Unlock()
	tg.addTask(t)
	return t, nil
}

// Exit removes t from the registry. Pending signals directed at t are
// dropped; process-directed signals remain pending for its siblings.
func (t *Task) Exit() {
	t.tg.removeTask(t)
	t.tg.ts.removeTask(t)
}

// Arch returns t's execution context.
func (t *Task) Arch() *arch.Context {
	return &t.image
}

// Memory returns the task's view of application memory.
func (t *Task) Memory() usermem.IO {
	return t.memory
}

// Kernel returns the kernel that owns t.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// Infof logs an formatted info message by calling log.Infof.
func (t *Task) Infof(fmt string, v ...any) {
	if log.IsLogging(log.Info) {
		log.InfofAtDepth(1, "[% 4d] "+fmt, append([]any{t.ThreadID()}, v...)...)
	}
}

// Warningf logs a warning message by calling log.Warningf.
func (t *Task) Warningf(fmt string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.WarningfAtDepth(1, "[% 4d] "+fmt, append([]any{t.ThreadID()}, v...)...)
	}
}

// Debugf creates a debug string that includes the task ID.
func (t *Task) Debugf(fmt string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.DebugfAtDepth(1, "[% 4d] "+fmt, append([]any{t.ThreadID()}, v...)...)
	}
}
