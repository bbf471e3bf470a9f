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
	"time"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
)

// UnblockableSignals contains the set of signals which cannot be blocked or
// have their dispositions changed.
var UnblockableSignals = linux.MakeSignalSet(linux.SIGKILL, linux.SIGSTOP)

// SignalMask returns a copy of t's signal mask.
func (t *Task) SignalMask() linux.SignalSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signalMask
}

// SetSignalMask sets t's signal mask. Attempts to block the non-maskable
// signals are silently dropped, as in Linux.
func (t *Task) SetSignalMask(mask linux.SignalSet) {
	mask &^= UnblockableSignals
	t.mu.Lock()
	t.signalMask = mask
	// If the new mask reveals any pending signals, the task must wake to
	// take them.
	deliverable := (t.pendingSignals.pendingSet &^ mask) != 0
	t.mu.Unlock()
	if !deliverable {
		tg := t.tg
		tg.pendingMu.Lock()
		deliverable = (tg.pendingSignals.pendingSet &^ mask) != 0
		tg.pendingMu.Unlock()
	}
	if deliverable {
		t.interrupt()
	}
}

// SetSavedSignalMask records a signal mask to be restored once the current
// handler frame has been set up, or once the task next returns to the
// application. It is used by sigsuspend and by sigreturn-time mask handling.
func (t *Task) SetSavedSignalMask(mask linux.SignalSet) {
	t.savedSignalMask = mask &^ UnblockableSignals
	t.haveSavedSignalMask = true
}

// SavedSignalMask returns the recorded saved signal mask, if one is
// outstanding.
func (t *Task) SavedSignalMask() (linux.SignalSet, bool) {
	return t.savedSignalMask, t.haveSavedSignalMask
}

// RestoreSavedSignalMask reinstates the mask recorded by SetSavedSignalMask,
// if any.
func (t *Task) RestoreSavedSignalMask() {
	if t.haveSavedSignalMask {
		t.haveSavedSignalMask = false
		t.SetSignalMask(t.savedSignalMask)
	}
}

// onSignalStack returns true if the task is executing on the given signal
// stack. A disabled stack has no range and is never "on".
func (t *Task) onSignalStack(alt linux.SignalStack) bool {
	if alt.Flags&linux.SS_DISABLE != 0 {
		return false
	}
	sp := t.image.Stack()
	return alt.Contains(sp)
}

// SignalStack returns the task's alternate signal stack. If no alternate
// stack is installed, the returned stack is flagged SS_DISABLE; if the task
// is currently executing on it, SS_ONSTACK.
func (t *Task) SignalStack() linux.SignalStack {
	t.mu.Lock()
	alt := t.signalStack
	t.mu.Unlock()
	if alt.Size == 0 {
		alt.Flags |= linux.SS_DISABLE
	}
	if t.onSignalStack(alt) {
		alt.Flags |= linux.SS_ONSTACK
	}
	return alt
}

// SetSignalStack installs alt as the task's alternate signal stack.
//
// SS_DISABLE is the only accepted input flag; any other, SS_ONSTACK
// included, is rejected with EINVAL. The stack cannot be changed or disabled
// while the task is executing on it (EPERM). Disabling clears the whole
// descriptor, so no stale range survives; enabling a stack smaller than
// MINSIGSTKSZ is rejected with ENOMEM.
func (t *Task) SetSignalStack(alt linux.SignalStack) error {
	if alt.Flags&^linux.SS_DISABLE != 0 {
		return linuxerr.EINVAL
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onSignalStack(t.signalStack) {
		return linuxerr.EPERM
	}
	if alt.Flags&linux.SS_DISABLE != 0 {
		alt = linux.SignalStack{Flags: linux.SS_DISABLE}
	} else if alt.Size < linux.MINSIGSTKSZ {
		return linuxerr.ENOMEM
	}
	t.signalStack = alt
	return nil
}

// SendSignal enqueues the given signal for delivery to t specifically
// (thread-directed). A signal number of 0 performs existence and permission
// checks only.
func (t *Task) SendSignal(info *linux.SignalInfo) error {
	sig := linux.Signal(info.Signo)
	if sig == 0 {
		return nil
	}
	if !sig.IsValid() {
		return linuxerr.EINVAL
	}
	t.mu.Lock()
	t.pendingSignals.enqueue(info)
	deliverable := t.signalMask&linux.SignalSetOf(sig) == 0
	t.mu.Unlock()
	if deliverable {
		t.interrupt()
	}
	return nil
}

// SendSignal enqueues the given signal for delivery to the thread group
// (process-directed). The signal is routed to the first thread, in creation
// order, whose mask does not block it; if every thread currently blocks the
// signal, it remains pending until some thread unblocks it, and SendSignal
// still succeeds.
func (tg *ThreadGroup) SendSignal(info *linux.SignalInfo) error {
	sig := linux.Signal(info.Signo)
	if sig == 0 {
		return nil
	}
	if !sig.IsValid() {
		return linuxerr.EINVAL
	}
	tg.pendingMu.Lock()
	tg.pendingSignals.enqueue(info)
	tg.pendingMu.Unlock()

	// Wake exactly one eligible thread. Waking more would cause spurious
	// interrupts: only one will find the signal in the group queue.
	for _, t := range tg.Tasks() {
		t.mu.Lock()
		eligible := t.signalMask&linux.SignalSetOf(sig) == 0
		t.mu.Unlock()
		if eligible {
			t.interrupt()
			break
		}
	}
	return nil
}

// dequeueSignal returns a pending signal not blocked by mask, taking
// thread-directed signals ahead of process-directed ones. It returns nil if
// no deliverable signal is pending.
func (t *Task) dequeueSignal(mask linux.SignalSet) *linux.SignalInfo {
	t.mu.Lock()
	info := t.pendingSignals.dequeue(mask)
	t.mu.Unlock()
	if info != nil {
		return info
	}
	tg := t.tg
	tg.pendingMu.Lock()
	info = tg.pendingSignals.dequeue(mask)
	tg.pendingMu.Unlock()
	return info
}

// havePendingSignals returns true if any signal in set is pending for t,
// either thread-directed or process-directed.
func (t *Task) havePendingSignals(set linux.SignalSet) bool {
	t.mu.Lock()
	pending := t.pendingSignals.pendingSet
	t.mu.Unlock()
	if pending&set != 0 {
		return true
	}
	tg := t.tg
	tg.pendingMu.Lock()
	pending = tg.pendingSignals.pendingSet
	tg.pendingMu.Unlock()
	return pending&set != 0
}

// PendingSignals returns the set of signals that are pending for t and
// currently blocked from delivery. Pending signals whose disposition is to
// ignore them do not appear in the set, matching what the application could
// ever observe being delivered.
func (t *Task) PendingSignals() linux.SignalSet {
	t.mu.Lock()
	pending := t.pendingSignals.pendingSet
	mask := t.signalMask
	t.mu.Unlock()
	tg := t.tg
	tg.pendingMu.Lock()
	pending |= tg.pendingSignals.pendingSet
	tg.pendingMu.Unlock()

	pending &= mask
	sh := tg.signalHandlers
	sh.mu.Lock()
	defer sh.mu.Unlock()
	linux.ForEachSignal(pending, func(sig linux.Signal) {
		if sh.actions[sig.Index()].Handler == linux.SIG_IGN {
			pending &^= linux.SignalSetOf(sig)
		}
	})
	return pending
}

// Sigtimedwait suspends execution of the task until one of the signals in
// set is pending, or until timeout has elapsed if haveTimeout is true.
//
// The signals in set are atomically unblocked for the duration of the wait
// and the previous mask is restored before returning, on every path. If the
// wait times out, Sigtimedwait returns EAGAIN. If a signal outside set is
// delivered to the task, or a sibling consumes the awaited process-directed
// signal between the wakeup and the dequeue, Sigtimedwait returns EINTR.
func (t *Task) Sigtimedwait(set linux.SignalSet, timeout time.Duration, haveTimeout bool) (*linux.SignalInfo, error) {
	// SIGKILL and SIGSTOP cannot be waited for.
	set &^= UnblockableSignals
	if set == 0 {
		return nil, linuxerr.EINVAL
	}

	t.mu.Lock()
	oldMask := t.signalMask
	t.realSignalMask = oldMask
	t.signalMask = oldMask &^ set
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.signalMask = t.realSignalMask
		t.realSignalMask = 0
		t.mu.Unlock()
	}()

	timedOut := false
wait:
	for !t.havePendingSignals(set) {
		var err error
		timeout, err = t.BlockWithTimeout(nil, haveTimeout, timeout)
		switch err {
		case nil:
			// Spurious wakeup; recheck.
		case linuxerr.ETIMEDOUT:
			timedOut = true
			break wait
		default:
			// Interrupted. Either a signal in set arrived, in which
			// case the recheck will see it, or a signal outside set
			// must be taken first.
			if !t.havePendingSignals(set) {
				return nil, linuxerr.EINTR
			}
		}
	}

	// A single dequeue attempt on every exit from the wait loop, timeout
	// included: a signal that landed just as the timer fired is still
	// returned. A sibling waiting on an overlapping set may have consumed
	// the process-directed signal that woke us; that race is resolved in
	// the sibling's favor.
	if info := t.dequeueSignal(^set); info != nil {
		info.FixSignalCodeForUser()
		return info, nil
	}
	if timedOut {
		return nil, linuxerr.EAGAIN
	}
	return nil, linuxerr.EINTR
}

// Sigsuspend atomically replaces the task's signal mask with mask and
// suspends the task until a signal is delivered. It always returns
// ERESTARTNOHAND; the interrupted mask is reinstated after the handler frame
// is set up, via the saved signal mask.
func (t *Task) Sigsuspend(mask linux.SignalSet) error {
	t.SetSavedSignalMask(t.SignalMask())
	t.SetSignalMask(mask)
	for {
		if t.havePendingSignals(^t.SignalMask()) {
			return linuxerr.ERESTARTNOHAND
		}
		if err := t.Block(nil); err != nil {
			return linuxerr.ERESTARTNOHAND
		}
	}
}

// PrepareHandler dequeues the next deliverable signal and, if it is to be
// caught, applies the mask and one-shot effects of its action. It returns the
// signal, its action at dequeue time, and whether a user handler must run.
// Returning a nil SignalInfo means no deliverable signal was pending.
//
// For a caught signal, the previous signal mask is recorded as the saved
// signal mask so that sigreturn restores it, and the handler runs with the
// action's mask (plus the signal itself, unless SA_NODEFER) blocked.
func (t *Task) PrepareHandler() (*linux.SignalInfo, linux.SigAction, bool) {
	mask := t.SignalMask()
	info := t.dequeueSignal(mask)
	if info == nil {
		return nil, linux.SigAction{}, false
	}
	sig := linux.Signal(info.Signo)
	sh := t.tg.signalHandlers

	sh.mu.Lock()
	act := sh.actions[sig.Index()]
	if act.Handler != linux.SIG_DFL && act.Handler != linux.SIG_IGN && act.IsResetHandler() {
		sh.actions[sig.Index()].Handler = linux.SIG_DFL
	}
	ignored := act.Handler == linux.SIG_IGN ||
		(act.Handler == linux.SIG_DFL && defaultActionOf(sig) == SignalActionIgnore)
	sh.mu.Unlock()

	if ignored {
		return info, act, false
	}
	if act.Handler == linux.SIG_DFL {
		// Default disposition; the caller terminates or stops the
		// process.
		return info, act, false
	}

	if !t.haveSavedSignalMask {
		t.SetSavedSignalMask(mask)
	}
	newMask := mask | act.Mask
	if !act.IsNoDefer() {
		newMask |= linux.SignalSetOf(sig)
	}
	t.SetSignalMask(newMask)
	info.FixSignalCodeForUser()
	return info, act, true
}

// SignalReturn implements sigreturn-time signal state restoration: the mask
// saved when the handler frame was built becomes the task's mask again.
func (t *Task) SignalReturn() {
	t.RestoreSavedSignalMask()
}

// SignalInfoPriv returns a SignalInfo equivalent to what the kernel sends
// for internally-generated signals.
func SignalInfoPriv(sig linux.Signal) *linux.SignalInfo {
	return &linux.SignalInfo{
		Signo: int32(sig),
		Code:  linux.SignalInfoKernel,
	}
}

// SignalInfoNoInfo returns a SignalInfo equivalent to what the kernel sends
// for signals raised by kill(2), attributed to sender.
func SignalInfoNoInfo(sig linux.Signal, sender ProcessID) *linux.SignalInfo {
	info := &linux.SignalInfo{
		Signo: int32(sig),
		Code:  linux.SignalInfoUser,
	}
	info.SetPID(int32(sender))
	return info
}

// SignalInfoChld returns the SIGCHLD siginfo a waiter observes for a child
// process that terminated. killSig is the signal that terminated the child,
// or 0 if it exited on its own, in which case exitCode is its exit status.
func SignalInfoChld(child ProcessID, exitCode int32, killSig linux.Signal) *linux.SignalInfo {
	info := &linux.SignalInfo{
		Signo: int32(linux.SIGCHLD),
		Code:  linux.CLD_EXITED,
	}
	info.SetPID(int32(child))
	if killSig != 0 {
		if defaultActionOf(killSig) == SignalActionCore {
			info.Code = linux.CLD_DUMPED
		} else {
			info.Code = linux.CLD_KILLED
		}
		info.SetStatus(int32(killSig))
	} else {
		info.SetStatus(exitCode)
	}
	return info
}
