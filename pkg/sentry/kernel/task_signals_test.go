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
	"math"
	"testing"
	"time"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
)

func newTestKernel(t *testing.T, ntasks int) (*Kernel, []*Task) {
	t.Helper()
	k := New(100, 100)
	tasks := make([]*Task, ntasks)
	for i := range tasks {
		task, err := k.NewTask(TaskConfig{})
		if err != nil {
			t.Fatalf("NewTask: %v", err)
		}
		tasks[i] = task
	}
	return k, tasks
}

func TestSetSignalMaskDropsUnblockable(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.MakeSignalSet(linux.SIGKILL, linux.SIGSTOP, linux.SIGUSR1))
	if got, want := task.SignalMask(), linux.SignalSetOf(linux.SIGUSR1); got != want {
		t.Errorf("SignalMask: got %#x, want %#x", got, want)
	}
}

func TestSetSigAction(t *testing.T) {
	k, _ := newTestKernel(t, 1)
	sh := k.Process().SignalHandlers()

	act := linux.SigAction{
		Handler: 0x1000,
		Flags:   linux.SA_RESTART,
		Mask:    linux.MakeSignalSet(linux.SIGKILL, linux.SIGUSR2),
	}
	old, err := sh.SetSigAction(linux.SIGUSR1, &act)
	if err != nil {
		t.Fatalf("SetSigAction(SIGUSR1): %v", err)
	}
	if old.Handler != linux.SIG_DFL {
		t.Errorf("initial disposition: got handler %#x, want SIG_DFL", old.Handler)
	}

	// The stored action's mask must not contain non-maskable signals.
	got := sh.SigAction(linux.SIGUSR1)
	if want := linux.SignalSetOf(linux.SIGUSR2); got.Mask != want {
		t.Errorf("stored mask: got %#x, want %#x", got.Mask, want)
	}

	// Reading back without changing returns the current action.
	old, err = sh.SetSigAction(linux.SIGUSR1, nil)
	if err != nil {
		t.Fatalf("SetSigAction(SIGUSR1, nil): %v", err)
	}
	if old.Handler != 0x1000 {
		t.Errorf("readback: got handler %#x, want %#x", old.Handler, 0x1000)
	}

	// SIGKILL and SIGSTOP are rejected outright, query included.
	for _, sig := range []linux.Signal{linux.SIGKILL, linux.SIGSTOP} {
		if _, err := sh.SetSigAction(sig, &act); err != linuxerr.EINVAL {
			t.Errorf("SetSigAction(%v): got %v, want EINVAL", sig, err)
		}
		if _, err := sh.SetSigAction(sig, nil); err != linuxerr.EINVAL {
			t.Errorf("SetSigAction(%v, nil): got %v, want EINVAL", sig, err)
		}
	}
	if _, err := sh.SetSigAction(linux.Signal(65), &act); err != linuxerr.EINVAL {
		t.Errorf("SetSigAction(65): got %v, want EINVAL", err)
	}
}

func TestSetSignalStack(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]

	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x10000, Size: 128}); err != linuxerr.ENOMEM {
		t.Errorf("undersized stack: got %v, want ENOMEM", err)
	}
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x10000, Size: linux.SIGSTKSZ, Flags: 0x8}); err != linuxerr.EINVAL {
		t.Errorf("bad flags: got %v, want EINVAL", err)
	}
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x10000, Size: linux.SIGSTKSZ}); err != nil {
		t.Fatalf("SetSignalStack: %v", err)
	}
	if got := task.SignalStack(); got.Addr != 0x10000 || got.Size != linux.SIGSTKSZ || got.Flags != 0 {
		t.Errorf("SignalStack: got %+v", got)
	}

	// While executing on the alternate stack, it is reported SS_ONSTACK and
	// cannot be changed.
	task.Arch().SetStack(0x10000 + 64)
	if got := task.SignalStack(); got.Flags&linux.SS_ONSTACK == 0 {
		t.Errorf("on-stack SignalStack: flags %#x missing SS_ONSTACK", got.Flags)
	}
	if err := task.SetSignalStack(linux.SignalStack{Flags: linux.SS_DISABLE}); err != linuxerr.EPERM {
		t.Errorf("change while on stack: got %v, want EPERM", err)
	}
	// Flag validation precedes the on-stack check.
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x20000, Size: linux.SIGSTKSZ, Flags: linux.SS_ONSTACK}); err != linuxerr.EINVAL {
		t.Errorf("SS_ONSTACK input while on stack: got %v, want EINVAL", err)
	}
	task.Arch().SetStack(0x50000)

	// A zero-sized stack without SS_DISABLE is an undersized enable.
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x20000, Size: 0}); err != linuxerr.ENOMEM {
		t.Errorf("SetSignalStack(size 0): got %v, want ENOMEM", err)
	}
	if err := task.SetSignalStack(linux.SignalStack{Flags: linux.SS_DISABLE}); err != nil {
		t.Fatalf("SetSignalStack(disable): %v", err)
	}
	if got := task.SignalStack(); got.Flags&linux.SS_DISABLE == 0 {
		t.Errorf("disabled SignalStack: flags %#x missing SS_DISABLE", got.Flags)
	}
}

func TestSetSignalStackDisableClearsDescriptor(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.Arch().SetStack(0x10040)

	// A fresh task reports a disabled stack.
	if got := task.SignalStack(); got.Flags&linux.SS_DISABLE == 0 {
		t.Errorf("initial SignalStack: flags %#x missing SS_DISABLE", got.Flags)
	}

	// Disabling stores no range, even when the request carries one that
	// covers the current stack pointer.
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x10000, Size: linux.SIGSTKSZ, Flags: linux.SS_DISABLE}); err != nil {
		t.Fatalf("SetSignalStack(disable): %v", err)
	}
	got := task.SignalStack()
	if got.Addr != 0 || got.Size != 0 || got.Flags != linux.SS_DISABLE {
		t.Errorf("disabled SignalStack: got %+v, want zeroed with SS_DISABLE", got)
	}

	// The disabled descriptor does not pin the task to the stale range.
	if err := task.SetSignalStack(linux.SignalStack{Addr: 0x30000, Size: linux.SIGSTKSZ}); err != nil {
		t.Errorf("install after disable: %v", err)
	}
}

func TestThreadDirectedSignalPending(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2))

	if err := task.SendSignal(SignalInfoPriv(linux.SIGUSR2)); err != nil {
		t.Fatalf("SendSignal(SIGUSR2): %v", err)
	}
	if err := task.SendSignal(SignalInfoPriv(linux.SIGUSR1)); err != nil {
		t.Fatalf("SendSignal(SIGUSR1): %v", err)
	}
	if got, want := task.PendingSignals(), linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2); got != want {
		t.Errorf("PendingSignals: got %#x, want %#x", got, want)
	}

	// Lowest-numbered signals dequeue first.
	info := task.dequeueSignal(0)
	if info == nil || linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Fatalf("first dequeue: got %+v, want SIGUSR1", info)
	}
	info = task.dequeueSignal(0)
	if info == nil || linux.Signal(info.Signo) != linux.SIGUSR2 {
		t.Fatalf("second dequeue: got %+v, want SIGUSR2", info)
	}
	if info = task.dequeueSignal(0); info != nil {
		t.Errorf("third dequeue: got %+v, want nil", info)
	}
}

func TestPendingSignalsExcludesIgnored(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2))

	ign := linux.SigAction{Handler: linux.SIG_IGN}
	if _, err := k.Process().SignalHandlers().SetSigAction(linux.SIGUSR2, &ign); err != nil {
		t.Fatalf("SetSigAction: %v", err)
	}
	task.SendSignal(SignalInfoPriv(linux.SIGUSR1))
	task.SendSignal(SignalInfoPriv(linux.SIGUSR2))
	if got, want := task.PendingSignals(), linux.SignalSetOf(linux.SIGUSR1); got != want {
		t.Errorf("PendingSignals: got %#x, want %#x", got, want)
	}
}

func TestGroupSignalRoutesToUnblockedThread(t *testing.T) {
	k, tasks := newTestKernel(t, 2)
	a, b := tasks[0], tasks[1]
	a.SetSignalMask(linux.SignalSetOf(linux.SIGTERM))

	if err := k.Process().SendSignal(SignalInfoPriv(linux.SIGTERM)); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	if a.Interrupted(false) {
		t.Error("thread with signal blocked was interrupted")
	}
	if !b.Interrupted(false) {
		t.Error("eligible thread was not interrupted")
	}
	info := b.dequeueSignal(b.SignalMask())
	if info == nil || linux.Signal(info.Signo) != linux.SIGTERM {
		t.Fatalf("dequeue on eligible thread: got %+v, want SIGTERM", info)
	}
}

func TestGroupSignalStaysPendingWhenAllBlock(t *testing.T) {
	k, tasks := newTestKernel(t, 2)
	for _, task := range tasks {
		task.SetSignalMask(linux.SignalSetOf(linux.SIGTERM))
	}
	if err := k.Process().SendSignal(SignalInfoPriv(linux.SIGTERM)); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	for i, task := range tasks {
		if task.Interrupted(false) {
			t.Errorf("task %d interrupted despite blocking the signal", i)
		}
	}
	if got, want := tasks[0].PendingSignals(), linux.SignalSetOf(linux.SIGTERM); got != want {
		t.Errorf("PendingSignals: got %#x, want %#x", got, want)
	}

	// Unblocking makes the signal deliverable and wakes the thread.
	tasks[1].SetSignalMask(0)
	if !tasks[1].Interrupted(true) {
		t.Error("unblocking thread was not interrupted")
	}
	info := tasks[1].dequeueSignal(tasks[1].SignalMask())
	if info == nil || linux.Signal(info.Signo) != linux.SIGTERM {
		t.Fatalf("dequeue after unblock: got %+v, want SIGTERM", info)
	}
}

func TestGroupSignalIdempotentWhilePending(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	tasks[0].SetSignalMask(linux.SignalSetOf(linux.SIGTERM))
	for i := 0; i < 3; i++ {
		if err := k.Process().SendSignal(SignalInfoPriv(linux.SIGTERM)); err != nil {
			t.Fatalf("SendSignal: %v", err)
		}
	}
	tasks[0].SetSignalMask(0)
	if info := tasks[0].dequeueSignal(0); info == nil {
		t.Fatal("no pending signal after sends")
	}
	if info := tasks[0].dequeueSignal(0); info != nil {
		t.Errorf("standard signal was queued more than once: %+v", info)
	}
}

func TestSigtimedwaitAlreadyPending(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.SignalSetOf(linux.SIGUSR1))
	task.SendSignal(SignalInfoPriv(linux.SIGUSR1))

	info, err := task.Sigtimedwait(linux.SignalSetOf(linux.SIGUSR1), 0, true)
	if err != nil {
		t.Fatalf("Sigtimedwait: %v", err)
	}
	if linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Errorf("Sigtimedwait: got signal %d, want SIGUSR1", info.Signo)
	}
	// The original mask is restored.
	if got, want := task.SignalMask(), linux.SignalSetOf(linux.SIGUSR1); got != want {
		t.Errorf("mask after Sigtimedwait: got %#x, want %#x", got, want)
	}
}

func TestSigtimedwaitTimeout(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	if _, err := tasks[0].Sigtimedwait(linux.SignalSetOf(linux.SIGUSR1), 0, true); err != linuxerr.EAGAIN {
		t.Errorf("Sigtimedwait with zero timeout: got %v, want EAGAIN", err)
	}
}

func TestSigtimedwaitConsumesSignalAtExpiry(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.SignalSetOf(linux.SIGUSR1))

	// Enqueue without waking the waiter, so the wait can only end by
	// timeout. The signal must still be returned, not EAGAIN.
	go func() {
		time.Sleep(10 * time.Millisecond)
		tg := task.ThreadGroup()
		tg.pendingMu.Lock()
		tg.pendingSignals.enqueue(SignalInfoPriv(linux.SIGUSR1))
		tg.pendingMu.Unlock()
	}()
	info, err := task.Sigtimedwait(linux.SignalSetOf(linux.SIGUSR1), 100*time.Millisecond, true)
	if err != nil {
		t.Fatalf("Sigtimedwait: %v", err)
	}
	if linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Errorf("Sigtimedwait: got signal %d, want SIGUSR1", info.Signo)
	}
}

func TestSigtimedwaitWake(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.SignalSetOf(linux.SIGUSR1))

	go func() {
		time.Sleep(10 * time.Millisecond)
		k.Process().SendSignal(SignalInfoPriv(linux.SIGUSR1))
	}()
	info, err := task.Sigtimedwait(linux.SignalSetOf(linux.SIGUSR1), 10*time.Second, true)
	if err != nil {
		t.Fatalf("Sigtimedwait: %v", err)
	}
	if linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Errorf("Sigtimedwait: got signal %d, want SIGUSR1", info.Signo)
	}
}

func TestSigsuspend(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.SignalSetOf(linux.SIGUSR1))

	go func() {
		time.Sleep(10 * time.Millisecond)
		k.Process().SendSignal(SignalInfoPriv(linux.SIGUSR1))
	}()
	// Suspend with SIGUSR1 unblocked; delivery of the signal wakes the task.
	if err := task.Sigsuspend(0); err != linuxerr.ERESTARTNOHAND {
		t.Fatalf("Sigsuspend: got %v, want ERESTARTNOHAND", err)
	}
	// The suspension mask stays installed; the interrupted mask is reinstated
	// through the saved signal mask on signal return.
	if got := task.SignalMask(); got != 0 {
		t.Errorf("mask after Sigsuspend: got %#x, want 0", got)
	}
	if got, ok := task.SavedSignalMask(); !ok || got != linux.SignalSetOf(linux.SIGUSR1) {
		t.Errorf("saved mask: got (%#x, %t), want (%#x, true)", got, ok, linux.SignalSetOf(linux.SIGUSR1))
	}
}

func TestSigsuspendAlreadyPending(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]
	task.SetSignalMask(linux.SignalSetOf(linux.SIGUSR1))
	if err := k.Process().SendSignal(SignalInfoPriv(linux.SIGUSR1)); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}

	// A signal already pending and unblocked under the new mask must not be
	// lost; the suspend returns without blocking.
	if err := task.Sigsuspend(0); err != linuxerr.ERESTARTNOHAND {
		t.Fatalf("Sigsuspend: got %v, want ERESTARTNOHAND", err)
	}
}

func TestSigtimedwaitRejectsEmptySet(t *testing.T) {
	_, tasks := newTestKernel(t, 1)
	if _, err := tasks[0].Sigtimedwait(UnblockableSignals, 0, true); err != linuxerr.EINVAL {
		t.Errorf("Sigtimedwait(KILL|STOP): got %v, want EINVAL", err)
	}
}

func TestPrepareHandler(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]

	act := linux.SigAction{
		Handler: 0x2000,
		Flags:   linux.SA_RESETHAND,
		Mask:    linux.SignalSetOf(linux.SIGUSR2),
	}
	if _, err := k.Process().SignalHandlers().SetSigAction(linux.SIGUSR1, &act); err != nil {
		t.Fatalf("SetSigAction: %v", err)
	}
	task.SendSignal(SignalInfoPriv(linux.SIGUSR1))

	info, gotAct, handle := task.PrepareHandler()
	if info == nil || !handle {
		t.Fatalf("PrepareHandler: got (%+v, %v), want caught signal", info, handle)
	}
	if gotAct.Handler != 0x2000 {
		t.Errorf("action handler: got %#x, want %#x", gotAct.Handler, 0x2000)
	}
	// The handler runs with its action mask plus the signal itself blocked.
	if got, want := task.SignalMask(), linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2); got != want {
		t.Errorf("handler mask: got %#x, want %#x", got, want)
	}
	// SA_RESETHAND restores the default disposition.
	if d := k.Process().SignalHandlers().SigAction(linux.SIGUSR1); d.Handler != linux.SIG_DFL {
		t.Errorf("disposition after one-shot: got %#x, want SIG_DFL", d.Handler)
	}
	// Returning from the handler restores the interrupted mask.
	task.SignalReturn()
	if got := task.SignalMask(); got != 0 {
		t.Errorf("mask after SignalReturn: got %#x, want 0", got)
	}
}

func TestPrepareHandlerIgnored(t *testing.T) {
	k, tasks := newTestKernel(t, 1)
	task := tasks[0]
	ign := linux.SigAction{Handler: linux.SIG_IGN}
	if _, err := k.Process().SignalHandlers().SetSigAction(linux.SIGUSR1, &ign); err != nil {
		t.Fatalf("SetSigAction: %v", err)
	}
	task.SendSignal(SignalInfoPriv(linux.SIGUSR1))

	info, _, handle := task.PrepareHandler()
	if info == nil {
		t.Fatal("PrepareHandler: ignored signal was not dequeued")
	}
	if handle {
		t.Error("PrepareHandler: ignored signal requested a handler")
	}
	if got := task.PendingSignals(); got != 0 {
		t.Errorf("PendingSignals after discard: got %#x, want 0", got)
	}
}

func TestKillConventions(t *testing.T) {
	k, _ := newTestKernel(t, 1)

	if err := k.Kill(100, SignalInfoNoInfo(linux.SIGTERM, 100)); err != nil {
		t.Errorf("Kill(own pid): %v", err)
	}
	if err := k.Kill(200, SignalInfoNoInfo(linux.SIGTERM, 100)); err != linuxerr.ESRCH {
		t.Errorf("Kill(other pid, no router): got %v, want ESRCH", err)
	}
	if err := k.Kill(-1, SignalInfoNoInfo(linux.SIGTERM, 100)); err != linuxerr.ESRCH {
		t.Errorf("Kill(-1, no router): got %v, want ESRCH", err)
	}
	if err := k.Kill(math.MinInt32, SignalInfoNoInfo(linux.SIGTERM, 100)); err != linuxerr.ESRCH {
		t.Errorf("Kill(INT_MIN): got %v, want ESRCH", err)
	}
	if err := k.Kill(0, SignalInfoNoInfo(linux.SIGTERM, 100)); err != nil {
		t.Errorf("Kill(0): %v", err)
	}
	if err := k.Kill(-100, SignalInfoNoInfo(linux.SIGTERM, 100)); err != nil {
		t.Errorf("Kill(-pgid): %v", err)
	}
	if err := k.Kill(100, SignalInfoNoInfo(linux.Signal(70), 100)); err != linuxerr.EINVAL {
		t.Errorf("Kill with bad signal: got %v, want EINVAL", err)
	}
	// Signal 0 probes without delivering.
	if err := k.Kill(100, SignalInfoNoInfo(0, 100)); err != nil {
		t.Errorf("Kill(sig 0): %v", err)
	}
}

func TestSignalInfoChld(t *testing.T) {
	info := SignalInfoChld(42, 3, 0)
	if info.Code != linux.CLD_EXITED || info.Status() != 3 || info.PID() != 42 {
		t.Errorf("exited child: code %d status %d pid %d", info.Code, info.Status(), info.PID())
	}
	info = SignalInfoChld(42, 0, linux.SIGTERM)
	if info.Code != linux.CLD_KILLED || info.Status() != int32(linux.SIGTERM) {
		t.Errorf("killed child: code %d status %d", info.Code, info.Status())
	}
	info = SignalInfoChld(42, 0, linux.SIGSEGV)
	if info.Code != linux.CLD_DUMPED {
		t.Errorf("dumped child: code %d", info.Code)
	}
}

type recordingSender struct {
	targets   []ProcessID
	broadcast int
}

func (r *recordingSender) SendSignal(target ProcessID, info *linux.SignalInfo) error {
	r.targets = append(r.targets, target)
	return nil
}

func (r *recordingSender) BroadcastSignal(info *linux.SignalInfo) error {
	r.broadcast++
	return nil
}

func TestKillRemote(t *testing.T) {
	k, _ := newTestKernel(t, 1)
	var rs recordingSender
	k.SetExternalSender(&rs)

	if err := k.Kill(200, SignalInfoNoInfo(linux.SIGTERM, 100)); err != nil {
		t.Errorf("Kill(remote pid): %v", err)
	}
	if len(rs.targets) != 1 || rs.targets[0] != 200 {
		t.Errorf("routed targets: got %v, want [200]", rs.targets)
	}
	if err := k.Kill(-1, SignalInfoNoInfo(linux.SIGTERM, 100)); err != nil {
		t.Errorf("Kill(-1): %v", err)
	}
	if rs.broadcast != 1 {
		t.Errorf("broadcasts: got %d, want 1", rs.broadcast)
	}
	if err := k.Kill(-200, SignalInfoNoInfo(linux.SIGTERM, 100)); err != linuxerr.ENOSYS {
		t.Errorf("Kill(remote pgid): got %v, want ENOSYS", err)
	}
}

func TestKillThread(t *testing.T) {
	k, tasks := newTestKernel(t, 2)
	tid := tasks[1].ThreadID()

	if err := k.KillThread(0, SignalInfoPriv(linux.SIGUSR1)); err != linuxerr.EINVAL {
		t.Errorf("KillThread(0): got %v, want EINVAL", err)
	}
	if err := k.KillThread(9999, SignalInfoPriv(linux.SIGUSR1)); err != linuxerr.ESRCH {
		t.Errorf("KillThread(bad tid): got %v, want ESRCH", err)
	}
	if err := k.KillThread(tid, SignalInfoPriv(linux.SIGUSR1)); err != nil {
		t.Fatalf("KillThread: %v", err)
	}
	if info := tasks[1].dequeueSignal(0); info == nil || linux.Signal(info.Signo) != linux.SIGUSR1 {
		t.Errorf("target thread dequeue: got %+v, want SIGUSR1", info)
	}
	if info := tasks[0].dequeueSignal(0); info != nil {
		t.Errorf("other thread dequeue: got %+v, want nil", info)
	}

	if err := k.KillThreadIn(100, tid, SignalInfoPriv(linux.SIGUSR1)); err != nil {
		t.Errorf("KillThreadIn: %v", err)
	}
	if err := k.KillThreadIn(200, tid, SignalInfoPriv(linux.SIGUSR1)); err != linuxerr.ESRCH {
		t.Errorf("KillThreadIn(wrong tgid): got %v, want ESRCH", err)
	}
	if err := k.KillThreadIn(-1, tid, SignalInfoPriv(linux.SIGUSR1)); err != linuxerr.EINVAL {
		t.Errorf("KillThreadIn(-1): got %v, want EINVAL", err)
	}
}
