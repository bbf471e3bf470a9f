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

// Package linux provides syscall-shaped entry points into the signal core:
// argument and buffer validation on top of the kernel package's semantics.
package linux

import (
	"time"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/hostarch"
	"veil.dev/veil/pkg/sentry/kernel"
)

// Kill implements linux syscall kill(2).
func Kill(t *kernel.Task, pid kernel.ProcessID, sig linux.Signal) error {
	info := kernel.SignalInfoNoInfo(sig, t.Kernel().ProcessID())
	return t.Kernel().Kill(pid, info)
}

// Tkill implements linux syscall tkill(2).
func Tkill(t *kernel.Task, tid kernel.ThreadID, sig linux.Signal) error {
	if sig != 0 && !sig.IsValid() {
		return linuxerr.EINVAL
	}
	return t.Kernel().KillThread(tid, tkillSignalInfo(t, sig))
}

// Tgkill implements linux syscall tgkill(2).
func Tgkill(t *kernel.Task, tgid kernel.ProcessID, tid kernel.ThreadID, sig linux.Signal) error {
	if sig != 0 && !sig.IsValid() {
		return linuxerr.EINVAL
	}
	return t.Kernel().KillThreadIn(tgid, tid, tkillSignalInfo(t, sig))
}

func tkillSignalInfo(t *kernel.Task, sig linux.Signal) *linux.SignalInfo {
	info := &linux.SignalInfo{
		Signo: int32(sig),
		Code:  linux.SignalInfoTkill,
	}
	info.SetPID(int32(t.Kernel().ProcessID()))
	return info
}

// RtSigaction implements linux syscall rt_sigaction(2).
func RtSigaction(t *kernel.Task, sig linux.Signal, newactAddr, oldactAddr hostarch.Addr, sigsetsize uint) error {
	if sigsetsize != linux.SignalSetSize {
		return linuxerr.EINVAL
	}

	var newactptr *linux.SigAction
	if newactAddr != 0 {
		b := make([]byte, linux.SizeOfSigAction)
		if _, err := t.Memory().CopyIn(newactAddr, b); err != nil {
			return err
		}
		var newact linux.SigAction
		newact.UnmarshalBytes(b)
		// On amd64 the userspace runtime must provide its own restorer;
		// there is no kernel vsyscall trampoline to fall back to.
		if newact.Handler != linux.SIG_DFL && newact.Handler != linux.SIG_IGN && !newact.HasRestorer() {
			t.Warningf("rt_sigaction: signal %d handler without SA_RESTORER", sig)
			return linuxerr.EINVAL
		}
		newactptr = &newact
	}
	oldact, err := t.ThreadGroup().SignalHandlers().SetSigAction(sig, newactptr)
	if err != nil {
		return err
	}
	if oldactAddr != 0 {
		b := make([]byte, linux.SizeOfSigAction)
		oldact.MarshalBytes(b)
		if _, err := t.Memory().CopyOut(oldactAddr, b); err != nil {
			return err
		}
	}
	return nil
}

// RtSigprocmask implements linux syscall rt_sigprocmask(2).
func RtSigprocmask(t *kernel.Task, how int, setAddr, oldSetAddr hostarch.Addr, sigsetsize uint) error {
	if sigsetsize != linux.SignalSetSize {
		return linuxerr.EINVAL
	}
	// how is validated up front, even for query-only calls.
	switch how {
	case linux.SIG_BLOCK, linux.SIG_UNBLOCK, linux.SIG_SETMASK:
	default:
		return linuxerr.EINVAL
	}
	oldmask := t.SignalMask()
	if setAddr != 0 {
		mask, err := CopyInSigSet(t, setAddr, sigsetsize)
		if err != nil {
			return err
		}
		switch how {
		case linux.SIG_BLOCK:
			t.SetSignalMask(oldmask | mask)
		case linux.SIG_UNBLOCK:
			t.SetSignalMask(oldmask &^ mask)
		case linux.SIG_SETMASK:
			t.SetSignalMask(mask)
		}
	}
	if oldSetAddr != 0 {
		return copyOutSigSet(t, oldSetAddr, oldmask)
	}
	return nil
}

// Sigaltstack implements linux syscall sigaltstack(2).
func Sigaltstack(t *kernel.Task, setAddr, oldAddr hostarch.Addr) error {
	if oldAddr != 0 {
		old := t.SignalStack()
		b := make([]byte, linux.SizeOfSignalStack)
		old.MarshalBytes(b)
		if _, err := t.Memory().CopyOut(oldAddr, b); err != nil {
			return err
		}
	}
	if setAddr != 0 {
		b := make([]byte, linux.SizeOfSignalStack)
		if _, err := t.Memory().CopyIn(setAddr, b); err != nil {
			return err
		}
		var alt linux.SignalStack
		alt.UnmarshalBytes(b)
		if err := t.SetSignalStack(alt); err != nil {
			return err
		}
	}
	return nil
}

// RtSigpending implements linux syscall rt_sigpending(2).
func RtSigpending(t *kernel.Task, addr hostarch.Addr, sigsetsize uint) error {
	if sigsetsize != linux.SignalSetSize {
		return linuxerr.EINVAL
	}
	return copyOutSigSet(t, addr, t.PendingSignals())
}

// RtSigsuspend implements linux syscall rt_sigsuspend(2).
func RtSigsuspend(t *kernel.Task, sigSetAddr hostarch.Addr, sigsetsize uint) error {
	mask, err := CopyInSigSet(t, sigSetAddr, sigsetsize)
	if err != nil {
		return err
	}
	return t.Sigsuspend(mask)
}

// RtSigtimedwait implements linux syscall rt_sigtimedwait(2).
func RtSigtimedwait(t *kernel.Task, sigSetAddr, siginfoAddr, timespecAddr hostarch.Addr, sigsetsize uint) (linux.Signal, error) {
	set, err := CopyInSigSet(t, sigSetAddr, sigsetsize)
	if err != nil {
		return 0, err
	}

	var timeout time.Duration
	haveTimeout := false
	if timespecAddr != 0 {
		b := make([]byte, linux.SizeOfTimespec)
		if _, err := t.Memory().CopyIn(timespecAddr, b); err != nil {
			return 0, err
		}
		var ts linux.Timespec
		ts.UnmarshalBytes(b)
		if !ts.Valid() {
			return 0, linuxerr.EINVAL
		}
		timeout = time.Duration(ts.ToNsecCapped())
		haveTimeout = true
	}

	info, err := t.Sigtimedwait(set, timeout, haveTimeout)
	if err != nil {
		return 0, err
	}
	if siginfoAddr != 0 {
		b := make([]byte, linux.SizeOfSignalInfo)
		info.MarshalBytes(b)
		if _, err := t.Memory().CopyOut(siginfoAddr, b); err != nil {
			return 0, err
		}
	}
	return linux.Signal(info.Signo), nil
}

// RtSigreturn implements the signal mask restoration step of linux syscall
// rt_sigreturn(2). Register state restoration is the trap bridge's concern.
func RtSigreturn(t *kernel.Task) {
	t.SignalReturn()
}
