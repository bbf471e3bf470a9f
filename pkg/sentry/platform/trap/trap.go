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

// Package trap translates hardware exceptions raised by the untrusted
// application into POSIX signals, builds handler frames for caught signals,
// and restores the interrupted context on signal return.
package trap

import (
	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/hostarch"
	"veil.dev/veil/pkg/log"
	"veil.dev/veil/pkg/sentry/arch"
	"veil.dev/veil/pkg/sentry/kernel"
	"veil.dev/veil/pkg/sync"
)

// Vector is an x86 exception vector number.
type Vector int

// Exception vectors handled by the bridge.
const (
	DivideError        Vector = 0
	Breakpoint         Vector = 3
	InvalidOpcode      Vector = 6
	GeneralProtection  Vector = 13
	PageFault          Vector = 14
	FloatingPointError Vector = 16
	SIMDError          Vector = 19
)

// pfErrPresent is the page-fault error code bit indicating that the fault
// was caused by a protection violation rather than a missing mapping.
const pfErrPresent = 1 << 0

// signalInfoForVector builds the siginfo an application would observe for
// the given exception.
func signalInfoForVector(v Vector, faultAddr hostarch.Addr, errCode uint64) *linux.SignalInfo {
	var sig linux.Signal
	var code int32
	switch v {
	case DivideError:
		sig, code = linux.SIGFPE, linux.FPE_INTDIV
	case Breakpoint:
		sig, code = linux.SIGTRAP, linux.TRAP_BRKPT
	case InvalidOpcode:
		sig, code = linux.SIGILL, linux.ILL_ILLOPC
	case GeneralProtection:
		sig, code = linux.SIGSEGV, linux.SEGV_ACCERR
	case PageFault:
		sig = linux.SIGSEGV
		if errCode&pfErrPresent != 0 {
			code = linux.SEGV_ACCERR
		} else {
			code = linux.SEGV_MAPERR
		}
	case FloatingPointError, SIMDError:
		sig, code = linux.SIGFPE, linux.FPE_FLTINV
	default:
		sig, code = linux.SIGILL, linux.SignalInfoKernel
	}
	info := &linux.SignalInfo{
		Signo: int32(sig),
		Code:  code,
	}
	info.SetAddr(uint64(faultAddr))
	return info
}

// Disposition is the outcome of handling one exception.
type Disposition int

const (
	// Handled means the task's context was rewritten to enter a user
	// signal handler and the task can resume.
	Handled Disposition = iota

	// Resumed means the signal was discarded (ignored disposition) and the
	// task resumes where it faulted.
	Resumed

	// Fatal means the signal's default action terminates the process. The
	// caller must stop the task and report the exit status.
	Fatal
)

// savedContext is the interrupted execution state pushed when entering a
// user signal handler, popped again on signal return.
type savedContext struct {
	ctx arch.Context
}

// Bridge turns exceptions into signal deliveries for one kernel instance.
type Bridge struct {
	k *kernel.Kernel

	mu sync.Mutex

	// saved holds, per task, the stack of contexts interrupted by handler
	// entry. Nested signal handlers push multiple entries.
	saved map[*kernel.Task][]savedContext
}

// New returns a Bridge delivering to k's process.
func New(k *kernel.Kernel) *Bridge {
	return &Bridge{
		k:     k,
		saved: make(map[*kernel.Task][]savedContext),
	}
}

// Guest frame layout for handler entry: the siginfo followed by the saved
// register file, written below the interrupted (or alternate) stack pointer.
// The 128-byte gap skipped first is the amd64 red zone.
const (
	redZoneSize  = 128
	frameInfoOff = 0
	frameRegsOff = linux.SizeOfSignalInfo
	frameSize    = linux.SizeOfSignalInfo + 18*8
	stackAlign   = 16
)

// HandleException delivers the signal corresponding to the given exception
// to t. regs is the interrupt frame captured by the host vehicle; on a
// Handled disposition it is rewritten to enter the user handler, and on
// Resumed it is left as is.
//
// If the disposition is Fatal, the returned SignalInfo describes the signal
// that terminated the process.
func (b *Bridge) HandleException(t *kernel.Task, v Vector, faultAddr hostarch.Addr, errCode uint64, regs *arch.Registers) (Disposition, *linux.SignalInfo, error) {
	t.Arch().Regs = *regs
	info := signalInfoForVector(v, faultAddr, errCode)
	t.Debugf("exception vector %d at %#x (fault addr %#x)", v, regs.Rip, faultAddr)
	if err := t.SendSignal(info); err != nil {
		return Fatal, info, err
	}
	d, fatalInfo, err := b.deliverPending(t)
	if d == Handled || d == Resumed {
		*regs = t.Arch().Regs
	}
	return d, fatalInfo, err
}

// DeliverPending enters a user handler for the next deliverable pending
// signal of t, if any, rewriting regs for the handler. It is called on the
// return-to-application path after syscalls and interrupts.
func (b *Bridge) DeliverPending(t *kernel.Task, regs *arch.Registers) (Disposition, *linux.SignalInfo, error) {
	t.Arch().Regs = *regs
	d, info, err := b.deliverPending(t)
	if d == Handled || d == Resumed {
		*regs = t.Arch().Regs
	}
	return d, info, err
}

func (b *Bridge) deliverPending(t *kernel.Task) (Disposition, *linux.SignalInfo, error) {
	for {
		info, act, handle := t.PrepareHandler()
		if info == nil {
			return Resumed, nil, nil
		}
		sig := linux.Signal(info.Signo)
		if !handle {
			if act.Handler == linux.SIG_DFL && !defaultIsIgnore(sig) {
				t.Warningf("fatal signal %d, core=%t", sig, defaultIsCore(sig))
				return Fatal, info, nil
			}
			// Ignored; look for another deliverable signal.
			continue
		}
		if err := b.enterHandler(t, info, act); err != nil {
			// The handler frame could not be written to the stack.
			// Linux force-delivers SIGSEGV in this case; with the
			// stack gone that is fatal here.
			t.Warningf("failed to set up frame for signal %d: %v", sig, err)
			return Fatal, kernel.SignalInfoPriv(linux.SIGSEGV), nil
		}
		return Handled, nil, nil
	}
}

// enterHandler writes the handler frame to the guest stack and rewrites t's
// context to start executing the handler.
func (b *Bridge) enterHandler(t *kernel.Task, info *linux.SignalInfo, act linux.SigAction) error {
	interrupted := *t.Arch()

	sp := interrupted.Stack()
	alt := t.SignalStack()
	if act.IsOnStack() && alt.IsEnabled() && !alt.Contains(sp) {
		sp = alt.Top()
	} else {
		sp -= redZoneSize
	}
	sp = (sp - frameSize) &^ hostarch.Addr(stackAlign-1)

	frame := make([]byte, frameSize)
	info.MarshalBytes(frame[frameInfoOff : frameInfoOff+linux.SizeOfSignalInfo])
	marshalRegisters(&interrupted.Regs, frame[frameRegsOff:])
	if _, err := t.Memory().CopyOut(sp, frame); err != nil {
		return err
	}

	// Push the restorer as the handler's return address.
	retSP := sp - 8
	var ret [8]byte
	hostarch.ByteOrder.PutUint64(ret[:], act.Restorer)
	if _, err := t.Memory().CopyOut(retSP, ret[:]); err != nil {
		return err
	}

	b.mu.Lock()
	b.saved[t] = append(b.saved[t], savedContext{ctx: interrupted})
	b.mu.Unlock()

	regs := &t.Arch().Regs
	regs.Rip = act.Handler
	regs.Rsp = uint64(retSP)
	regs.Rdi = uint64(info.Signo)
	regs.Rsi = uint64(sp + frameInfoOff)
	regs.Rdx = uint64(sp + frameRegsOff)
	regs.Rax = 0
	return nil
}

// SignalReturn restores the context interrupted by the innermost handler
// frame of t, along with the signal mask in effect before the handler ran.
func (b *Bridge) SignalReturn(t *kernel.Task, regs *arch.Registers) error {
	b.mu.Lock()
	stack := b.saved[t]
	if len(stack) == 0 {
		b.mu.Unlock()
		log.Warningf("signal return with no handler frame outstanding")
		return linuxerr.EFAULT
	}
	sc := stack[len(stack)-1]
	b.saved[t] = stack[:len(stack)-1]
	b.mu.Unlock()

	*t.Arch() = sc.ctx
	*regs = sc.ctx.Regs
	t.SignalReturn()
	return nil
}

// TaskExited drops any handler frames still outstanding for t.
func (b *Bridge) TaskExited(t *kernel.Task) {
	b.mu.Lock()
	delete(b.saved, t)
	b.mu.Unlock()
}

// marshalRegisters serializes regs in interrupt frame order.
func marshalRegisters(regs *arch.Registers, dst []byte) {
	for i, r := range []uint64{
		regs.R8, regs.R9, regs.R10, regs.R11,
		regs.R12, regs.R13, regs.R14, regs.R15,
		regs.Rdi, regs.Rsi, regs.Rbp, regs.Rbx,
		regs.Rdx, regs.Rax, regs.Rcx, regs.Rsp,
		regs.Rip, regs.Eflags,
	} {
		hostarch.ByteOrder.PutUint64(dst[i*8:], r)
	}
}

func defaultIsIgnore(sig linux.Signal) bool {
	switch sig {
	case linux.SIGCHLD, linux.SIGCONT, linux.SIGURG, linux.SIGWINCH:
		return true
	}
	return false
}

func defaultIsCore(sig linux.Signal) bool {
	switch sig {
	case linux.SIGQUIT, linux.SIGILL, linux.SIGTRAP, linux.SIGABRT, linux.SIGBUS,
		linux.SIGFPE, linux.SIGSEGV, linux.SIGSYS, linux.SIGXCPU, linux.SIGXFSZ:
		return true
	}
	return false
}

// TerminationStatus returns the wait status a parent would observe for a
// process terminated by sig, with the core-dump bit set for core-dumping
// signals.
func TerminationStatus(sig linux.Signal) uint32 {
	status := uint32(sig) & 0x7f
	if defaultIsCore(sig) {
		status |= linux.WCOREDUMPBit
	}
	return status
}
