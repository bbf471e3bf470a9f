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

package linux

import (
	"veil.dev/veil/pkg/bits"
	"veil.dev/veil/pkg/hostarch"
)

const (
	// SignalMaximum is the highest valid signal number.
	SignalMaximum = 64

	// FirstStdSignal is the lowest standard signal number.
	FirstStdSignal = 1

	// LastStdSignal is the highest standard signal number.
	LastStdSignal = 31

	// FirstRTSignal is the lowest real-time signal number.
	//
	// 32 (SIGCANCEL) and 33 (SIGSETXID) are used internally by glibc.
	FirstRTSignal = 32

	// LastRTSignal is the highest real-time signal number.
	LastRTSignal = 64
)

// Signal is a signal number.
type Signal int

// IsValid returns true if s is a valid standard or realtime signal. (0 is not
// considered valid; interfaces special-casing signal number 0 should check
// for 0 first before asserting validity.)
func (s Signal) IsValid() bool {
	return s > 0 && s <= SignalMaximum
}

// IsStandard returns true if s is a standard signal.
//
// Preconditions: s.IsValid().
func (s Signal) IsStandard() bool {
	return s <= LastStdSignal
}

// IsRealtime returns true if s is a realtime signal.
//
// Preconditions: s.IsValid().
func (s Signal) IsRealtime() bool {
	return s >= FirstRTSignal
}

// Index returns the index for signal s into arrays of both standard and
// realtime signals (e.g. signal masks).
//
// Preconditions: s.IsValid().
func (s Signal) Index() int {
	return int(s - 1)
}

// Signals.
const (
	SIGABRT   = Signal(6)
	SIGALRM   = Signal(14)
	SIGBUS    = Signal(7)
	SIGCHLD   = Signal(17)
	SIGCLD    = Signal(17)
	SIGCONT   = Signal(18)
	SIGFPE    = Signal(8)
	SIGHUP    = Signal(1)
	SIGILL    = Signal(4)
	SIGINT    = Signal(2)
	SIGIO     = Signal(29)
	SIGIOT    = Signal(6)
	SIGKILL   = Signal(9)
	SIGPIPE   = Signal(13)
	SIGPOLL   = Signal(29)
	SIGPROF   = Signal(27)
	SIGPWR    = Signal(30)
	SIGQUIT   = Signal(3)
	SIGSEGV   = Signal(11)
	SIGSTKFLT = Signal(16)
	SIGSTOP   = Signal(19)
	SIGSYS    = Signal(31)
	SIGTERM   = Signal(15)
	SIGTRAP   = Signal(5)
	SIGTSTP   = Signal(20)
	SIGTTIN   = Signal(21)
	SIGTTOU   = Signal(22)
	SIGUNUSED = Signal(31)
	SIGURG    = Signal(23)
	SIGUSR1   = Signal(10)
	SIGUSR2   = Signal(12)
	SIGVTALRM = Signal(26)
	SIGWINCH  = Signal(28)
	SIGXCPU   = Signal(24)
	SIGXFSZ   = Signal(25)
)

// SignalSet is a signal mask with a bit corresponding to each signal.
type SignalSet uint64

// SignalSetSize is the size in bytes of a SignalSet.
const SignalSetSize = 8

// MakeSignalSet returns SignalSet with the bit corresponding to each of the
// given signals set.
func MakeSignalSet(sigs ...Signal) SignalSet {
	indices := make([]int, len(sigs))
	for i, sig := range sigs {
		indices[i] = sig.Index()
	}
	return SignalSet(bits.Mask64(indices...))
}

// SignalSetOf returns a SignalSet with a single signal set.
func SignalSetOf(sig Signal) SignalSet {
	return SignalSet(bits.MaskOf64(sig.Index()))
}

// ForEachSignal invokes f for each signal set in the given mask.
func ForEachSignal(mask SignalSet, f func(sig Signal)) {
	bits.ForEachSetBit64(uint64(mask), func(i int) {
		f(Signal(i + 1))
	})
}

// 'how' values for rt_sigprocmask(2).
const (
	// SIG_BLOCK blocks the signals in the set.
	SIG_BLOCK = 0

	// SIG_UNBLOCK unblocks the signals in the set.
	SIG_UNBLOCK = 1

	// SIG_SETMASK sets the signal mask to set.
	SIG_SETMASK = 2
)

// Signal actions for rt_sigaction(2), from uapi/asm-generic/signal-defs.h.
const (
	// SIG_DFL performs the default action.
	SIG_DFL = 0

	// SIG_IGN ignores the signal.
	SIG_IGN = 1
)

// Signal action flags for rt_sigaction(2), from uapi/asm-generic/signal.h.
const (
	SA_NOCLDSTOP = 0x00000001
	SA_NOCLDWAIT = 0x00000002
	SA_SIGINFO   = 0x00000004
	SA_RESTORER  = 0x04000000
	SA_ONSTACK   = 0x08000000
	SA_RESTART   = 0x10000000
	SA_NODEFER   = 0x40000000
	SA_RESETHAND = 0x80000000
	SA_NOMASK    = SA_NODEFER
	SA_ONESHOT   = SA_RESETHAND
)

// Signal stack flags for sigaltstack(2), from include/uapi/linux/signal.h.
const (
	SS_ONSTACK = 1
	SS_DISABLE = 2
)

// MINSIGSTKSZ is the minimum allowed size for an alternate signal stack, from
// arch/x86/include/uapi/asm/signal.h.
const MINSIGSTKSZ = 2048

// SIGSTKSZ is the default allowed size for an alternate signal stack, from
// arch/x86/include/uapi/asm/signal.h.
const SIGSTKSZ = 8192

// SigAction represents struct sigaction.
type SigAction struct {
	Handler  uint64
	Flags    uint64
	Restorer uint64
	Mask     SignalSet
}

// SizeOfSigAction is the size in bytes of SigAction's representation in guest
// memory.
const SizeOfSigAction = 32

// IsSigInfo returns true iff this action expects siginfo.
func (s SigAction) IsSigInfo() bool {
	return s.Flags&SA_SIGINFO != 0
}

// IsNoDefer returns true iff this action has the NoDefer flag set.
func (s SigAction) IsNoDefer() bool {
	return s.Flags&SA_NODEFER != 0
}

// IsRestart returns true iff this action has the Restart flag set.
func (s SigAction) IsRestart() bool {
	return s.Flags&SA_RESTART != 0
}

// IsResetHandler returns true iff this action has the ResetHandler flag set.
func (s SigAction) IsResetHandler() bool {
	return s.Flags&SA_RESETHAND != 0
}

// IsOnStack returns true iff this action has the OnStack flag set.
func (s SigAction) IsOnStack() bool {
	return s.Flags&SA_ONSTACK != 0
}

// HasRestorer returns true iff this action has the Restorer flag set.
func (s SigAction) HasRestorer() bool {
	return s.Flags&SA_RESTORER != 0
}

// MarshalBytes serializes s into the first SizeOfSigAction bytes of dst.
func (s *SigAction) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[0:8], s.Handler)
	hostarch.ByteOrder.PutUint64(dst[8:16], s.Flags)
	hostarch.ByteOrder.PutUint64(dst[16:24], s.Restorer)
	hostarch.ByteOrder.PutUint64(dst[24:32], uint64(s.Mask))
}

// UnmarshalBytes deserializes s from the first SizeOfSigAction bytes of src.
func (s *SigAction) UnmarshalBytes(src []byte) {
	s.Handler = hostarch.ByteOrder.Uint64(src[0:8])
	s.Flags = hostarch.ByteOrder.Uint64(src[8:16])
	s.Restorer = hostarch.ByteOrder.Uint64(src[16:24])
	s.Mask = SignalSet(hostarch.ByteOrder.Uint64(src[24:32]))
}

// SignalStack represents information about a user stack, and is equivalent to
// stack_t.
type SignalStack struct {
	Addr  uint64
	Flags uint32
	_     uint32
	Size  uint64
}

// SizeOfSignalStack is the size in bytes of SignalStack's representation in
// guest memory.
const SizeOfSignalStack = 24

// Contains checks if the stack pointer is within this stack.
func (s SignalStack) Contains(sp hostarch.Addr) bool {
	return s.Addr < uint64(sp) && uint64(sp) <= s.Addr+s.Size
}

// Top returns the stack's top address.
func (s SignalStack) Top() hostarch.Addr {
	return hostarch.Addr(s.Addr + s.Size)
}

// IsEnabled returns true iff this signal stack is marked as enabled.
func (s SignalStack) IsEnabled() bool {
	return s.Flags&SS_DISABLE == 0
}

// MarshalBytes serializes s into the first SizeOfSignalStack bytes of dst.
func (s *SignalStack) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[0:8], s.Addr)
	hostarch.ByteOrder.PutUint32(dst[8:12], s.Flags)
	hostarch.ByteOrder.PutUint32(dst[12:16], 0)
	hostarch.ByteOrder.PutUint64(dst[16:24], s.Size)
}

// UnmarshalBytes deserializes s from the first SizeOfSignalStack bytes of
// src.
func (s *SignalStack) UnmarshalBytes(src []byte) {
	s.Addr = hostarch.ByteOrder.Uint64(src[0:8])
	s.Flags = hostarch.ByteOrder.Uint32(src[8:12])
	s.Size = hostarch.ByteOrder.Uint64(src[16:24])
}

// Signal info types.
const (
	SI_MASK  = 0xffff0000
	SI_KILL  = 0 << 16
	SI_TIMER = 1 << 16
	SI_POLL  = 2 << 16
	SI_FAULT = 3 << 16
	SI_CHLD  = 4 << 16
	SI_RT    = 5 << 16
	SI_MESGQ = 6 << 16
	SI_SYS   = 7 << 16
)

// Possible values for SignalInfo.Code. These values originate from the Linux
// kernel's include/uapi/asm-generic/siginfo.h.
const (
	// SignalInfoUser (properly SI_USER) indicates that a signal was sent from
	// a kill() or raise() syscall.
	SignalInfoUser = 0

	// SignalInfoKernel (properly SI_KERNEL) indicates that the signal was
	// sent by the kernel.
	SignalInfoKernel = 0x80

	// SignalInfoTimer (properly SI_TIMER) indicates that the signal was sent
	// by an expired timer.
	SignalInfoTimer = -2

	// SignalInfoTkill (properly SI_TKILL) indicates that the signal was sent
	// from a tkill() or tgkill() syscall.
	SignalInfoTkill = -6

	// CLD_* codes are only meaningful for SIGCHLD.

	// CLD_EXITED indicates that a task exited.
	CLD_EXITED = 1

	// CLD_KILLED indicates that a task was killed by a signal.
	CLD_KILLED = 2

	// CLD_DUMPED indicates that a task was killed by a signal and then dumped
	// core.
	CLD_DUMPED = 3

	// SEGV_MAPERR indicates a SIGSEGV on an unmapped address.
	SEGV_MAPERR = 1

	// SEGV_ACCERR indicates a SIGSEGV on a mapped but inaccessible address.
	SEGV_ACCERR = 2

	// ILL_ILLOPC indicates a SIGILL on an illegal opcode.
	ILL_ILLOPC = 1

	// FPE_INTDIV indicates a SIGFPE on an integer divide by zero.
	FPE_INTDIV = 1

	// FPE_FLTINV indicates a SIGFPE on an invalid floating-point operation.
	FPE_FLTINV = 7

	// TRAP_BRKPT indicates a SIGTRAP due to a process breakpoint.
	TRAP_BRKPT = 1

	// BUS_ADRALN indicates a SIGBUS due to invalid address alignment.
	BUS_ADRALN = 1
)

// WCOREDUMP bit in a wait status, indicating that the child dumped core.
const WCOREDUMPBit = 0x80

// SignalInfo represents information about a signal being delivered, and is
// equivalent to struct siginfo in linux kernel
// (linux/include/uapi/asm-generic/siginfo.h).
type SignalInfo struct {
	Signo int32 // Signal number
	Errno int32 // Errno value
	Code  int32 // Signal code
	_     uint32

	// struct siginfo::_sifields is a union. In SignalInfo, fields in the
	// union are accessed through methods.
	//
	// _sifields is padded so that the size of siginfo is SI_MAX_SIZE = 128
	// bytes.
	Fields [128 - 16]byte
}

// SizeOfSignalInfo is the size in bytes of SignalInfo's representation in
// guest memory.
const SizeOfSignalInfo = 128

// FixSignalCodeForUser fixes up si_code.
//
// The si_code we get from Linux may contain the kernel-specific code in the
// top 16 bits if it's positive (e.g., from ptrace). Linux's
// copy_siginfo_to_user does
//
//	err |= __put_user((short)from->si_code, &to->si_code);
//
// to mask out those bits and we need to do the same.
func (s *SignalInfo) FixSignalCodeForUser() {
	if s.Code > 0 {
		s.Code &= 0x0000ffff
	}
}

// PID returns the si_pid field.
func (s *SignalInfo) PID() int32 {
	return int32(hostarch.ByteOrder.Uint32(s.Fields[0:4]))
}

// SetPID mutates the si_pid field.
func (s *SignalInfo) SetPID(val int32) {
	hostarch.ByteOrder.PutUint32(s.Fields[0:4], uint32(val))
}

// UID returns the si_uid field.
func (s *SignalInfo) UID() int32 {
	return int32(hostarch.ByteOrder.Uint32(s.Fields[4:8]))
}

// SetUID mutates the si_uid field.
func (s *SignalInfo) SetUID(val int32) {
	hostarch.ByteOrder.PutUint32(s.Fields[4:8], uint32(val))
}

// Sigval returns the sigval field, which is aliased to both si_int and
// si_ptr.
func (s *SignalInfo) Sigval() uint64 {
	return hostarch.ByteOrder.Uint64(s.Fields[8:16])
}

// SetSigval mutates the sigval field.
func (s *SignalInfo) SetSigval(val uint64) {
	hostarch.ByteOrder.PutUint64(s.Fields[8:16], val)
}

// Addr returns the si_addr field.
func (s *SignalInfo) Addr() uint64 {
	return hostarch.ByteOrder.Uint64(s.Fields[0:8])
}

// SetAddr sets the si_addr field.
func (s *SignalInfo) SetAddr(val uint64) {
	hostarch.ByteOrder.PutUint64(s.Fields[0:8], val)
}

// Status returns the si_status field.
func (s *SignalInfo) Status() int32 {
	return int32(hostarch.ByteOrder.Uint32(s.Fields[8:12]))
}

// SetStatus mutates the si_status field.
func (s *SignalInfo) SetStatus(val int32) {
	hostarch.ByteOrder.PutUint32(s.Fields[8:12], uint32(val))
}

// MarshalBytes serializes s into the first SizeOfSignalInfo bytes of dst.
func (s *SignalInfo) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint32(dst[0:4], uint32(s.Signo))
	hostarch.ByteOrder.PutUint32(dst[4:8], uint32(s.Errno))
	hostarch.ByteOrder.PutUint32(dst[8:12], uint32(s.Code))
	hostarch.ByteOrder.PutUint32(dst[12:16], 0)
	copy(dst[16:128], s.Fields[:])
}

// UnmarshalBytes deserializes s from the first SizeOfSignalInfo bytes of src.
func (s *SignalInfo) UnmarshalBytes(src []byte) {
	s.Signo = int32(hostarch.ByteOrder.Uint32(src[0:4]))
	s.Errno = int32(hostarch.ByteOrder.Uint32(src[4:8]))
	s.Code = int32(hostarch.ByteOrder.Uint32(src[8:12]))
	copy(s.Fields[:], src[16:128])
}
