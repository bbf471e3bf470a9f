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

// Package arch provides abstractions around architecture-dependent details,
// such as the portable execution context that signal delivery and fault
// handling operate on.
package arch

import (
	"veil.dev/veil/pkg/hostarch"
)

// FloatingPointData is a reference to the extended (FP/vector) register save
// area of a thread. It is referenced, never deep-copied: faults are hot paths
// and the save area can be multiple KiB of XSAVE state.
type FloatingPointData []byte

// Context is a portable snapshot of a thread's execution state. It is
// created transiently per trap or per signal return and never persisted
// beyond the handling of one event.
type Context struct {
	// Regs is the general-purpose register file.
	Regs Registers

	// The following fields are kept for ABI shape compatibility with a
	// ucontext mcontext; the trap bridge fills them with zeroes.
	Csgsfsss uint64
	Err      uint64
	Trapno   uint64
	Oldmask  uint64

	// Cr2 is the faulting address for memory faults, 0 otherwise.
	Cr2 uint64

	Mxcsr uint32
	Fpcw  uint16

	// FPState references the thread's extended register state.
	FPState FloatingPointData

	// FPStateUsed is set when FPState is valid.
	FPStateUsed bool
}

// IP returns the current instruction pointer.
func (c *Context) IP() uintptr {
	return uintptr(c.Regs.Rip)
}

// SetIP sets the current instruction pointer.
func (c *Context) SetIP(value uintptr) {
	c.Regs.Rip = uint64(value)
}

// Stack returns the current stack pointer.
func (c *Context) Stack() hostarch.Addr {
	return hostarch.Addr(c.Regs.Rsp)
}

// SetStack sets the current stack pointer.
func (c *Context) SetStack(value hostarch.Addr) {
	c.Regs.Rsp = uint64(value)
}

// Return returns the syscall return value (rax).
func (c *Context) Return() uintptr {
	return uintptr(c.Regs.Rax)
}

// SetReturn sets the syscall return value (rax).
func (c *Context) SetReturn(value uintptr) {
	c.Regs.Rax = uint64(value)
}
