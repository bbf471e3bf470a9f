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

package arch

// Registers is the amd64 general-purpose register file, ordered as in a
// ucontext mcontext.
type Registers struct {
	R8     uint64
	R9     uint64
	R10    uint64
	R11    uint64
	R12    uint64
	R13    uint64
	R14    uint64
	R15    uint64
	Rdi    uint64
	Rsi    uint64
	Rbp    uint64
	Rbx    uint64
	Rdx    uint64
	Rax    uint64
	Rcx    uint64
	Rsp    uint64
	Rip    uint64
	Eflags uint64
}
