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

// Package usermem governs access to application memory. All application
// buffers crossing the syscall boundary are validated for accessibility
// before use; an inaccessible buffer fails with EFAULT.
package usermem

import (
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/hostarch"
)

// IO provides access to the contents of an application address space.
type IO interface {
	// CopyIn copies len(dst) bytes from the application memory at addr to
	// dst. It returns the number of bytes copied. If the copy is short,
	// CopyIn returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)

	// CopyOut copies len(src) bytes from src to the application memory at
	// addr. It returns the number of bytes copied. If the copy is short,
	// CopyOut returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)
}

// BytesIO implements IO using a byte slice mapped at address 0. Its primary
// purpose is to serve tests and the in-enclave loader's bootstrap path.
type BytesIO struct {
	Bytes []byte
}

// rangeCheck returns the offset of the range [addr, addr+length) in b, or
// EFAULT if any part of the range is inaccessible.
func (b *BytesIO) rangeCheck(addr hostarch.Addr, length int) (int, error) {
	if length == 0 {
		return int(addr), nil
	}
	if length < 0 {
		return 0, linuxerr.EINVAL
	}
	end, ok := addr.AddLength(uint64(length))
	if !ok || int(end) > len(b.Bytes) {
		return 0, linuxerr.EFAULT
	}
	return int(addr), nil
}

// CopyIn implements IO.CopyIn.
func (b *BytesIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	off, err := b.rangeCheck(addr, len(dst))
	if err != nil {
		return 0, err
	}
	return copy(dst, b.Bytes[off:off+len(dst)]), nil
}

// CopyOut implements IO.CopyOut.
func (b *BytesIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	off, err := b.rangeCheck(addr, len(src))
	if err != nil {
		return 0, err
	}
	return copy(b.Bytes[off:off+len(src)], src), nil
}

// NewBytesIO returns an IO that reads and writes to the given byte slice,
// interpreting addresses as offsets from its start.
func NewBytesIO(bs []byte) *BytesIO {
	return &BytesIO{Bytes: bs}
}
