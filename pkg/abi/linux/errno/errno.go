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

// Package errno holds errno codes for abi/linux.
package errno

// Errno represents a Linux errno value.
type Errno uint32

// Errno values from include/uapi/asm-generic/errno-base.h.
const (
	NOERRNO = iota
	EPERM
	ENOENT
	ESRCH
	EINTR
	EIO
	ENXIO
	E2BIG
	ENOEXEC
	EBADF
	ECHILD // 10
	EAGAIN
	ENOMEM
	EACCES
	EFAULT
	ENOTBLK
	EBUSY
	EEXIST
	EXDEV
	ENODEV
	ENOTDIR // 20
	EISDIR
	EINVAL
	ENFILE
	EMFILE
	ENOTTY
	ETXTBSY
	EFBIG
	ENOSPC
	ESPIPE
	EROFS // 30
	EMLINK
	EPIPE
	EDOM
	ERANGE
)

// Errno values from include/uapi/asm-generic/errno.h.
const (
	EDEADLK = iota + 35
	ENAMETOOLONG
	ENOLCK
	ENOSYS
	ENOTEMPTY
	ELOOP
	_ // Skip for EWOULDBLOCK = EAGAIN.
	ENOMSG
	EIDRM
)

// More errno values from include/uapi/asm-generic/errno.h. Only the values
// the signal core can produce are named; the gap constants keep the
// numbering aligned with Linux.
const (
	ENOTSUP   = 95
	ETIMEDOUT = 110
)

// EWOULDBLOCK is the "blocking" errno alias of EAGAIN.
const EWOULDBLOCK = EAGAIN

// ERESTARTNOHAND is returned by an interrupted syscall that should only be
// restarted if no handler runs; the syscall dispatch layer converts it before
// it is visible to the application.
const ERESTARTNOHAND = 514
