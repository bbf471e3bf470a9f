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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants.
package linuxerr

import (
	"golang.org/x/sys/unix"

	"veil.dev/veil/pkg/abi/linux/errno"
	"veil.dev/veil/pkg/errors"
)

// The following errors are semantically identical to Errno of type unix.Errno
// or syscall.Errno. However, since the types are distinct (these are
// *errors.Error), they are not directly comparable. The Errno method returns
// an Errno number such that the error can be compared to unix/syscall.Errno
// (e.g. unix.Errno(EPERM.Errno()) == unix.EPERM is true). Converting
// unix/syscall.Errno to these errors should be done via the lookup methods
// provided.
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(errno.EPERM, "operation not permitted")
	ESRCH                 = errors.New(errno.ESRCH, "no such process")
	EINTR                 = errors.New(errno.EINTR, "interrupted system call")
	EIO                   = errors.New(errno.EIO, "I/O error")
	EAGAIN                = errors.New(errno.EAGAIN, "try again")
	ENOMEM                = errors.New(errno.ENOMEM, "out of memory")
	EFAULT                = errors.New(errno.EFAULT, "bad address")
	EINVAL                = errors.New(errno.EINVAL, "invalid argument")
	ENOSYS                = errors.New(errno.ENOSYS, "invalid system call number")
	ENOTSUP               = errors.New(errno.ENOTSUP, "operation not supported")
	ETIMEDOUT             = errors.New(errno.ETIMEDOUT, "connection timed out")

	// ERESTARTNOHAND is returned by an interrupted syscall to indicate that
	// it should be converted to EINTR if interrupted by a signal delivered
	// to a user handler, and restarted otherwise.
	ERESTARTNOHAND = errors.New(errno.ERESTARTNOHAND, "to be restarted if no handler")
)

// EWOULDBLOCK is the blocking alias of EAGAIN.
var EWOULDBLOCK = EAGAIN

// errorSlice holds errors by errno for fast translation between errnos and
// *errors.Error. A nil *errors.Error denotes no error.
var errorSlice = []*errors.Error{
	errno.NOERRNO:   noError,
	errno.EPERM:     EPERM,
	errno.ESRCH:     ESRCH,
	errno.EINTR:     EINTR,
	errno.EIO:       EIO,
	errno.EAGAIN:    EAGAIN,
	errno.ENOMEM:    ENOMEM,
	errno.EFAULT:    EFAULT,
	errno.EINVAL:    EINVAL,
	errno.ENOSYS:    ENOSYS,
	errno.ENOTSUP:   ENOTSUP,
	errno.ETIMEDOUT: ETIMEDOUT,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno.
func ErrorFromUnix(err unix.Errno) error {
	if int(err) < len(errorSlice) {
		if e := errorSlice[err]; e != nil {
			return e
		}
	}
	return errors.New(errno.Errno(err), err.Error())
}

// ToUnix converts a linuxerr to its unix.Errno equivalent. A nil error maps
// to errno 0.
func ToUnix(e error) unix.Errno {
	if e == nil {
		return 0
	}
	if linuxErr, ok := e.(*errors.Error); ok {
		return unix.Errno(linuxErr.Errno())
	}
	return unix.EINVAL
}

// Equals compares a linuxerr to a given error.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError
	}
	if e2, ok := err.(*errors.Error); ok {
		return e == e2
	}
	if unixErr, ok := err.(unix.Errno); ok && e != nil {
		return errno.Errno(unixErr) == e.Errno()
	}
	return false
}
