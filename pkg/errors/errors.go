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

// Package errors defines the errno-keyed error type shared by the error
// spaces in this module.
package errors

import (
	"veil.dev/veil/pkg/abi/linux/errno"
)

// Error pairs an errno with a fixed message. Values are created once, at
// package init time, and compared by pointer.
type Error struct {
	errno errno.Errno
	msg   string
}

// New returns an Error carrying the given errno and message.
func New(num errno.Errno, msg string) *Error {
	return &Error{errno: num, msg: msg}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.msg }

// Errno returns the errno the error represents.
func (e *Error) Errno() errno.Errno { return e.errno }
