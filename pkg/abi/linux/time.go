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
	"math"

	"veil.dev/veil/pkg/hostarch"
)

// Timespec represents struct timespec in <time.h>.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// SizeOfTimespec is the size in bytes of Timespec's representation in guest
// memory.
const SizeOfTimespec = 16

// Valid returns whether the timespec contains valid values.
func (ts Timespec) Valid() bool {
	return !(ts.Sec < 0 || ts.Nsec < 0 || ts.Nsec >= TimeNsecPerSec)
}

// ToNsec returns the nanosecond representation.
func (ts Timespec) ToNsec() int64 {
	return int64(ts.Sec)*TimeNsecPerSec + int64(ts.Nsec)
}

// ToNsecCapped returns the safe nanosecond representation.
func (ts Timespec) ToNsecCapped() int64 {
	if ts.Sec > math.MaxInt64/TimeNsecPerSec {
		return math.MaxInt64
	}
	return ts.ToNsec()
}

// MarshalBytes serializes ts into the first SizeOfTimespec bytes of dst.
func (ts *Timespec) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[0:8], uint64(ts.Sec))
	hostarch.ByteOrder.PutUint64(dst[8:16], uint64(ts.Nsec))
}

// UnmarshalBytes deserializes ts from the first SizeOfTimespec bytes of src.
func (ts *Timespec) UnmarshalBytes(src []byte) {
	ts.Sec = int64(hostarch.ByteOrder.Uint64(src[0:8]))
	ts.Nsec = int64(hostarch.ByteOrder.Uint64(src[8:16]))
}
