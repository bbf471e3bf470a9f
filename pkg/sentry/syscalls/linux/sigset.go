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
	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/hostarch"
	"veil.dev/veil/pkg/sentry/kernel"
)

// CopyInSigSet copies in a sigset_t, checks its size, and ensures that
// KILL and STOP are clear.
func CopyInSigSet(t *kernel.Task, sigSetAddr hostarch.Addr, size uint) (linux.SignalSet, error) {
	if size != linux.SignalSetSize {
		return 0, linuxerr.EINVAL
	}
	b := make([]byte, linux.SignalSetSize)
	if _, err := t.Memory().CopyIn(sigSetAddr, b); err != nil {
		return 0, err
	}
	mask := hostarch.ByteOrder.Uint64(b)
	return linux.SignalSet(mask) &^ kernel.UnblockableSignals, nil
}

// copyOutSigSet copies out a sigset_t.
func copyOutSigSet(t *kernel.Task, sigSetAddr hostarch.Addr, mask linux.SignalSet) error {
	b := make([]byte, linux.SignalSetSize)
	hostarch.ByteOrder.PutUint64(b, uint64(mask))
	_, err := t.Memory().CopyOut(sigSetAddr, b)
	return err
}
