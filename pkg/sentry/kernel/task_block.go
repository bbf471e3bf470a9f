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

package kernel

import (
	"time"

	"veil.dev/veil/pkg/errors/linuxerr"
)

// BlockWithTimeout blocks t until an event is received from C, or the
// application monotonic clock indicates that timeout has elapsed (only if
// haveTimeout is true), or t is interrupted. It returns:
//
//   - The remaining timeout.
//
//   - An error which is nil if an event is received from C, ETIMEDOUT if the
//     timeout expired, and ERESTARTNOHAND if t was interrupted.
func (t *Task) BlockWithTimeout(C <-chan struct{}, haveTimeout bool, timeout time.Duration) (time.Duration, error) {
	if !haveTimeout {
		return timeout, t.block(C, nil)
	}

	start := time.Now()
	deadline := start.Add(timeout)
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

	err := t.block(C, tmr.C)
	// Timeout, explicitly return a remaining duration of 0.
	if err == linuxerr.ETIMEDOUT {
		return 0, err
	}

	// Compute the remaining timeout. Note that even if block() above didn't
	// return due to a timeout, we may have used up any of the remaining time
	// since then.
	remaining := deadline.Sub(time.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, err
}

// Block blocks t until an event is received from C or t is interrupted. It
// returns nil if an event is received from C and ERESTARTNOHAND if t is
// interrupted.
func (t *Task) Block(C <-chan struct{}) error {
	return t.block(C, nil)
}

// block blocks the task until an event is received from C, the application
// monotonic clock indicates a timeout (timerChan), or the task is
// interrupted.
func (t *Task) block(C <-chan struct{}, timerChan <-chan time.Time) error {
	select {
	case <-C:
		return nil

	case <-t.interruptChan:
		// Return the indication that the task was interrupted. The
		// caller decides whether the syscall is restartable.
		return linuxerr.ERESTARTNOHAND

	case <-timerChan:
		return linuxerr.ETIMEDOUT
	}
}

// interrupt unblocks the task and interrupts any pending blocking operation.
func (t *Task) interrupt() {
	t.interruptSelf()
	if t.resume != nil {
		// The vehicle may also be suspended at the host; kick it.
		t.resume.Resume()
	}
}

// interruptSelf sends an interrupt notification without waking the host
// vehicle.
func (t *Task) interruptSelf() {
	select {
	case t.interruptChan <- struct{}{}:
	default:
		// A previous interrupt is still pending; the notification is
		// level-triggered, so this one coalesces with it.
	}
}

// Interrupted reports whether an interrupt notification is pending, and
// clears it if clear is true.
func (t *Task) Interrupted(clear bool) bool {
	if !clear {
		return len(t.interruptChan) != 0
	}
	select {
	case <-t.interruptChan:
		return true
	default:
		return false
	}
}
