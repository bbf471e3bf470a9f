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

// Package kernel provides an emulation of the Linux kernel's signal
// machinery for a single protected process: per-thread and process-directed
// pending signals, shared dispositions, blocking waits, and routing of
// signals between instances through an external sender.
package kernel

import (
	"math"
	"time"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/log"
	"veil.dev/veil/pkg/sync"
)

// pgroupKillLog rate-limits complaints about unroutable process-group kills,
// which misbehaving applications can issue in a tight loop.
var pgroupKillLog = log.BasicRateLimitedLogger(30 * time.Second)

// An ExternalSender routes signals to processes outside this instance. Each
// instance hosts exactly one process; anything addressed to another PID has
// to leave through here.
type ExternalSender interface {
	// SendSignal delivers info to the process identified by target.
	SendSignal(target ProcessID, info *linux.SignalInfo) error

	// BroadcastSignal delivers info to every known process except the
	// sending one.
	BroadcastSignal(info *linux.SignalInfo) error
}

// Kernel represents an instance of the signal core. It owns the single local
// process (thread group) and the registry of its threads.
type Kernel struct {
	// tasks is the registry of all threads in this instance.
	tasks *TaskSet

	// process is the one local thread group. The process pointer is
	// immutable.
	process *ThreadGroup

	// pidMu protects pid and pgid.
	pidMu sync.Mutex

	// pid is the process ID of the local process, as visible to the
	// application and to peer instances.
	pid ProcessID

	// pgid is the process group the local process belongs to.
	pgid ProcessGroupID

	// externMu protects extern.
	externMu sync.Mutex

	// extern, if not nil, routes signals addressed to other processes.
	extern ExternalSender
}

// New returns a Kernel hosting a single process with the given IDs and
// default signal dispositions.
func New(pid ProcessID, pgid ProcessGroupID) *Kernel {
	k := &Kernel{
		tasks: newTaskSet(),
		pid:   pid,
		pgid:  pgid,
	}
	k.process = &ThreadGroup{
		ts:             k.tasks,
		signalHandlers: NewSignalHandlers(),
	}
	return k
}

// Process returns the local thread group.
func (k *Kernel) Process() *ThreadGroup {
	return k.process
}

// TaskSet returns the thread registry.
func (k *Kernel) TaskSet() *TaskSet {
	return k.tasks
}

// ProcessID returns the local process ID.
func (k *Kernel) ProcessID() ProcessID {
	k.pidMu.Lock()
	defer k.pidMu.Unlock()
	return k.pid
}

// ProcessGroupID returns the local process group ID.
func (k *Kernel) ProcessGroupID() ProcessGroupID {
	k.pidMu.Lock()
	defer k.pidMu.Unlock()
	return k.pgid
}

// SetProcessGroupID changes the local process group, as setpgid would.
func (k *Kernel) SetProcessGroupID(pgid ProcessGroupID) {
	k.pidMu.Lock()
	k.pgid = pgid
	k.pidMu.Unlock()
}

// SetExternalSender installs the router used for signals addressed to other
// processes. Passing nil disconnects the instance.
func (k *Kernel) SetExternalSender(extern ExternalSender) {
	k.externMu.Lock()
	k.extern = extern
	k.externMu.Unlock()
}

func (k *Kernel) externalSender() ExternalSender {
	k.externMu.Lock()
	defer k.externMu.Unlock()
	return k.extern
}

// Kill implements the pid conventions of kill(2):
//
//   - pid > 0 signals the process with that ID.
//   - pid == 0 signals every process in the caller's process group.
//   - pid == -1 signals every process the caller can reach, excluding itself.
//   - pid < -1 signals every process in the process group with ID -pid.
//
// A signal number of 0 performs the existence checks without sending
// anything.
func (k *Kernel) Kill(pid ProcessID, info *linux.SignalInfo) error {
	sig := linux.Signal(info.Signo)
	if sig != 0 && !sig.IsValid() {
		return linuxerr.EINVAL
	}
	switch {
	case pid > 0:
		return k.killProcess(pid, info)
	case pid == 0:
		return k.killProcessGroup(k.ProcessGroupID(), info)
	case pid == -1:
		return k.killAll(info)
	case pid == math.MinInt32:
		// -pid is not representable.
		return linuxerr.ESRCH
	default:
		return k.killProcessGroup(ProcessGroupID(-pid), info)
	}
}

// killProcess delivers a process-directed signal to the process with the
// given ID, locally or through the external sender.
func (k *Kernel) killProcess(pid ProcessID, info *linux.SignalInfo) error {
	if pid == k.ProcessID() {
		if info.Signo == 0 {
			return nil
		}
		return k.process.SendSignal(info)
	}
	extern := k.externalSender()
	if extern == nil {
		return linuxerr.ESRCH
	}
	return extern.SendSignal(pid, info)
}

// killProcessGroup delivers a process-directed signal to every member of the
// given process group that this instance can see. Group membership of remote
// processes is not tracked, so a group with no local member cannot be
// resolved.
func (k *Kernel) killProcessGroup(pgid ProcessGroupID, info *linux.SignalInfo) error {
	if pgid == k.ProcessGroupID() {
		if info.Signo == 0 {
			return nil
		}
		return k.process.SendSignal(info)
	}
	if k.externalSender() == nil {
		return linuxerr.ESRCH
	}
	// Peer instances do not advertise their process groups.
	pgroupKillLog.Warningf("kill to remote process group %d is not supported", pgid)
	return linuxerr.ENOSYS
}

// killAll delivers a process-directed signal to every reachable process
// except the caller's own.
func (k *Kernel) killAll(info *linux.SignalInfo) error {
	extern := k.externalSender()
	if extern == nil {
		return linuxerr.ESRCH
	}
	if info.Signo == 0 {
		return nil
	}
	return extern.BroadcastSignal(info)
}

// KillThread implements tkill(2): a thread-directed signal addressed by TID
// alone.
func (k *Kernel) KillThread(tid ThreadID, info *linux.SignalInfo) error {
	if tid <= 0 {
		return linuxerr.EINVAL
	}
	t := k.tasks.TaskWithID(tid)
	if t == nil {
		return linuxerr.ESRCH
	}
	return t.SendSignal(info)
}

// KillThreadIn implements tgkill(2): a thread-directed signal that is only
// delivered if the thread still belongs to the given thread group.
func (k *Kernel) KillThreadIn(tgid ProcessID, tid ThreadID, info *linux.SignalInfo) error {
	if tgid <= 0 || tid <= 0 {
		return linuxerr.EINVAL
	}
	if tgid != k.ProcessID() {
		return linuxerr.ESRCH
	}
	return k.KillThread(tid, info)
}

// DeliverExternalSignal injects a process-directed signal received from a
// peer instance.
func (k *Kernel) DeliverExternalSignal(info *linux.SignalInfo) error {
	sig := linux.Signal(info.Signo)
	if sig == 0 {
		return nil
	}
	if !sig.IsValid() {
		return linuxerr.EINVAL
	}
	return k.process.SendSignal(info)
}
