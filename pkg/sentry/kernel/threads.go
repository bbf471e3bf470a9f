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
	"fmt"

	"veil.dev/veil/pkg/sync"
)

// TasksLimit is the maximum number of threads for untrusted application.
// Linux doesn't really limit this directly, rather it is limited by total
// memory size, stacks allocated and a global maximum number of processes.
const TasksLimit = (1 << 16)

// ThreadID is a generic thread identifier.
type ThreadID int32

// String returns a decimal representation of the ThreadID.
func (tid ThreadID) String() string {
	return fmt.Sprintf("%d", tid)
}

// ProcessID identifies a process, possibly in another instance.
type ProcessID int32

// ProcessGroupID identifies a process group.
type ProcessGroupID int32

// initTID is the TID given to the first task added to each TaskSet.
const initTID ThreadID = 1

// A TaskSet comprises all tasks in this instance.
type TaskSet struct {
	// mu protects all relationships between tasks and thread groups in the
	// TaskSet. (mu is approximately equivalent to Linux's tasklist_lock.)
	mu sync.RWMutex

	// last is the last ThreadID to be allocated.
	last ThreadID

	// tasks is a mapping from ThreadIDs to tasks.
	tasks map[ThreadID]*Task

	// tids is a mapping from tasks to their identifiers.
	tids map[*Task]ThreadID
}

func newTaskSet() *TaskSet {
	return &TaskSet{
		tasks: make(map[ThreadID]*Task),
		tids:  make(map[*Task]ThreadID),
	}
}

// TaskWithID returns the task with thread ID tid. If no task has that TID,
// TaskWithID returns nil.
func (ts *TaskSet) TaskWithID(tid ThreadID) *Task {
	ts.mu.RLock()
	t := ts.tasks[tid]
	ts.mu.RUnlock()
	return t
}

// IDOfTask returns the TID assigned to the given task. If the task is not
// visible, IDOfTask returns 0.
func (ts *TaskSet) IDOfTask(t *Task) ThreadID {
	ts.mu.RLock()
	id := ts.tids[t]
	ts.mu.RUnlock()
	return id
}

// Tasks returns a snapshot of the tasks in ts.
func (ts *TaskSet) Tasks() []*Task {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	tasks := make([]*Task, 0, len(ts.tasks))
	for t := range ts.tids {
		tasks = append(tasks, t)
	}
	return tasks
}

// assignTIDLocked allocates a new ThreadID for t.
//
// Preconditions: ts.mu must be locked for writing.
func (ts *TaskSet) assignTIDLocked(t *Task) (ThreadID, error) {
	// Compute the next TID.
	tid := ts.last
	for {
		tid++
		if tid > TasksLimit {
			tid = initTID
		}
		if _, ok := ts.tasks[tid]; !ok {
			break
		}
		if tid == ts.last {
			return 0, fmt.Errorf("TID space exhausted")
		}
	}
	ts.last = tid
	ts.tasks[tid] = t
	ts.tids[t] = tid
	return tid, nil
}

// removeTask removes t from the TaskSet.
func (ts *TaskSet) removeTask(t *Task) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if tid, ok := ts.tids[t]; ok {
		delete(ts.tasks, tid)
		delete(ts.tids, t)
	}
}

// A ThreadGroup is the set of tasks making up a single process. All of its
// threads share the same signal disposition table and the same
// process-directed pending signal queue.
type ThreadGroup struct {
	// ts is the TaskSet containing this thread group. The ts pointer is
	// immutable.
	ts *TaskSet

	// signalHandlers is the set of signal dispositions used by every task in
	// this thread group. The signalHandlers pointer is immutable.
	signalHandlers *SignalHandlers

	// pendingMu protects pendingSignals.
	pendingMu sync.Mutex

	// pendingSignals is the set of pending process-directed signals. Any
	// task in the thread group may dequeue from it.
	pendingSignals pendingSignals

	// tasksMu protects tasks.
	tasksMu sync.RWMutex

	// tasks is all tasks in the thread group that have not exited, in
	// creation order. Signal routing walks this list front to back.
	tasks []*Task

	// leader is the first task created in the thread group. The leader
	// pointer is set once and immutable afterwards.
	leader *Task
}

// SignalHandlers returns the signal dispositions shared by tg's threads.
func (tg *ThreadGroup) SignalHandlers() *SignalHandlers {
	return tg.signalHandlers
}

// Leader returns tg's leader.
func (tg *ThreadGroup) Leader() *Task {
	tg.tasksMu.RLock()
	defer tg.tasksMu.RUnlock()
	return tg.leader
}

// Count returns the number of non-exited threads in the group.
func (tg *ThreadGroup) Count() int {
	tg.tasksMu.RLock()
	defer tg.tasksMu.RUnlock()
	return len(tg.tasks)
}

// Tasks returns a snapshot of the threads in tg, in routing order.
func (tg *ThreadGroup) Tasks() []*Task {
	tg.tasksMu.RLock()
	defer tg.tasksMu.RUnlock()
	return append([]*Task(nil), tg.tasks...)
}

func (tg *ThreadGroup) addTask(t *Task) {
	tg.tasksMu.Lock()
	if tg.leader == nil {
		tg.leader = t
	}
	tg.tasks = append(tg.tasks, t)
	tg.tasksMu.Unlock()
}

func (tg *ThreadGroup) removeTask(t *Task) {
	tg.tasksMu.Lock()
	for i, task := range tg.tasks {
		if task == t {
			tg.tasks = append(tg.tasks[:i], tg.tasks[i+1:]...)
			break
		}
	}
	tg.tasksMu.Unlock()
}

// ThreadGroup returns the thread group containing t.
func (t *Task) ThreadGroup() *ThreadGroup {
	return t.tg
}

// TaskSet returns the TaskSet containing t.
func (t *Task) TaskSet() *TaskSet {
	return t.tg.ts
}

// ThreadID returns t's thread ID. If the task is dead, ThreadID returns 0.
func (t *Task) ThreadID() ThreadID {
	return t.tg.ts.IDOfTask(t)
}
