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

package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"

	"veil.dev/veil/pkg/abi/linux"
	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/log"
	"veil.dev/veil/pkg/sentry/kernel"
)

// dialTimeout bounds one delivery attempt, retries included.
const dialTimeout = 2 * time.Second

// Router implements kernel.ExternalSender over the per-instance unix domain
// sockets in a shared runtime directory.
type Router struct {
	dir  string
	self kernel.ProcessID
}

// NewRouter returns a Router for the instance hosting self, using dir as the
// endpoint directory.
func NewRouter(dir string, self kernel.ProcessID) *Router {
	return &Router{dir: dir, self: self}
}

// SendSignal implements kernel.ExternalSender.SendSignal.
func (r *Router) SendSignal(target kernel.ProcessID, info *linux.SignalInfo) error {
	return r.sendTo(SocketPath(r.dir, target), target, 0, info)
}

// SendSignalToThread delivers a thread-directed signal to a specific thread
// of the target process.
func (r *Router) SendSignalToThread(target kernel.ProcessID, tid kernel.ThreadID, info *linux.SignalInfo) error {
	return r.sendTo(SocketPath(r.dir, target), target, tid, info)
}

// BroadcastSignal implements kernel.ExternalSender.BroadcastSignal. Peers
// that disappear mid-broadcast are skipped; the broadcast succeeds if at
// least one peer accepted the signal.
func (r *Router) BroadcastSignal(info *linux.SignalInfo) error {
	paths, err := filepath.Glob(socketGlob(r.dir))
	if err != nil {
		return err
	}
	self := SocketPath(r.dir, r.self)
	delivered := 0
	for _, path := range paths {
		if path == self {
			continue
		}
		var target kernel.ProcessID
		if _, err := fmt.Sscanf(filepath.Base(path), "veil.%d.sock", &target); err != nil {
			continue
		}
		if err := r.sendTo(path, target, 0, info); err != nil {
			log.Infof("ipc: broadcast to process %d: %v", target, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return linuxerr.ESRCH
	}
	return nil
}

// sendTo delivers one signal message to the endpoint at path and waits for
// the acknowledgement.
func (r *Router) sendTo(path string, target kernel.ProcessID, tid kernel.ThreadID, info *linux.SignalInfo) error {
	conn, err := dial(path)
	if err != nil {
		// No endpoint means no such process.
		return linuxerr.ESRCH
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	msg := SignalMessage{
		Sender: r.self,
		Target: target,
		Signo:  info.Signo,
		Code:   info.Code,
		TID:    tid,
	}
	if err := json.NewEncoder(conn).Encode(&msg); err != nil {
		return linuxerr.EIO
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return linuxerr.EIO
	}
	if resp.Errno != 0 {
		return linuxerr.ErrorFromUnix(unix.Errno(resp.Errno))
	}
	return nil
}

// dial connects to the endpoint at path, retrying with exponential backoff
// to ride out an instance that is still binding its socket.
func dial(path string) (net.Conn, error) {
	var conn net.Conn
	op := func() error {
		var err error
		conn, err = net.DialTimeout("unix", path, dialTimeout)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = dialTimeout
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return conn, nil
}
