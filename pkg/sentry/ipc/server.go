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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"veil.dev/veil/pkg/errors/linuxerr"
	"veil.dev/veil/pkg/log"
	"veil.dev/veil/pkg/sentry/kernel"
)

// Server accepts signal messages addressed to the local process.
type Server struct {
	k        *kernel.Kernel
	path     string
	listener net.Listener
}

// NewServer creates a Server listening on the endpoint for k's process ID in
// dir. A stale endpoint left by a previous instance with the same PID is
// replaced.
func NewServer(k *kernel.Kernel, dir string) (*Server, error) {
	path := SocketPath(dir, k.ProcessID())
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Server{k: k, path: path, listener: l}, nil
}

// Path returns the endpoint path the server listens on.
func (s *Server) Path() string {
	return s.path
}

// Serve accepts and handles connections until ctx is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return s.listener.Close()
	})
	g.Go(func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			g.Go(func() error {
				s.handleConn(conn)
				return nil
			})
		}
	})
	return g.Wait()
}

// handleConn serves one peer connection. A connection carries any number of
// request/response pairs.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var msg SignalMessage
		if err := dec.Decode(&msg); err != nil {
			if err != io.EOF {
				log.Warningf("ipc: decoding signal message: %v", err)
			}
			return
		}
		resp := Response{Errno: errnoOf(s.handle(&msg))}
		if err := enc.Encode(&resp); err != nil {
			log.Warningf("ipc: encoding response: %v", err)
			return
		}
	}
}

func (s *Server) handle(msg *SignalMessage) error {
	if msg.Target != s.k.ProcessID() {
		// The sender resolved a PID that is no longer ours.
		return linuxerr.ESRCH
	}
	log.Debugf("ipc: signal %d from process %d", msg.Signo, msg.Sender)
	if msg.TID != 0 {
		return s.k.KillThread(msg.TID, msg.SignalInfo())
	}
	return s.k.DeliverExternalSignal(msg.SignalInfo())
}

func errnoOf(err error) int32 {
	if err == nil {
		return 0
	}
	return int32(linuxerr.ToUnix(err))
}
