// Copyright 2022 The pagetier Authors. All Rights Reserved.
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

// Package server dispatches control-socket commands to the daemon.
package server

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/opentier/pagetier/pkg/api"
	logger "github.com/opentier/pagetier/pkg/log"
)

var log = logger.NewLogger("server")

// Handler processes one decoded request.
type Handler interface {
	Handle(api.Request) api.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(api.Request) api.Response

// Handle calls f.
func (f HandlerFunc) Handle(req api.Request) api.Response {
	return f(req)
}

// Server accepts connections on a unix socket and feeds requests to
// its handler. Connections from peers that are neither root nor the
// daemon's own user are rejected.
type Server struct {
	path    string
	handler Handler

	mutex    sync.Mutex
	listener *net.UnixListener
	closing  bool
	wg       sync.WaitGroup
}

// New returns a server for the given socket path.
func New(path string, handler Handler) *Server {
	return &Server{path: path, handler: handler}
}

// Start creates the socket and begins serving. A stale socket file
// from a previous run is removed; liveness of a previous daemon is
// the pidfile's business, not ours.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating socket directory for %q", s.path)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing stale socket %q", s.path)
	}
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.path, Net: "unix"})
	if err != nil {
		return errors.Wrapf(err, "listening on %q", s.path)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		l.Close()
		return errors.Wrapf(err, "restricting socket %q", s.path)
	}
	s.mutex.Lock()
	s.listener = l
	s.closing = false
	s.mutex.Unlock()

	s.wg.Add(1)
	go s.accept(l)
	log.Info("listening on %s", s.path)
	return nil
}

func (s *Server) accept(l *net.UnixListener) {
	defer s.wg.Done()
	for {
		conn, err := l.AcceptUnix()
		if err != nil {
			s.mutex.Lock()
			closing := s.closing
			s.mutex.Unlock()
			if !closing {
				log.Error("accept on %s: %v", s.path, err)
			}
			return
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn *net.UnixConn) {
	defer s.wg.Done()
	defer conn.Close()

	if err := checkPeer(conn); err != nil {
		log.Warn("rejecting connection: %v", err)
		_ = json.NewEncoder(conn).Encode(api.Error(err))
		return
	}

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req api.Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				log.Debug("decoding request: %v", err)
			}
			return
		}
		resp := s.handler.Handle(req)
		if err := enc.Encode(resp); err != nil {
			log.Debug("encoding response: %v", err)
			return
		}
	}
}

// checkPeer verifies the connecting peer's credentials with
// SO_PEERCRED.
func checkPeer(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "peer credentials unavailable")
	}
	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err == nil {
		err = credErr
	}
	if err != nil {
		return errors.Wrap(err, "peer credentials unavailable")
	}
	if cred.Uid != 0 && cred.Uid != uint32(os.Getuid()) {
		return errors.Errorf("peer uid %d not allowed", cred.Uid)
	}
	return nil
}

// Stop closes the listener, waits for in-flight connections to drain
// and removes the socket file.
func (s *Server) Stop() error {
	s.mutex.Lock()
	l := s.listener
	s.listener = nil
	s.closing = true
	s.mutex.Unlock()
	if l == nil {
		return nil
	}

	var errs *multierror.Error
	if err := l.Close(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "closing listener"))
	}
	s.wg.Wait()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		errs = multierror.Append(errs, errors.Wrapf(err, "removing socket %q", s.path))
	}
	return errs.ErrorOrNil()
}
