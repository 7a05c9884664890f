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

// Package pidfile guards against concurrent daemon instances with a
// pidfile.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// File is one pidfile.
type File struct {
	path string
	file *os.File
}

// New returns a pidfile at the given path. An empty path selects the
// default: /var/run/<binary>.pid for root, /tmp/<binary>.pid
// otherwise.
func New(path string) *File {
	if path == "" {
		path = defaultPath()
	}
	return &File{path: path}
}

// Path returns the pidfile path.
func (p *File) Path() string {
	return p.path
}

// Acquire creates the pidfile with the current process id. When the
// file exists and its owner is still alive, Acquire fails; a stale
// file left behind by a dead process is replaced.
func (p *File) Acquire() error {
	if p.file != nil {
		return nil
	}

	owner, err := p.OwnerPid()
	if err != nil {
		return err
	}
	if owner > 0 && owner != os.Getpid() {
		return errors.Errorf("%s held by running process %d", p.path, owner)
	}
	// Drop any leftover file: a dead owner's, or our own from a
	// previous incarnation.
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing stale pidfile")
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return errors.Wrap(err, "creating pidfile directory")
	}
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating pidfile")
	}
	if _, err := f.Write([]byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		f.Close()
		os.Remove(p.path)
		return errors.Wrap(err, "writing pidfile")
	}
	p.file = f
	return nil
}

// Release removes the pidfile. Releasing an unacquired file is a
// no-op.
func (p *File) Release() error {
	if p.file == nil {
		return nil
	}
	p.file.Close()
	p.file = nil
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing pidfile")
	}
	return nil
}

// OwnerPid returns the pid of the live process owning the file, 0
// when no live owner exists, or -1 with an error when ownership
// could not be determined.
func (p *File) OwnerPid() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "reading pidfile")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return -1, errors.Errorf("invalid pid %q in %s", strings.TrimSpace(string(data)), p.path)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, nil
	}
	err = proc.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return pid, nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return 0, nil
	}
	// EPERM means the process exists but belongs to someone else.
	if errors.Is(err, syscall.EPERM) {
		return pid, nil
	}
	return -1, errors.Wrapf(err, "probing process %d", pid)
}

func defaultPath() string {
	name := "pagetierd"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() == 0 {
		return filepath.Join("/var", "run", name+".pid")
	}
	return filepath.Join("/tmp", name+".pid")
}
