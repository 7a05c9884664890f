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

package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opentier/pagetier/pkg/api"
	"github.com/opentier/pagetier/pkg/client"
)

func echoHandler(req api.Request) api.Response {
	return api.Response{Code: api.CodeOK, Message: req.Command + ":" + req.Project}
}

func startServer(t *testing.T, handler Handler) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagetierd.sock")
	s := New(path, handler)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s, path
}

func TestRequestResponse(t *testing.T) {
	_, path := startServer(t, HandlerFunc(echoHandler))

	c, err := client.Dial(path)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(api.Request{Command: api.CmdProjectShow, Project: "p1"})
	require.NoError(t, err)
	require.Equal(t, api.CodeOK, resp.Code)
	require.Equal(t, "project.show:p1", resp.Message)

	// The connection stays usable for further requests.
	resp, err = c.Do(api.Request{Command: api.CmdTaskStart, Project: "p2"})
	require.NoError(t, err)
	require.Equal(t, "task.start:p2", resp.Message)
}

func TestErrorResponse(t *testing.T) {
	_, path := startServer(t, HandlerFunc(func(req api.Request) api.Response {
		return api.Response{Code: api.CodeError, Message: "no such project"}
	}))

	c, err := client.Dial(path)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(api.Request{Command: api.CmdProjectDel, Project: "ghost"})
	require.Error(t, err)
	require.Equal(t, api.CodeError, resp.Code)
}

func TestStopRemovesSocket(t *testing.T) {
	s, path := startServer(t, HandlerFunc(echoHandler))
	require.NoError(t, s.Stop())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	// Stopping twice is harmless.
	require.NoError(t, s.Stop())
}

func TestRestartOverStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagetierd.sock")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o600))

	s := New(path, HandlerFunc(echoHandler))
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	c, err := client.Dial(path)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Do(api.Request{Command: api.CmdProjectShow})
	require.NoError(t, err)
}

func TestDialNoServer(t *testing.T) {
	_, err := client.Dial(filepath.Join(t.TempDir(), "nonexistent.sock"))
	require.Error(t, err)
}
