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

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const goodConfig = `
name: webcache
loop: 3
sleep: 1
interval: 5
tasks:
  - name: app
    type: pid
    value: "1234"
    engine: slide
    param:
      t: "2"
  - name: sidecar
    type: name
    value: redis-server
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(goodConfig))
	require.NoError(t, err)
	require.Equal(t, "webcache", p.Name)
	require.Equal(t, uint32(3), p.Loop)
	require.Equal(t, uint32(1), p.Sleep)
	require.Equal(t, uint32(5), p.Interval)
	require.Len(t, p.Tasks(), 2)

	app := p.Task("app")
	require.NotNil(t, app)
	require.Equal(t, "slide", app.Engine)
	require.Equal(t, "2", app.Param["t"])
	require.Equal(t, "webcache/app", app.ID())
	require.Same(t, p, app.Project())

	require.Nil(t, p.Task("nonexistent"))
}

func TestParseErrors(t *testing.T) {
	tcases := []struct {
		name   string
		config string
	}{
		{name: "missing name", config: "loop: 1\ninterval: 5\ntasks: [{name: a, type: pid, value: \"1\"}]"},
		{name: "zero loop", config: "name: p\nloop: 0\ninterval: 5\ntasks: [{name: a, type: pid, value: \"1\"}]"},
		{name: "zero interval", config: "name: p\nloop: 1\ninterval: 0\ntasks: [{name: a, type: pid, value: \"1\"}]"},
		{name: "no tasks", config: "name: p\nloop: 1\ninterval: 5\ntasks: []"},
		{name: "unnamed task", config: "name: p\nloop: 1\ninterval: 5\ntasks: [{type: pid, value: \"1\"}]"},
		{name: "duplicate task", config: "name: p\nloop: 1\ninterval: 5\ntasks: [{name: a, type: pid, value: \"1\"}, {name: a, type: pid, value: \"2\"}]"},
		{name: "bad task type", config: "name: p\nloop: 1\ninterval: 5\ntasks: [{name: a, type: cgroup, value: \"1\"}]"},
		{name: "missing value", config: "name: p\nloop: 1\ninterval: 5\ntasks: [{name: a, type: pid}]"},
		{name: "unknown field", config: "name: p\nloop: 1\ninterval: 5\nbogus: 1\ntasks: [{name: a, type: pid, value: \"1\"}]"},
		{name: "not yaml", config: ":::"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.config))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(goodConfig), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "webcache", p.Name)

	_, err = Load(filepath.Join(dir, "nonexistent.yaml"))
	require.Error(t, err)
}

func TestResolvePid(t *testing.T) {
	procRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(procRoot, "100"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(procRoot, "100", "comm"), []byte("redis-server\n"), 0o644))

	p, err := Parse([]byte(goodConfig))
	require.NoError(t, err)

	pid, err := p.Task("app").ResolvePid(procRoot)
	require.NoError(t, err)
	require.Equal(t, 1234, pid)

	pid, err = p.Task("sidecar").ResolvePid(procRoot)
	require.NoError(t, err)
	require.Equal(t, 100, pid)

	bad := &Task{TaskConfig: TaskConfig{Name: "x", Type: "name", Value: "ghost"}}
	_, err = bad.ResolvePid(procRoot)
	require.Error(t, err)

	bad = &Task{TaskConfig: TaskConfig{Name: "x", Type: "pid", Value: "-1"}}
	_, err = bad.ResolvePid(procRoot)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	p, err := Parse([]byte(goodConfig))
	require.NoError(t, err)

	require.NoError(t, r.Add(p))
	require.Error(t, r.Add(p), "duplicate add must fail")
	require.Same(t, p, r.Get("webcache"))
	require.Len(t, r.List(), 1)

	require.NoError(t, r.Delete("webcache"))
	require.Error(t, r.Delete("webcache"))
	require.Nil(t, r.Get("webcache"))
	require.Empty(t, r.List())
}
