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

package tierengine

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opentier/pagetier/pkg/idlescan"
	"github.com/opentier/pagetier/pkg/project"
	"github.com/opentier/pagetier/pkg/stats"
)

const testPid = 4242

// fakeProc builds a procfs lookalike with one writable anonymous
// mapping at 0x1000-0x3000 and an idle-page stream reporting one
// written and one idle page.
func fakeProc(t *testing.T) string {
	t.Helper()
	if os.Getpagesize() != 4096 {
		t.Skip("fake idle-page streams assume 4k pages")
	}
	root := t.TempDir()
	dir := filepath.Join(root, fmt.Sprintf("%d", testPid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps"),
		[]byte("1000-3000 rw-p 00000000 00:00 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"),
		[]byte("testapp\n"), 0o644))

	// 0xfe + address directive, then a PTE-dirty and a PTE-idle
	// record.
	buf := make([]byte, 11)
	buf[0] = 0xfe
	binary.BigEndian.PutUint64(buf[1:9], 0x1000)
	buf[9] = 0x31  // PTE dirty, nr=1
	buf[10] = 0x51 // PTE idle, nr=1

	f, err := os.Create(filepath.Join(dir, idlescan.IdleFileName))
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt(buf, 0x1000)
	require.NoError(t, err)
	return root
}

func testSetup(t *testing.T, root string) (*idlescan.Scanner, *project.Task) {
	t.Helper()
	g, err := idlescan.NewGeometry()
	require.NoError(t, err)
	scanner := idlescan.NewScanner(g, idlescan.Config{
		ProcRoot: root,
		BufMin:   64,
	})
	p, err := project.Parse([]byte(fmt.Sprintf(`
name: testproj
loop: 1
sleep: 0
interval: 1
tasks:
  - name: app
    type: pid
    value: "%d"
    engine: slide
    param:
      t: "1"
`, testPid)))
	require.NoError(t, err)
	return scanner, p.Task("app")
}

func TestSlideRun(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)

	engine, err := New(task.Engine, scanner, task)
	require.NoError(t, err)

	res, err := engine.Run(context.Background(), task, testPid)
	require.NoError(t, err)
	defer res.Grade.Clean()

	// With default weights the dirty page counts 2 and the idle
	// page 0; watermark 1 splits them.
	require.Equal(t, uint64(2), res.Pages)
	require.Equal(t, 1, res.Grade.Hot.Len())
	require.Equal(t, 1, res.Grade.Cold.Len())
	require.Equal(t, uint64(1), res.Resident)
}

func TestSlideBadWatermark(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)
	task.Param["t"] = "zero"
	_, err := New("slide", scanner, task)
	require.Error(t, err)
}

func TestNewUnknownEngine(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)
	_, err := New("bogus", scanner, task)
	require.Error(t, err)
	require.Contains(t, List(), "slide")
}

func TestManagerStartStop(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)
	m := NewManager(scanner, root)

	require.NoError(t, m.StartTask(task))
	require.True(t, m.Running(task.ID()))
	require.Error(t, m.StartTask(task), "double start must fail")

	// The first round runs immediately; wait for its stats.
	require.Eventually(t, func() bool {
		ts, ok := stats.Get().Tasks()["testproj/app"]
		return ok && ts.Scans >= 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.StopTask(task))
	require.False(t, m.Running(task.ID()))
	require.Error(t, m.StopTask(task), "double stop must fail")

	ts := stats.Get().Tasks()["testproj/app"]
	require.Equal(t, uint64(2), ts.Pages)
	require.Equal(t, uint64(1), ts.Hot)
	require.Equal(t, uint64(1), ts.Cold)
	stats.Get().Delete("testproj", "app")
}

func TestManagerStopProject(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)
	m := NewManager(scanner, root)

	require.NoError(t, m.StartTask(task))
	require.NoError(t, m.StopProject(task.Project()))
	require.False(t, m.Running(task.ID()))
	// Stopping a project with nothing running is not an error.
	require.NoError(t, m.StopProject(task.Project()))
	stats.Get().Delete("testproj", "app")
}

func TestManagerStopAll(t *testing.T) {
	root := fakeProc(t)
	scanner, task := testSetup(t, root)
	m := NewManager(scanner, root)

	require.NoError(t, m.StartTask(task))
	m.StopAll()
	require.False(t, m.Running(task.ID()))
	stats.Get().Delete("testproj", "app")
}

func TestManagerBadTask(t *testing.T) {
	root := fakeProc(t)
	scanner, _ := testSetup(t, root)
	m := NewManager(scanner, root)

	p, err := project.Parse([]byte(`
name: ghosts
loop: 1
interval: 1
tasks:
  - name: ghost
    type: name
    value: no-such-comm
`))
	require.NoError(t, err)
	require.Error(t, m.StartTask(p.Task("ghost")))
}
