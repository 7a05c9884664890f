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
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/opentier/pagetier/pkg/idlescan"
	logger "github.com/opentier/pagetier/pkg/log"
	"github.com/opentier/pagetier/pkg/project"
	"github.com/opentier/pagetier/pkg/stats"
)

var log = logger.NewLogger("tierengine")

// Manager owns the scan goroutines of started tasks, one per task.
type Manager struct {
	scanner  *idlescan.Scanner
	procRoot string
	stats    *stats.Stats

	mutex   sync.Mutex
	running map[string]*runner
}

type runner struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager returns a manager using the given scanner. procRoot is
// where task pids are resolved, normally "/proc".
func NewManager(scanner *idlescan.Scanner, procRoot string) *Manager {
	return &Manager{
		scanner:  scanner,
		procRoot: procRoot,
		stats:    stats.Get(),
		running:  map[string]*runner{},
	}
}

// StartTask launches the scan loop of one task. The engine runs one
// round immediately and then every project interval until stopped.
func (m *Manager) StartTask(task *project.Task) error {
	engine, err := New(task.Engine, m.scanner, task)
	if err != nil {
		return err
	}
	pid, err := task.ResolvePid(m.procRoot)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.running[task.ID()]; ok {
		return errors.Errorf("task %q already started", task.ID())
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{cancel: cancel, done: make(chan struct{})}
	m.running[task.ID()] = r
	go m.run(ctx, task, engine, pid, r.done)
	log.Info("task %q started, scanning pid %d", task.ID(), pid)
	return nil
}

func (m *Manager) run(ctx context.Context, task *project.Task, engine Engine, pid int, done chan struct{}) {
	defer close(done)
	interval := time.Duration(task.Project().Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.round(ctx, task, engine, pid)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) round(ctx context.Context, task *project.Task, engine Engine, pid int) {
	start := time.Now()
	res, err := engine.Run(ctx, task, pid)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("scan of task %q (pid %d) failed: %v", task.ID(), pid, err)
		m.stats.Store(stats.TaskScanned{
			Project: task.Project().Name,
			Task:    task.Name,
			Pid:     pid,
			Failed:  true,
		})
		return
	}
	hot, cold := uint64(res.Grade.Hot.Len()), uint64(res.Grade.Cold.Len())
	m.stats.Store(stats.TaskScanned{
		Project:  task.Project().Name,
		Task:     task.Name,
		Pid:      pid,
		Pages:    res.Pages,
		Hot:      hot,
		Cold:     cold,
		Resident: res.Resident,
		Duration: time.Since(start),
	})
	log.Debug("task %q: %d pages, %d hot, %d cold, ~%d resident",
		task.ID(), res.Pages, hot, cold, res.Resident)
	// Classification consumers hook in here; this daemon stops at
	// reporting, so release the grade.
	res.Grade.Clean()
}

// StopTask stops the scan loop of one task and waits for it to
// drain.
func (m *Manager) StopTask(task *project.Task) error {
	m.mutex.Lock()
	r, ok := m.running[task.ID()]
	if ok {
		delete(m.running, task.ID())
	}
	m.mutex.Unlock()
	if !ok {
		return errors.Errorf("task %q not started", task.ID())
	}
	r.cancel()
	<-r.done
	log.Info("task %q stopped", task.ID())
	return nil
}

// StopProject stops all started tasks of a project, aggregating
// per-task errors.
func (m *Manager) StopProject(p *project.Project) error {
	var errs *multierror.Error
	for _, task := range p.Tasks() {
		if !m.Running(task.ID()) {
			continue
		}
		errs = multierror.Append(errs, m.StopTask(task))
	}
	return errs.ErrorOrNil()
}

// StopAll stops every running task.
func (m *Manager) StopAll() {
	m.mutex.Lock()
	runners := make([]*runner, 0, len(m.running))
	for id, r := range m.running {
		runners = append(runners, r)
		delete(m.running, id)
	}
	m.mutex.Unlock()
	for _, r := range runners {
		r.cancel()
		<-r.done
	}
}

// Running reports whether the task with the given ID is started.
func (m *Manager) Running(taskID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.running[taskID]
	return ok
}
