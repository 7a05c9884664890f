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

// Package stats accumulates per-task scan statistics for the rest of
// the daemon to report.
package stats

import (
	"sync"
	"time"
)

// TaskScanned is one completed scan of one task.
type TaskScanned struct {
	Project  string
	Task     string
	Pid      int
	Pages    uint64
	Hot      uint64
	Cold     uint64
	Resident uint64
	Duration time.Duration
	Failed   bool
}

// TaskStats is the accumulated view of one task.
type TaskStats struct {
	Pid          int
	Scans        uint64
	Errors       uint64
	Pages        uint64
	Hot          uint64
	Cold         uint64
	Resident     uint64
	LastDuration time.Duration
}

// Stats collects scan events keyed by project/task.
type Stats struct {
	mutex sync.RWMutex
	tasks map[string]*TaskStats
}

var stats = New()

// New returns an empty stats collection.
func New() *Stats {
	return &Stats{tasks: map[string]*TaskStats{}}
}

// Get returns the process-wide stats collection.
func Get() *Stats {
	return stats
}

// Store folds one scan event into the collection.
func (s *Stats) Store(e TaskScanned) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	key := e.Project + "/" + e.Task
	ts, ok := s.tasks[key]
	if !ok {
		ts = &TaskStats{}
		s.tasks[key] = ts
	}
	ts.Pid = e.Pid
	ts.Scans++
	if e.Failed {
		ts.Errors++
		return
	}
	ts.Pages = e.Pages
	ts.Hot = e.Hot
	ts.Cold = e.Cold
	ts.Resident = e.Resident
	ts.LastDuration = e.Duration
}

// Delete drops the stats of one task.
func (s *Stats) Delete(projectName, taskName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.tasks, projectName+"/"+taskName)
}

// Tasks returns a snapshot of the collection keyed by
// "project/task".
func (s *Stats) Tasks() map[string]TaskStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make(map[string]TaskStats, len(s.tasks))
	for key, ts := range s.tasks {
		out[key] = *ts
	}
	return out
}
