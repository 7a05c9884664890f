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

// Package project holds the scan configuration the daemon manages:
// projects group sampling parameters, tasks name the processes the
// scan engine observes.
package project

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Config is the YAML configuration of one project.
type Config struct {
	// Name identifies the project on the control socket.
	Name string `json:"name"`
	// Loop is the number of sampling passes per scan, >= 1.
	Loop uint32 `json:"loop"`
	// Sleep is the number of seconds between sampling passes.
	Sleep uint32 `json:"sleep"`
	// Interval is the number of seconds between scans, >= 1.
	Interval uint32 `json:"interval"`
	// Tasks are the processes scanned under this project.
	Tasks []TaskConfig `json:"tasks"`
}

// TaskConfig is the YAML configuration of one task.
type TaskConfig struct {
	// Name identifies the task within its project.
	Name string `json:"name"`
	// Type selects how Value finds the process: "pid" or "name".
	Type string `json:"type"`
	// Value is a process id or a comm name, depending on Type.
	Value string `json:"value"`
	// Engine names the tiering engine driving this task. Empty
	// selects "slide".
	Engine string `json:"engine,omitempty"`
	// Param carries engine-specific parameters, such as the slide
	// engine's hot watermark "t".
	Param map[string]string `json:"param,omitempty"`
}

// Project is a validated project with its tasks bound to it.
type Project struct {
	Config
	tasks []*Task
}

// Task is one process target of a project.
type Task struct {
	TaskConfig
	proj *Project
}

// Load reads and parses a project configuration file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading project file %q", path)
	}
	return Parse(data)
}

// Parse parses and validates a project configuration.
func Parse(data []byte) (*Project, error) {
	cfg := Config{}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling project configuration")
	}
	p := &Project{Config: cfg}
	if err := p.validate(); err != nil {
		return nil, err
	}
	for i := range p.Config.Tasks {
		p.tasks = append(p.tasks, &Task{TaskConfig: p.Config.Tasks[i], proj: p})
	}
	return p, nil
}

func (p *Project) validate() error {
	if p.Name == "" {
		return errors.New("project name missing")
	}
	if p.Loop < 1 {
		return errors.Errorf("project %q: loop must be >= 1", p.Name)
	}
	if p.Interval < 1 {
		return errors.Errorf("project %q: interval must be >= 1", p.Name)
	}
	if len(p.Config.Tasks) == 0 {
		return errors.Errorf("project %q: no tasks", p.Name)
	}
	seen := map[string]struct{}{}
	for i := range p.Config.Tasks {
		t := &p.Config.Tasks[i]
		if t.Name == "" {
			return errors.Errorf("project %q: task %d has no name", p.Name, i)
		}
		if _, ok := seen[t.Name]; ok {
			return errors.Errorf("project %q: duplicate task %q", p.Name, t.Name)
		}
		seen[t.Name] = struct{}{}
		switch t.Type {
		case "pid", "name":
		default:
			return errors.Errorf("task %q: invalid type %q, \"pid\" or \"name\" expected", t.Name, t.Type)
		}
		if t.Value == "" {
			return errors.Errorf("task %q: value missing", t.Name)
		}
	}
	return nil
}

// Tasks returns the project's tasks.
func (p *Project) Tasks() []*Task {
	return p.tasks
}

// Task returns the named task, or nil.
func (p *Project) Task(name string) *Task {
	for _, t := range p.tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Project returns the project the task belongs to.
func (t *Task) Project() *Project {
	return t.proj
}

// ID returns the task's project-qualified name.
func (t *Task) ID() string {
	return t.proj.Name + "/" + t.Name
}
