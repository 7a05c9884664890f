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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry is the daemon's set of known projects.
type Registry struct {
	mutex    sync.RWMutex
	projects map[string]*Project
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{projects: map[string]*Project{}}
}

// Add registers a project. Adding a name twice is an error; delete
// the old project first.
func (r *Registry) Add(p *Project) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.projects[p.Name]; ok {
		return errors.Errorf("project %q already exists", p.Name)
	}
	r.projects[p.Name] = p
	return nil
}

// Delete removes the named project.
func (r *Registry) Delete(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.projects[name]; !ok {
		return errors.Errorf("project %q does not exist", name)
	}
	delete(r.projects, name)
	return nil
}

// Get returns the named project, or nil.
func (r *Registry) Get(name string) *Project {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.projects[name]
}

// List returns all projects sorted by name.
func (r *Registry) List() []*Project {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.projects))
	for name := range r.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	projects := make([]*Project, 0, len(names))
	for _, name := range names {
		projects = append(projects, r.projects[name])
	}
	return projects
}
