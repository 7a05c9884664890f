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

// Package tierengine drives the scan engine for configured tasks and
// turns accumulated page references into hot/cold classifications.
package tierengine

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/opentier/pagetier/pkg/idlescan"
	"github.com/opentier/pagetier/pkg/project"
)

// Result is the outcome of one engine round.
type Result struct {
	// Grade holds the classified pages. Ownership moves to the
	// caller, which must Clean it on failure paths.
	Grade *idlescan.MemoryGrade
	// Pages is the number of distinct pages observed.
	Pages uint64
	// Resident is the scanner's resident-set estimate.
	Resident uint64
}

// Engine runs one scan round for a task.
type Engine interface {
	// Run scans pid per the task's project parameters and
	// classifies the result.
	Run(ctx context.Context, task *project.Task, pid int) (*Result, error)
}

// Creator builds an engine bound to a task's configuration.
type Creator func(scanner *idlescan.Scanner, task *project.Task) (Engine, error)

// engines is a map of engine name -> engine creator.
var engines = map[string]Creator{}

// Register makes an engine creator selectable by name.
func Register(name string, creator Creator) {
	engines[name] = creator
}

// List returns the registered engine names.
func List() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the named engine for a task. An empty name selects
// "slide".
func New(name string, scanner *idlescan.Scanner, task *project.Task) (Engine, error) {
	if name == "" {
		name = "slide"
	}
	if creator, ok := engines[name]; ok {
		return creator(scanner, task)
	}
	return nil, errors.Errorf("invalid engine name %q", name)
}
