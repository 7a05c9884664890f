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

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/opentier/pagetier/pkg/api"
	"github.com/opentier/pagetier/pkg/project"
	"github.com/opentier/pagetier/pkg/stats"
	"github.com/opentier/pagetier/pkg/tierengine"
)

// daemon dispatches control-socket commands to the project registry
// and the engine manager.
type daemon struct {
	registry *project.Registry
	manager  *tierengine.Manager
}

func (d *daemon) Handle(req api.Request) api.Response {
	switch req.Command {
	case api.CmdProjectAdd:
		return d.projectAdd(req)
	case api.CmdProjectDel:
		return d.projectDel(req)
	case api.CmdProjectShow:
		return d.projectShow(req)
	case api.CmdTaskStart:
		return d.taskStart(req)
	case api.CmdTaskStop:
		return d.taskStop(req)
	}
	return api.Error(errors.Errorf("unknown command %q", req.Command))
}

func (d *daemon) projectAdd(req api.Request) api.Response {
	p, err := project.Parse(req.Config)
	if err != nil {
		return api.Error(err)
	}
	if req.Project != "" && req.Project != p.Name {
		return api.Error(errors.Errorf("project name %q does not match configuration %q",
			req.Project, p.Name))
	}
	if err := d.registry.Add(p); err != nil {
		return api.Error(err)
	}
	log.Info("project %q added with %d task(s)", p.Name, len(p.Tasks()))
	return api.Ok(fmt.Sprintf("project %q added", p.Name))
}

func (d *daemon) projectDel(req api.Request) api.Response {
	p := d.registry.Get(req.Project)
	if p == nil {
		return api.Error(errors.Errorf("project %q does not exist", req.Project))
	}
	if err := d.manager.StopProject(p); err != nil {
		return api.Error(err)
	}
	for _, t := range p.Tasks() {
		stats.Get().Delete(p.Name, t.Name)
	}
	if err := d.registry.Delete(p.Name); err != nil {
		return api.Error(err)
	}
	log.Info("project %q deleted", p.Name)
	return api.Ok(fmt.Sprintf("project %q deleted", p.Name))
}

func (d *daemon) projectShow(req api.Request) api.Response {
	projects := d.registry.List()
	if req.Project != "" {
		p := d.registry.Get(req.Project)
		if p == nil {
			return api.Error(errors.Errorf("project %q does not exist", req.Project))
		}
		projects = []*project.Project{p}
	}

	taskStats := stats.Get().Tasks()
	infos := make([]api.ProjectInfo, 0, len(projects))
	for _, p := range projects {
		info := api.ProjectInfo{
			Name:     p.Name,
			Loop:     p.Loop,
			Sleep:    p.Sleep,
			Interval: p.Interval,
		}
		for _, t := range p.Tasks() {
			ti := api.TaskInfo{
				Name:    t.Name,
				Type:    t.Type,
				Value:   t.Value,
				Engine:  t.Engine,
				Started: d.manager.Running(t.ID()),
			}
			if ts, ok := taskStats[t.ID()]; ok {
				ti.Scans = ts.Scans
				ti.Errors = ts.Errors
				ti.Pages = ts.Pages
				ti.Hot = ts.Hot
				ti.Cold = ts.Cold
				ti.Resident = ts.Resident
			}
			info.Tasks = append(info.Tasks, ti)
		}
		infos = append(infos, info)
	}

	payload, err := json.Marshal(infos)
	if err != nil {
		return api.Error(errors.Wrap(err, "marshaling project info"))
	}
	return api.Response{Code: api.CodeOK, Payload: payload}
}

func (d *daemon) taskStart(req api.Request) api.Response {
	p, tasks, resp := d.selectTasks(req)
	if p == nil {
		return resp
	}
	var errs *multierror.Error
	for _, t := range tasks {
		errs = multierror.Append(errs, d.manager.StartTask(t))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return api.Error(err)
	}
	return api.Ok(fmt.Sprintf("%d task(s) started", len(tasks)))
}

func (d *daemon) taskStop(req api.Request) api.Response {
	p, tasks, resp := d.selectTasks(req)
	if p == nil {
		return resp
	}
	var errs *multierror.Error
	for _, t := range tasks {
		errs = multierror.Append(errs, d.manager.StopTask(t))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return api.Error(err)
	}
	return api.Ok(fmt.Sprintf("%d task(s) stopped", len(tasks)))
}

// selectTasks resolves the project and task(s) a request names. On
// failure the returned project is nil and the response carries the
// error.
func (d *daemon) selectTasks(req api.Request) (*project.Project, []*project.Task, api.Response) {
	p := d.registry.Get(req.Project)
	if p == nil {
		return nil, nil, api.Error(errors.Errorf("project %q does not exist", req.Project))
	}
	if req.Task == "" {
		return p, p.Tasks(), api.Response{}
	}
	t := p.Task(req.Task)
	if t == nil {
		return nil, nil, api.Error(errors.Errorf("project %q has no task %q", p.Name, req.Task))
	}
	return p, []*project.Task{t}, api.Response{}
}
