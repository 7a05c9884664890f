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

// Package api defines the JSON protocol spoken on the pagetierd
// control socket.
package api

import "encoding/json"

// Commands understood by the daemon.
const (
	CmdProjectAdd  = "project.add"
	CmdProjectDel  = "project.del"
	CmdProjectShow = "project.show"
	CmdTaskStart   = "task.start"
	CmdTaskStop    = "task.stop"
)

// Response codes.
const (
	CodeOK    = 0
	CodeError = 1
)

// Request is one client command.
type Request struct {
	Command string `json:"command"`
	// Project names the project the command applies to.
	Project string `json:"project,omitempty"`
	// Task names a task within the project. An empty task with
	// task.start/task.stop applies to all tasks of the project.
	Task string `json:"task,omitempty"`
	// Config carries the project YAML for project.add.
	Config []byte `json:"config,omitempty"`
}

// Response is the daemon's answer to one request.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TaskInfo is the project.show view of one task.
type TaskInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Engine  string `json:"engine,omitempty"`
	Started bool   `json:"started"`

	Scans    uint64 `json:"scans"`
	Errors   uint64 `json:"errors"`
	Pages    uint64 `json:"pages"`
	Hot      uint64 `json:"hot"`
	Cold     uint64 `json:"cold"`
	Resident uint64 `json:"resident"`
}

// ProjectInfo is the project.show view of one project.
type ProjectInfo struct {
	Name     string     `json:"name"`
	Loop     uint32     `json:"loop"`
	Sleep    uint32     `json:"sleep"`
	Interval uint32     `json:"interval"`
	Tasks    []TaskInfo `json:"tasks"`
}

// Ok returns a successful response with an optional message.
func Ok(message string) Response {
	return Response{Code: CodeOK, Message: message}
}

// Error returns a failure response.
func Error(err error) Response {
	return Response{Code: CodeError, Message: err.Error()}
}
