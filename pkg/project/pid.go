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
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ResolvePid finds the process a task points at. A "pid" task names
// the process directly; a "name" task is matched against the comm of
// every process under procRoot, first match in pid order wins.
func (t *Task) ResolvePid(procRoot string) (int, error) {
	switch t.Type {
	case "pid":
		pid, err := strconv.Atoi(t.Value)
		if err != nil || pid <= 0 {
			return 0, errors.Errorf("task %q: invalid pid %q", t.Name, t.Value)
		}
		return pid, nil
	case "name":
		pid, err := pidByComm(procRoot, t.Value)
		if err != nil {
			return 0, errors.Wrapf(err, "task %q", t.Name)
		}
		return pid, nil
	}
	return 0, errors.Errorf("task %q: invalid type %q", t.Name, t.Type)
}

func pidByComm(procRoot, comm string) (int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", procRoot)
	}
	pids := make([]int, 0, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "comm"))
		if err != nil {
			// The process may have exited mid-walk.
			continue
		}
		if strings.TrimSpace(string(data)) == comm {
			return pid, nil
		}
	}
	return 0, errors.Errorf("no process with comm %q", comm)
}
