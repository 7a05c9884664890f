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
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/opentier/pagetier/pkg/idlescan"
	"github.com/opentier/pagetier/pkg/project"
)

// slide is the watermark engine: pages whose accumulated access
// count reaches the "t" parameter are hot, the rest are cold.
type slide struct {
	scanner   *idlescan.Scanner
	threshold int64
}

const defaultSlideThreshold = 1

func init() {
	Register("slide", newSlide)
}

func newSlide(scanner *idlescan.Scanner, task *project.Task) (Engine, error) {
	threshold := int64(defaultSlideThreshold)
	if v, ok := task.Param["t"]; ok {
		t, err := strconv.ParseInt(v, 10, 64)
		if err != nil || t < 1 {
			return nil, errors.Errorf("task %q: invalid slide watermark t=%q", task.Name, v)
		}
		threshold = t
	}
	return &slide{scanner: scanner, threshold: threshold}, nil
}

func (e *slide) Run(ctx context.Context, task *project.Task, pid int) (*Result, error) {
	proj := task.Project()
	var resident uint64
	refs, err := e.scanner.Scan(ctx, pid, proj.Loop,
		time.Duration(proj.Sleep)*time.Second, &resident)
	if err != nil {
		return nil, err
	}
	pages := uint64(refs.Len())
	return &Result{
		Grade:    idlescan.Classify(refs, e.threshold),
		Pages:    pages,
		Resident: resident,
	}, nil
}
