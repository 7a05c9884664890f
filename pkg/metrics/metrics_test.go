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

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opentier/pagetier/pkg/stats"
)

func TestCollect(t *testing.T) {
	s := stats.New()
	s.Store(stats.TaskScanned{
		Project: "webcache", Task: "app", Pid: 1234,
		Pages: 100, Hot: 30, Cold: 70, Resident: 42,
		Duration: 1500 * time.Millisecond,
	})

	expected := `
# HELP pagetier_pages_cold Pages classified cold by the last successful scan.
# TYPE pagetier_pages_cold gauge
pagetier_pages_cold{pid="1234",project="webcache",task="app"} 70
# HELP pagetier_pages_hot Pages classified hot by the last successful scan.
# TYPE pagetier_pages_hot gauge
pagetier_pages_hot{pid="1234",project="webcache",task="app"} 30
# HELP pagetier_scans_total Number of scans run for a task.
# TYPE pagetier_scans_total counter
pagetier_scans_total{pid="1234",project="webcache",task="app"} 1
`
	err := testutil.CollectAndCompare(NewCollector(s), strings.NewReader(expected),
		"pagetier_pages_cold", "pagetier_pages_hot", "pagetier_scans_total")
	if err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}
