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

package log

import (
	"fmt"

	"k8s.io/klog/v2"
)

// klogBackend emits messages through klog, keeping the daemon's
// output machine-collectable the same way the rest of the fleet
// tooling expects.
type klogBackend struct{}

const klogBackendName = "klog"

func init() {
	RegisterBackend(klogBackend{})
}

func (klogBackend) Name() string {
	return klogBackendName
}

func (klogBackend) Log(level Level, source, message string) {
	msg := fmt.Sprintf("[%s] %s", source, message)
	switch level {
	case LevelDebug, LevelInfo:
		klog.InfoDepth(3, msg)
	case LevelWarn:
		klog.WarningDepth(3, msg)
	case LevelError:
		klog.ErrorDepth(3, msg)
	}
}
