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
	"flag"
	"strings"
)

type levelFlag struct{}

func (levelFlag) String() string {
	mutex.RLock()
	defer mutex.RUnlock()
	return level.String()
}

func (levelFlag) Set(value string) error {
	l, err := ParseLevel(value)
	if err != nil {
		return err
	}
	SetLevel(l)
	return nil
}

type debugFlag struct{}

func (debugFlag) String() string {
	return ""
}

func (debugFlag) Set(value string) error {
	EnableDebug(strings.Split(value, ",")...)
	return nil
}

type backendFlag struct{}

func (backendFlag) String() string {
	mutex.RLock()
	defer mutex.RUnlock()
	if active == nil {
		return ""
	}
	return active.Name()
}

func (backendFlag) Set(value string) error {
	return SelectBackend(value)
}

func init() {
	flag.Var(levelFlag{}, "logger-level",
		"least severity of log messages to pass through.")
	flag.Var(debugFlag{}, "logger-debug",
		"comma-separated list of logger sources to enable debug for.\n"+
			"Specify '*' or all for enabling debugging for all sources.")
	flag.Var(backendFlag{}, "logger-backend",
		"select logging backend to use")
}
