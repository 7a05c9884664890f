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

package idlescan

// Logger is the diagnostics sink of the scan engine. The engine
// writes nothing to stdout; everything goes through this interface.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, v ...interface{}) {}
func (nopLogger) Infof(format string, v ...interface{})  {}
func (nopLogger) Warnf(format string, v ...interface{})  {}
func (nopLogger) Errorf(format string, v ...interface{}) {}

var log Logger = nopLogger{}

// SetLogger directs scan engine diagnostics to l. Passing nil
// silences the engine.
func SetLogger(l Logger) {
	if l == nil {
		log = nopLogger{}
		return
	}
	log = l
}
