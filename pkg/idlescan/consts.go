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

const (
	// pipCmdSetHVA marks an address directive in the idle-page
	// stream: the 8 bytes that follow are a big-endian virtual
	// address. Record bytes keep their idle kind in the high
	// nibble; the defined kinds go up to 9 and cannot collide. A
	// byte of this value is always taken as a directive, never as
	// a record of a kind above the expansion.
	pipCmdSetHVA = 0xfe

	// pmdIdlePTEsFanout is the number of PTE entries one
	// PMD_IDLE_PTES record stands for.
	pmdIdlePTEsFanout = 512

	// DefaultBufMin is the smallest read buffer handed to the
	// idle-page device. The kernel side rejects anything shorter.
	DefaultBufMin = 4096

	// pathMaxLen is the longest mapping path kept on a VMA.
	// Longer paths are dropped, the mapping itself is kept.
	pathMaxLen = 4096

	// fileLineMaxLen bounds one buffered line of /proc/<pid>/maps.
	// A line overflowing the buffer loses its tail, which can only
	// be part of the path field.
	fileLineMaxLen = 8192
)

// Weights are the per-access-class values added into a page's count
// for every decoded record.
type Weights struct {
	Read  int64
	Write int64
	Idle  int64
}

// DefaultWeights counts a read access once and a write access twice.
// Idle observations keep the page visible in the output without
// raising its temperature.
var DefaultWeights = Weights{Read: 1, Write: 2, Idle: 0}
