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

// MemoryGrade is the downstream-facing classification of scanned
// pages into hot and cold buckets.
type MemoryGrade struct {
	Hot  *PageRefs
	Cold *PageRefs
}

// NewMemoryGrade returns a grade with empty buckets.
func NewMemoryGrade() *MemoryGrade {
	return &MemoryGrade{Hot: NewPageRefs(), Cold: NewPageRefs()}
}

// Classify drains refs into hot and cold buckets: a page whose
// accumulated count reaches hotThreshold is hot, everything else is
// cold. Entries move without copying and keep their address order;
// refs is empty afterwards.
func Classify(refs *PageRefs, hotThreshold int64) *MemoryGrade {
	mg := NewMemoryGrade()
	for ref := refs.pop(); ref != nil; ref = refs.pop() {
		if ref.Count >= hotThreshold {
			mg.Hot.push(ref)
		} else {
			mg.Cold.push(ref)
		}
	}
	return mg
}

// Clean drops both buckets. It is the failure-path cleanup contract
// for callers holding a partially built grade, idempotent and
// nil-safe.
func (mg *MemoryGrade) Clean() {
	if mg == nil {
		return
	}
	mg.Hot.Clear()
	mg.Cold.Clear()
}
