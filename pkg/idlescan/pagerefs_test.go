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

import (
	"testing"
)

type mergeOp struct {
	addr   uint64
	weight int64
	rewind bool
}

func runMerges(p *PageRefs, ops []mergeOp) {
	for _, op := range ops {
		if op.rewind {
			p.rewind()
		}
		p.merge(op.addr, op.weight, PTE)
	}
}

func TestPageRefsMerge(t *testing.T) {
	tcases := []struct {
		name     string
		ops      []mergeOp
		expected []PageRef
	}{
		{
			name: "ascending inserts",
			ops: []mergeOp{
				{addr: 0x1000, weight: 1},
				{addr: 0x2000, weight: 1},
				{addr: 0x3000, weight: 1},
			},
			expected: []PageRef{
				{Addr: 0x1000, Count: 1, Type: PTE},
				{Addr: 0x2000, Count: 1, Type: PTE},
				{Addr: 0x3000, Count: 1, Type: PTE},
			},
		},
		{
			name: "equal address merges weight",
			ops: []mergeOp{
				{addr: 0x1000, weight: 1},
				{addr: 0x1000, weight: 2, rewind: true},
				{addr: 0x1000, weight: 4, rewind: true},
			},
			expected: []PageRef{
				{Addr: 0x1000, Count: 7, Type: PTE},
			},
		},
		{
			name: "lower address after rewind inserts in order",
			ops: []mergeOp{
				{addr: 0x3000, weight: 1},
				{addr: 0x4000, weight: 1},
				{addr: 0x1000, weight: 1, rewind: true},
				{addr: 0x3000, weight: 1},
			},
			expected: []PageRef{
				{Addr: 0x1000, Count: 1, Type: PTE},
				{Addr: 0x3000, Count: 2, Type: PTE},
				{Addr: 0x4000, Count: 1, Type: PTE},
			},
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPageRefs()
			runMerges(p, tc.ops)
			checkRefs(t, p, tc.expected)
		})
	}
}

func checkRefs(t *testing.T, p *PageRefs, expected []PageRef) {
	t.Helper()
	got := p.Slice()
	if len(got) != len(expected) {
		t.Fatalf("expected %d entries, got %d: %v", len(expected), len(got), got)
	}
	if p.Len() != len(expected) {
		t.Errorf("Len() = %d, want %d", p.Len(), len(expected))
	}
	for i := range expected {
		if got[i].Addr != expected[i].Addr ||
			got[i].Count != expected[i].Count ||
			got[i].Type != expected[i].Type {
			t.Errorf("entry %d: expected %+v, got %+v", i, expected[i], got[i])
		}
	}
	// The output must be strictly ordered by address.
	for i := 1; i < len(got); i++ {
		if got[i-1].Addr >= got[i].Addr {
			t.Errorf("entries %d and %d out of order: %#x >= %#x",
				i-1, i, got[i-1].Addr, got[i].Addr)
		}
	}
}

func TestPageRefsPopPush(t *testing.T) {
	p := NewPageRefs()
	runMerges(p, []mergeOp{
		{addr: 0x1000, weight: 1},
		{addr: 0x2000, weight: 2},
	})
	q := NewPageRefs()
	for ref := p.pop(); ref != nil; ref = p.pop() {
		q.push(ref)
	}
	if p.Len() != 0 {
		t.Errorf("source not drained, %d entries left", p.Len())
	}
	checkRefs(t, q, []PageRef{
		{Addr: 0x1000, Count: 1, Type: PTE},
		{Addr: 0x2000, Count: 2, Type: PTE},
	})
}

func TestPageRefsClear(t *testing.T) {
	p := NewPageRefs()
	runMerges(p, []mergeOp{{addr: 0x1000, weight: 1}})
	p.Clear()
	if p.Len() != 0 || len(p.Slice()) != 0 {
		t.Errorf("Clear left %d entries", p.Len())
	}
	p.Clear() // idempotent
	var nilRefs *PageRefs
	nilRefs.Clear() // nil-safe
	// The cleared accumulator must accept new merges.
	p.merge(0x2000, 1, PTE)
	if p.Len() != 1 {
		t.Errorf("merge after Clear failed")
	}
}
