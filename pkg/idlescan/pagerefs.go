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

// PageRef is one accumulated page observation.
type PageRef struct {
	Addr  uint64
	Count int64
	Type  PageType

	next *PageRef
}

// PageRefs is an address-ordered, deduplicated accumulator of page
// references. Merging keeps a cursor at the last touched link:
// decoded records arrive with non-decreasing addresses within one
// VMA, so the common case never rescans the list and one VMA costs
// O(records) overall. The cursor is rewound at VMA boundaries, where
// lower addresses may legitimately arrive.
type PageRefs struct {
	head *PageRef
	at   **PageRef
	n    int
}

// NewPageRefs returns an empty accumulator.
func NewPageRefs() *PageRefs {
	p := &PageRefs{}
	p.at = &p.head
	return p
}

// Len returns the number of distinct page addresses held.
func (p *PageRefs) Len() int {
	if p == nil {
		return 0
	}
	return p.n
}

// rewind moves the merge cursor back to the list head.
func (p *PageRefs) rewind() {
	p.at = &p.head
}

// merge folds one record into the accumulator: an existing entry with
// the same address absorbs the weight, anything else is inserted at
// its ordered position. The entry's type is fixed on first insertion;
// correct kernel output never reports one address at two
// granularities.
func (p *PageRefs) merge(addr uint64, weight int64, t PageType) {
	for *p.at != nil && (*p.at).Addr < addr {
		p.at = &(*p.at).next
	}
	if ref := *p.at; ref != nil && ref.Addr == addr {
		ref.Count += weight
		p.at = &ref.next
		return
	}
	ref := &PageRef{Addr: addr, Count: weight, Type: t, next: *p.at}
	*p.at = ref
	p.n++
	p.at = &ref.next
}

// push appends a detached entry at the cursor. Callers feed entries
// in ascending address order, so the cursor always sits at the tail.
func (p *PageRefs) push(ref *PageRef) {
	ref.next = nil
	*p.at = ref
	p.at = &ref.next
	p.n++
}

// pop detaches and returns the lowest-addressed entry, or nil.
func (p *PageRefs) pop() *PageRef {
	ref := p.head
	if ref == nil {
		return nil
	}
	p.head = ref.next
	ref.next = nil
	p.n--
	p.rewind()
	return ref
}

// ForEach visits the entries in ascending address order until fn
// returns false.
func (p *PageRefs) ForEach(fn func(*PageRef) bool) {
	if p == nil {
		return
	}
	for ref := p.head; ref != nil; ref = ref.next {
		if !fn(ref) {
			return
		}
	}
}

// Slice returns a copy of the entries in ascending address order.
func (p *PageRefs) Slice() []PageRef {
	if p == nil {
		return nil
	}
	out := make([]PageRef, 0, p.n)
	for ref := p.head; ref != nil; ref = ref.next {
		r := *ref
		r.next = nil
		out = append(out, r)
	}
	return out
}

// Clear drops all entries. It is the failure-path cleanup primitive
// for callers holding a partially built accumulator, idempotent and
// nil-safe.
func (p *PageRefs) Clear() {
	if p == nil {
		return
	}
	p.head = nil
	p.n = 0
	p.rewind()
}
