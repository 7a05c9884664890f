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
	"os"

	"github.com/pkg/errors"
)

// PageType is the page-table granularity of one page reference.
type PageType int

const (
	// PTE is a leaf page.
	PTE PageType = iota
	// PMD is a middle-directory (huge) page.
	PMD
	// PUD is an upper-directory (giant) page.
	PUD

	pageTypeCount
)

func (t PageType) String() string {
	switch t {
	case PTE:
		return "PTE"
	case PMD:
		return "PMD"
	case PUD:
		return "PUD"
	}
	return "invalid"
}

// Geometry holds the page sizes of the host. It is immutable after
// creation and safe to share between concurrent scans.
type Geometry struct {
	shift uint
	size  [pageTypeCount]uint64
}

// NewGeometry derives the page geometry from the host page size.
func NewGeometry() (*Geometry, error) {
	return newGeometry(os.Getpagesize())
}

// newGeometry computes PTE/PMD/PUD sizes for the given base page
// size. With page shift S, every intermediate translation level
// indexes with S-3 bits on top of a 3-bit in-word offset, so a PMD
// entry covers 2^((S-3)*2+3) bytes and a PUD entry 2^((S-3)*3+3).
// This holds for the 4k x86-64 layout as well as the 4k/16k/64k
// arm64 layouts.
func newGeometry(pagesize int) (*Geometry, error) {
	if pagesize <= 0 || pagesize&(pagesize-1) != 0 {
		return nil, errors.Errorf("host page size %d is not a positive power of two", pagesize)
	}
	shift := uint(0)
	for ps := pagesize >> 1; ps != 0; ps >>= 1 {
		shift++
	}
	g := &Geometry{shift: shift}
	g.size[PTE] = 1 << shift
	g.size[PMD] = 1 << ((shift-3)*2 + 3)
	g.size[PUD] = 1 << ((shift-3)*3 + 3)
	return g, nil
}

// Size returns the byte size of one page of the given type.
func (g *Geometry) Size(t PageType) uint64 {
	return g.size[t]
}

// PageShift returns the base-2 logarithm of the PTE page size.
func (g *Geometry) PageShift() uint {
	return g.shift
}
