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
	"encoding/binary"

	"github.com/pkg/errors"
)

// idleKind is the classification carried in the high nibble of one
// record byte of the idle-page stream. The ordinals are pinned to the
// kernel module's export order; reordering them breaks decoding.
type idleKind uint8

const (
	kindPTEAccessed idleKind = iota // 0: read-accessed leaf page
	kindPMDAccessed                 // 1: read-accessed huge page
	kindPUDPresent                  // 2: present giant page
	kindPTEDirty                    // 3: written leaf page
	kindPMDDirty                    // 4: written huge page
	kindPTEIdle                     // 5: idle leaf page
	kindPMDIdle                     // 6: idle huge page
	kindPMDHole                     // 7: idle-weighted huge-page range
	kindPTEHole                     // 8: idle-weighted leaf-page range
	kindPMDIdlePTEs                 // 9: expands to 512 idle PTEs

	kindCount
)

// kindPageType maps an idle kind to the granularity its cursor
// advance and emitted records use.
var kindPageType = [kindCount]PageType{
	kindPTEAccessed: PTE,
	kindPMDAccessed: PMD,
	kindPUDPresent:  PUD,
	kindPTEDirty:    PTE,
	kindPMDDirty:    PMD,
	kindPTEIdle:     PTE,
	kindPMDIdle:     PMD,
	kindPMDHole:     PMD,
	kindPTEHole:     PTE,
	kindPMDIdlePTEs: PMD,
}

// pageType returns the granularity the kind's records and cursor
// advances use. Kinds above the expansion never carry records and
// advance at leaf granularity.
func (k idleKind) pageType() PageType {
	if k > kindPMDIdlePTEs {
		return PTE
	}
	return kindPageType[k]
}

// idle reports whether the kind carries no access, which keeps it out
// of the resident-set estimate.
func (k idleKind) idle() bool {
	return k >= kindPTEIdle
}

// weight returns the access-class weight of the kind.
func (k idleKind) weight(w Weights) int64 {
	switch {
	case k >= kindPTEIdle:
		return w.Idle
	case k >= kindPTEDirty:
		return w.Write
	default:
		return w.Read
	}
}

// decoder turns one read's worth of idle-page stream bytes into
// accumulator merges.
type decoder struct {
	geom    *Geometry
	weights Weights
	refs    *PageRefs
	rss     *uint64
}

// decode consumes buf and returns the address cursor after the last
// fully processed byte. The stream interleaves one-byte records with
// nine-byte address directives; a record before the first directive
// is a structural error, while a directive truncated by the end of
// the buffer ends decoding cleanly.
func (d *decoder) decode(buf []byte) (uint64, error) {
	var addr uint64
	for i := 0; i < len(buf); i++ {
		if buf[i] == pipCmdSetHVA {
			if i+8 >= len(buf) {
				break
			}
			addr = binary.BigEndian.Uint64(buf[i+1 : i+9])
			i += 8
			continue
		}
		if addr == 0 {
			return 0, errors.Errorf("record byte %#02x at offset %d before any address directive", buf[i], i)
		}
		nr := int(buf[i] & 0x0f)
		kind := idleKind(buf[i] >> 4)
		if d.rss != nil && !kind.idle() {
			*d.rss += uint64(nr)
		}
		switch {
		case kind == kindPMDIdlePTEs:
			d.record(addr, kindPTEIdle, nr*pmdIdlePTEsFanout)
		case kind < kindPMDIdlePTEs:
			d.record(addr, kind, nr)
		default:
			// Kinds above the expansion advance the cursor
			// without emitting.
		}
		addr += uint64(nr) * d.geom.Size(kind.pageType())
	}
	return addr, nil
}

// record merges nr consecutive records of the given kind starting at
// addr. A start address that is not aligned to the kind's page size
// would double-count pages straddling a boundary, so the whole batch
// is skipped; the stream cursor in decode still advances.
func (d *decoder) record(addr uint64, kind idleKind, nr int) {
	t := kind.pageType()
	size := d.geom.Size(t)
	if addr&(size-1) != 0 {
		log.Warnf("ignoring %d %s record(s) at unaligned address %#x", nr, t, addr)
		return
	}
	weight := kind.weight(d.weights)
	for i := 0; i < nr; i++ {
		d.refs.merge(addr, weight, t)
		addr += size
	}
}
