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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// IdleFileName is the per-process idle-page pseudo-file exported by
// the scan kernel module.
const IdleFileName = "idle_pages"

// Config adjusts a Scanner. The zero value selects the defaults.
type Config struct {
	// ProcRoot is the procfs mount to read from, "/proc" if empty.
	ProcRoot string
	// IdleFile is the idle-page file name under /proc/<pid>,
	// IdleFileName if empty.
	IdleFile string
	// Weights are the per-access-class count increments.
	Weights Weights
	// BufMin is the read buffer floor, DefaultBufMin if zero.
	BufMin uint64
}

func (c *Config) setDefaults() {
	if c.ProcRoot == "" {
		c.ProcRoot = "/proc"
	}
	if c.IdleFile == "" {
		c.IdleFile = IdleFileName
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	if c.BufMin == 0 {
		c.BufMin = DefaultBufMin
	}
}

// Scanner samples the idle-page state of processes. One Scanner may
// serve concurrent Scan calls; all mutable state lives in the call.
type Scanner struct {
	geom *Geometry
	cfg  Config
}

// NewScanner returns a scanner using the given page geometry.
func NewScanner(geom *Geometry, cfg Config) *Scanner {
	cfg.setDefaults()
	return &Scanner{geom: geom, cfg: cfg}
}

// walkState is the per-VMA cursor of one scan pass. lastWalkEnd
// persists across VMAs: a decode that ran past the previous VMA's end
// moves the next walk's start forward so no page is counted twice.
type walkState struct {
	walkStart   uint64
	walkEnd     uint64
	lastWalkEnd uint64
}

// Scan runs loops passes over the anonymous mappings of pid, sleeping
// between passes, and returns the accumulated page references. When
// rss is non-nil it accumulates the number of non-idle records seen,
// an estimate of the live resident set during the scan. On any error
// the partial accumulation is dropped and nil is returned.
//
// Cancellation is honored between passes and during the inter-pass
// sleep; a pass in progress runs to completion.
func (s *Scanner) Scan(ctx context.Context, pid int, loops uint32, sleep time.Duration, rss *uint64) (*PageRefs, error) {
	if loops < 1 {
		return nil, errors.Errorf("invalid loop count %d for pid %d", loops, pid)
	}
	refs := NewPageRefs()
	for i := uint32(0); i < loops; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				refs.Clear()
				return nil, ctx.Err()
			case <-time.After(sleep):
			}
		}
		if err := s.scanPass(pid, refs, rss); err != nil {
			refs.Clear()
			return nil, err
		}
	}
	return refs, nil
}

// scanPass walks every anonymous VMA of pid once.
func (s *Scanner) scanPass(pid int, refs *PageRefs, rss *uint64) error {
	vmas, err := ReadVMAs(s.cfg.ProcRoot, pid)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/%d/%s", s.cfg.ProcRoot, pid, s.cfg.IdleFile)
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	d := &decoder{geom: s.geom, weights: s.cfg.Weights, refs: refs, rss: rss}
	ws := walkState{}
	for i := range vmas {
		vma := &vmas[i]
		if ws.lastWalkEnd >= vma.End {
			// A previous over-running read covered this VMA.
			continue
		}
		if !vma.Anonymous() {
			continue
		}
		ws.walkStart = vma.Start
		if ws.lastWalkEnd > vma.Start {
			ws.walkStart = ws.lastWalkEnd
		}
		ws.walkEnd = vma.End
		refs.rewind()
		if err := s.walkVMA(f, d, &ws); err != nil {
			return errors.Wrapf(err, "walking %s of pid %d", vma.String(), pid)
		}
	}
	return nil
}

// walkVMA reads the idle map once for the current walk window and
// decodes the result. The buffer is sized to the window: the kernel
// packs roughly one record byte per eight PTEs.
func (s *Scanner) walkVMA(f *os.File, d *decoder, ws *walkState) error {
	size := (ws.walkEnd - ws.walkStart) / (8 * s.geom.Size(PTE))
	if size < s.cfg.BufMin {
		size = s.cfg.BufMin
	}
	buf := make([]byte, size)

	if _, err := f.Seek(int64(ws.walkStart), io.SeekStart); err != nil {
		return errors.Wrapf(err, "seeking to %#x", ws.walkStart)
	}
	n, err := f.Read(buf)
	if n <= 0 {
		// Nothing to decode for this window; a read error here
		// ends the VMA's walk, not the pass.
		if err != nil && err != io.EOF {
			log.Debugf("idle map read at %#x: %v", ws.walkStart, err)
		}
		return nil
	}

	end, err := d.decode(buf[:n])
	if err != nil {
		return err
	}
	ws.lastWalkEnd = end
	return nil
}
