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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VMA is one mapping parsed from /proc/<pid>/maps.
type VMA struct {
	Start    uint64
	End      uint64
	Read     bool
	Write    bool
	Exec     bool
	MayShare bool
	Offset   uint64
	Major    string
	Minor    string
	Inode    uint64
	Path     string
}

// Anonymous reports whether the mapping is process-private memory.
// Shared and executable mappings are never anonymous; a file-backed
// mapping counts only when it is writable (a private COW data
// segment).
func (v *VMA) Anonymous() bool {
	if v.MayShare || v.Exec {
		return false
	}
	return v.Inode == 0 || v.Write
}

func (v *VMA) String() string {
	return fmt.Sprintf("%x-%x", v.Start, v.End)
}

// ReadVMAs parses the mappings of pid in the order the kernel emits
// them. Any structural parse error fails the whole read.
func ReadVMAs(procRoot string, pid int) ([]VMA, error) {
	path := fmt.Sprintf("%s/%d/maps", procRoot, pid)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	vmas, err := parseVMAs(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return vmas, nil
}

func parseVMAs(r io.Reader) ([]VMA, error) {
	br := bufio.NewReaderSize(r, fileLineMaxLen)
	vmas := []VMA{}
	for {
		line, truncated, err := readMapsLine(br)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) > 0 {
			vma, perr := parseVMA(line, truncated)
			if perr != nil {
				return nil, perr
			}
			vmas = append(vmas, vma)
		}
		if err == io.EOF {
			return vmas, nil
		}
	}
}

// readMapsLine returns the next line without its trailing newline.
// When the line overflows the read buffer, the head of the line is
// returned with truncated set and the rest is discarded up to the
// next newline, so the following mapping stays intact.
func readMapsLine(br *bufio.Reader) (string, bool, error) {
	line, err := br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		head := string(line)
		for err == bufio.ErrBufferFull {
			_, err = br.ReadSlice('\n')
		}
		if err != nil && err != io.EOF {
			return "", true, err
		}
		return head, true, nil
	}
	if err != nil && err != io.EOF {
		return "", false, err
	}
	return strings.TrimSuffix(string(line), "\n"), false, err
}

// parseVMA parses one maps line:
//
//	start-end perms offset major:minor inode [path]
//
// Structural field errors are fatal; an overlong or truncated path is
// dropped with a warning while the mapping itself is kept.
func parseVMA(line string, truncated bool) (VMA, error) {
	var vma VMA

	fields := strings.Fields(line)
	if len(fields) < 5 {
		return vma, errors.Errorf("malformed maps line %q", line)
	}

	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return vma, errors.Errorf("malformed address range %q", fields[0])
	}
	var err error
	if vma.Start, err = strconv.ParseUint(addrs[0], 16, 64); err != nil {
		return vma, errors.Wrapf(err, "start address %q", addrs[0])
	}
	if vma.End, err = strconv.ParseUint(addrs[1], 16, 64); err != nil {
		return vma, errors.Wrapf(err, "end address %q", addrs[1])
	}

	perms := fields[1]
	if len(perms) < 4 {
		return vma, errors.Errorf("malformed permissions %q", perms)
	}
	vma.Read = perms[0] == 'r'
	vma.Write = perms[1] == 'w'
	vma.Exec = perms[2] == 'x'
	vma.MayShare = perms[3] != 'p'

	if vma.Offset, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
		return vma, errors.Wrapf(err, "offset %q", fields[2])
	}

	dev := strings.SplitN(fields[3], ":", 2)
	if len(dev) != 2 {
		return vma, errors.Errorf("malformed device %q", fields[3])
	}
	vma.Major, vma.Minor = dev[0], dev[1]

	if vma.Inode, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
		return vma, errors.Wrapf(err, "inode %q", fields[4])
	}

	if len(fields) > 5 {
		// The path may contain spaces; everything after the
		// inode belongs to it.
		path := strings.Join(fields[5:], " ")
		switch {
		case truncated:
			log.Warnf("maps line for %s truncated, dropping path", vma.String())
		case len(path) > pathMaxLen:
			log.Warnf("path of %s longer than %d, dropping it", vma.String(), pathMaxLen)
		default:
			vma.Path = path
		}
	} else if truncated {
		log.Warnf("maps line for %s truncated, dropping path", vma.String())
	}

	return vma, nil
}
