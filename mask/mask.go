// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package mask holds sets of reference positions that are excluded from
// contamination analysis, e.g. known problematic sites or primer binding
// regions.  Positions are 1-based and in original (unaligned) reference
// coordinates.
package mask

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/bitset"
	"github.com/grailbio/crosscontam/align"
)

// Set is an immutable set of original reference positions.  The zero value
// and a nil *Set are both empty.
type Set struct {
	bits []uintptr
	max  align.OriginalPos
	n    int
}

// interval is a 1-based, inclusive range of positions.
type interval struct {
	start, end align.OriginalPos
}

func newSet(intervals []interval) *Set {
	s := &Set{}
	for _, iv := range intervals {
		if iv.end > s.max {
			s.max = iv.end
		}
	}
	if s.max == 0 {
		return s
	}
	s.bits = make([]uintptr, (int(s.max)+bitset.BitsPerWord)/bitset.BitsPerWord)
	for _, iv := range intervals {
		for p := iv.start; p <= iv.end; p++ {
			if !bitset.Test(s.bits, int(p)) {
				bitset.Set(s.bits, int(p))
				s.n++
			}
		}
	}
	return s
}

// New returns a set containing the given positions.  Positions < 1 are
// ignored.
func New(positions ...align.OriginalPos) *Set {
	intervals := make([]interval, 0, len(positions))
	for _, p := range positions {
		if p >= 1 {
			intervals = append(intervals, interval{p, p})
		}
	}
	return newSet(intervals)
}

// Union returns a set containing every position of every argument.  nil
// arguments are skipped.
func Union(sets ...*Set) *Set {
	var intervals []interval
	for _, s := range sets {
		for _, p := range s.Positions() {
			intervals = append(intervals, interval{p, p})
		}
	}
	return newSet(intervals)
}

// Contains implements align.PositionSet.
func (s *Set) Contains(p align.OriginalPos) bool {
	if s == nil || p < 1 || p > s.max {
		return false
	}
	return bitset.Test(s.bits, int(p))
}

// Len returns the number of positions in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

// Positions returns the members of the set in ascending order.
func (s *Set) Positions() []align.OriginalPos {
	if s.Len() == 0 {
		return nil
	}
	out := make([]align.OriginalPos, 0, s.n)
	for p := align.OriginalPos(1); p <= s.max; p++ {
		if bitset.Test(s.bits, int(p)) {
			out = append(out, p)
		}
	}
	return out
}

// String renders the set in the syntax accepted by Parse.
func (s *Set) String() string {
	positions := s.Positions()
	var parts []string
	for i := 0; i < len(positions); {
		j := i
		for j+1 < len(positions) && positions[j+1] == positions[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, strconv.Itoa(int(positions[i])))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", positions[i], positions[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// Parse reads a comma-separated list of 1-based positions and inclusive
// ranges, e.g. "1-55,187,29837-29903".  Whitespace around items is ignored.
func Parse(s string) (*Set, error) {
	var intervals []interval
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		iv, err := parseInterval(item)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return newSet(intervals), nil
}

func parseInterval(item string) (interval, error) {
	startStr, endStr := item, item
	if i := strings.IndexByte(item, '-'); i >= 0 {
		startStr, endStr = item[:i], item[i+1:]
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return interval{}, fmt.Errorf("mask: invalid position %q", item)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return interval{}, fmt.Errorf("mask: invalid position %q", item)
	}
	if start < 1 || end < start {
		return interval{}, fmt.Errorf("mask: invalid range %q", item)
	}
	return interval{align.OriginalPos(start), align.OriginalPos(end)}, nil
}
