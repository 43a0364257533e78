// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package align

import (
	"fmt"
)

// OriginalPos is a 1-based position in an unaligned sequence.
type OriginalPos int

// AlignedPos is a 1-based column in the reference-gap-stripped alignment.
type AlignedPos int

// IsGap returns true for alignment gap characters.
func IsGap(b byte) bool {
	return b == '-' || b == '.'
}

// IsUnambiguous returns true iff b is one of A/C/G/T (either case).
func IsUnambiguous(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		return true
	}
	return false
}

// CoordMap translates original positions of one aligned row into stripped
// alignment columns.
type CoordMap struct {
	// toAligned[p] is the aligned column of original position p, or 0 if p
	// falls in a column where the reference has a gap.  toAligned[0] is unused.
	toAligned []AlignedPos
}

// NewCoordMap builds the translation table for row, given the aligned
// reference.  Both must be raw (unstripped) alignment rows of equal length.
func NewCoordMap(row, ref []byte) (*CoordMap, error) {
	if len(row) != len(ref) {
		return nil, fmt.Errorf("align.NewCoordMap: row length %d differs from reference length %d", len(row), len(ref))
	}
	m := &CoordMap{toAligned: make([]AlignedPos, 1, len(row)+1)}
	var col AlignedPos
	for i, b := range row {
		refGap := IsGap(ref[i])
		if !refGap {
			col++
		}
		if IsGap(b) {
			continue
		}
		if refGap {
			m.toAligned = append(m.toAligned, 0)
		} else {
			m.toAligned = append(m.toAligned, col)
		}
	}
	return m, nil
}

// IdentityMap returns a CoordMap for an n-base sequence that is identical to
// the stripped coordinate space, e.g. the reference itself.
func IdentityMap(n int) *CoordMap {
	m := &CoordMap{toAligned: make([]AlignedPos, n+1)}
	for i := 1; i <= n; i++ {
		m.toAligned[i] = AlignedPos(i)
	}
	return m
}

// Len returns the number of original positions covered by the map.
func (m *CoordMap) Len() int {
	return len(m.toAligned) - 1
}

// ToAligned translates an original position.  It returns false when p is out
// of range, or when p lies in a column that was stripped because the
// reference has a gap there.
func (m *CoordMap) ToAligned(p OriginalPos) (AlignedPos, bool) {
	if p < 1 || int(p) >= len(m.toAligned) {
		return 0, false
	}
	a := m.toAligned[p]
	return a, a != 0
}

// DepthTable maps original positions to read depth.  Positions absent from
// the table have depth 0, matching "samtools depth" output without -a.
type DepthTable map[OriginalPos]int

// AlignedDepth maps stripped alignment columns to read depth.
type AlignedDepth map[AlignedPos]int

// PositionSet is a set of original positions.
type PositionSet interface {
	Contains(p OriginalPos) bool
}

// TranslateDepth moves a depth table into the stripped coordinate space.
// Entries that have no aligned column are dropped.
func (m *CoordMap) TranslateDepth(d DepthTable) AlignedDepth {
	if d == nil {
		return nil
	}
	out := make(AlignedDepth, len(d))
	for p, depth := range d {
		if a, ok := m.ToAligned(p); ok {
			out[a] = depth
		}
	}
	return out
}

// TranslateSet returns a dense per-column mask: result[a] is true iff some
// original position mapping to column a is in s.  result[0] is unused.
func (m *CoordMap) TranslateSet(s PositionSet, nCol int) []bool {
	out := make([]bool, nCol+1)
	if s == nil {
		return out
	}
	for p := 1; p < len(m.toAligned); p++ {
		a := m.toAligned[p]
		if a != 0 && int(a) <= nCol && s.Contains(OriginalPos(p)) {
			out[a] = true
		}
	}
	return out
}
