// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package util has small helpers shared by the command-line tools.
package util

import (
	"sort"
	"strings"
)

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

// matrix returns an n x m matrix.
func newMatrix(n, m int) (x matrix) {
	return matrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
}

func (m matrix) at(i, j int) int { return m.data[i*m.nCol+j] }

// computeCell computes the cell (i, j) of a Levenshtein matrix, given that
// cells (i-1, j-1), (i-1, j) and (i, j-1) are done.
func (m matrix) computeCell(i, j int, r1, r2 []byte) {
	switch {
	case i == 0:
		m.data[i*m.nCol+j] = j
		return
	case j == 0:
		m.data[i*m.nCol+j] = i
		return
	case r1[i-1] == r2[j-1]:
		m.data[i*m.nCol+j] = m.at(i-1, j-1)
		return
	}
	minValue := m.at(i-1, j) + 1
	if v := m.at(i-1, j-1) + 1; v < minValue {
		minValue = v
	}
	if v := m.at(i, j-1) + 1; v < minValue {
		minValue = v
	}
	m.data[i*m.nCol+j] = minValue
}

// EditDistance returns the Levenshtein distance between s1 and s2: the
// number of single-byte insertions, deletions and substitutions needed to
// turn one into the other.
func EditDistance(s1, s2 string) int {
	r1, r2 := []byte(s1), []byte(s2)
	m := newMatrix(len(r1)+1, len(r2)+1)
	for i := 0; i <= len(r1); i++ {
		for j := 0; j <= len(r2); j++ {
			m.computeCell(i, j, r1, r2)
		}
	}
	return m.at(len(r1), len(r2))
}

// ClosestNames returns the candidates with the smallest case-insensitive
// edit distance to name, sorted, together with that distance.  Candidates
// farther than maxDistance are ignored; a negative maxDistance means no
// limit.  It returns nil if no candidate qualifies.
func ClosestNames(name string, candidates []string, maxDistance int) ([]string, int) {
	lower := strings.ToLower(name)
	best := -1
	var out []string
	for _, c := range candidates {
		d := EditDistance(lower, strings.ToLower(c))
		if maxDistance >= 0 && d > maxDistance {
			continue
		}
		switch {
		case best < 0 || d < best:
			best = d
			out = append(out[:0], c)
		case d == best:
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, best
}

// Suggest formats a "did you mean" hint for an unmatched name, or returns ""
// if no candidate is within a third of the name's length.
func Suggest(name string, candidates []string) string {
	maxDistance := len(name) / 3
	if maxDistance < 1 {
		maxDistance = 1
	}
	names, _ := ClosestNames(name, candidates, maxDistance)
	if len(names) == 0 {
		return ""
	}
	return "; did you mean " + strings.Join(names, " or ") + "?"
}
