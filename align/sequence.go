// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package align

import (
	"bytes"
	"fmt"
)

// AmbiguousBase replaces masked positions.
const AmbiguousBase = 'N'

// StripReferenceGaps removes every alignment column in which ref has a gap,
// from ref and from each of rows.  All inputs must have the same length.  The
// inputs are not modified.  Stripping an already-stripped alignment returns
// copies of the inputs.
func StripReferenceGaps(ref []byte, rows [][]byte) ([]byte, [][]byte, error) {
	for i, row := range rows {
		if len(row) != len(ref) {
			return nil, nil, fmt.Errorf("align.StripReferenceGaps: row %d has length %d, reference has length %d", i, len(row), len(ref))
		}
	}
	keep := keptColumns(ref)
	outRows := make([][]byte, len(rows))
	for i, row := range rows {
		outRows[i] = stripRow(row, keep)
	}
	return stripRow(ref, keep), outRows, nil
}

// keptColumns returns the indices of the columns in which ref has no gap.
func keptColumns(ref []byte) []int {
	keep := make([]int, 0, len(ref))
	for i, b := range ref {
		if !IsGap(b) {
			keep = append(keep, i)
		}
	}
	return keep
}

func stripRow(row []byte, keep []int) []byte {
	out := make([]byte, len(keep))
	for i, col := range keep {
		out[i] = row[col]
	}
	return out
}

// UnambiguousBaseCount counts the A/C/G/T characters in seq, ignoring case.
// Ambiguous bases and gaps are not counted.
func UnambiguousBaseCount(seq []byte) int {
	n := 0
	for _, b := range seq {
		if IsUnambiguous(b) {
			n++
		}
	}
	return n
}

// Coverage returns the fraction of refLen covered by unambiguous bases in seq.
// It returns 0 for an empty reference.
func Coverage(seq []byte, refLen int) float64 {
	if refLen <= 0 {
		return 0
	}
	return float64(UnambiguousBaseCount(seq)) / float64(refLen)
}

// Mask returns a copy of row in which every base at a masked reference
// position, or (when minDepth > 0) at a reference position whose depth is
// below minDepth, is replaced by AmbiguousBase.
//
// row and ref are raw alignment rows of equal length.  Reference positions
// advance on every column where ref has no gap, so a sample with an insertion
// or deletion is masked at the same columns as every other sample.  Gap
// characters in row, and columns where ref has a gap, are left as is.  To mask
// an unaligned sequence in its own coordinates, pass it as both row and ref.
func Mask(row, ref []byte, masked PositionSet, depth DepthTable, minDepth int) []byte {
	out := bytes.ToUpper(row)
	if masked == nil && minDepth <= 0 {
		return out
	}
	var p OriginalPos
	for i, b := range out {
		if i >= len(ref) || IsGap(ref[i]) {
			continue
		}
		p++
		if IsGap(b) {
			continue
		}
		if masked != nil && masked.Contains(p) {
			out[i] = AmbiguousBase
		} else if minDepth > 0 && depth[p] < minDepth {
			out[i] = AmbiguousBase
		}
	}
	return out
}
