// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package align holds the reference and sample consensus genomes in a common
// coordinate space.
//
// Two coordinate systems are in play, and they are deliberately kept as
// distinct types:
//
//   - OriginalPos is a 1-based position within an unaligned sequence, i.e. the
//     numbering used by upstream tools (variant callers, samtools depth, user
//     mask files).
//   - AlignedPos is a 1-based column of the multiple-sequence alignment after
//     every column in which the reference has a gap has been removed.
//
// CoordMap.ToAligned is the only translation between the two.
package align
