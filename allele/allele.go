// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package allele builds per-sample tables of heterozygous loci (iSNVs) from
// major/minor allele rows produced by a variant caller.
package allele

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/diag"
)

// Base is a nucleotide.  Its value is the upper-case ASCII letter, so a Base
// can be compared directly against consensus sequence bytes.
type Base byte

const (
	A Base = 'A'
	C Base = 'C'
	G Base = 'G'
	T Base = 'T'
)

// ParseBase parses a single unambiguous base, ignoring case.
func ParseBase(s string) (Base, bool) {
	if len(s) != 1 || !align.IsUnambiguous(s[0]) {
		return 0, false
	}
	return Base(s[0] &^ 0x20), true
}

// String implements fmt.Stringer.
func (b Base) String() string { return string([]byte{byte(b)}) }

// Row is one raw within-sample diversity record, in original reference
// coordinates.  Frequencies are fractions in [0, 1].
type Row struct {
	RefName    string
	Pos        align.OriginalPos
	Major      string
	MajorCount int
	MajorFreq  float64
	Minor      string
	MinorCount int
	MinorFreq  float64
}

// Entry is a heterozygous locus that passed every filter, in stripped
// alignment coordinates.
type Entry struct {
	Pos        align.AlignedPos
	Major      Base
	MajorCount int
	MajorFreq  float64
	Minor      Base
	MinorCount int
	MinorFreq  float64
}

// Opts controls which rows are accepted as heterozygous.
type Opts struct {
	// MinReadcount is the minimum read support of the minor allele.
	MinReadcount int
	// MinMAF is the minimum minor allele frequency.
	MinMAF float64
	// MinDepth is the minimum read depth at the position.  When positive, both
	// the row's total allele count and the read-depth table must reach it.
	MinDepth int
}

// DefaultOpts holds the default thresholds.
var DefaultOpts = Opts{
	MinReadcount: 10,
	MinMAF:       0.03,
	MinDepth:     0,
}

// Table is an immutable set of heterozygous loci, ordered by position.  It
// is safe for concurrent use.
type Table struct {
	entries []Entry
	index   map[align.AlignedPos]int
}

// NewTable creates a table from entries that have already been filtered.
// Entries are sorted by position; later duplicates are dropped.
func NewTable(entries []Entry) *Table {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })
	t := &Table{index: make(map[align.AlignedPos]int, len(sorted))}
	for _, e := range sorted {
		if _, ok := t.index[e.Pos]; ok {
			continue
		}
		t.index[e.Pos] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// Len returns the number of heterozygous positions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Get returns the entry at pos.
func (t *Table) Get(pos align.AlignedPos) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.index[pos]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Has returns whether pos is heterozygous.
func (t *Table) Has(pos align.AlignedPos) bool {
	_, ok := t.Get(pos)
	return ok
}

// Entries returns the entries in ascending position order.  Callers must not
// modify the result.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Positions returns the heterozygous positions in ascending order.
func (t *Table) Positions() []align.AlignedPos {
	out := make([]align.AlignedPos, t.Len())
	for i, e := range t.Entries() {
		out[i] = e.Pos
	}
	return out
}

// Build filters raw rows into a Table.
//
// masked and depth are in original reference coordinates, like the rows;
// refMap translates accepted positions into stripped alignment coordinates
// (nil means the two coincide).  A row is kept iff
//
//   minor count >= MinReadcount
//   minor frequency >= MinMAF
//   minor count + major count >= MinDepth
//   MinDepth == 0, or depth[pos] >= MinDepth
//   pos is not masked
//
// Rows with a non-ACGT allele, and repeated positions, are reported to diags
// under the given sample name and skipped; the first row at a position wins.
func Build(sample string, rows []Row, opts Opts, masked align.PositionSet, depth align.DepthTable, refMap *align.CoordMap, diags *diag.List) *Table {
	seen := make(map[align.OriginalPos]bool, len(rows))
	entries := make([]Entry, 0, len(rows))
	nFiltered := 0
	for _, row := range rows {
		if seen[row.Pos] {
			diags.Addf(diag.Row, sample, "position %d appears more than once in the within-sample diversity input; keeping the first occurrence", row.Pos)
			continue
		}
		seen[row.Pos] = true
		major, okMajor := ParseBase(row.Major)
		minor, okMinor := ParseBase(row.Minor)
		if !okMajor || !okMinor {
			diags.Addf(diag.Row, sample, "position %d: alleles %q/%q are not A, C, G or T", row.Pos, row.Major, row.Minor)
			continue
		}
		if !opts.accept(row, masked, depth) {
			nFiltered++
			continue
		}
		pos := align.AlignedPos(row.Pos)
		if refMap != nil {
			var ok bool
			if pos, ok = refMap.ToAligned(row.Pos); !ok {
				diags.Addf(diag.Row, sample, "position %d has no column in the alignment", row.Pos)
				continue
			}
		}
		entries = append(entries, Entry{
			Pos:        pos,
			Major:      major,
			MajorCount: row.MajorCount,
			MajorFreq:  row.MajorFreq,
			Minor:      minor,
			MinorCount: row.MinorCount,
			MinorFreq:  row.MinorFreq,
		})
	}
	log.Debug.Printf("allele.Build %s: %d row(s), %d heterozygous, %d filtered", sample, len(rows), len(entries), nFiltered)
	return NewTable(entries)
}

func (o Opts) accept(row Row, masked align.PositionSet, depth align.DepthTable) bool {
	if row.MinorCount < o.MinReadcount || row.MinorFreq < o.MinMAF {
		return false
	}
	if row.MinorCount+row.MajorCount < o.MinDepth {
		return false
	}
	if o.MinDepth > 0 && depth[row.Pos] < o.MinDepth {
		return false
	}
	if masked != nil && masked.Contains(row.Pos) {
		return false
	}
	return true
}
