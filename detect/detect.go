// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package detect

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/sample"
)

// Opts configures Compare.
type Opts struct {
	// MinCoverage is the minimum fraction of the reference that each sample's
	// masked consensus must cover.
	MinCoverage float64
	// MinDepth, when positive, skips positions where either sample's read
	// depth is below it.
	MinDepth int
	// MaxMismatches is the number of mismatches tolerated.  A negative value
	// means no limit.
	MaxMismatches int
	// PrintAll produces a record even for ineligible samples or comparisons
	// with too many mismatches.
	PrintAll bool
	// ReferenceLength is the number of unambiguous reference bases.
	ReferenceLength int
	// Masked marks excluded alignment columns: Masked[p] is true iff
	// AlignedPos p is masked.  It may be nil or shorter than the alignment.
	Masked []bool
}

// DefaultOpts holds the default thresholds.  ReferenceLength must be set by
// the caller.
var DefaultOpts = Opts{
	MinCoverage:   0.98,
	MinDepth:      0,
	MaxMismatches: 1,
}

func (o *Opts) masked(p align.AlignedPos) bool {
	return int(p) < len(o.Masked) && o.Masked[p]
}

func (o *Opts) depthOK(a, b *sample.Prepared, p align.AlignedPos) bool {
	return o.MinDepth <= 0 || (a.DepthAt(p) >= o.MinDepth && b.DepthAt(p) >= o.MinDepth)
}

// Type classifies a contamination record.
type Type int

const (
	// TypeNone is the zero Type; Compare never returns it.
	TypeNone Type = iota
	// TypeMinorAlleles means only minor alleles matched.
	TypeMinorAlleles
	// TypeMinorAndConsensus means both minor and major alleles matched.
	TypeMinorAndConsensus
	// TypeConsensus means no minor allele matched.
	TypeConsensus
)

// String returns the name used in reports.
func (t Type) String() string {
	switch t {
	case TypeMinorAlleles:
		return "minor alleles"
	case TypeMinorAndConsensus:
		return "minor and consensus-level"
	case TypeConsensus:
		return "consensus-level"
	}
	return "none"
}

func classify(minor, major int) Type {
	switch {
	case minor > 0 && major == 0:
		return TypeMinorAlleles
	case minor > 0:
		return TypeMinorAndConsensus
	}
	return TypeConsensus
}

// Allele is a base at an alignment position.
type Allele struct {
	Pos  align.AlignedPos
	Base byte
}

// String renders the allele as "<pos> <base>".
func (a Allele) String() string {
	return fmt.Sprintf("%d %c", a.Pos, a.Base)
}

// SampleSummary is the per-sample part of a Record.
type SampleSummary struct {
	Name                       string
	UnambiguousBases           int
	Coverage                   float64
	PreMaskingUnambiguousBases int
	PreMaskingCoverage         float64
}

func summarize(p *sample.Prepared) SampleSummary {
	return SampleSummary{
		Name:                       p.Name,
		UnambiguousBases:           p.UnambiguousBases,
		Coverage:                   p.Coverage,
		PreMaskingUnambiguousBases: p.PreMaskingUnambiguousBases,
		PreMaskingCoverage:         p.PreMaskingCoverage,
	}
}

// Record is the outcome of one directional comparison.
type Record struct {
	Contaminated  SampleSummary
	Contaminating SampleSummary

	// Heterozygous lists the contaminated sample's heterozygous loci.
	Heterozygous []allele.Entry

	MinorMatches int
	MajorMatches int
	// Matched lists the matched alleles by ascending position.
	Matched []Allele
	// MatchedFreqs[i] is the within-sample frequency of Matched[i].
	MatchedFreqs []float64
	// Mismatches lists the contaminating sample's bases at mismatched
	// positions, by ascending position.
	Mismatches []Allele

	// Proportion is (MinorMatches+MajorMatches)/len(Heterozygous).  It is
	// undefined (HasProportion is false) when there are no heterozygous loci.
	Proportion    float64
	HasProportion bool

	Type Type

	// Median is the median of MatchedFreqs, or 1 if there are none.
	Median float64
	// Min and Max are undefined (HasMinMax is false) when MatchedFreqs is
	// empty.
	Min, Max  float64
	HasMinMax bool

	// ExceedsMismatchThreshold is set, with PrintAll, when the comparison
	// would otherwise have been abandoned.
	ExceedsMismatchThreshold bool
	// Eligible is false, with PrintAll, when either sample fails the
	// coverage threshold.
	Eligible bool
}

// NumMismatches returns len(r.Mismatches).
func (r *Record) NumMismatches() int { return len(r.Mismatches) }

// Compare tests whether contaminating could have contaminated contaminated.
//
// It returns a nil Record, and no error, when the comparison is abandoned
// for too many mismatches or because a sample fails the coverage threshold,
// unless opts.PrintAll is set.  An error means the pair cannot be compared
// at all, e.g. a sample lacks a consensus or an allele table.
func Compare(contaminated, contaminating *sample.Prepared, opts Opts) (*Record, error) {
	if err := checkComparable(contaminated, contaminating); err != nil {
		return nil, err
	}
	if opts.ReferenceLength <= 0 {
		return nil, errors.E(errors.Invalid, "detect.Compare: reference length must be positive")
	}
	eligible := sample.IsEligible(contaminated, opts.ReferenceLength, opts.MinCoverage) &&
		sample.IsEligible(contaminating, opts.ReferenceLength, opts.MinCoverage)
	if !eligible && !opts.PrintAll {
		return nil, nil
	}
	r := &Record{
		Contaminated:  summarize(contaminated),
		Contaminating: summarize(contaminating),
		Heterozygous:  contaminated.Alleles.Entries(),
		Eligible:      eligible,
	}
	exceeded := func() bool {
		return opts.MaxMismatches >= 0 && len(r.Mismatches) > opts.MaxMismatches
	}

	// Heterozygous loci.
	for _, e := range contaminated.Alleles.Entries() {
		if opts.masked(e.Pos) || !opts.depthOK(contaminated, contaminating, e.Pos) {
			continue
		}
		b := contaminating.At(e.Pos)
		if !align.IsUnambiguous(b) {
			continue
		}
		switch allele.Base(b) {
		case e.Minor:
			r.MinorMatches++
			r.Matched = append(r.Matched, Allele{e.Pos, b})
			r.MatchedFreqs = append(r.MatchedFreqs, e.MinorFreq)
		case e.Major:
			r.MajorMatches++
			r.Matched = append(r.Matched, Allele{e.Pos, b})
			r.MatchedFreqs = append(r.MatchedFreqs, e.MajorFreq)
		default:
			r.Mismatches = append(r.Mismatches, Allele{e.Pos, b})
			if exceeded() {
				if !opts.PrintAll {
					return nil, nil
				}
				r.ExceedsMismatchThreshold = true
			}
		}
	}

	// Homozygous positions: consensus genomes must agree.
	nHet := len(r.Mismatches)
	for i := range contaminated.Consensus {
		p := align.AlignedPos(i + 1)
		if contaminated.Alleles.Has(p) || opts.masked(p) || !opts.depthOK(contaminated, contaminating, p) {
			continue
		}
		a, b := contaminated.Consensus[i], contaminating.Consensus[i]
		if a == b || !align.IsUnambiguous(a) || !align.IsUnambiguous(b) {
			continue
		}
		r.Mismatches = append(r.Mismatches, Allele{p, b})
		if exceeded() {
			if !opts.PrintAll {
				return nil, nil
			}
			r.ExceedsMismatchThreshold = true
		}
	}
	if nHet > 0 && nHet < len(r.Mismatches) {
		sort.SliceStable(r.Mismatches, func(i, j int) bool { return r.Mismatches[i].Pos < r.Mismatches[j].Pos })
	}

	if n := len(r.Heterozygous); n > 0 {
		r.Proportion = float64(r.MinorMatches+r.MajorMatches) / float64(n)
		r.HasProportion = true
	}
	r.Type = classify(r.MinorMatches, r.MajorMatches)
	r.Median = Median(r.MatchedFreqs)
	r.Min, r.Max, r.HasMinMax = MinMax(r.MatchedFreqs)
	return r, nil
}

func checkComparable(contaminated, contaminating *sample.Prepared) error {
	for _, p := range []*sample.Prepared{contaminated, contaminating} {
		if p == nil {
			return errors.E(errors.Invalid, "detect.Compare: missing sample")
		}
		if len(p.Consensus) == 0 {
			return errors.E(errors.NotExist, "detect.Compare: no consensus genome for", p.Name)
		}
		if p.Alleles == nil {
			return errors.E(errors.NotExist, "detect.Compare: no allele table for", p.Name)
		}
	}
	if len(contaminated.Consensus) != len(contaminating.Consensus) {
		return errors.E(errors.Invalid, fmt.Sprintf("detect.Compare: consensus lengths differ: %s %d, %s %d",
			contaminated.Name, len(contaminated.Consensus), contaminating.Name, len(contaminating.Consensus)))
	}
	return nil
}
