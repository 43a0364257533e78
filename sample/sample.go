// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sample prepares per-sample inputs for contamination detection:
// the masked consensus genome in alignment coordinates, its coverage, and
// the table of heterozygous loci.
package sample

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/diag"
)

// Stage identifies how far a within-sample diversity source has been
// processed.
type Stage int

const (
	// StageVCF is a set of variant calls not yet reduced to allele rows.
	StageVCF Stage = iota
	// StageRows is a set of major/minor allele rows.
	StageRows
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageVCF:
		return "vcf"
	case StageRows:
		return "rows"
	}
	return fmt.Sprintf("stage%d", int(s))
}

// Source is the within-sample diversity input of a sample.  It is either a
// VCFSource or a RowSource.
type Source interface {
	Stage() Stage
}

// VCFSource holds unreduced variant calls.
type VCFSource struct {
	Records []allele.VCFRecord
}

// Stage implements Source.
func (VCFSource) Stage() Stage { return StageVCF }

// RowSource holds allele rows, ready for allele.Build.
type RowSource struct {
	Rows []allele.Row
}

// Stage implements Source.
func (RowSource) Stage() Stage { return StageRows }

// Reduce converts src to a RowSource.
func Reduce(src Source) (RowSource, error) {
	switch s := src.(type) {
	case RowSource:
		return s, nil
	case *RowSource:
		return *s, nil
	case VCFSource:
		return RowSource{Rows: allele.RowsFromVCF(s.Records)}, nil
	case *VCFSource:
		return RowSource{Rows: allele.RowsFromVCF(s.Records)}, nil
	case nil:
		return RowSource{}, fmt.Errorf("sample.Reduce: no within-sample diversity source")
	}
	return RowSource{}, fmt.Errorf("sample.Reduce: unknown source type %T", src)
}

// Sample is one sample's raw inputs.  The consensus genome lives in the
// alignment store under Name.
type Sample struct {
	Name   string
	Source Source
	// Depth is the per-position read depth in reference coordinates.  It may
	// be nil when no minimum depth is configured.
	Depth align.DepthTable
}

// Prepared is a sample ready for pairwise comparison.  It is never modified
// after Prepare returns and may be shared between goroutines.
type Prepared struct {
	Name string
	// Consensus is the masked consensus in stripped alignment coordinates;
	// Consensus[p-1] is the base at AlignedPos p.
	Consensus []byte
	// PreMaskingConsensus is Consensus before masking.
	PreMaskingConsensus []byte
	Alleles             *allele.Table
	// Depth is the read depth in stripped alignment coordinates, or nil.
	Depth align.AlignedDepth

	UnambiguousBases           int
	PreMaskingUnambiguousBases int
	Coverage                   float64
	PreMaskingCoverage         float64
	// Eligible is IsEligible(p, ..., MinCoverage) as of preparation.
	Eligible bool
}

// At returns the consensus base at pos, or 0 if pos is out of range.
func (p *Prepared) At(pos align.AlignedPos) byte {
	if pos < 1 || int(pos) > len(p.Consensus) {
		return 0
	}
	return p.Consensus[pos-1]
}

// DepthAt returns the read depth at pos; missing positions have depth 0.
func (p *Prepared) DepthAt(pos align.AlignedPos) int {
	return p.Depth[pos]
}

// ISNVs returns the number of heterozygous positions.
func (p *Prepared) ISNVs() int {
	return p.Alleles.Len()
}

// Opts configures Prepare.
type Opts struct {
	Allele      allele.Opts
	MinCoverage float64
	// Masked is in original reference coordinates.
	Masked align.PositionSet
}

// Prepare masks s's consensus, computes its coverage, and builds its allele
// table.  s.Source must already be a RowSource; passing an unreduced source
// is a programming error and panics.  A sample without an aligned consensus
// is an error.
func Prepare(s Sample, store *align.Store, opts Opts, diags *diag.List) (*Prepared, error) {
	var rows []allele.Row
	switch src := s.Source.(type) {
	case RowSource:
		rows = src.Rows
	case *RowSource:
		rows = src.Rows
	case nil:
		return nil, fmt.Errorf("sample.Prepare: %s has no within-sample diversity source", s.Name)
	default:
		log.Panicf("sample.Prepare: %s: source at stage %v was not reduced before preparation", s.Name, src.Stage())
	}
	seqs, err := store.Sequences(s.Name, opts.Masked, s.Depth, opts.Allele.MinDepth)
	if err != nil {
		return nil, err
	}
	refMap := store.RefMap()
	refLen := store.RefUnambiguousLen()
	p := &Prepared{
		Name:                       s.Name,
		Consensus:                  seqs.Masked,
		PreMaskingConsensus:        seqs.PreMasking,
		Alleles:                    allele.Build(s.Name, rows, opts.Allele, opts.Masked, s.Depth, refMap, diags),
		UnambiguousBases:           align.UnambiguousBaseCount(seqs.Masked),
		PreMaskingUnambiguousBases: align.UnambiguousBaseCount(seqs.PreMasking),
		Coverage:                   align.Coverage(seqs.Masked, refLen),
		PreMaskingCoverage:         align.Coverage(seqs.PreMasking, refLen),
	}
	if opts.Allele.MinDepth > 0 {
		p.Depth = refMap.TranslateDepth(s.Depth)
	}
	p.Eligible = IsEligible(p, refLen, opts.MinCoverage)
	log.Debug.Printf("sample.Prepare %s: coverage %.4f (pre-masking %.4f), %d iSNV(s), eligible %v",
		s.Name, p.Coverage, p.PreMaskingCoverage, p.ISNVs(), p.Eligible)
	return p, nil
}

// IsEligible returns whether p's masked consensus covers at least
// minCoverage of the refLen unambiguous reference bases.
func IsEligible(p *Prepared, refLen int, minCoverage float64) bool {
	return align.Coverage(p.Consensus, refLen) >= minCoverage
}
