// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package contam

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/plate"
)

// Opts configures a run.
type Opts struct {
	// MinReadcount is the minimum read support of a minor allele.
	MinReadcount int
	// MinMAF is the minimum minor allele frequency, in [0, 1].
	MinMAF float64
	// MinDepth, when positive, masks positions with lower read depth and
	// requires that much depth at heterozygous loci.
	MinDepth int
	// MinCoverage is the minimum fraction of the reference a sample's masked
	// consensus must cover for the sample to be compared.
	MinCoverage float64
	// MaxMismatches is the number of mismatches a comparison tolerates.  A
	// negative value means no limit.
	MaxMismatches int
	// PrintAll reports every comparison, including ineligible samples and
	// comparisons with too many mismatches.
	PrintAll bool

	// PlateRows and PlateCols are the dimensions of every plate map.
	PlateRows, PlateCols int
	// Adjacency selects the neighbors compared when plate maps are given.
	Adjacency plate.Adjacency

	// Workers bounds the number of concurrent preparation and comparison
	// tasks.
	Workers int
	// RefName selects the reference row of a pre-computed alignment.  If
	// empty, the name of the first reference FASTA record is used.
	RefName string
	// Quiet suppresses logging of each diagnostic as it is recorded.
	Quiet bool
	// Aligner aligns consensus genomes when no alignment is supplied.  If nil,
	// MAFFT is used.
	Aligner align.Aligner
}

// DefaultOpts holds the default configuration.
var DefaultOpts = Opts{
	MinReadcount:  allele.DefaultOpts.MinReadcount,
	MinMAF:        allele.DefaultOpts.MinMAF,
	MinDepth:      allele.DefaultOpts.MinDepth,
	MinCoverage:   detect.DefaultOpts.MinCoverage,
	MaxMismatches: detect.DefaultOpts.MaxMismatches,
	PlateRows:     plate.DefaultRows,
	PlateCols:     plate.DefaultCols,
	Adjacency:     plate.DefaultAdjacency,
	Workers:       1,
}

// Validate checks opts for configuration errors.
func (o Opts) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.E(errors.Invalid, fmt.Sprintf(format, args...))
	}
	switch {
	case o.MinReadcount < 0:
		return invalid("minimum minor allele readcount %d is negative", o.MinReadcount)
	case o.MinMAF < 0 || o.MinMAF > 1:
		return invalid("minimum minor allele frequency %v is outside [0, 1]", o.MinMAF)
	case o.MinDepth < 0:
		return invalid("minimum read depth %d is negative", o.MinDepth)
	case o.MinCoverage < 0 || o.MinCoverage > 1:
		return invalid("minimum genome coverage %v is outside [0, 1]", o.MinCoverage)
	case o.PlateRows < 1 || o.PlateCols < 1:
		return invalid("plate dimensions %d x %d must be positive", o.PlateRows, o.PlateCols)
	case o.Adjacency == 0:
		return invalid("no plate adjacency selected")
	case o.Workers < 1:
		return invalid("worker count %d must be positive", o.Workers)
	}
	return nil
}

func (o Opts) alleleOpts() allele.Opts {
	return allele.Opts{MinReadcount: o.MinReadcount, MinMAF: o.MinMAF, MinDepth: o.MinDepth}
}

func (o Opts) detectOpts(refLen int, masked []bool) detect.Opts {
	return detect.Opts{
		MinCoverage:     o.MinCoverage,
		MinDepth:        o.MinDepth,
		MaxMismatches:   o.MaxMismatches,
		PrintAll:        o.PrintAll,
		ReferenceLength: refLen,
		Masked:          masked,
	}
}
