// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package contam runs cross-contamination detection end to end: it loads the
// reference, consensus genomes, within-sample diversity and plate maps,
// prepares every sample, and compares candidate pairs in both directions.
package contam

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/diag"
	"github.com/grailbio/crosscontam/encoding/fasta"
	"github.com/grailbio/crosscontam/mask"
	"github.com/grailbio/crosscontam/plate"
	"github.com/grailbio/crosscontam/sample"
	"github.com/grailbio/crosscontam/schedule"
	"github.com/grailbio/crosscontam/util"
)

// ErrNoComparableSamples is returned when fewer than two samples remain after
// filtering.
var ErrNoComparableSamples = errors.E(errors.Precondition, "fewer than two comparable samples")

// Dataset is the prepared state of a run, shared read-only by every
// comparison.
type Dataset struct {
	Store *align.Store
	// Samples holds every successfully prepared sample, eligible or not.
	Samples map[string]*sample.Prepared
	Plates  []*plate.Plate
	Mask    *mask.Set
}

// Prepared returns the prepared samples sorted by name.
func (d *Dataset) Prepared() []*sample.Prepared {
	out := make([]*sample.Prepared, 0, len(d.Samples))
	for _, p := range d.Samples {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Result is the outcome of Run.
type Result struct {
	Records []*detect.Record
	// Samples are the prepared samples, sorted by name.
	Samples     []*sample.Prepared
	Diagnostics []diag.Diagnostic
	// Compared is the number of directional comparisons executed.
	Compared int
	// Digest fingerprints Records.
	Digest uint64
}

// loaded is one sample's raw inputs after reading its files.
type loaded struct {
	input     SampleInput
	consensus *fasta.Record
	source    sample.RowSource
	depth     align.DepthTable
	ok        bool
}

// Load reads and prepares every input.  Per-sample problems are reported to
// diags and the sample is dropped; configuration problems are returned as
// errors.
func Load(ctx context.Context, in Inputs, opts Opts, diags *diag.List) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refs, err := align.LoadRecords(ctx, in.Reference)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, errors.E(errors.Invalid, "reference", in.Reference, "has no sequences")
	}
	ref := refs[0]
	if len(refs) > 1 {
		diags.Addf(diag.Warning, in.Reference, "%d sequences; using the first, %s", len(refs), ref.Name)
	}
	log.Printf("reference %s: %d bases, %d unambiguous", ref.Name, len(ref.Seq), align.UnambiguousBaseCount(ref.Seq))

	ds := &Dataset{}
	if ds.Mask, err = loadMask(ctx, in, align.OriginalPos(len(ref.Seq))); err != nil {
		return nil, err
	}
	for _, path := range in.PlateMaps {
		p, err := plate.ReadMap(ctx, path, opts.PlateRows, opts.PlateCols, diags)
		if err != nil {
			return nil, err
		}
		ds.Plates = append(ds.Plates, p)
	}

	inputs := selectSamples(in.Samples, ds.Plates, diags)
	samples := make([]loaded, len(inputs))
	err = traverse.Limit(opts.Workers).Each(len(inputs), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		samples[i] = loadSample(ctx, inputs[i], in.Alignment == "", opts, diags)
		return nil
	})
	if err != nil {
		return nil, err
	}

	aln, err := alignment(ctx, in, opts, ref, samples)
	if err != nil {
		return nil, err
	}
	if ds.Store, err = align.NewStore(aln); err != nil {
		return nil, errors.E(errors.Invalid, err)
	}
	log.Printf("alignment: %d columns after removing reference gaps", ds.Store.Len())

	prepOpts := sample.Opts{Allele: opts.alleleOpts(), MinCoverage: opts.MinCoverage, Masked: ds.Mask}
	prepared := make([]*sample.Prepared, len(samples))
	err = traverse.Limit(opts.Workers).Each(len(samples), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := samples[i]
		if !s.ok {
			return nil
		}
		if !ds.Store.Has(s.input.Name) {
			diags.Addf(diag.Sample, s.input.Name, "not present in the alignment%s", util.Suggest(s.input.Name, ds.Store.Names()))
			return nil
		}
		p, err := sample.Prepare(sample.Sample{Name: s.input.Name, Source: s.source, Depth: s.depth}, ds.Store, prepOpts, diags)
		if err != nil {
			diags.Addf(diag.Sample, s.input.Name, "%v", err)
			return nil
		}
		prepared[i] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	ds.Samples = make(map[string]*sample.Prepared)
	for _, p := range prepared {
		if p == nil {
			continue
		}
		ds.Samples[p.Name] = p
		if !p.Eligible {
			diags.Addf(diag.Sample, p.Name, "coverage %.4f is below the minimum %.4f (pre-masking %.4f)",
				p.Coverage, opts.MinCoverage, p.PreMaskingCoverage)
		}
	}
	return ds, nil
}

func loadMask(ctx context.Context, in Inputs, refLen align.OriginalPos) (*mask.Set, error) {
	var sets []*mask.Set
	if in.MaskedPositions != "" {
		s, err := mask.ReadPositions(ctx, in.MaskedPositions, refLen)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	if in.MaskBED != "" {
		// Viral references have a single sequence, so every BED interval
		// applies to it regardless of the chromosome name used.
		s, err := mask.ReadBED(ctx, in.MaskBED, "", refLen)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return mask.Union(sets...), nil
}

// selectSamples drops duplicate samples and, when plate maps are given,
// samples that are on no plate.
func selectSamples(inputs []SampleInput, plates []*plate.Plate, diags *diag.List) []SampleInput {
	seen := make(map[string]bool)
	var names []string
	for _, s := range inputs {
		names = append(names, s.Name)
	}
	onPlate := make(map[string]bool)
	var plated []string
	for _, p := range plates {
		for _, name := range p.Samples() {
			if !onPlate[name] {
				onPlate[name] = true
				plated = append(plated, name)
			}
		}
	}
	var out []SampleInput
	for _, s := range inputs {
		switch {
		case seen[s.Name]:
			diags.Addf(diag.Sample, s.Name, "listed more than once; keeping the first entry")
			continue
		case s.WithinSample == "":
			diags.Addf(diag.Sample, s.Name, "no within-sample diversity file")
		case len(plates) > 0 && !onPlate[s.Name]:
			diags.Addf(diag.Sample, s.Name, "not on any plate map%s", util.Suggest(s.Name, plated))
		default:
			out = append(out, s)
		}
		seen[s.Name] = true
	}
	known := make(map[string]bool)
	for _, name := range names {
		known[name] = true
	}
	for _, name := range plated {
		if !known[name] {
			diags.Addf(diag.Warning, name, "on a plate map but not in the sample list%s", util.Suggest(name, names))
		}
	}
	return out
}

// loadSample reads one sample's files.  Failures are reported to diags and
// leave ok false.
func loadSample(ctx context.Context, in SampleInput, needConsensus bool, opts Opts, diags *diag.List) (s loaded) {
	s.input = in
	if needConsensus {
		if in.Consensus == "" {
			diags.Addf(diag.Sample, in.Name, "no consensus genome")
			return
		}
		records, err := align.LoadRecords(ctx, in.Consensus)
		if err != nil {
			diags.Addf(diag.Sample, in.Name, "%v", err)
			return
		}
		if len(records) == 0 {
			diags.Addf(diag.Sample, in.Name, "no consensus genome in %s", in.Consensus)
			return
		}
		if len(records) > 1 {
			diags.Addf(diag.Warning, in.Name, "%s has %d sequences; using the first", in.Consensus, len(records))
		}
		s.consensus = &fasta.Record{Name: in.Name, Seq: records[0].Seq}
	}

	var src sample.Source
	if in.IsVCF() {
		records, err := allele.ReadLoFreqVCF(ctx, in.WithinSample)
		if err != nil {
			diags.Addf(diag.Sample, in.Name, "%v", err)
			return
		}
		src = sample.VCFSource{Records: records}
	} else {
		rows, err := allele.ReadRows(ctx, in.WithinSample)
		if err != nil {
			diags.Addf(diag.Sample, in.Name, "%v", err)
			return
		}
		src = sample.RowSource{Rows: rows}
	}
	var err error
	if s.source, err = sample.Reduce(src); err != nil {
		diags.Addf(diag.Sample, in.Name, "%v", err)
		return
	}

	if opts.MinDepth > 0 {
		if in.ReadDepth == "" {
			diags.Addf(diag.Sample, in.Name, "no read depth table; every position fails the minimum depth of %d", opts.MinDepth)
			return
		}
		if s.depth, err = sample.ReadDepthTable(ctx, in.ReadDepth); err != nil {
			diags.Addf(diag.Sample, in.Name, "%v", err)
			return
		}
	}
	s.ok = true
	return
}

// alignment reads the supplied alignment or aligns the loaded consensus
// genomes to the reference.
func alignment(ctx context.Context, in Inputs, opts Opts, ref fasta.Record, samples []loaded) (*align.Alignment, error) {
	if in.Alignment != "" {
		refName := opts.RefName
		if refName == "" {
			refName = ref.Name
		}
		aln, err := align.ReadAlignment(ctx, in.Alignment, refName)
		if err != nil {
			return nil, err
		}
		return aln, nil
	}
	var seqs []fasta.Record
	for _, s := range samples {
		if s.ok {
			seqs = append(seqs, *s.consensus)
		}
	}
	aligner := opts.Aligner
	if aligner == nil {
		aligner = align.MAFFT{Threads: opts.Workers}
	}
	log.Printf("aligning %d consensus genome(s) to %s", len(seqs), ref.Name)
	aln, err := aligner.Align(ctx, ref, seqs)
	if err != nil {
		return nil, errors.E(err, "align consensus genomes")
	}
	return aln, nil
}

// Pairs returns the comparisons to run over the eligible samples of ds:
// neighbors on some plate if plates were given, all pairs otherwise.  With
// printAll, ineligible samples are included.
func (d *Dataset) Pairs(adj plate.Adjacency, printAll bool) []schedule.Pair {
	eligible := func(name string) bool {
		p, ok := d.Samples[name]
		return ok && (printAll || p.Eligible)
	}
	if len(d.Plates) > 0 {
		return schedule.NeighborPairs(d.Plates, adj, eligible)
	}
	var names []string
	for _, p := range d.Prepared() {
		if eligible(p.Name) {
			names = append(names, p.Name)
		}
	}
	return schedule.AllPairs(names)
}

// Run executes a complete contamination analysis.
func Run(ctx context.Context, in Inputs, opts Opts) (*Result, error) {
	diags := &diag.List{Quiet: opts.Quiet}
	ds, err := Load(ctx, in, opts, diags)
	if err != nil {
		return nil, err
	}
	pairs := ds.Pairs(opts.Adjacency, opts.PrintAll)
	if n := len(schedule.Samples(pairs)); n < 2 {
		log.Error.Printf("%d sample(s) prepared, %d with comparable neighbors", len(ds.Samples), n)
		return nil, ErrNoComparableSamples
	}
	masked := ds.Store.RefMap().TranslateSet(ds.Mask, ds.Store.Len())
	results, err := schedule.Run(ctx, pairs, ds.Samples, opts.detectOpts(ds.Store.RefUnambiguousLen(), masked), opts.Workers, diags)
	if err != nil {
		return nil, err
	}
	return &Result{
		Records:     results.Records(),
		Samples:     ds.Prepared(),
		Diagnostics: diags.Items(),
		Compared:    results.Compared(),
		Digest:      results.Digest(),
	}, nil
}

// Summary is a one-line description of r for logs.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d sample(s), %d comparison(s), %d contamination record(s), %d diagnostic(s), digest %016x",
		len(r.Samples), r.Compared, len(r.Records), len(r.Diagnostics), r.Digest)
}

