// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package output writes contamination records and per-sample iSNV counts as
// tab-separated tables.
package output

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/sample"
	"github.com/grailbio/hts/bgzf"
)

// NA marks an undefined value.
const NA = "NA"

// Opts controls file output.
type Opts struct {
	// Parallelism is the number of bgzf compression goroutines used for .gz
	// output.
	Parallelism int
	// Frequencies adds a column listing every matched allele frequency.
	Frequencies bool
}

// DefaultOpts is used by the command-line tool.
var DefaultOpts = Opts{Parallelism: 1}

// Percent renders a fraction as a percentage with one decimal place.
func Percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64)
}

func percentOrNA(f float64, ok bool) string {
	if !ok {
		return NA
	}
	return Percent(f)
}

func joinAlleles(alleles []detect.Allele) string {
	parts := make([]string, len(alleles))
	for i, a := range alleles {
		parts[i] = a.String()
	}
	return strings.Join(parts, "; ")
}

// RecordHeader lists the columns of WriteRecords output.
var RecordHeader = []string{
	"contaminated_sample",
	"contaminated_unambiguous_bases",
	"contaminated_coverage",
	"contaminated_pre_masking_unambiguous_bases",
	"contaminated_pre_masking_coverage",
	"contaminating_sample",
	"contaminating_unambiguous_bases",
	"contaminating_coverage",
	"contaminating_pre_masking_unambiguous_bases",
	"contaminating_pre_masking_coverage",
	"num_positions_with_heterozygosity",
	"heterozygous_alleles",
	"minor_alleles_matched",
	"major_alleles_matched",
	"alleles_matched_proportion",
	"matched_alleles",
	"num_mismatches",
	"mismatched_alleles",
	"contamination_type",
	"estimated_contamination_volume",
	"min_matched_frequency",
	"max_matched_frequency",
}

// WriteRecordsTo writes records, with a header line, to w.
func WriteRecordsTo(w io.Writer, records []*detect.Record, opts Opts) error {
	tsvw := tsv.NewWriter(w)
	header := RecordHeader
	if opts.Frequencies {
		header = append(append([]string(nil), header...), "matched_frequencies")
	}
	tsvw.WriteString(strings.Join(header, "\t"))
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for _, r := range records {
		writeSummary(tsvw, r.Contaminated)
		writeSummary(tsvw, r.Contaminating)
		tsvw.WriteInt64(int64(len(r.Heterozygous)))
		het := make([]detect.Allele, len(r.Heterozygous))
		for i, e := range r.Heterozygous {
			het[i] = detect.Allele{Pos: e.Pos, Base: byte(e.Minor)}
		}
		tsvw.WriteString(joinAlleles(het))
		tsvw.WriteInt64(int64(r.MinorMatches))
		tsvw.WriteInt64(int64(r.MajorMatches))
		tsvw.WriteString(percentOrNA(r.Proportion, r.HasProportion))
		tsvw.WriteString(joinAlleles(r.Matched))
		tsvw.WriteInt64(int64(r.NumMismatches()))
		tsvw.WriteString(joinAlleles(r.Mismatches))
		tsvw.WriteString(r.Type.String())
		tsvw.WriteString(Percent(r.Median))
		tsvw.WriteString(percentOrNA(r.Min, r.HasMinMax))
		tsvw.WriteString(percentOrNA(r.Max, r.HasMinMax))
		if opts.Frequencies {
			freqs := make([]string, len(r.MatchedFreqs))
			for i, f := range r.MatchedFreqs {
				freqs[i] = Percent(f)
			}
			tsvw.WriteString(strings.Join(freqs, ", "))
		}
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}

func writeSummary(tsvw *tsv.Writer, s detect.SampleSummary) {
	tsvw.WriteString(s.Name)
	tsvw.WriteInt64(int64(s.UnambiguousBases))
	tsvw.WriteString(Percent(s.Coverage))
	tsvw.WriteInt64(int64(s.PreMaskingUnambiguousBases))
	tsvw.WriteString(Percent(s.PreMaskingCoverage))
}

// ISNVHeader lists the columns of WriteISNVCounts output.
var ISNVHeader = []string{"sample", "iSNVs", "coverage", "pre_masking_coverage"}

// WriteISNVCountsTo writes one line per sample, ordered by name.
func WriteISNVCountsTo(w io.Writer, samples []*sample.Prepared) error {
	sorted := append([]*sample.Prepared(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	tsvw := tsv.NewWriter(w)
	tsvw.WriteString(strings.Join(ISNVHeader, "\t"))
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for _, s := range sorted {
		tsvw.WriteString(s.Name)
		tsvw.WriteInt64(int64(s.ISNVs()))
		tsvw.WriteString(Percent(s.Coverage))
		tsvw.WriteString(Percent(s.PreMaskingCoverage))
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}

// create opens path for writing and calls fn.  Paths ending in .gz are
// bgzip-compressed.
func create(ctx context.Context, path string, parallelism int, fn func(w io.Writer) error) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if !strings.HasSuffix(path, ".gz") {
		return fn(dst.Writer(ctx))
	}
	if parallelism < 1 {
		parallelism = 1
	}
	bgzfWriter := bgzf.NewWriter(dst.Writer(ctx), parallelism)
	defer func() {
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return fn(bgzfWriter)
}

// WriteRecords writes records to path.
func WriteRecords(ctx context.Context, path string, records []*detect.Record, opts Opts) error {
	return create(ctx, path, opts.Parallelism, func(w io.Writer) error {
		return WriteRecordsTo(w, records, opts)
	})
}

// WriteISNVCounts writes per-sample iSNV counts to path.
func WriteISNVCounts(ctx context.Context, path string, samples []*sample.Prepared, opts Opts) error {
	return create(ctx, path, opts.Parallelism, func(w io.Writer) error {
		return WriteISNVCountsTo(w, samples)
	})
}
