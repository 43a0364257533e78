// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package contam

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// SampleInput names the files of one sample.
type SampleInput struct {
	Name string
	// Consensus is a FASTA file holding the sample's consensus genome.  It
	// may be empty when Inputs.Alignment already contains the sample.
	Consensus string
	// WithinSample is either a LoFreq VCF (.vcf or .vcf.gz) or a
	// heterozygosity table.
	WithinSample string
	// ReadDepth is an optional "samtools depth" table.
	ReadDepth string
}

// IsVCF returns whether the within-sample diversity file is a VCF.
func (s SampleInput) IsVCF() bool {
	p := strings.TrimSuffix(strings.TrimSuffix(s.WithinSample, ".gz"), ".bgz")
	return strings.HasSuffix(strings.ToLower(p), ".vcf")
}

// Inputs lists the files of a run.
type Inputs struct {
	// Reference is a FASTA file whose first record is the reference genome.
	Reference string
	// Alignment is an optional multiple-sequence alignment of the reference
	// and every consensus genome.  Without it, consensus genomes are aligned
	// with Opts.Aligner.
	Alignment string
	Samples   []SampleInput
	// PlateMaps are optional sample-to-well tables.  When present, only
	// neighbors are compared.
	PlateMaps []string
	// MaskedPositions is an optional list of reference positions to ignore.
	MaskedPositions string
	// MaskBED is an optional BED file of reference regions to ignore.
	MaskBED string
}

// Sample sheet column names.
const (
	ColSample       = "sample"
	ColConsensus    = "consensus"
	ColWithinSample = "within_sample"
	ColReadDepth    = "read_depth"
)

// NewSampleSheet parses a tab-separated sample sheet with a header line.
// The sample and within_sample columns are required; consensus and
// read_depth are optional, and other columns are ignored.  Relative paths
// are resolved against dir.
func NewSampleSheet(r io.Reader, dir string) ([]SampleInput, error) {
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	tsvReader.FieldsPerRecord = -1
	header, err := tsvReader.Reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.E(errors.Invalid, "sample sheet is empty")
		}
		return nil, err
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{ColSample, ColWithinSample} {
		if _, ok := cols[required]; !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("sample sheet lacks a %q column", required))
		}
	}
	field := func(fields []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	resolve := func(path string) string {
		if path == "" || dir == "" || filepath.IsAbs(path) || strings.Contains(path, "://") {
			return path
		}
		return filepath.Join(dir, path)
	}
	var samples []SampleInput
	for {
		fields, err := tsvReader.Reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		s := SampleInput{
			Name:         field(fields, ColSample),
			Consensus:    resolve(field(fields, ColConsensus)),
			WithinSample: resolve(field(fields, ColWithinSample)),
			ReadDepth:    resolve(field(fields, ColReadDepth)),
		}
		if s.Name == "" {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// ReadSampleSheet reads a sample sheet from path.  Relative paths in the
// sheet are relative to the sheet's directory.
func ReadSampleSheet(ctx context.Context, path string) (samples []SampleInput, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := infile.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	dir := ""
	if !strings.Contains(path, "://") {
		dir = filepath.Dir(path)
	}
	if samples, err = NewSampleSheet(reader, dir); err != nil {
		err = errors.E(err, "sample sheet", path)
	}
	return
}
