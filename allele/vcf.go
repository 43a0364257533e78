// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package allele

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/crosscontam/align"
)

// VCFRecord holds the fields of a LoFreq-style VCF line that are needed to
// derive major and minor alleles.
type VCFRecord struct {
	Chrom  string
	Pos    align.OriginalPos
	Ref    string
	Alt    string
	Filter string
	// DP is the INFO DP value (raw depth).
	DP int
	// AF is the INFO AF value (alternate allele frequency).
	AF float64
	// DP4 holds ref-forward, ref-reverse, alt-forward and alt-reverse
	// high-quality read counts.
	DP4 [4]int
	// HasDP4 is false when the INFO field lacks DP4.
	HasDP4 bool
}

// IsSNV returns whether the record is a single-base substitution.
func (r VCFRecord) IsSNV() bool {
	return len(r.Ref) == 1 && len(r.Alt) == 1
}

// Passed returns whether the record passed the caller's filters.
func (r VCFRecord) Passed() bool {
	return r.Filter == "PASS" || r.Filter == "." || r.Filter == ""
}

// NewVCF parses the data lines of a VCF.  Header lines are skipped, as are
// data lines with fewer than 8 columns, after being logged.
func NewVCF(r io.Reader) ([]VCFRecord, error) {
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	tsvReader.FieldsPerRecord = -1
	tsvReader.LazyQuotes = true
	var records []VCFRecord
	lineIdx := 0
	for {
		fields, err := tsvReader.Reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		lineIdx++
		if len(fields) < 8 {
			log.Error.Printf("allele.NewVCF: record %d has %d column(s), skipping", lineIdx, len(fields))
			continue
		}
		rec, err := parseVCFFields(fields)
		if err != nil {
			return nil, fmt.Errorf("allele.NewVCF: record %d: %v", lineIdx, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseVCFFields(fields []string) (VCFRecord, error) {
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return VCFRecord{}, fmt.Errorf("invalid POS %q", fields[1])
	}
	rec := VCFRecord{
		Chrom:  fields[0],
		Pos:    align.OriginalPos(pos),
		Ref:    strings.ToUpper(fields[3]),
		Alt:    strings.ToUpper(fields[4]),
		Filter: fields[6],
	}
	for _, kv := range strings.Split(fields[7], ";") {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		switch key {
		case "DP":
			if rec.DP, err = strconv.Atoi(val); err != nil {
				return VCFRecord{}, fmt.Errorf("invalid DP %q", val)
			}
		case "AF":
			if rec.AF, err = strconv.ParseFloat(val, 64); err != nil {
				return VCFRecord{}, fmt.Errorf("invalid AF %q", val)
			}
		case "DP4":
			counts := strings.Split(val, ",")
			if len(counts) != 4 {
				return VCFRecord{}, fmt.Errorf("invalid DP4 %q", val)
			}
			for i, c := range counts {
				if rec.DP4[i], err = strconv.Atoi(c); err != nil {
					return VCFRecord{}, fmt.Errorf("invalid DP4 %q", val)
				}
			}
			rec.HasDP4 = true
		}
	}
	return rec, nil
}

// ReadLoFreqVCF reads a (possibly gzipped) VCF written by LoFreq.
func ReadLoFreqVCF(ctx context.Context, path string) (records []VCFRecord, err error) {
	err = openReader(ctx, path, func(r io.Reader) error {
		var e error
		records, e = NewVCF(r)
		return e
	})
	return
}

// RowsFromVCF reduces variant records to major/minor allele rows.  Only
// passing SNVs are used.  With DP4 present, the allele with more read support
// is the major allele (the reference allele on ties) and frequencies are
// relative to ref+alt support; otherwise AF and DP are used.  When several
// alternate alleles are reported at one position, the best supported one is
// kept.
func RowsFromVCF(records []VCFRecord) []Row {
	var (
		rows      []Row
		altCounts []int
	)
	index := make(map[align.OriginalPos]int)
	for _, rec := range records {
		if !rec.IsSNV() || !rec.Passed() {
			log.Debug.Printf("allele.RowsFromVCF: skipping %s:%d %s>%s filter %s", rec.Chrom, rec.Pos, rec.Ref, rec.Alt, rec.Filter)
			continue
		}
		row, altCount, ok := rowFromVCF(rec)
		if !ok {
			continue
		}
		if i, ok := index[rec.Pos]; ok {
			if altCount > altCounts[i] {
				rows[i], altCounts[i] = row, altCount
			}
			continue
		}
		index[rec.Pos] = len(rows)
		rows = append(rows, row)
		altCounts = append(altCounts, altCount)
	}
	return rows
}

func rowFromVCF(rec VCFRecord) (Row, int, bool) {
	var refCount, altCount int
	var altFreq float64
	if rec.HasDP4 {
		refCount = rec.DP4[0] + rec.DP4[1]
		altCount = rec.DP4[2] + rec.DP4[3]
		total := refCount + altCount
		if total == 0 {
			return Row{}, 0, false
		}
		altFreq = float64(altCount) / float64(total)
	} else {
		if rec.DP <= 0 {
			return Row{}, 0, false
		}
		altFreq = rec.AF
		altCount = int(rec.AF*float64(rec.DP) + 0.5)
		refCount = rec.DP - altCount
	}
	row := Row{
		RefName:    rec.Chrom,
		Pos:        rec.Pos,
		Major:      rec.Ref,
		MajorCount: refCount,
		MajorFreq:  1 - altFreq,
		Minor:      rec.Alt,
		MinorCount: altCount,
		MinorFreq:  altFreq,
	}
	if altCount > refCount {
		row.Major, row.Minor = row.Minor, row.Major
		row.MajorCount, row.MinorCount = row.MinorCount, row.MajorCount
		row.MajorFreq, row.MinorFreq = row.MinorFreq, row.MajorFreq
	}
	return row, altCount, true
}
