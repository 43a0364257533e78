// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package align

import (
	"context"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/crosscontam/encoding/fasta"
)

// LoadRecords reads all sequences of a (possibly compressed) FASTA file.
func LoadRecords(ctx context.Context, path string) (records []fasta.Record, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
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
	if records, err = fasta.ReadRecords(reader); err != nil {
		err = errors.E(err, "read FASTA", path)
	}
	return
}

// NewAlignment splits aligned records into the reference row and sample rows.
// If refName is empty, the first record is the reference.
func NewAlignment(records []fasta.Record, refName string) (*Alignment, error) {
	if len(records) == 0 {
		return nil, errors.E(errors.Invalid, "align: empty alignment")
	}
	refIdx := 0
	if refName != "" {
		refIdx = -1
		for i, rec := range records {
			if rec.Name == refName {
				refIdx = i
				break
			}
		}
		if refIdx < 0 {
			return nil, errors.E(errors.Invalid, "align: reference", refName, "not found in alignment")
		}
	}
	a := &Alignment{RefName: records[refIdx].Name, Ref: records[refIdx].Seq}
	for i, rec := range records {
		if i == refIdx {
			continue
		}
		a.Names = append(a.Names, rec.Name)
		a.Rows = append(a.Rows, rec.Seq)
	}
	return a, nil
}

// ReadAlignment reads a pre-computed multiple-sequence alignment.
func ReadAlignment(ctx context.Context, path, refName string) (*Alignment, error) {
	records, err := LoadRecords(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewAlignment(records, refName)
}
