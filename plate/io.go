// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package plate

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/crosscontam/diag"
)

// NewMap reads a plate map: one sample name and one well identifier per
// line, tab-separated.  An optional first line naming the columns ("sample",
// "well") is skipped, as are blank lines and lines starting with '#'.
//
// Lines with a malformed well, an occupied well or an already placed sample
// are reported to diags and skipped.  A well outside the declared plate
// dimensions is a configuration error and aborts the read.
func NewMap(r io.Reader, name string, rows, cols int, diags *diag.List) (*Plate, error) {
	p, err := New(name, rows, cols)
	if err != nil {
		return nil, err
	}
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	tsvReader.FieldsPerRecord = -1
	tsvReader.TrimLeadingSpace = true
	lineIdx := 0
	for {
		fields, err := tsvReader.Reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "plate map", name)
		}
		lineIdx++
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if len(fields) < 2 {
			diags.Addf(diag.Row, name, "line %d: expected sample and well, got %q", lineIdx, strings.Join(fields, "\t"))
			continue
		}
		sample, wellID := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if lineIdx == 1 && strings.EqualFold(wellID, "well") {
			continue
		}
		if sample == "" {
			diags.Addf(diag.Row, name, "line %d: empty sample name", lineIdx)
			continue
		}
		w, err := ParseWell(wellID)
		if err != nil {
			diags.Addf(diag.Row, name, "line %d: sample %s: %v", lineIdx, sample, err)
			continue
		}
		if err := p.Check(w); err != nil {
			return nil, err
		}
		if err := p.Add(sample, w); err != nil {
			diags.Addf(diag.Row, name, "line %d: %v", lineIdx, err)
		}
	}
	return p, nil
}

// ReadMap reads a plate map from path.  The plate is named after the file.
func ReadMap(ctx context.Context, path string, rows, cols int, diags *diag.List) (p *Plate, err error) {
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
	return NewMap(reader, filepath.Base(path), rows, cols, diags)
}
