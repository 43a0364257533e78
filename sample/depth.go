// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package sample

import (
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/crosscontam/align"
)

type depthRow struct {
	Chrom string
	Pos   int64
	Depth int64
}

// NewDepthTable parses "samtools depth" output: chromosome, 1-based position
// and depth, tab-separated, without a header.
func NewDepthTable(r io.Reader) (align.DepthTable, error) {
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	depth := make(align.DepthTable)
	for {
		var row depthRow
		if err := tsvReader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		depth[align.OriginalPos(row.Pos)] = int(row.Depth)
	}
	return depth, nil
}

// ReadDepthTable reads a (possibly compressed) depth table from path.
func ReadDepthTable(ctx context.Context, path string) (depth align.DepthTable, err error) {
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
	if depth, err = NewDepthTable(reader); err != nil {
		err = errors.E(err, "read depth table", path)
	}
	return
}
