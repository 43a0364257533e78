// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package allele

import (
	"context"
	"io"
	"strconv"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/crosscontam/align"
)

// rowTSV is the on-disk layout of a heterozygosity table: eight
// tab-separated columns without a header.
type rowTSV struct {
	RefName    string
	Pos        int64
	Major      string
	MajorCount int64
	MajorFreq  float64
	Minor      string
	MinorCount int64
	MinorFreq  float64
}

// NewRows parses a heterozygosity table.  Lines starting with '#' are
// ignored.
func NewRows(r io.Reader) ([]Row, error) {
	tsvReader := tsv.NewReader(r)
	tsvReader.Comment = '#'
	var rows []Row
	for {
		var row rowTSV
		if err := tsvReader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		rows = append(rows, Row{
			RefName:    row.RefName,
			Pos:        align.OriginalPos(row.Pos),
			Major:      row.Major,
			MajorCount: int(row.MajorCount),
			MajorFreq:  row.MajorFreq,
			Minor:      row.Minor,
			MinorCount: int(row.MinorCount),
			MinorFreq:  row.MinorFreq,
		})
	}
	return rows, nil
}

// WriteRows writes rows in the format read by NewRows.
func WriteRows(w io.Writer, rows []Row) error {
	tsvWriter := tsv.NewWriter(w)
	for _, row := range rows {
		tsvWriter.WriteString(row.RefName)
		tsvWriter.WriteInt64(int64(row.Pos))
		tsvWriter.WriteString(row.Major)
		tsvWriter.WriteInt64(int64(row.MajorCount))
		tsvWriter.WriteString(strconv.FormatFloat(row.MajorFreq, 'g', -1, 64))
		tsvWriter.WriteString(row.Minor)
		tsvWriter.WriteInt64(int64(row.MinorCount))
		tsvWriter.WriteString(strconv.FormatFloat(row.MinorFreq, 'g', -1, 64))
		if err := tsvWriter.EndLine(); err != nil {
			return err
		}
	}
	return tsvWriter.Flush()
}

// openReader opens a possibly compressed text file and calls fn on its
// contents.
func openReader(ctx context.Context, path string, fn func(r io.Reader) error) (err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return errors.E(err, "open", path)
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
	if err = fn(reader); err != nil {
		err = errors.E(err, "read", path)
	}
	return
}

// ReadRows reads a heterozygosity table from path.
func ReadRows(ctx context.Context, path string) (rows []Row, err error) {
	err = openReader(ctx, path, func(r io.Reader) error {
		var e error
		rows, e = NewRows(r)
		return e
	})
	return
}
