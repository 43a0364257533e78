// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fasta contains code for reading and writing FASTA files holding
// consensus genomes and multiple-sequence alignments.  FASTA files consist of
// a number of named sequences that may be interrupted by newlines.  For
// example:
//
// >ref
// ACGTAC
// GA-GAC
// >sample1
// ACGTACGA-GAC
//
// Sequence names are defined to be the stretch of characters excluding spaces
// immediately after '>'.  Any text appearing after a space is ignored.  For
// example, '>chr1 A viral sequence' becomes 'chr1'.
//
// Residues are normalized to upper case on ingestion, and the order of
// sequences in the file is preserved, since the first sequence of an
// alignment is conventionally the reference.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
	lineWidth      = 60
)

// Record is a single named sequence.
type Record struct {
	Name string
	Seq  []byte
}

// ReadRecords reads every sequence from r.  Duplicate sequence names are an
// error, since downstream code looks sequences up by name.
func ReadRecords(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var (
		records []Record
		seqName string
		seq     bytes.Buffer
		started bool
	)
	seen := make(map[string]bool)
	flush := func() error {
		if !started {
			return nil
		}
		if seqName == "" {
			return errors.Errorf("malformed FASTA file: empty sequence name")
		}
		if seen[seqName] {
			return errors.Errorf("malformed FASTA file: duplicate sequence name %s", seqName)
		}
		seen[seqName] = true
		records = append(records, Record{Name: seqName, Seq: append([]byte(nil), seq.Bytes()...)})
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if err := flush(); err != nil {
				return nil, err
			}
			seqName = strings.Split(string(line[1:]), " ")[0]
			started = true
			continue
		}
		if !started {
			return nil, errors.Errorf("malformed FASTA file: sequence data before first header")
		}
		seq.Write(bytes.ToUpper(bytes.TrimSpace(line)))
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

// Write writes records to w in FASTA format, wrapping sequence lines at 60
// residues.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.WriteString(">" + rec.Name + "\n"); err != nil {
			return err
		}
		for start := 0; start < len(rec.Seq); start += lineWidth {
			end := start + lineWidth
			if end > len(rec.Seq) {
				end = len(rec.Seq)
			}
			if _, err := bw.Write(rec.Seq[start:end]); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
