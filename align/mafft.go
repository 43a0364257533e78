// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package align

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/crosscontam/encoding/fasta"
	"v.io/x/lib/lookpath"
)

// Aligner computes a multiple-sequence alignment of a reference and a set of
// consensus genomes.
type Aligner interface {
	Align(ctx context.Context, ref fasta.Record, seqs []fasta.Record) (*Alignment, error)
}

// MAFFT runs the external MAFFT aligner.
type MAFFT struct {
	// Path is the mafft executable.  If empty, mafft is looked up in $PATH.
	Path string
	// Threads is passed to --thread when positive.
	Threads int
	// TempDir holds the temporary input file (default os.TempDir()).
	TempDir string
}

func (m MAFFT) executable() (string, error) {
	if m.Path != "" {
		return m.Path, nil
	}
	return lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, "mafft")
}

// Align implements Aligner.
func (m MAFFT) Align(ctx context.Context, ref fasta.Record, seqs []fasta.Record) (a *Alignment, err error) {
	bin, err := m.executable()
	if err != nil {
		return nil, errors.E(errors.NotExist, "mafft executable not found", err)
	}
	tmp, err := ioutil.TempFile(m.TempDir, "contam_mafft_*.fasta")
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := os.Remove(tmp.Name()); e != nil && err == nil {
			err = e
		}
	}()
	records := append([]fasta.Record{ref}, seqs...)
	if err = fasta.Write(tmp, records); err != nil {
		tmp.Close() // nolint: errcheck
		return nil, err
	}
	if err = tmp.Close(); err != nil {
		return nil, err
	}

	args := []string{"--auto", "--preservecase"}
	if m.Threads > 0 {
		args = append(args, "--thread", strconv.Itoa(m.Threads))
	}
	args = append(args, tmp.Name())
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Printf("align: running %s on %d sequences", bin, len(records))
	if err = cmd.Run(); err != nil {
		return nil, errors.E(err, "mafft failed:", stderr.String())
	}
	aligned, err := fasta.ReadRecords(&stdout)
	if err != nil {
		return nil, err
	}
	if len(aligned) != len(records) {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("mafft returned %d sequences, expected %d", len(aligned), len(records)))
	}
	return NewAlignment(aligned, ref.Name)
}
