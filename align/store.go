// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package align

import (
	"bytes"
	"fmt"
)

// Alignment is a raw multiple-sequence alignment of a reference and sample
// consensus genomes.  All rows have the same length and may contain gaps.
type Alignment struct {
	RefName string
	Ref     []byte
	Names   []string
	Rows    [][]byte
}

// Sequences are one sample's consensus genome in the stripped coordinate
// space, before and after masking.
type Sequences struct {
	PreMasking []byte
	Masked     []byte
}

// Store holds the reference and the raw sample rows of an alignment, and
// produces per-sample sequences in the common stripped coordinate space.
// A Store is immutable once built and safe for concurrent use.
type Store struct {
	refName string
	rawRef  []byte
	ref     []byte
	refLen  int
	keep    []int
	rows    map[string][]byte
	names   []string
	refMap  *CoordMap
}

// NewStore validates an alignment and prepares it for use.  Residues are
// normalized to upper case.
func NewStore(a *Alignment) (*Store, error) {
	if len(a.Names) != len(a.Rows) {
		return nil, fmt.Errorf("align.NewStore: %d names for %d rows", len(a.Names), len(a.Rows))
	}
	s := &Store{
		refName: a.RefName,
		rawRef:  bytes.ToUpper(a.Ref),
		rows:    make(map[string][]byte, len(a.Rows)),
	}
	for i, row := range a.Rows {
		name := a.Names[i]
		if len(row) != len(a.Ref) {
			return nil, fmt.Errorf("align.NewStore: sequence %s has aligned length %d, reference %s has %d", name, len(row), a.RefName, len(a.Ref))
		}
		if _, ok := s.rows[name]; ok {
			return nil, fmt.Errorf("align.NewStore: duplicate sequence %s", name)
		}
		s.rows[name] = bytes.ToUpper(row)
		s.names = append(s.names, name)
	}
	s.keep = keptColumns(s.rawRef)
	s.ref = stripRow(s.rawRef, s.keep)
	s.refLen = UnambiguousBaseCount(s.ref)
	s.refMap = IdentityMap(len(s.ref))
	return s, nil
}

// RefName returns the name of the reference sequence.
func (s *Store) RefName() string { return s.refName }

// Ref returns the stripped reference.  Callers must not modify it.
func (s *Store) Ref() []byte { return s.ref }

// Len returns the number of columns in the stripped coordinate space.
func (s *Store) Len() int { return len(s.ref) }

// RefUnambiguousLen returns the number of unambiguous reference bases, the
// denominator of every coverage value.
func (s *Store) RefUnambiguousLen() int { return s.refLen }

// RefMap translates reference coordinates (used by variant callers, depth
// tables and mask files) into the stripped coordinate space.
func (s *Store) RefMap() *CoordMap { return s.refMap }

// Names returns the sample names, in alignment order.
func (s *Store) Names() []string { return s.names }

// Has returns whether the alignment contains a row for name.
func (s *Store) Has(name string) bool {
	_, ok := s.rows[name]
	return ok
}

// Sequences masks the named sample's row at the given reference positions,
// then strips reference-gap columns from both the masked and the unmasked
// row.  masked and depth are in reference coordinates, the same coordinates
// RefMap translates.
func (s *Store) Sequences(name string, masked PositionSet, depth DepthTable, minDepth int) (Sequences, error) {
	row, ok := s.rows[name]
	if !ok {
		return Sequences{}, fmt.Errorf("align.Store: no aligned consensus for sample %s", name)
	}
	return Sequences{
		PreMasking: stripRow(row, s.keep),
		Masked:     stripRow(Mask(row, s.rawRef, masked, depth, minDepth), s.keep),
	}, nil
}
