// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package plate models laboratory microplates: a grid of wells, each holding
// at most one sample, and the neighborhoods used to decide which samples
// could have contaminated each other.
package plate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

// Default plate dimensions (a 96-well plate).
const (
	DefaultRows = 8
	DefaultCols = 12
)

// Plate is the occupancy of one plate map.  Each plate owns its maps, so
// different plates can be used concurrently once built.
type Plate struct {
	Name       string
	Rows, Cols int

	samples map[Well]string
	wells   map[string]Well
}

// New creates an empty plate.  Dimensions must be positive.
func New(name string, rows, cols int) (*Plate, error) {
	if rows < 1 || cols < 1 || rows > maxRow {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("plate %s: invalid dimensions %d x %d", name, rows, cols))
	}
	return &Plate{
		Name:    name,
		Rows:    rows,
		Cols:    cols,
		samples: make(map[Well]string),
		wells:   make(map[string]Well),
	}, nil
}

// Check returns an errors.Invalid error if w lies outside the plate.
func (p *Plate) Check(w Well) error {
	if w.Row < 1 || w.Row > p.Rows {
		return errors.E(errors.Invalid, fmt.Sprintf("plate %s: well %v has row beyond %s; check the number of plate rows", p.Name, w, RowLetters(p.Rows)))
	}
	if w.Col < 1 || w.Col > p.Cols {
		return errors.E(errors.Invalid, fmt.Sprintf("plate %s: well %v has column beyond %d; check the number of plate columns", p.Name, w, p.Cols))
	}
	return nil
}

// Add places sample in w.  It returns an errors.Invalid error if w is out of
// bounds, and an errors.Exists error if w is taken or sample was already
// placed.
func (p *Plate) Add(sample string, w Well) error {
	if err := p.Check(w); err != nil {
		return err
	}
	if other, ok := p.samples[w]; ok {
		return errors.E(errors.Exists, fmt.Sprintf("plate %s: well %v already holds %s", p.Name, w, other))
	}
	if other, ok := p.wells[sample]; ok {
		return errors.E(errors.Exists, fmt.Sprintf("plate %s: sample %s is already in well %v", p.Name, sample, other))
	}
	p.samples[w] = sample
	p.wells[sample] = w
	return nil
}

// SampleAt returns the sample in w.
func (p *Plate) SampleAt(w Well) (string, bool) {
	s, ok := p.samples[w]
	return s, ok
}

// WellOf returns the well holding sample.
func (p *Plate) WellOf(sample string) (Well, bool) {
	w, ok := p.wells[sample]
	return w, ok
}

// Len returns the number of occupied wells.
func (p *Plate) Len() int { return len(p.samples) }

// Occupied returns the occupied wells in row-major order.
func (p *Plate) Occupied() []Well {
	wells := make([]Well, 0, len(p.samples))
	for w := range p.samples {
		wells = append(wells, w)
	}
	sort.Slice(wells, func(i, j int) bool { return wells[i].Less(wells[j]) })
	return wells
}

// Samples returns the samples on the plate in row-major well order.
func (p *Plate) Samples() []string {
	wells := p.Occupied()
	out := make([]string, len(wells))
	for i, w := range wells {
		out[i] = p.samples[w]
	}
	return out
}

// Adjacency is a set of neighborhood rules.
type Adjacency uint

const (
	// Direct neighbors are left, right, above and below.
	Direct Adjacency = 1 << iota
	// Diagonal neighbors touch at a corner.
	Diagonal
	// Row neighbors share the row.
	Row
	// Column neighbors share the column.
	Column
	// WholePlate makes every occupied well a neighbor, overriding the rest.
	WholePlate
)

// DefaultAdjacency is the adjacency used when none is configured.
const DefaultAdjacency = Direct

var adjacencyNames = []struct {
	a    Adjacency
	name string
}{
	{Direct, "direct"},
	{Diagonal, "diagonal"},
	{Row, "row"},
	{Column, "column"},
	{WholePlate, "whole-plate"},
}

// String returns the comma-separated flag names.
func (a Adjacency) String() string {
	var names []string
	for _, n := range adjacencyNames {
		if a&n.a != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseAdjacency parses a comma-separated list of flag names: direct,
// diagonal, row, column and whole-plate ("plate" and "whole_plate" are
// synonyms of the latter).
func ParseAdjacency(s string) (Adjacency, error) {
	var a Adjacency
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		switch item {
		case "":
			continue
		case "plate", "whole_plate", "wholeplate":
			item = "whole-plate"
		}
		found := false
		for _, n := range adjacencyNames {
			if n.name == item {
				a |= n.a
				found = true
			}
		}
		if !found {
			return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown adjacency %q", item))
		}
	}
	if a == 0 {
		return 0, errors.E(errors.Invalid, "empty adjacency")
	}
	return a, nil
}

var (
	directOffsets   = [][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	diagonalOffsets = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// Neighbors returns the occupied wells adjacent to w under a, in row-major
// order, excluding w itself.  w need not be occupied.
func (p *Plate) Neighbors(w Well, a Adjacency) []Well {
	if a&WholePlate != 0 {
		var out []Well
		for _, o := range p.Occupied() {
			if o != w {
				out = append(out, o)
			}
		}
		return out
	}
	set := make(map[Well]struct{})
	add := func(o Well) {
		if o == w {
			return
		}
		if _, ok := p.samples[o]; ok {
			set[o] = struct{}{}
		}
	}
	addOffsets := func(offsets [][2]int) {
		for _, d := range offsets {
			add(Well{Row: w.Row + d[0], Col: w.Col + d[1]})
		}
	}
	if a&Direct != 0 {
		addOffsets(directOffsets)
	}
	if a&Diagonal != 0 {
		addOffsets(diagonalOffsets)
	}
	if a&Row != 0 {
		for col := 1; col <= p.Cols; col++ {
			add(Well{Row: w.Row, Col: col})
		}
	}
	if a&Column != 0 {
		for row := 1; row <= p.Rows; row++ {
			add(Well{Row: row, Col: w.Col})
		}
	}
	out := make([]Well, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// NeighborSamples returns the samples adjacent to sample under a, or nil if
// sample is not on the plate.
func (p *Plate) NeighborSamples(sample string, a Adjacency) []string {
	w, ok := p.wells[sample]
	if !ok {
		return nil
	}
	wells := p.Neighbors(w, a)
	out := make([]string, len(wells))
	for i, o := range wells {
		out[i] = p.samples[o]
	}
	return out
}
