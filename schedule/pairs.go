// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package schedule enumerates the directional sample comparisons of a run,
// executes them on a bounded worker pool and collects the results in a
// stable order.
package schedule

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/crosscontam/plate"
)

// AllPairsWarnThreshold is the sample count above which AllPairs warns that
// an all-against-all comparison is impractical.
const AllPairsWarnThreshold = 2000

// Pair is one directional comparison.
type Pair struct {
	Contaminated  string
	Contaminating string
}

// Less orders pairs by contaminated, then contaminating sample name.
func (p Pair) Less(o Pair) bool {
	if p.Contaminated != o.Contaminated {
		return p.Contaminated < o.Contaminated
	}
	return p.Contaminating < o.Contaminating
}

func (p Pair) String() string {
	return p.Contaminated + " <- " + p.Contaminating
}

// pairSet accumulates unordered sample pairs and expands each into both
// directions.
type pairSet map[[2]string]struct{}

func (s pairSet) add(a, b string) {
	if a == b {
		return
	}
	if b < a {
		a, b = b, a
	}
	s[[2]string{a, b}] = struct{}{}
}

func (s pairSet) directional() []Pair {
	out := make([]Pair, 0, 2*len(s))
	for k := range s {
		out = append(out, Pair{k[0], k[1]}, Pair{k[1], k[0]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// AllPairs returns both directions of every pair of distinct names.
func AllPairs(names []string) []Pair {
	if len(names) > AllPairsWarnThreshold {
		log.Error.Printf("comparing all %d samples against each other (%d comparisons); "+
			"supply plate maps to restrict comparisons to neighbors", len(names), len(names)*(len(names)-1))
	}
	s := make(pairSet)
	for i, a := range names {
		for _, b := range names[i+1:] {
			s.add(a, b)
		}
	}
	return s.directional()
}

// NeighborPairs returns both directions of every pair of samples that are
// neighbors on some plate under adj.  Samples for which eligible returns
// false are skipped; a nil eligible accepts every sample.  A pair that is
// adjacent on several plates is returned once per direction.
func NeighborPairs(plates []*plate.Plate, adj plate.Adjacency, eligible func(string) bool) []Pair {
	ok := func(name string) bool { return eligible == nil || eligible(name) }
	s := make(pairSet)
	for _, p := range plates {
		for _, w := range p.Occupied() {
			a, _ := p.SampleAt(w)
			if !ok(a) {
				continue
			}
			for _, n := range p.Neighbors(w, adj) {
				if b, _ := p.SampleAt(n); ok(b) {
					s.add(a, b)
				}
			}
		}
	}
	return s.directional()
}

// Samples returns the distinct sample names appearing in pairs, sorted.
func Samples(pairs []Pair) []string {
	seen := make(map[string]struct{})
	for _, p := range pairs {
		seen[p.Contaminated] = struct{}{}
		seen[p.Contaminating] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
