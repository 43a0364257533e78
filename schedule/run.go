// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/diag"
	"github.com/grailbio/crosscontam/sample"
	"v.io/x/lib/vlog"
)

type resultKey struct {
	pair   Pair
	record *detect.Record
}

// Compare compares two resultKey objects for use in llrb.
func (k resultKey) Compare(c2 llrb.Comparable) int {
	k2 := c2.(resultKey)
	if c := strings.Compare(k.pair.Contaminated, k2.pair.Contaminated); c != 0 {
		return c
	}
	return strings.Compare(k.pair.Contaminating, k2.pair.Contaminating)
}

// Results maps each executed comparison to its record, or to nil when no
// contamination was reported.  Iteration is ordered by Pair.  Results are
// read-only once Run returns.
type Results struct {
	mu      sync.Mutex
	byPair  llrb.Tree
	skipped int
}

func (r *Results) add(p Pair, rec *detect.Record) {
	r.mu.Lock()
	r.byPair.Insert(resultKey{p, rec})
	r.mu.Unlock()
}

// Get returns the record of pair p.  ok is false if p was not compared.
func (r *Results) Get(p Pair) (rec *detect.Record, ok bool) {
	c := r.byPair.Get(resultKey{pair: p})
	if c == nil {
		return nil, false
	}
	return c.(resultKey).record, true
}

// Compared returns the number of comparisons that ran to completion.
func (r *Results) Compared() int { return r.byPair.Len() }

// Skipped returns the number of comparisons skipped because of missing data.
func (r *Results) Skipped() int { return r.skipped }

// Records returns the contamination records, ordered by (contaminated,
// contaminating).
func (r *Results) Records() []*detect.Record {
	var out []*detect.Record
	r.byPair.Do(func(c llrb.Comparable) bool {
		if rec := c.(resultKey).record; rec != nil {
			out = append(out, rec)
		}
		return false
	})
	return out
}

// Digest fingerprints the records, so that runs can be checked for
// reproducibility.
func (r *Results) Digest() uint64 {
	var h uint64
	for _, rec := range r.Records() {
		h = farm.Hash64WithSeed([]byte(canonical(rec)), h)
	}
	return h
}

func canonical(rec *detect.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%d\t%d\t%v", rec.Contaminated.Name, rec.Contaminating.Name,
		rec.MinorMatches, rec.MajorMatches, rec.Type)
	for _, a := range rec.Matched {
		fmt.Fprintf(&b, "\tm%v", a)
	}
	for _, a := range rec.Mismatches {
		fmt.Fprintf(&b, "\tx%v", a)
	}
	fmt.Fprintf(&b, "\t%.6g\t%.6g\t%.6g\t%v\t%v", rec.Median, rec.Min, rec.Max, rec.ExceedsMismatchThreshold, rec.Eligible)
	return b.String()
}

// Run executes every comparison in pairs using at most workers goroutines.
// Comparisons with a missing sample, or that detect.Compare rejects, are
// reported to diags and skipped.  Run stops scheduling new comparisons once
// ctx is done and returns ctx.Err().
func Run(ctx context.Context, pairs []Pair, samples map[string]*sample.Prepared, opts detect.Opts, workers int, diags *diag.List) (*Results, error) {
	if workers < 1 {
		workers = 1
	}
	results := &Results{}
	skip := func(p Pair, format string, args ...interface{}) {
		diags.Addf(diag.Pair, p.String(), format, args...)
		results.mu.Lock()
		results.skipped++
		results.mu.Unlock()
	}
	log.Printf("schedule: running %d comparison(s) with %d worker(s)", len(pairs), workers)
	err := traverse.Limit(workers).Each(len(pairs), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := pairs[i]
		a, ok := samples[p.Contaminated]
		if !ok {
			skip(p, "no prepared data for %s", p.Contaminated)
			return nil
		}
		b, ok := samples[p.Contaminating]
		if !ok {
			skip(p, "no prepared data for %s", p.Contaminating)
			return nil
		}
		rec, err := detect.Compare(a, b, opts)
		if err != nil {
			skip(p, "%v", err)
			return nil
		}
		if rec != nil {
			vlog.VI(1).Infof("%v: %v, %d minor, %d major, %d mismatch(es)", p, rec.Type, rec.MinorMatches, rec.MajorMatches, rec.NumMismatches())
		} else {
			vlog.VI(1).Infof("%v: no contamination reported", p)
		}
		results.add(p, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("schedule: %d comparison(s) done, %d record(s), %d skipped", results.Compared(), len(results.Records()), results.skipped)
	return results, nil
}
