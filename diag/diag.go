// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package diag collects recoverable problems (skipped rows, excluded
// samples, skipped comparisons) so that they can be reported alongside the
// results of a run instead of aborting it.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/grailbio/base/log"
)

// Kind classifies a diagnostic.
type Kind int

const (
	// Row means a single input row was skipped.
	Row Kind = iota
	// Sample means a whole sample was excluded.
	Sample
	// Pair means one directional comparison was skipped.
	Pair
	// Warning is informational; nothing was skipped.
	Warning
)

var kindNames = [...]string{"row", "sample", "pair", "warning"}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind%d", int(k))
}

// Diagnostic is a single recoverable problem.
type Diagnostic struct {
	Kind Kind
	// Subject names the sample, pair or file the diagnostic is about.
	Subject string
	Message string
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%v %s: %s", d.Kind, d.Subject, d.Message)
}

// List is a thread-safe, append-only list of diagnostics.  The zero value is
// ready to use.  A nil *List discards everything, which is convenient in
// tests.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
	// Quiet suppresses echoing each diagnostic to the error log.
	Quiet bool
}

// Addf appends a diagnostic.
func (l *List) Addf(kind Kind, subject, format string, args ...interface{}) {
	if l == nil {
		return
	}
	d := Diagnostic{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
	l.mu.Lock()
	l.items = append(l.items, d)
	l.mu.Unlock()
	if !l.Quiet {
		log.Error.Printf("%v", d)
	}
}

// Len returns the number of diagnostics collected so far.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Items returns a copy of the diagnostics, ordered by (kind, subject,
// message) so that output is stable regardless of worker scheduling.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	items := append([]Diagnostic(nil), l.items...)
	l.mu.Unlock()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		if items[i].Subject != items[j].Subject {
			return items[i].Subject < items[j].Subject
		}
		return items[i].Message < items[j].Message
	})
	return items
}

// Count returns the number of diagnostics of the given kind.
func (l *List) Count(kind Kind) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
