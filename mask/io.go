// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mask

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/crosscontam/align"
	"github.com/klauspost/compress/gzip"
)

// getTokens saves up to len(tokens) whitespace-delimited tokens from curLine
// and returns the number saved.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

func isComment(line []byte) bool {
	for _, prefix := range []string{"#", "track", "browser"} {
		if len(line) >= len(prefix) && gunsafe.BytesToString(line[:len(prefix)]) == prefix {
			return true
		}
	}
	return false
}

// openText opens path for line-oriented reading, decompressing gzip input.
func openText(ctx context.Context, path string, fn func(r io.Reader) error) (err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return errors.E(err, "open", path)
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	return fn(reader)
}

// checkBound returns an errors.Invalid error if iv extends past maxPos.  A
// maxPos of 0 disables the check.
func checkBound(iv interval, maxPos align.OriginalPos, where string, lineIdx int) error {
	if maxPos > 0 && iv.end > maxPos {
		return errors.E(errors.Invalid, fmt.Sprintf("%s: line %d: position %d is beyond the reference length %d", where, lineIdx, iv.end, maxPos))
	}
	return nil
}

// NewPositions reads a masked-position list: one position or inclusive range
// ("a-b") per line, as accepted by Parse.  Blank lines and lines starting
// with '#' are ignored.  Positions beyond maxPos, the reference length, are
// an error unless maxPos is 0.
func NewPositions(reader io.Reader, maxPos align.OriginalPos) (*Set, error) {
	scanner := bufio.NewScanner(reader)
	var tokens [1][]byte
	var intervals []interval
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if getTokens(tokens[:], curLine) == 0 || isComment(tokens[0]) {
			continue
		}
		iv, err := parseInterval(string(tokens[0]))
		if err != nil {
			return nil, fmt.Errorf("mask.NewPositions: line %d: %v", lineIdx, err)
		}
		if err := checkBound(iv, maxPos, "mask.NewPositions", lineIdx); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return newSet(intervals), nil
}

// ReadPositions is a wrapper for NewPositions that takes a path.
func ReadPositions(ctx context.Context, path string, maxPos align.OriginalPos) (s *Set, err error) {
	err = openText(ctx, path, func(r io.Reader) error {
		var e error
		s, e = NewPositions(r, maxPos)
		return e
	})
	if err == nil {
		log.Printf("mask: %d position(s) loaded from %s", s.Len(), path)
	}
	return
}

// NewBED loads the intervals of a BED file into a Set.  BED coordinates are
// zero-based half-open; the Set holds the corresponding 1-based positions.
// If chrom is nonempty, intervals on other chromosomes are skipped.  Unlike
// interval unions used for read filtering, the input need not be sorted.
// Intervals ending beyond maxPos are an error unless maxPos is 0.
func NewBED(reader io.Reader, chrom string, maxPos align.OriginalPos) (*Set, error) {
	scanner := bufio.NewScanner(reader)
	var tokens [3][]byte
	var intervals []interval
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || isComment(tokens[0]) {
			continue
		}
		if nToken != 3 {
			return nil, fmt.Errorf("mask.NewBED: line %d has fewer tokens than expected", lineIdx)
		}
		if chrom != "" && gunsafe.BytesToString(tokens[0]) != chrom {
			continue
		}
		start0, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("mask.NewBED: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, fmt.Errorf("mask.NewBED: line %d: %v", lineIdx, err)
		}
		if start0 < 0 || end < start0 {
			return nil, fmt.Errorf("mask.NewBED: invalid coordinate pair on line %d", lineIdx)
		}
		if end == start0 {
			continue
		}
		iv := interval{align.OriginalPos(start0 + 1), align.OriginalPos(end)}
		if err := checkBound(iv, maxPos, "mask.NewBED", lineIdx); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return newSet(intervals), nil
}

// ReadBED is a wrapper for NewBED that takes a path.  Paths ending in .gz are
// decompressed.
func ReadBED(ctx context.Context, path, chrom string, maxPos align.OriginalPos) (s *Set, err error) {
	err = openText(ctx, path, func(r io.Reader) error {
		var e error
		s, e = NewBED(r, chrom, maxPos)
		return e
	})
	if err == nil {
		log.Printf("mask: BED loaded from %s, %d base(s) covered", path, s.Len())
	}
	return
}
