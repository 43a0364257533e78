// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package plate

import (
	"fmt"
	"strconv"
	"strings"
)

// RowLetters returns the spreadsheet-style name of 1-based row n: A..Z,
// AA..AZ, BA..ZZ, AAA and so on.  It returns "" for n < 1.
func RowLetters(n int) string {
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// RowNumber is the inverse of RowLetters.  Lower-case letters are accepted.
func RowNumber(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("plate.RowNumber: empty row")
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i] &^ 0x20
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("plate.RowNumber: invalid row %q", letters)
		}
		n = n*26 + int(c-'A') + 1
		if n > maxRow {
			return 0, fmt.Errorf("plate.RowNumber: row %q is too large", letters)
		}
	}
	return n, nil
}

const maxRow = 1 << 24

// Well is a plate position.  Row and Col are 1-based.
type Well struct {
	Row, Col int
}

// String returns the well identifier, e.g. "B7" or "AA12".
func (w Well) String() string {
	return RowLetters(w.Row) + strconv.Itoa(w.Col)
}

// Less orders wells row-major.
func (w Well) Less(o Well) bool {
	if w.Row != o.Row {
		return w.Row < o.Row
	}
	return w.Col < o.Col
}

// ParseWell parses a well identifier of the form <letters><digits>.  The
// column may have leading zeros ("A01").  Only the syntax is checked here;
// see Plate.Check for bounds.
func ParseWell(s string) (Well, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (s[i]&^0x20) >= 'A' && (s[i]&^0x20) <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Well{}, fmt.Errorf("plate.ParseWell: malformed well %q", s)
	}
	row, err := RowNumber(s[:i])
	if err != nil {
		return Well{}, fmt.Errorf("plate.ParseWell: malformed well %q", s)
	}
	for j := i; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return Well{}, fmt.Errorf("plate.ParseWell: malformed well %q", s)
		}
	}
	col, err := strconv.Atoi(s[i:])
	if err != nil || col < 1 {
		return Well{}, fmt.Errorf("plate.ParseWell: malformed well %q", s)
	}
	return Well{Row: row, Col: col}, nil
}
