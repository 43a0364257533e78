// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package detect

import "sort"

// Median returns the median of freqs: the middle value for odd counts and
// the mean of the two central values for even counts.  An empty list has
// median 1, meaning the samples matched at the consensus level only.
func Median(freqs []float64) float64 {
	n := len(freqs)
	if n == 0 {
		return 1
	}
	sorted := append([]float64(nil), freqs...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MinMax returns the extremes of freqs.  ok is false if freqs is empty.
func MinMax(freqs []float64) (min, max float64, ok bool) {
	if len(freqs) == 0 {
		return 0, 0, false
	}
	min, max = freqs[0], freqs[0]
	for _, f := range freqs[1:] {
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max, true
}
