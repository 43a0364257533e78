// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package detect decides whether one sample's genetic material could have
contaminated another.

Compare(contaminated, contaminating, opts) walks the heterozygous loci of the
contaminated sample.  At each locus the contaminating sample's consensus base
either matches the minor allele, matches the major allele, or is a
mismatch.  Every other position where both consensus genomes carry an
unambiguous base must agree; a disagreement there is also a mismatch.  Once
the mismatch count exceeds Opts.MaxMismatches the comparison is abandoned.

A comparison that survives yields a Record, classified as

  minor alleles               minor matches only
  minor and consensus-level   both minor and major matches
  consensus-level             no minor matches

Contamination is directional: Compare(a, b) and Compare(b, a) are
independent and are both run for every pair of candidate samples.
*/
package detect
