// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-contam looks for cross-contamination between viral samples sequenced
together.  A sample A is suspected of having been contaminated by a sample B
when A's minor alleles match B's consensus genome, and A and B otherwise
agree.

Every sample needs a consensus genome and a within-sample diversity table,
either a LoFreq VCF or a heterozygosity table with the columns reference,
position, major allele, major count, major frequency, minor allele, minor
count and minor frequency.  Samples are listed in a tab-separated sample sheet
with a header:

	sample	consensus	within_sample	read_depth
	s1	s1.fasta	s1.vcf.gz	s1.depth.txt

Consensus genomes are aligned to the reference with mafft unless a
pre-computed alignment is given with -alignment.  With -plate-map, only
samples in neighboring wells are compared.

Sample usage:
bio-contam detect \
    -reference MN908947.3.fasta \
    -samples samples.tsv \
    -plate-map plate1.tsv,plate2.tsv \
    -out contamination.tsv

bio-contam neighbors -adjacency direct,diagonal plate1.tsv B2
*/
package main
