// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/contam"
	"github.com/grailbio/crosscontam/diag"
	"github.com/grailbio/crosscontam/output"
	"github.com/grailbio/crosscontam/plate"
	"v.io/x/lib/cmdline"
)

// inputFlags are shared by detect and isnv.
type inputFlags struct {
	reference, alignment, samples, plateMaps, maskedPositions, maskBED *string
	refName, mafft                                                     *string
	quiet                                                              *bool
}

func addInputFlags(fs *flag.FlagSet) inputFlags {
	return inputFlags{
		reference:       fs.String("reference", "", "Reference genome FASTA; the first record is used"),
		alignment:       fs.String("alignment", "", "Pre-computed multiple-sequence alignment of the reference and every consensus genome. If empty, consensus genomes are aligned with mafft"),
		samples:         fs.String("samples", "", "Sample sheet: a TSV with sample, consensus, within_sample and optional read_depth columns"),
		plateMaps:       fs.String("plate-map", "", "Comma-separated list of plate maps (sample and well per line). If empty, all pairs of samples are compared"),
		maskedPositions: fs.String("masked-positions", "", "File of reference positions or ranges (e.g. 1-55) to ignore, one per line"),
		maskBED:         fs.String("mask-bed", "", "BED file of reference regions to ignore"),
		refName:         fs.String("ref-name", "", "Name of the reference in -alignment. Defaults to the name of the -reference record"),
		mafft:           fs.String("mafft", "", "Path of the mafft executable. By default, mafft is looked up in $PATH"),
		quiet:           fs.Bool("quiet", false, "Do not print per-sample and per-row diagnostics"),
	}
}

func (f inputFlags) inputs(ctx context.Context) (contam.Inputs, error) {
	in := contam.Inputs{
		Reference:       *f.reference,
		Alignment:       *f.alignment,
		MaskedPositions: *f.maskedPositions,
		MaskBED:         *f.maskBED,
	}
	if in.Reference == "" || *f.samples == "" {
		return in, fmt.Errorf("-reference and -samples are required")
	}
	if *f.plateMaps != "" {
		in.PlateMaps = strings.Split(*f.plateMaps, ",")
	}
	var err error
	in.Samples, err = contam.ReadSampleSheet(ctx, *f.samples)
	return in, err
}

// optFlags bind contam.Opts to command-line flags.
type optFlags struct {
	minReadcount, minDepth, maxMismatches, plateRows, plateCols, workers *int
	minMAF, minCoverage                                                 *float64
	printAll                                                            *bool
	adjacency                                                           *string
}

func addOptFlags(fs *flag.FlagSet) optFlags {
	d := contam.DefaultOpts
	return optFlags{
		minReadcount:  fs.Int("min-readcount", d.MinReadcount, "Minimum number of reads supporting a minor allele"),
		minMAF:        fs.Float64("min-maf", d.MinMAF, "Minimum minor allele frequency, in [0, 1]"),
		minDepth:      fs.Int("min-depth", d.MinDepth, "Minimum read depth. Positions with lower depth are masked; requires read_depth tables"),
		minCoverage:   fs.Float64("min-coverage", d.MinCoverage, "Minimum fraction of the reference a masked consensus genome must cover"),
		maxMismatches: fs.Int("max-mismatches", d.MaxMismatches, "Maximum number of mismatches between a pair; negative means no limit"),
		printAll:      fs.Bool("print-all", d.PrintAll, "Report every comparison, including ineligible samples and pairs with too many mismatches"),
		plateRows:     fs.Int("plate-rows", d.PlateRows, "Number of rows of every plate"),
		plateCols:     fs.Int("plate-cols", d.PlateCols, "Number of columns of every plate"),
		adjacency:     fs.String("adjacency", d.Adjacency.String(), "Comma-separated wells compared with each sample: direct, diagonal, row, column or plate"),
		workers:       fs.Int("workers", d.Workers, "Maximum number of concurrent sample preparations and comparisons"),
	}
}

func (f optFlags) opts(in inputFlags) (contam.Opts, error) {
	adj, err := plate.ParseAdjacency(*f.adjacency)
	if err != nil {
		return contam.Opts{}, err
	}
	opts := contam.Opts{
		MinReadcount:  *f.minReadcount,
		MinMAF:        *f.minMAF,
		MinDepth:      *f.minDepth,
		MinCoverage:   *f.minCoverage,
		MaxMismatches: *f.maxMismatches,
		PrintAll:      *f.printAll,
		PlateRows:     *f.plateRows,
		PlateCols:     *f.plateCols,
		Adjacency:     adj,
		Workers:       *f.workers,
		RefName:       *in.refName,
		Quiet:         *in.quiet,
		Aligner:       align.MAFFT{Path: *in.mafft, Threads: *f.workers},
	}
	return opts, opts.Validate()
}

func newCmdDetect() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "detect",
		Short: "Report pairs of samples where one may have contaminated the other",
	}
	in := addInputFlags(&cmd.Flags)
	of := addOptFlags(&cmd.Flags)
	outPath := cmd.Flags.String("out", "contamination.tsv", "Output TSV path; a .gz suffix selects bgzip compression")
	isnvPath := cmd.Flags.String("isnv-out", "", "If set, also write per-sample iSNV counts to this path")
	frequencies := cmd.Flags.Bool("frequencies", false, "Add a column listing the frequency of every matched allele")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("detect takes no positional arguments, but got %v", argv)
		}
		ctx := vcontext.Background()
		opts, err := of.opts(in)
		if err != nil {
			return err
		}
		inputs, err := in.inputs(ctx)
		if err != nil {
			return err
		}
		r, err := contam.Run(ctx, inputs, opts)
		if err != nil {
			return err
		}
		outOpts := output.DefaultOpts
		outOpts.Parallelism = *of.workers
		outOpts.Frequencies = *frequencies
		if err := output.WriteRecords(ctx, *outPath, r.Records, outOpts); err != nil {
			return err
		}
		if *isnvPath != "" {
			if err := output.WriteISNVCounts(ctx, *isnvPath, r.Samples, outOpts); err != nil {
				return err
			}
		}
		log.Printf("%s", r.Summary())
		return nil
	})
	return cmd
}

func newCmdISNV() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "isnv",
		Short: "Report the number of intra-sample variants and the coverage of every sample",
	}
	in := addInputFlags(&cmd.Flags)
	of := addOptFlags(&cmd.Flags)
	outPath := cmd.Flags.String("out", "isnvs.tsv", "Output TSV path; a .gz suffix selects bgzip compression")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("isnv takes no positional arguments, but got %v", argv)
		}
		ctx := vcontext.Background()
		opts, err := of.opts(in)
		if err != nil {
			return err
		}
		inputs, err := in.inputs(ctx)
		if err != nil {
			return err
		}
		diags := &diag.List{Quiet: *in.quiet}
		ds, err := contam.Load(ctx, inputs, opts, diags)
		if err != nil {
			return err
		}
		if n := diags.Len(); n > 0 {
			log.Printf("%d diagnostic(s)", n)
		}
		outOpts := output.DefaultOpts
		outOpts.Parallelism = *of.workers
		return output.WriteISNVCounts(ctx, *outPath, ds.Prepared(), outOpts)
	})
	return cmd
}

func newCmdNeighbors() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "neighbors",
		Short:    "Print the samples compared with a sample or well of a plate map",
		ArgsName: "platemap sample-or-well",
	}
	rows := cmd.Flags.Int("plate-rows", plate.DefaultRows, "Number of rows of the plate")
	cols := cmd.Flags.Int("plate-cols", plate.DefaultCols, "Number of columns of the plate")
	adjFlag := cmd.Flags.String("adjacency", plate.DefaultAdjacency.String(), "Comma-separated wells compared with each sample: direct, diagonal, row, column or plate")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("neighbors takes a plate map and a sample or well, but got %v", argv)
		}
		adj, err := plate.ParseAdjacency(*adjFlag)
		if err != nil {
			return err
		}
		ctx := vcontext.Background()
		p, err := plate.ReadMap(ctx, argv[0], *rows, *cols, nil)
		if err != nil {
			return err
		}
		return printNeighbors(env.Stdout, p, argv[1], adj)
	})
	return cmd
}

// printNeighbors writes the well and sample of every neighbor of query, which
// names either a sample on p or a well.
func printNeighbors(out io.Writer, p *plate.Plate, query string, adj plate.Adjacency) error {
	if _, ok := p.WellOf(query); ok {
		for _, name := range p.NeighborSamples(query, adj) {
			w, _ := p.WellOf(name)
			fmt.Fprintf(out, "%v\t%s\n", w, name)
		}
		return nil
	}
	w, err := plate.ParseWell(query)
	if err != nil {
		return fmt.Errorf("%s is neither a sample on %s nor a well", query, p.Name)
	}
	if err = p.Check(w); err != nil {
		return err
	}
	for _, n := range p.Neighbors(w, adj) {
		name, _ := p.SampleAt(n)
		fmt.Fprintf(out, "%v\t%s\n", n, name)
	}
	return nil
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-contam",
		Short:    "Detect cross-contamination between viral samples",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdDetect(),
			newCmdISNV(),
			newCmdNeighbors(),
		},
	}
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(newCmdRoot(), env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
