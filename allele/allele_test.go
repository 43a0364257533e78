package allele_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/diag"
	"github.com/grailbio/crosscontam/mask"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(pos int, major string, majorCount int, minor string, minorCount int) allele.Row {
	total := float64(majorCount + minorCount)
	return allele.Row{
		RefName:    "ref",
		Pos:        align.OriginalPos(pos),
		Major:      major,
		MajorCount: majorCount,
		MajorFreq:  float64(majorCount) / total,
		Minor:      minor,
		MinorCount: minorCount,
		MinorFreq:  float64(minorCount) / total,
	}
}

func TestParseBase(t *testing.T) {
	b, ok := allele.ParseBase("g")
	expect.True(t, ok)
	expect.EQ(t, b, allele.G)
	expect.EQ(t, b.String(), "G")
	for _, s := range []string{"", "N", "AT", "-"} {
		_, ok := allele.ParseBase(s)
		expect.False(t, ok, s)
	}
}

func TestBuildThresholdsInclusive(t *testing.T) {
	opts := allele.Opts{MinReadcount: 10, MinMAF: 0.03}
	rows := []allele.Row{
		// Exactly at both thresholds.
		{Pos: 5, Major: "A", MajorCount: 990, MajorFreq: 0.97, Minor: "G", MinorCount: 10, MinorFreq: 0.03},
		// One read short.
		{Pos: 6, Major: "A", MajorCount: 990, MajorFreq: 0.97, Minor: "G", MinorCount: 9, MinorFreq: 0.03},
		// Frequency just below.
		{Pos: 7, Major: "A", MajorCount: 990, MajorFreq: 0.971, Minor: "G", MinorCount: 10, MinorFreq: 0.029},
	}
	table := allele.Build("s1", rows, opts, nil, nil, nil, nil)
	expect.EQ(t, table.Len(), 1)
	e, ok := table.Get(5)
	require.True(t, ok)
	expect.EQ(t, e.Minor, allele.G)
	expect.EQ(t, e.Major, allele.A)
	expect.EQ(t, e.MinorCount, 10)
	expect.False(t, table.Has(6))
	expect.False(t, table.Has(7))
}

func TestBuildDepthAndMask(t *testing.T) {
	rows := []allele.Row{
		row(1, "A", 90, "C", 10),
		row(2, "A", 90, "C", 10),
		row(3, "A", 90, "C", 10),
		row(4, "A", 40, "C", 10),
	}
	depth := align.DepthTable{1: 100, 2: 99, 3: 100, 4: 100}
	opts := allele.Opts{MinReadcount: 1, MinMAF: 0.01, MinDepth: 100}
	table := allele.Build("s1", rows, opts, mask.New(3), depth, nil, nil)
	tassert.Equal(t, []align.AlignedPos{1}, table.Positions())

	// Without a depth requirement only the mask applies.
	opts.MinDepth = 0
	table = allele.Build("s1", rows, opts, mask.New(3), nil, nil, nil)
	tassert.Equal(t, []align.AlignedPos{1, 2, 4}, table.Positions())
}

func TestBuildDiagnostics(t *testing.T) {
	diags := &diag.List{Quiet: true}
	rows := []allele.Row{
		row(9, "A", 50, "T", 50),
		row(3, "A", 50, "N", 50),
		row(9, "C", 50, "G", 50),
		row(4, "AT", 50, "G", 50),
		row(2, "c", 50, "t", 50),
	}
	table := allele.Build("s1", rows, allele.DefaultOpts, nil, nil, nil, diags)
	tassert.Equal(t, []align.AlignedPos{2, 9}, table.Positions())
	e, _ := table.Get(9)
	expect.EQ(t, e.Major, allele.A)
	expect.EQ(t, e.Minor, allele.T)
	e, _ = table.Get(2)
	expect.EQ(t, e.Minor, allele.T)
	expect.EQ(t, diags.Count(diag.Row), 3)
	for _, d := range diags.Items() {
		expect.EQ(t, d.Subject, "s1")
	}
}

func TestBuildTranslatesCoordinates(t *testing.T) {
	// Position 11 lies beyond the reference and has no aligned column.
	refMap := align.IdentityMap(10)
	rows := []allele.Row{row(10, "A", 50, "G", 50), row(11, "A", 50, "G", 50)}
	diags := &diag.List{Quiet: true}
	table := allele.Build("s1", rows, allele.DefaultOpts, nil, nil, refMap, diags)
	tassert.Equal(t, []align.AlignedPos{10}, table.Positions())
	expect.EQ(t, diags.Len(), 1)
}

func TestNewTable(t *testing.T) {
	table := allele.NewTable([]allele.Entry{
		{Pos: 7, Minor: allele.A},
		{Pos: 2, Minor: allele.C},
		{Pos: 7, Minor: allele.G},
	})
	tassert.Equal(t, []align.AlignedPos{2, 7}, table.Positions())
	e, ok := table.Get(7)
	expect.True(t, ok)
	expect.EQ(t, e.Minor, allele.A)

	var empty *allele.Table
	expect.EQ(t, empty.Len(), 0)
	expect.False(t, empty.Has(1))
}

func TestRowsRoundTrip(t *testing.T) {
	rows := []allele.Row{
		row(241, "C", 95, "T", 5),
		row(3037, "T", 60, "C", 40),
	}
	var buf bytes.Buffer
	assert.NoError(t, allele.WriteRows(&buf, rows))
	got, err := allele.NewRows(strings.NewReader("# comment\n" + buf.String()))
	assert.NoError(t, err)
	tassert.Equal(t, rows, got)
}

const lofreqVCF = `##fileformat=VCFv4.0
##source=lofreq call
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
ref	100	.	C	T	500	PASS	DP=200;AF=0.100000;SB=0;DP4=90,90,10,10
ref	200	.	A	G	500	PASS	DP=100;AF=0.900000;SB=0;DP4=5,5,45,45
ref	300	.	AT	A	500	PASS	DP=100;AF=0.5;SB=0;DP4=25,25,25,25;INDEL
ref	400	.	G	A	20	min_snvqual_50	DP=100;AF=0.05;SB=0;DP4=45,50,2,3
ref	500	.	G	A	500	PASS	DP=100;AF=0.05;SB=0;DP4=45,50,2,3
ref	500	.	G	C	500	PASS	DP=100;AF=0.10;SB=0;DP4=40,50,5,5
ref	600	.	t	c	500	PASS	DP=50;AF=0.2
`

func TestRowsFromVCF(t *testing.T) {
	records, err := allele.NewVCF(strings.NewReader(lofreqVCF))
	assert.NoError(t, err)
	expect.EQ(t, len(records), 7)
	expect.True(t, records[0].HasDP4)
	expect.EQ(t, records[0].DP4, [4]int{90, 90, 10, 10})
	expect.False(t, records[2].IsSNV())
	expect.False(t, records[3].Passed())
	expect.False(t, records[6].HasDP4)

	rows := allele.RowsFromVCF(records)
	require.Equal(t, 4, len(rows))

	expect.EQ(t, rows[0].Pos, align.OriginalPos(100))
	expect.EQ(t, rows[0].Major, "C")
	expect.EQ(t, rows[0].Minor, "T")
	expect.EQ(t, rows[0].MinorCount, 20)
	tassert.InDelta(t, 0.1, rows[0].MinorFreq, 1e-9)

	// Alternate allele dominates: it becomes the major allele.
	expect.EQ(t, rows[1].Major, "G")
	expect.EQ(t, rows[1].MajorCount, 90)
	expect.EQ(t, rows[1].Minor, "A")
	expect.EQ(t, rows[1].MinorCount, 10)
	tassert.InDelta(t, 0.1, rows[1].MinorFreq, 1e-9)

	// Two alternates at 500; the better supported one wins.
	expect.EQ(t, rows[2].Pos, align.OriginalPos(500))
	expect.EQ(t, rows[2].Minor, "C")
	expect.EQ(t, rows[2].MinorCount, 10)

	// No DP4: AF and DP are used.
	expect.EQ(t, rows[3].Major, "T")
	expect.EQ(t, rows[3].Minor, "C")
	expect.EQ(t, rows[3].MinorCount, 10)
	expect.EQ(t, rows[3].MajorCount, 40)

	_, err = allele.NewVCF(strings.NewReader("ref\tx\t.\tA\tC\t1\tPASS\tDP=1\n"))
	expect.True(t, err != nil)
}

func TestReadFiles(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	vcfPath := filepath.Join(tmpdir, "s1.vcf")
	out, err := file.Create(ctx, vcfPath)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte(lofreqVCF))
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))
	records, err := allele.ReadLoFreqVCF(ctx, vcfPath)
	assert.NoError(t, err)
	expect.EQ(t, len(records), 7)

	rowsPath := filepath.Join(tmpdir, "s1.het.tsv")
	out, err = file.Create(ctx, rowsPath)
	assert.NoError(t, err)
	assert.NoError(t, allele.WriteRows(out.Writer(ctx), allele.RowsFromVCF(records)))
	assert.NoError(t, out.Close(ctx))
	rows, err := allele.ReadRows(ctx, rowsPath)
	assert.NoError(t, err)
	expect.EQ(t, len(rows), 4)

	_, err = allele.ReadRows(ctx, filepath.Join(tmpdir, "missing.tsv"))
	expect.True(t, err != nil)
}
