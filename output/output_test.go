package output_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/output"
	"github.com/grailbio/crosscontam/sample"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	tassert "github.com/stretchr/testify/assert"
)

func testRecords() []*detect.Record {
	return []*detect.Record{
		{
			Contaminated:  detect.SampleSummary{Name: "B", UnambiguousBases: 29803, Coverage: 0.99666, PreMaskingUnambiguousBases: 29803, PreMaskingCoverage: 0.99666},
			Contaminating: detect.SampleSummary{Name: "A", UnambiguousBases: 29900, Coverage: 0.9999, PreMaskingUnambiguousBases: 29903, PreMaskingCoverage: 1},
			Heterozygous: []allele.Entry{
				{Pos: 241, Major: allele.C, Minor: allele.T},
				{Pos: 3037, Major: allele.C, Minor: allele.T},
			},
			MinorMatches:  2,
			Matched:       []detect.Allele{{Pos: 241, Base: 'T'}, {Pos: 3037, Base: 'T'}},
			MatchedFreqs:  []float64{0.03, 0.05},
			Proportion:    1,
			HasProportion: true,
			Type:          detect.TypeMinorAlleles,
			Median:        0.04,
			Min:           0.03,
			Max:           0.05,
			HasMinMax:     true,
			Eligible:      true,
		},
		{
			Contaminated:  detect.SampleSummary{Name: "C", UnambiguousBases: 10, Coverage: 1, PreMaskingUnambiguousBases: 10, PreMaskingCoverage: 1},
			Contaminating: detect.SampleSummary{Name: "D", UnambiguousBases: 10, Coverage: 1, PreMaskingUnambiguousBases: 10, PreMaskingCoverage: 1},
			Mismatches:    []detect.Allele{{Pos: 7, Base: 'G'}},
			Type:          detect.TypeConsensus,
			Median:        1,
			Eligible:      true,
		},
	}
}

func TestPercent(t *testing.T) {
	expect.EQ(t, output.Percent(0.04), "4.0")
	expect.EQ(t, output.Percent(1), "100.0")
	expect.EQ(t, output.Percent(0.99666), "99.7")
	expect.EQ(t, output.Percent(0), "0.0")
}

func TestWriteRecordsTo(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, output.WriteRecordsTo(&buf, testRecords(), output.Opts{Frequencies: true}))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	expect.EQ(t, len(lines), 3)
	header := strings.Split(lines[0], "\t")
	expect.EQ(t, len(header), len(output.RecordHeader)+1)
	expect.EQ(t, header[len(header)-1], "matched_frequencies")

	tassert.Equal(t, []string{
		"B", "29803", "99.7", "29803", "99.7",
		"A", "29900", "100.0", "29903", "100.0",
		"2", "241 T; 3037 T",
		"2", "0", "100.0", "241 T; 3037 T",
		"0", "",
		"minor alleles", "4.0", "3.0", "5.0",
		"3.0, 5.0",
	}, strings.Split(lines[1], "\t"))

	tassert.Equal(t, []string{
		"C", "10", "100.0", "10", "100.0",
		"D", "10", "100.0", "10", "100.0",
		"0", "",
		"0", "0", "NA", "",
		"1", "7 G",
		"consensus-level", "100.0", "NA", "NA",
		"",
	}, strings.Split(lines[2], "\t"))

	buf.Reset()
	assert.NoError(t, output.WriteRecordsTo(&buf, nil, output.DefaultOpts))
	expect.EQ(t, buf.String(), strings.Join(output.RecordHeader, "\t")+"\n")
}

func TestWriteISNVCountsTo(t *testing.T) {
	samples := []*sample.Prepared{
		{Name: "s2", Alleles: allele.NewTable([]allele.Entry{{Pos: 1}, {Pos: 9}}), Coverage: 0.5, PreMaskingCoverage: 0.75},
		{Name: "s1", Alleles: allele.NewTable(nil), Coverage: 1, PreMaskingCoverage: 1},
	}
	var buf bytes.Buffer
	assert.NoError(t, output.WriteISNVCountsTo(&buf, samples))
	expect.EQ(t, buf.String(), "sample\tiSNVs\tcoverage\tpre_masking_coverage\ns1\t0\t100.0\t100.0\ns2\t2\t50.0\t75.0\n")
}

func TestWriteFiles(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	plain := filepath.Join(tmpdir, "contamination.tsv")
	assert.NoError(t, output.WriteRecords(ctx, plain, testRecords(), output.DefaultOpts))
	compressed := filepath.Join(tmpdir, "contamination.tsv.gz")
	assert.NoError(t, output.WriteRecords(ctx, compressed, testRecords(), output.Opts{Parallelism: 2}))

	want := readFile(ctx, t, plain)
	raw := readFile(ctx, t, compressed)
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	assert.NoError(t, err)
	got, err := ioutil.ReadAll(gz)
	assert.NoError(t, err)
	expect.EQ(t, string(got), string(want))
	expect.True(t, strings.HasPrefix(string(want), "contaminated_sample\t"))

	isnv := filepath.Join(tmpdir, "isnv.tsv")
	assert.NoError(t, output.WriteISNVCounts(ctx, isnv, nil, output.DefaultOpts))
	expect.EQ(t, string(readFile(ctx, t, isnv)), "sample\tiSNVs\tcoverage\tpre_masking_coverage\n")
}

func readFile(ctx context.Context, t *testing.T, path string) []byte {
	in, err := file.Open(ctx, path)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(in.Reader(ctx))
	assert.NoError(t, err)
	assert.NoError(t, in.Close(ctx))
	return data
}
