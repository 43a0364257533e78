package schedule_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/grailbio/crosscontam/align"
	"github.com/grailbio/crosscontam/allele"
	"github.com/grailbio/crosscontam/detect"
	"github.com/grailbio/crosscontam/diag"
	"github.com/grailbio/crosscontam/plate"
	"github.com/grailbio/crosscontam/sample"
	"github.com/grailbio/crosscontam/schedule"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllPairs(t *testing.T) {
	pairs := schedule.AllPairs([]string{"c", "a", "b"})
	tassert.Equal(t, []schedule.Pair{
		{"a", "b"}, {"a", "c"},
		{"b", "a"}, {"b", "c"},
		{"c", "a"}, {"c", "b"},
	}, pairs)
	expect.EQ(t, len(schedule.AllPairs([]string{"a"})), 0)
	// Duplicate names do not produce self-comparisons.
	expect.EQ(t, len(schedule.AllPairs([]string{"a", "a"})), 0)
}

func TestNeighborPairs(t *testing.T) {
	p1, err := plate.New("p1", 8, 12)
	require.NoError(t, err)
	require.NoError(t, p1.Add("s1", plate.Well{Row: 1, Col: 1}))
	require.NoError(t, p1.Add("s2", plate.Well{Row: 1, Col: 2}))
	require.NoError(t, p1.Add("s3", plate.Well{Row: 2, Col: 2}))
	require.NoError(t, p1.Add("s4", plate.Well{Row: 5, Col: 5}))
	p2, err := plate.New("p2", 8, 12)
	require.NoError(t, err)
	require.NoError(t, p2.Add("s2", plate.Well{Row: 3, Col: 3}))
	require.NoError(t, p2.Add("s1", plate.Well{Row: 3, Col: 4}))
	require.NoError(t, p2.Add("s5", plate.Well{Row: 4, Col: 4}))

	pairs := schedule.NeighborPairs([]*plate.Plate{p1, p2}, plate.Direct, nil)
	tassert.Equal(t, []schedule.Pair{
		{"s1", "s2"}, {"s1", "s5"},
		{"s2", "s1"}, {"s2", "s3"},
		{"s3", "s2"},
		{"s5", "s1"},
	}, pairs)
	tassert.Equal(t, []string{"s1", "s2", "s3", "s5"}, schedule.Samples(pairs))

	pairs = schedule.NeighborPairs([]*plate.Plate{p1, p2}, plate.Direct, func(name string) bool { return name != "s1" })
	tassert.Equal(t, []schedule.Pair{{"s2", "s3"}, {"s3", "s2"}}, pairs)

	pairs = schedule.NeighborPairs([]*plate.Plate{p1}, plate.WholePlate, nil)
	expect.EQ(t, len(pairs), 12)
}

const consensus = "ACGTACGTAC"

func prepared(name, cons string, entries ...allele.Entry) *sample.Prepared {
	n := align.UnambiguousBaseCount([]byte(cons))
	return &sample.Prepared{
		Name:             name,
		Consensus:        []byte(cons),
		Alleles:          allele.NewTable(entries),
		UnambiguousBases: n,
		Coverage:         float64(n) / float64(len(cons)),
	}
}

// samples returns a set where every "mX" sample carries, as minor alleles,
// the consensus bases of "cX".
func samples(n int) map[string]*sample.Prepared {
	m := make(map[string]*sample.Prepared)
	for i := 0; i < n; i++ {
		m[fmt.Sprintf("c%02d", i)] = prepared(fmt.Sprintf("c%02d", i), "ATGTGCGTAC")
		m[fmt.Sprintf("m%02d", i)] = prepared(fmt.Sprintf("m%02d", i), consensus,
			allele.Entry{Pos: 2, Major: allele.C, Minor: allele.T, MinorFreq: 0.05, MajorFreq: 0.95},
			allele.Entry{Pos: 5, Major: allele.A, Minor: allele.G, MinorFreq: 0.07, MajorFreq: 0.93})
	}
	return m
}

func names(m map[string]*sample.Prepared) []string {
	var out []string
	for name := range m {
		out = append(out, name)
	}
	return out
}

func TestRunDeterministic(t *testing.T) {
	s := samples(6)
	pairs := schedule.AllPairs(names(s))
	opts := detect.DefaultOpts
	opts.ReferenceLength = len(consensus)
	ctx := context.Background()

	var digests []uint64
	for _, workers := range []int{1, 4, 16} {
		results, err := schedule.Run(ctx, pairs, s, opts, workers, nil)
		assert.NoError(t, err)
		expect.EQ(t, results.Compared(), len(pairs))
		records := results.Records()
		// Every mX is contaminated by every cY (minor alleles).  Samples of the
		// same kind match at the consensus level.  cX <- mY has two
		// mismatches.
		expect.EQ(t, len(records), 6*6+6*5+6*5)
		for i := 1; i < len(records); i++ {
			prev, cur := records[i-1], records[i]
			expect.True(t, prev.Contaminated.Name < cur.Contaminated.Name ||
				(prev.Contaminated.Name == cur.Contaminated.Name && prev.Contaminating.Name < cur.Contaminating.Name))
		}
		rec, ok := results.Get(schedule.Pair{Contaminated: "m00", Contaminating: "c03"})
		expect.True(t, ok)
		require.NotNil(t, rec)
		expect.EQ(t, rec.Type, detect.TypeMinorAlleles)
		rec, ok = results.Get(schedule.Pair{Contaminated: "c03", Contaminating: "m00"})
		expect.True(t, ok)
		expect.True(t, rec == nil)
		digests = append(digests, results.Digest())
	}
	expect.EQ(t, digests[0], digests[1])
	expect.EQ(t, digests[0], digests[2])
	expect.True(t, digests[0] != 0)
}

func TestRunSkipsMissingSamples(t *testing.T) {
	s := samples(1)
	pairs := []schedule.Pair{{"m00", "c00"}, {"m00", "missing"}, {"c00", "short"}}
	s["short"] = prepared("short", "ACG")
	opts := detect.DefaultOpts
	opts.ReferenceLength = len(consensus)
	diags := &diag.List{Quiet: true}
	results, err := schedule.Run(context.Background(), pairs, s, opts, 2, diags)
	assert.NoError(t, err)
	expect.EQ(t, results.Compared(), 1)
	expect.EQ(t, results.Skipped(), 2)
	expect.EQ(t, diags.Count(diag.Pair), 2)
	_, ok := results.Get(schedule.Pair{Contaminated: "m00", Contaminating: "missing"})
	expect.False(t, ok)
}

func TestRunCanceled(t *testing.T) {
	s := samples(2)
	opts := detect.DefaultOpts
	opts.ReferenceLength = len(consensus)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := schedule.Run(ctx, schedule.AllPairs(names(s)), s, opts, 2, nil)
	expect.True(t, err != nil)
}
