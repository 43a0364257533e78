package util

import (
	"math/rand"
	"testing"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"ACAATTGG", "AXAAXTGX", 3},
		{"sample_12", "sample-12", 1},
		{"ATCGGT", "ACGGT", 1},
	}
	for _, test := range tests {
		expect.EQ(t, EditDistance(test.s1, test.s2), test.want, "%s %s", test.s1, test.s2)
		expect.EQ(t, EditDistance(test.s2, test.s1), test.want, "%s %s", test.s2, test.s1)
	}
}

// TestEditDistanceRandom compares EditDistance against an independent
// implementation on random strings.
func TestEditDistanceRandom(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	randString := func() string {
		b := make([]byte, r.Intn(12))
		for i := range b {
			b[i] = "ACGT"[r.Intn(4)]
		}
		return string(b)
	}
	for i := 0; i < 1000; i++ {
		s1, s2 := randString(), randString()
		expect.EQ(t, EditDistance(s1, s2), matchr.Levenshtein(s1, s2), "%s %s", s1, s2)
	}
}

func TestClosestNames(t *testing.T) {
	candidates := []string{"SAMPLE-01", "sample-02", "sample-10", "control"}
	names, d := ClosestNames("sample_01", candidates, -1)
	assert.Equal(t, []string{"SAMPLE-01"}, names)
	expect.EQ(t, d, 1)

	names, d = ClosestNames("sample-0", candidates, -1)
	assert.Equal(t, []string{"SAMPLE-01", "sample-02", "sample-10"}, names)
	expect.EQ(t, d, 1)

	names, _ = ClosestNames("xyz", candidates, 2)
	expect.EQ(t, len(names), 0)

	expect.EQ(t, Suggest("sample_01", candidates), "; did you mean SAMPLE-01?")
	expect.EQ(t, Suggest("zzzzzz", candidates), "")
}
