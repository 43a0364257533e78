package fasta_test

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/grailbio/crosscontam/encoding/fasta"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

var fastaData string

func init() {
	fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "acgt\n" + "AC-T\n"
}

func TestReadRecords(t *testing.T) {
	records, err := fasta.ReadRecords(strings.NewReader(fastaData))
	assert.NoError(t, err)
	want := []fasta.Record{
		{Name: "seq1", Seq: []byte("ACGTACGTACGT")},
		{Name: "seq2", Seq: []byte("ACGTAC-T")},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("got %v, want %v", records, want)
	}

	records, err = fasta.ReadRecords(strings.NewReader(">zeta\nA\n>alpha\nC\n>mid\nG\n"))
	assert.NoError(t, err)
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	expect.EQ(t, fmt.Sprint(names), "[zeta alpha mid]")
}

func TestReadRecordsErrors(t *testing.T) {
	for _, data := range []string{
		"ACGT\n>seq1\nACGT\n",
		">seq1\nACGT\n>seq1\nACGT\n",
		">\nACGT\n",
	} {
		_, err := fasta.ReadRecords(strings.NewReader(data))
		expect.True(t, err != nil, "data %q", data)
	}
}

func TestReadRecordsCRLF(t *testing.T) {
	records, err := fasta.ReadRecords(strings.NewReader(">E0\r\nGGgg\r\n>E1\r\nAAAAA\r\n"))
	assert.NoError(t, err)
	assert.EQ(t, len(records), 2)
	expect.EQ(t, string(records[0].Seq), "GGGG")
	expect.EQ(t, string(records[1].Seq), "AAAAA")
}

func TestWriteRoundTrip(t *testing.T) {
	long := strings.Repeat("ACGTN-", 25)
	records := []fasta.Record{
		{Name: "ref", Seq: []byte(long)},
		{Name: "s1", Seq: []byte("AC")},
	}
	var buf bytes.Buffer
	assert.NoError(t, fasta.Write(&buf, records))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	expect.EQ(t, lines[0], ">ref")
	expect.EQ(t, len(lines[1]), 60)
	got, err := fasta.ReadRecords(&buf)
	assert.NoError(t, err)
	if !reflect.DeepEqual(got, records) {
		t.Errorf("got %v, want %v", got, records)
	}
}
