package bucket

import (
	"testing"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

func TestParseSets(t *testing.T) {

	buckets, err := ParseSets("0-200,201-400,401-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}

	want := []Bucket{
		{Name: "0-200", Min: 0, Max: 200},
		{Name: "201-400", Min: 201, Max: 400},
		{Name: "401-", Min: 401, Max: 0},
	}
	for i, b := range buckets {
		if b != want[i] {
			t.Errorf("bucket %d = %+v, want %+v", i, b, want[i])
		}
	}
}

func TestParseSetsEmpty(t *testing.T) {
	buckets, err := ParseSets("")
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 1 || buckets[0].Name != "all" || buckets[0].Max != 0 {
		t.Errorf("got %+v, want single unbounded bucket", buckets)
	}
}

func TestParseSetsErrors(t *testing.T) {
	for _, def := range []string{"200", "a-b", "400-200", "0-100,junk"} {
		if _, err := ParseSets(def); err == nil {
			t.Errorf("ParseSets(%q) accepted bad definition", def)
		}
	}
}

func TestPartition(t *testing.T) {

	buckets, err := ParseSets("0-5,6-10")
	if err != nil {
		t.Fatal(err)
	}

	seqs := []seq.Sequence{
		{ID: "short", Residues: "MKVLA"},
		{ID: "gappy", Residues: "MK--VLA"}, // ungapped length 5
		{ID: "mid", Residues: "MKVLAARW"},
		{ID: "long", Residues: "MKVLAARWQMKVLAARWQ"},
	}

	parts, unmatched := Partition(seqs, buckets)
	if unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", unmatched)
	}
	if got := len(parts["0-5"]); got != 2 {
		t.Errorf("bucket 0-5 has %d sequences, want 2", got)
	}
	if got := len(parts["6-10"]); got != 1 {
		t.Errorf("bucket 6-10 has %d sequences, want 1", got)
	}
}

func TestPartitionFirstMatchWins(t *testing.T) {

	buckets := []Bucket{
		{Name: "a", Min: 0, Max: 10},
		{Name: "b", Min: 0, Max: 10},
	}

	parts, _ := Partition([]seq.Sequence{{ID: "s", Residues: "MKVLA"}}, buckets)
	if len(parts["a"]) != 1 || len(parts["b"]) != 0 {
		t.Errorf("overlapping buckets: %v", parts)
	}
}
