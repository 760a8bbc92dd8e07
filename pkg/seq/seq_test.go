package seq

import (
	"errors"
	"testing"
)

func TestLeadingGapsAndTrim(t *testing.T) {

	s := Sequence{ID: "a", Residues: "--MKV"}

	if got := s.LeadingGaps(); got != 2 {
		t.Errorf("LeadingGaps = %d, want 2", got)
	}
	if got := s.TrimLeft(2).Residues; got != "MKV" {
		t.Errorf("TrimLeft(2) = %q, want MKV", got)
	}
	// original untouched
	if s.Residues != "--MKV" {
		t.Errorf("TrimLeft mutated the receiver: %q", s.Residues)
	}
	if got := s.TrimLeft(10).Residues; got != "" {
		t.Errorf("TrimLeft past end = %q, want empty", got)
	}
}

func TestUngappedAndDegap(t *testing.T) {

	s := Sequence{ID: "a", Residues: "-M-KV-"}

	if got := s.UngappedLen(); got != 3 {
		t.Errorf("UngappedLen = %d, want 3", got)
	}
	if got := s.Degap().Residues; got != "MKV" {
		t.Errorf("Degap = %q, want MKV", got)
	}
}

func TestAlignmentValidate(t *testing.T) {

	good := Alignment{
		{ID: "a", Residues: "MKV"},
		{ID: "b", Residues: "MRV"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid alignment rejected: %v", err)
	}

	if err := (Alignment{}).Validate(); !errors.Is(err, ErrEmptyAlignment) {
		t.Errorf("empty alignment: got %v", err)
	}

	ragged := Alignment{
		{ID: "a", Residues: "MKV"},
		{ID: "b", Residues: "MK"},
	}
	var re *RaggedAlignmentError
	if err := ragged.Validate(); !errors.As(err, &re) {
		t.Errorf("ragged alignment: got %v", err)
	}

	dup := Alignment{
		{ID: "a", Residues: "MKV"},
		{ID: "a", Residues: "MRV"},
	}
	var de *DuplicateIDError
	if err := dup.Validate(); !errors.As(err, &de) {
		t.Errorf("duplicate id: got %v", err)
	}
}

func TestPackColumns(t *testing.T) {

	a := Alignment{
		{ID: "a", Residues: "M-K-V"},
		{ID: "b", Residues: "M-R-V"},
	}

	packed := a.PackColumns()
	if packed[0].Residues != "MKV" || packed[1].Residues != "MRV" {
		t.Errorf("PackColumns = %q / %q", packed[0].Residues, packed[1].Residues)
	}

	// nothing to pack: same content comes back
	b := Alignment{{ID: "a", Residues: "MK"}, {ID: "b", Residues: "-K"}}
	if got := b.PackColumns(); got[1].Residues != "-K" {
		t.Errorf("PackColumns dropped a non-empty column: %q", got[1].Residues)
	}
}
