package oracle

import (
	"bytes"
	"math"
	"testing"
)

func TestParseTabular(t *testing.T) {

	out := bytes.NewBufferString(
		"# comment line\n" +
			"q1\ts1\t90.0\t95.0\t50.0\t1e-10\t1\t100\t1\t100\t100\t100\n" +
			"\n" +
			"q1\ts2\t45.5\t60.0\t30.0\t0.001\t11\t90\t1\t80\t100\t120\n")

	results, err := parseTabular(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	r := results[0]
	if r.QueryID != "q1" || r.SubjectID != "s1" {
		t.Errorf("ids = %s/%s", r.QueryID, r.SubjectID)
	}
	approx(t, "identity", r.Identity, 0.90)
	approx(t, "positives", r.Positives, 0.95)
	approx(t, "nbs", r.NBS, 0.5) // 50 bits over 100 aligned positions
	approx(t, "coverage query", r.CoverageQuery, 1.0)
	approx(t, "coverage subject", r.CoverageSubject, 1.0)
	approx(t, "evalue", r.EValue, 1e-10)
	if r.Offset != 0 {
		t.Errorf("offset = %d, want 0", r.Offset)
	}

	r = results[1]
	approx(t, "identity", r.Identity, 0.455)
	approx(t, "nbs", r.NBS, 30.0/80.0)
	approx(t, "coverage query", r.CoverageQuery, 0.80)
	approx(t, "coverage subject", r.CoverageSubject, 80.0/120.0)
	if r.Offset != 10 {
		t.Errorf("offset = %d, want 10", r.Offset)
	}
}

func TestParseTabularRejectsShortRows(t *testing.T) {
	out := bytes.NewBufferString("q1\ts1\t90.0\n")
	if _, err := parseTabular(out); err == nil {
		t.Error("short row accepted")
	}

	out = bytes.NewBufferString("q1\ts1\t90.0\tx\t50.0\t1e-10\t1\t100\t1\t100\t100\t100\n")
	if _, err := parseTabular(out); err == nil {
		t.Error("non-numeric field accepted")
	}
}

func TestScore(t *testing.T) {
	r := Result{Identity: 0.9, Positives: 0.95, NBS: 0.5}
	approx(t, "identity", r.Score(MeasureIdentity), 0.9)
	approx(t, "positives", r.Score(MeasurePositives), 0.95)
	approx(t, "nbs", r.Score(MeasureNBS), 0.5)
}

func TestParseMeasure(t *testing.T) {
	for name, want := range map[string]Measure{
		"":          MeasureIdentity,
		"identity":  MeasureIdentity,
		"positives": MeasurePositives,
		"nbs":       MeasureNBS,
	} {
		got, err := ParseMeasure(name)
		if err != nil {
			t.Errorf("ParseMeasure(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ParseMeasure(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseMeasure("bitscore"); err == nil {
		t.Error("unknown measure accepted")
	}
}

func TestOffsetFrac(t *testing.T) {

	// end to end alignment
	r := Result{QStart: 1, QEnd: 100, SStart: 1, SEnd: 100, QLen: 100, SLen: 100}
	approx(t, "aligned end to end", r.OffsetFrac(), 0)

	// query alignment starts 10 in, subject at the lead
	r = Result{QStart: 11, QEnd: 100, SStart: 1, SEnd: 90, QLen: 100, SLen: 90}
	approx(t, "start shift", r.OffsetFrac(), 10.0/90.0)

	// shift only at the tail
	r = Result{QStart: 1, QEnd: 80, SStart: 1, SEnd: 100, QLen: 100, SLen: 100}
	approx(t, "end shift", r.OffsetFrac(), 20.0/100.0)
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}
