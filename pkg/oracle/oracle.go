// The similarity oracle: pairwise alignment statistics produced by an
// external tool. The pipeline only ever consumes the parsed numbers.

package oracle

import (
	"context"
	"fmt"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// Measure selects which alignment statistic a caller treats as "the"
// similarity score.
type Measure int

const (
	MeasureIdentity Measure = iota
	MeasurePositives
	MeasureNBS
)

func ParseMeasure(name string) (Measure, error) {
	switch name {
	case "identity", "":
		return MeasureIdentity, nil
	case "positives":
		return MeasurePositives, nil
	case "nbs":
		return MeasureNBS, nil
	}
	return MeasureIdentity, fmt.Errorf("unknown similarity measure %q", name)
}

func (m Measure) String() string {
	switch m {
	case MeasurePositives:
		return "positives"
	case MeasureNBS:
		return "nbs"
	}
	return "identity"
}

// Result holds the per-pair alignment statistics. Coordinates are
// 1-based inclusive, the way the tools report them.
type Result struct {
	QueryID   string
	SubjectID string

	CoverageQuery   float64
	CoverageSubject float64
	Identity        float64 // fraction, 0..1
	Positives       float64 // fraction, 0..1
	BitScore        float64
	NBS             float64 // bit score / aligned subject length
	EValue          float64

	QStart, QEnd int
	SStart, SEnd int
	QLen, SLen   int

	// Offset is the shift between query and subject alignment starts.
	Offset int
}

// Score returns the statistic selected by m.
func (r Result) Score(m Measure) float64 {
	switch m {
	case MeasurePositives:
		return r.Positives
	case MeasureNBS:
		return r.NBS
	}
	return r.Identity
}

// OffsetFrac is the larger of the start-side and end-side alignment
// shifts, as a fraction of the shorter sequence. Zero when the two
// sequences align end to end.
func (r Result) OffsetFrac() float64 {
	shorter := r.QLen
	if r.SLen < shorter {
		shorter = r.SLen
	}
	if shorter == 0 {
		return 0
	}

	start_shift := r.QStart - r.SStart
	if start_shift < 0 {
		start_shift = -start_shift
	}
	end_shift := (r.QLen - r.QEnd) - (r.SLen - r.SEnd)
	if end_shift < 0 {
		end_shift = -end_shift
	}

	shift := start_shift
	if end_shift > shift {
		shift = end_shift
	}
	return float64(shift) / float64(shorter)
}

// Options tunes a single oracle invocation.
type Options struct {
	MaxEValue float64 // 0 means the tool default
	Threads   int     // 0 means the tool default
}

// InvocationError wraps a failed oracle subprocess.
type InvocationError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("running %s: %v\nstderr:\n%s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("running %s: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Oracle produces alignment statistics for query/subject pairs. Compare
// aligns every query against every subject. CompareProfile scores the
// given sequences against a profile built from msa; the profile takes
// the query side of each Result, the scored sequence the subject side.
// Hits below the tool's own reporting thresholds are simply absent from
// the result slice.
type Oracle interface {
	Compare(ctx context.Context, queries, subjects []seq.Sequence, opt Options) ([]Result, error)
	CompareProfile(ctx context.Context, subjects []seq.Sequence, msa seq.Alignment, opt Options) ([]Result, error)
}
