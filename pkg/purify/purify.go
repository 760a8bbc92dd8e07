// Profile purification: trim a raw cluster alignment, drop redundant
// members, and keep only sequences that still score well against the
// profile built from what remains.

package purify

import (
	"context"
	"fmt"
	"sort"

	"github.com/olsonanl/seed-profiles/pkg/oracle"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

type Status string

const (
	StatusInProfile Status = "in_profile"
	StatusRedundant Status = "redundant"
	StatusPoorMatch Status = "poor_match"
)

// Config carries the purification thresholds. Zero-valued minimums and
// a zero MaxEValue disable the corresponding check; e-values pass on
// <=, everything else passes on >=.
type Config struct {
	MinDepth float64 // fraction of sequences with content at the lead column, default 0.25

	RedundancyMeasure oracle.Measure
	RedundancyCeiling float64 // default 0.85 identity

	MinNBS        float64
	MinQueryCov   float64 // coverage of the trimmed profile
	MinSubjectCov float64 // coverage of the full ungapped subject
	MaxEValue     float64

	KeepFirst bool // pin the original first sequence as the first kept
	NoReorder bool // dereplicate in original order
	NoPack    bool // skip dropping all-gap columns at the end

	OracleOpts oracle.Options
}

// DefaultConfig matches the long-standing pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MinDepth:          0.25,
		RedundancyMeasure: oracle.MeasureIdentity,
		RedundancyCeiling: 0.85,
		MaxEValue:         1e-5,
	}
}

// Row is one sequence's disposition in the report.
type Row struct {
	ID         string
	Status     Status
	EValue     float64
	BitScore   float64
	NBS        float64
	QueryCov   float64
	SubjectCov float64
	NoHit      bool // no alignment against the profile at all
}

type Report []Row

// Result is the purification output. Profile is the cleaned alignment;
// Filtered holds the same sequences untrimmed, as they appeared in the
// input.
type Result struct {
	Profile     seq.Alignment
	Filtered    []seq.Sequence
	Report      Report
	TrimmedCols int
}

// Engine runs purification with a fixed config and oracle.
type Engine struct {
	cfg Config
	orc oracle.Oracle
}

func NewEngine(cfg Config, orc oracle.Oracle) (*Engine, error) {
	if cfg.MinDepth < 0 || cfg.MinDepth > 1 {
		return nil, fmt.Errorf("min depth %v not in [0,1]", cfg.MinDepth)
	}
	if cfg.RedundancyCeiling <= 0 {
		return nil, fmt.Errorf("redundancy ceiling %v must be positive", cfg.RedundancyCeiling)
	}
	return &Engine{cfg: cfg, orc: orc}, nil
}

// Purify runs the four steps: trim, dereplicate, validate, rebuild.
// An input where every sequence fails validation yields an empty
// profile and a full report, not an error.
func (e *Engine) Purify(ctx context.Context, aln seq.Alignment) (*Result, error) {

	if len(aln) == 0 {
		return nil, seq.ErrEmptyAlignment
	}
	if err := aln.Validate(); err != nil {
		return nil, err
	}

	// Step 1: trim leading columns.
	trim := TrimAmount(aln, e.cfg.MinDepth)
	trimmed := aln.TrimLeft(trim)

	// Step 2: greedy dereplication.
	kept, err := e.dereplicate(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	kept_ids := make(map[string]struct{}, len(kept))
	for _, s := range kept {
		kept_ids[s.ID] = struct{}{}
	}

	// Step 3: validate every pre-dereplication sequence against the
	// dereplicated profile.
	results, err := e.orc.CompareProfile(ctx, alignmentSeqs(trimmed), kept, e.cfg.OracleOpts)
	if err != nil {
		return nil, err
	}
	by_subject := bestBySubject(results)

	report := make(Report, 0, len(trimmed))
	var in_profile []string

	for _, s := range trimmed {
		row := e.classify(s.ID, by_subject)
		_, was_kept := kept_ids[s.ID]
		if row.Status == StatusInProfile && !was_kept {
			row.Status = StatusRedundant
		}
		if row.Status == StatusInProfile {
			in_profile = append(in_profile, s.ID)
		}
		report = append(report, row)
	}

	// Step 4: rebuild the final profile from the in_profile set.
	profile := pick(trimmed, in_profile)
	if len(profile) > 0 {
		retrim := TrimAmount(profile, e.cfg.MinDepth)
		if retrim > 0 {
			profile = profile.TrimLeft(retrim)
			trim += retrim
			// gap structure changed, dereplicate again
			profile, err = e.dereplicate(ctx, profile)
			if err != nil {
				return nil, err
			}
		}
		if !e.cfg.NoPack {
			profile = profile.PackColumns()
		}
	}

	return &Result{
		Profile:     profile,
		Filtered:    pickOriginals(aln, profile.IDs()),
		Report:      report,
		TrimmedCols: trim,
	}, nil
}

// TrimAmount computes how many leading columns to cut: the leading-gap
// run lengths are sorted and the value at rank floor(minDepth*N) is
// the cut. With minDepth 0.25 the trim stops once a quarter of the
// members have content at the leading column.
func TrimAmount(aln seq.Alignment, minDepth float64) int {
	if len(aln) == 0 {
		return 0
	}
	runs := make([]int, len(aln))
	for i, s := range aln {
		runs[i] = s.LeadingGaps()
	}
	sort.Ints(runs)
	rank := int(minDepth * float64(len(aln)))
	if rank >= len(runs) {
		rank = len(runs) - 1
	}
	return runs[rank]
}

// dereplicate keeps a greedy maximal set: take the top remaining
// sequence, drop everything at or above the redundancy ceiling against
// it, repeat. Deterministic, not globally minimal.
func (e *Engine) dereplicate(ctx context.Context, aln seq.Alignment) (seq.Alignment, error) {

	remaining := derepOrder(aln, e.cfg.NoReorder, e.cfg.KeepFirst)

	var kept seq.Alignment
	for len(remaining) > 0 {
		top := remaining[0]
		kept = append(kept, top)
		rest := remaining[1:]
		if len(rest) == 0 {
			break
		}

		results, err := e.orc.Compare(ctx, []seq.Sequence{top}, alignmentSeqs(rest), e.cfg.OracleOpts)
		if err != nil {
			return nil, err
		}

		redundant := make(map[string]struct{})
		for _, r := range results {
			if r.Score(e.cfg.RedundancyMeasure) >= e.cfg.RedundancyCeiling {
				redundant[r.SubjectID] = struct{}{}
			}
		}

		next := rest[:0:0]
		for _, s := range rest {
			if _, drop := redundant[s.ID]; !drop {
				next = append(next, s)
			}
		}
		remaining = next
	}

	// restore alignment order; the greedy order was only for choosing
	sort.SliceStable(kept, func(i, j int) bool {
		return indexOf(aln, kept[i].ID) < indexOf(aln, kept[j].ID)
	})
	return kept, nil
}

// derepOrder orders candidates by descending non-gap residue count,
// ties by original position.
func derepOrder(aln seq.Alignment, noReorder, keepFirst bool) seq.Alignment {
	out := make(seq.Alignment, len(aln))
	copy(out, aln)

	if !noReorder {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UngappedLen() > out[j].UngappedLen()
		})
	}

	if keepFirst && len(aln) > 0 {
		first := aln[0].ID
		for i, s := range out {
			if s.ID == first && i != 0 {
				copy(out[1:i+1], out[:i])
				out[0] = s
				break
			}
		}
	}

	return out
}

func (e *Engine) classify(id string, bySubject map[string]oracle.Result) Row {

	r, ok := bySubject[id]
	if !ok {
		return Row{ID: id, Status: StatusPoorMatch, NoHit: true}
	}

	row := Row{
		ID:         id,
		EValue:     r.EValue,
		BitScore:   r.BitScore,
		NBS:        r.NBS,
		QueryCov:   r.CoverageQuery,
		SubjectCov: r.CoverageSubject,
	}

	pass := true
	if e.cfg.MaxEValue > 0 && r.EValue > e.cfg.MaxEValue {
		pass = false
	}
	if r.NBS < e.cfg.MinNBS {
		pass = false
	}
	if r.CoverageQuery < e.cfg.MinQueryCov {
		pass = false
	}
	if r.CoverageSubject < e.cfg.MinSubjectCov {
		pass = false
	}

	if pass {
		row.Status = StatusInProfile
	} else {
		row.Status = StatusPoorMatch
	}
	return row
}

// bestBySubject keeps the lowest-evalue hit per subject, bit score as
// the tie break.
func bestBySubject(results []oracle.Result) map[string]oracle.Result {
	best := make(map[string]oracle.Result, len(results))
	for _, r := range results {
		prev, ok := best[r.SubjectID]
		if !ok || r.EValue < prev.EValue ||
			(r.EValue == prev.EValue && r.BitScore > prev.BitScore) {
			best[r.SubjectID] = r
		}
	}
	return best
}

func alignmentSeqs(aln seq.Alignment) []seq.Sequence {
	return []seq.Sequence(aln)
}

func pick(aln seq.Alignment, ids []string) seq.Alignment {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out seq.Alignment
	for _, s := range aln {
		if _, ok := want[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

func pickOriginals(aln seq.Alignment, ids []string) []seq.Sequence {
	return []seq.Sequence(pick(aln, ids))
}

func indexOf(aln seq.Alignment, id string) int {
	for i, s := range aln {
		if s.ID == id {
			return i
		}
	}
	return len(aln)
}
