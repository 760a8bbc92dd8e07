// Incremental clustering over a representative pool. Each incoming
// sequence is scored against the whole pool with one oracle call and
// either joins the best-matching cluster or founds a new one.

package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/olsonanl/seed-profiles/pkg/oracle"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// Defining possible error
var ErrConfig = errors.New("invalid clustering configuration")

type PoolMode int

const (
	// PoolSingle keeps only cluster representatives in the pool.
	PoolSingle PoolMode = iota
	// PoolMulti also admits a bounded set of diverse members per
	// cluster, trading comparison cost for resistance to an early
	// representative drifting away from its close relatives.
	PoolMulti
)

type Config struct {
	Threshold     float64        // similarity threshold, (0,1]
	Measure       oracle.Measure // which statistic Threshold applies to
	MinCoverage   float64        // required of both query and subject
	MaxOffsetFrac float64        // 0 disables the offset check
	Traversal     TraversalPolicy
	PoolMode      PoolMode
	Duplicates    seq.DuplicatePolicy
	Diversity     DiversityPolicy // nil: LeastSimilar defaults (PoolMulti only)
	OracleOpts    oracle.Options
}

func (c Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v not in (0,1]", ErrConfig, c.Threshold)
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		return fmt.Errorf("%w: min coverage %v not in [0,1]", ErrConfig, c.MinCoverage)
	}
	if c.MaxOffsetFrac < 0 {
		return fmt.Errorf("%w: max offset fraction %v is negative", ErrConfig, c.MaxOffsetFrac)
	}
	switch c.Traversal {
	case TraversalInput, TraversalLengthDesc, TraversalMedianOut:
	default:
		return fmt.Errorf("%w: unknown traversal policy %d", ErrConfig, c.Traversal)
	}
	return nil
}

// Cluster is a representative plus its members, in assignment order.
// The representative is always members[0]. Immutable once the run
// finishes; purification works on copies.
type Cluster struct {
	ID             string
	Representative seq.Sequence
	Members        []seq.Sequence
	Seeded         bool

	index int // creation order, used for tie-breaking
}

func (c *Cluster) Size() int {
	return len(c.Members)
}

// Assignment records one classification decision.
type Assignment struct {
	SequenceID string
	ClusterID  string
	Founded    bool
	Score      float64        // zero when Founded
	Best       *oracle.Result // nil when Founded
}

// EventSink receives classification events. The engine itself does no
// I/O; callers hang logging or file emission off this.
type EventSink interface {
	Classified(Assignment)
}

type nopSink struct{}

func (nopSink) Classified(Assignment) {}

// RunStats counts what happened to the input set.
type RunStats struct {
	Processed  int
	Assigned   int
	Founded    int
	Malformed  int
	Duplicates int
}

// Engine holds the representative pool for one clustering pass. A pass
// is inherently sequential: assignment for a sequence depends on the
// pool state left by the sequences before it. Run separate engines for
// independent size buckets.
type Engine struct {
	cfg  Config
	orc  oracle.Oracle
	sink EventSink

	clusters []*Cluster
	pool     pool
	seen     map[string]struct{}
}

func NewEngine(cfg Config, orc oracle.Oracle, sink EventSink) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.PoolMode == PoolMulti && cfg.Diversity == nil {
		cfg.Diversity = DefaultDiversity(cfg.Threshold)
	}
	return &Engine{
		cfg:  cfg,
		orc:  orc,
		sink: sink,
		seen: make(map[string]struct{}),
	}, nil
}

// Seed founds one cluster per representative, unconditionally. Used to
// restart a run on top of clusters from an earlier pass.
func (e *Engine) Seed(reps []seq.Sequence) error {
	for _, r := range reps {
		if _, dup := e.seen[r.ID]; dup {
			return &seq.DuplicateIDError{ID: r.ID}
		}
		e.seen[r.ID] = struct{}{}
		e.found(r, true)
	}
	return nil
}

// Classify assigns one sequence: one oracle call against the current
// pool, best qualifying hit wins, ties go to the earliest-created
// cluster. No hit founds a new cluster. The caller is responsible for
// duplicate and malformed screening (Run does both).
func (e *Engine) Classify(ctx context.Context, s seq.Sequence) (Assignment, error) {

	if len(e.pool.entries) > 0 {
		results, err := e.orc.Compare(ctx, []seq.Sequence{s}, e.pool.sequences(), e.cfg.OracleOpts)
		if err != nil {
			return Assignment{}, err
		}

		if best, ok := e.bestHit(results); ok {
			c := e.clusters[e.pool.clusterOf(best.SubjectID)]
			c.Members = append(c.Members, s)
			e.maybeAdmit(c, s, results)

			a := Assignment{
				SequenceID: s.ID,
				ClusterID:  c.ID,
				Score:      best.Score(e.cfg.Measure),
				Best:       &best,
			}
			e.sink.Classified(a)
			return a, nil
		}
	}

	c := e.found(s, false)
	a := Assignment{SequenceID: s.ID, ClusterID: c.ID, Founded: true}
	e.sink.Classified(a)
	return a, nil
}

// bestHit filters results by threshold, coverage and offset, then picks
// the highest score. Ties break to the earliest-created cluster.
func (e *Engine) bestHit(results []oracle.Result) (oracle.Result, bool) {

	var best oracle.Result
	best_cluster := -1
	found := false

	for _, r := range results {
		if !e.qualifies(r) {
			continue
		}
		idx := e.pool.clusterOf(r.SubjectID)
		score := r.Score(e.cfg.Measure)

		if !found || score > best.Score(e.cfg.Measure) ||
			(score == best.Score(e.cfg.Measure) && idx < best_cluster) {
			best = r
			best_cluster = idx
			found = true
		}
	}

	return best, found
}

func (e *Engine) qualifies(r oracle.Result) bool {
	if r.Score(e.cfg.Measure) < e.cfg.Threshold {
		return false
	}
	if r.CoverageQuery < e.cfg.MinCoverage || r.CoverageSubject < e.cfg.MinCoverage {
		return false
	}
	if e.cfg.MaxOffsetFrac > 0 && r.OffsetFrac() > e.cfg.MaxOffsetFrac {
		return false
	}
	return true
}

func (e *Engine) found(rep seq.Sequence, seeded bool) *Cluster {
	c := &Cluster{
		ID:             fmt.Sprintf("cl_%05d", len(e.clusters)+1),
		Representative: rep,
		Members:        []seq.Sequence{rep},
		Seeded:         seeded,
		index:          len(e.clusters),
	}
	e.clusters = append(e.clusters, c)
	e.pool.add(rep, c.index, true)
	return c
}

// maybeAdmit lets the diversity policy put a non-representative member
// into the comparison pool (multi-representative mode only).
func (e *Engine) maybeAdmit(c *Cluster, s seq.Sequence, results []oracle.Result) {
	if e.cfg.PoolMode != PoolMulti {
		return
	}

	// Similarity to the representative itself, falling back to the
	// best score when the representative was not among the hits.
	sim_to_rep := 0.0
	have_rep := false
	for _, r := range results {
		if r.SubjectID == c.Representative.ID {
			sim_to_rep = r.Score(e.cfg.Measure)
			have_rep = true
			break
		}
	}
	if !have_rep {
		for _, r := range results {
			if s := r.Score(e.cfg.Measure); s > sim_to_rep {
				sim_to_rep = s
			}
		}
	}

	if e.cfg.Diversity.Admit(sim_to_rep, e.pool.memberCount(c.index)) {
		e.pool.add(s, c.index, false)
	}
}

// Run drives a whole pass in traversal order. Malformed records are
// skipped and counted; duplicates follow the configured policy.
func (e *Engine) Run(ctx context.Context, seqs []seq.Sequence) ([]*Cluster, RunStats, error) {

	var stats RunStats

	for _, s := range Order(seqs, e.cfg.Traversal) {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		if s.ID == "" || len(s.Residues) == 0 {
			stats.Malformed++
			continue
		}
		if _, dup := e.seen[s.ID]; dup {
			if e.cfg.Duplicates == seq.DuplicateError {
				return nil, stats, &seq.DuplicateIDError{ID: s.ID}
			}
			stats.Duplicates++
			continue
		}
		e.seen[s.ID] = struct{}{}

		a, err := e.Classify(ctx, s)
		if err != nil {
			return nil, stats, err
		}

		stats.Processed++
		if a.Founded {
			stats.Founded++
		} else {
			stats.Assigned++
		}
	}

	return e.clusters, stats, nil
}

// Clusters returns the clusters in creation order.
func (e *Engine) Clusters() []*Cluster {
	return e.clusters
}

// SortBySize reorders clusters by descending member count, stable, so
// creation order still breaks ties.
func SortBySize(clusters []*Cluster) []*Cluster {
	out := make([]*Cluster, len(clusters))
	copy(out, clusters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Size() > out[j].Size()
	})
	return out
}
