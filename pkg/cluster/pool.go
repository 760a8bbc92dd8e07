package cluster

import (
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// pool is the append-only arena of comparison sequences. Entries are
// never removed or reordered; the whole record array goes into each
// oracle call as the subject set.
type pool struct {
	entries []poolEntry
	by_id   map[string]int // sequence id -> entries index
}

type poolEntry struct {
	Seq        seq.Sequence
	ClusterIdx int
	IsRep      bool
}

func (p *pool) add(s seq.Sequence, clusterIdx int, isRep bool) {
	if p.by_id == nil {
		p.by_id = make(map[string]int)
	}
	p.by_id[s.ID] = len(p.entries)
	p.entries = append(p.entries, poolEntry{Seq: s, ClusterIdx: clusterIdx, IsRep: isRep})
}

// sequences materializes the subject set for one oracle call.
func (p *pool) sequences() []seq.Sequence {
	out := make([]seq.Sequence, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Seq
	}
	return out
}

// clusterOf maps an oracle subject id back to its cluster. Ids in the
// pool are unique because working-set ids are.
func (p *pool) clusterOf(id string) int {
	return p.entries[p.by_id[id]].ClusterIdx
}

// memberCount counts non-representative pool entries for a cluster.
func (p *pool) memberCount(clusterIdx int) int {
	n := 0
	for _, e := range p.entries {
		if e.ClusterIdx == clusterIdx && !e.IsRep {
			n++
		}
	}
	return n
}

// DiversityPolicy decides whether a newly assigned member also enters
// the comparison pool in multi-representative mode. Which members make
// good extra representatives is genuinely unsettled, so the rule is
// pluggable rather than baked in.
type DiversityPolicy interface {
	// Admit is called with the member's similarity to its cluster's
	// representative and the number of non-representative entries the
	// cluster already has in the pool.
	Admit(simToRep float64, poolMembers int) bool
}

// LeastSimilar admits members that matched the cluster but sit far
// from the representative, up to K per cluster. Members closer to the
// representative than MaxSim add nothing the representative does not
// already cover.
type LeastSimilar struct {
	K      int
	MaxSim float64
}

func (p LeastSimilar) Admit(simToRep float64, poolMembers int) bool {
	return poolMembers < p.K && simToRep < p.MaxSim
}

// DefaultDiversity keeps up to 3 extra entries per cluster, admitting
// members in the lower half of the band between the threshold and a
// perfect match.
func DefaultDiversity(threshold float64) DiversityPolicy {
	return LeastSimilar{K: 3, MaxSim: threshold + (1.0-threshold)/2.0}
}
