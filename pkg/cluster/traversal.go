package cluster

import (
	"fmt"
	"sort"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// TraversalPolicy fixes the order sequences are classified in. Order
// matters: early sequences anchor clusters for everything after them,
// and an extreme early member can anchor a bad cluster.
type TraversalPolicy int

const (
	TraversalInput TraversalPolicy = iota
	TraversalLengthDesc
	TraversalMedianOut
)

func ParseTraversal(name string) (TraversalPolicy, error) {
	switch name {
	case "input", "":
		return TraversalInput, nil
	case "length-desc":
		return TraversalLengthDesc, nil
	case "median-out":
		return TraversalMedianOut, nil
	}
	return TraversalInput, fmt.Errorf("%w: unknown traversal policy %q", ErrConfig, name)
}

func (t TraversalPolicy) String() string {
	switch t {
	case TraversalLengthDesc:
		return "length-desc"
	case TraversalMedianOut:
		return "median-out"
	}
	return "input"
}

// Order returns the sequences in classification order. The input slice
// is not modified.
func Order(seqs []seq.Sequence, policy TraversalPolicy) []seq.Sequence {

	out := make([]seq.Sequence, len(seqs))
	copy(out, seqs)

	switch policy {
	case TraversalLengthDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UngappedLen() > out[j].UngappedLen()
		})

	case TraversalMedianOut:
		// Sort by length, start at the median, then alternate outward:
		// next longer, next shorter, next longer still, and so on.
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UngappedLen() < out[j].UngappedLen()
		})
		n := len(out)
		if n < 3 {
			return out
		}
		ordered := make([]seq.Sequence, 0, n)
		mid := (n - 1) / 2
		lo, hi := mid-1, mid+1
		ordered = append(ordered, out[mid])
		for lo >= 0 || hi < n {
			if hi < n {
				ordered = append(ordered, out[hi])
				hi++
			}
			if lo >= 0 {
				ordered = append(ordered, out[lo])
				lo--
			}
		}
		return ordered
	}

	return out
}
