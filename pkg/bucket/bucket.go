// Size bucketing: split the input set by ungapped length so each
// bucket clusters independently. Buckets are the unit of clustering
// parallelism; within a bucket the pass is sequential.

package bucket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olsonanl/seed-profiles/pkg/seq"
)

// Bucket is a length band, inclusive at both ends. Max 0 means
// unbounded.
type Bucket struct {
	Name string
	Min  int
	Max  int
}

func (b Bucket) contains(n int) bool {
	if n < b.Min {
		return false
	}
	return b.Max == 0 || n <= b.Max
}

// ParseSets parses size-set definitions like "0-200,201-400,401-".
// An empty definition yields the single unbounded bucket "all".
func ParseSets(def string) ([]Bucket, error) {

	def = strings.TrimSpace(def)
	if def == "" {
		return []Bucket{{Name: "all"}}, nil
	}

	var buckets []Bucket
	for _, part := range strings.Split(def, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("bad size set %q: want min-max", part)
		}

		min, err := strconv.Atoi(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("bad size set %q: %v", part, err)
		}

		max := 0
		if bounds[1] != "" {
			if max, err = strconv.Atoi(bounds[1]); err != nil {
				return nil, fmt.Errorf("bad size set %q: %v", part, err)
			}
			if max < min {
				return nil, fmt.Errorf("bad size set %q: max below min", part)
			}
		}

		buckets = append(buckets, Bucket{Name: part, Min: min, Max: max})
	}

	return buckets, nil
}

// Partition assigns each sequence to the first bucket containing its
// ungapped length. The second return counts sequences no bucket takes.
func Partition(seqs []seq.Sequence, buckets []Bucket) (map[string][]seq.Sequence, int) {

	out := make(map[string][]seq.Sequence, len(buckets))
	unmatched := 0

	for _, s := range seqs {
		n := s.UngappedLen()
		placed := false
		for _, b := range buckets {
			if b.contains(n) {
				out[b.Name] = append(out[b.Name], s)
				placed = true
				break
			}
		}
		if !placed {
			unmatched++
		}
	}

	return out, unmatched
}
