// Longest-Processing-Time-first bin packing. Jobs are sorted by
// descending cost and each goes to the least-loaded bin, which bounds
// the makespan at (4/3 - 1/(3m)) times optimal.

package schedule

import (
	"errors"
	"fmt"
	"sort"
)

// Defining possible error
var ErrConfig = errors.New("invalid scheduler configuration")

// Job is one unit of work with an externally estimated cost. Payload
// is opaque to the scheduler.
type Job struct {
	ID      string
	Cost    float64
	Payload any
}

// Bin is one worker's ordered job list plus its running cost total.
type Bin struct {
	Index int
	Jobs  []Job
	Total float64
}

// Plan distributes jobs over m bins. The sort is stable, so equal-cost
// jobs keep their insertion order; bin ties go to the lowest index.
func Plan(jobs []Job, m int) ([]Bin, error) {

	if m < 1 {
		return nil, fmt.Errorf("%w: worker count %d", ErrConfig, m)
	}

	sorted := make([]Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost > sorted[j].Cost
	})

	bins := make([]Bin, m)
	for i := range bins {
		bins[i].Index = i
	}

	for _, j := range sorted {
		least := 0
		for i := 1; i < m; i++ {
			if bins[i].Total < bins[least].Total {
				least = i
			}
		}
		bins[least].Jobs = append(bins[least].Jobs, j)
		bins[least].Total += j.Cost
	}

	return bins, nil
}

// Makespan returns the largest bin total.
func Makespan(bins []Bin) float64 {
	max := 0.0
	for _, b := range bins {
		if b.Total > max {
			max = b.Total
		}
	}
	return max
}
