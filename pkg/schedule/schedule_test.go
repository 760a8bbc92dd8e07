package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkjobs(costs ...float64) []Job {
	jobs := make([]Job, len(costs))
	for i, c := range costs {
		jobs[i] = Job{ID: fmt.Sprintf("j%d", i), Cost: c}
	}
	return jobs
}

func TestPlanLPT(t *testing.T) {

	bins, err := Plan(mkjobs(10, 9, 8, 7, 6, 5, 4), 3)
	require.NoError(t, err)
	require.Len(t, bins, 3)

	totals := []float64{bins[0].Total, bins[1].Total, bins[2].Total}
	assert.Equal(t, []float64{19, 15, 15}, totals)
	assert.Equal(t, 19.0, Makespan(bins))

	// the tie at 15 went to the lowest index
	ids := func(b Bin) []string {
		var out []string
		for _, j := range b.Jobs {
			out = append(out, j.ID)
		}
		return out
	}
	assert.Equal(t, []string{"j0", "j5", "j6"}, ids(bins[0]))
	assert.Equal(t, []string{"j1", "j4"}, ids(bins[1]))
	assert.Equal(t, []string{"j2", "j3"}, ids(bins[2]))
}

func TestPlanEveryJobExactlyOnce(t *testing.T) {

	jobs := mkjobs(3, 1, 4, 1, 5, 9, 2, 6, 5, 3)
	bins, err := Plan(jobs, 4)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, b := range bins {
		for _, j := range b.Jobs {
			seen[j.ID]++
		}
	}
	require.Len(t, seen, len(jobs))
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s", id)
	}
}

func TestPlanStableOnEqualCosts(t *testing.T) {

	bins, err := Plan(mkjobs(1, 1, 1), 2)
	require.NoError(t, err)

	assert.Equal(t, "j0", bins[0].Jobs[0].ID)
	assert.Equal(t, "j2", bins[0].Jobs[1].ID)
	assert.Equal(t, "j1", bins[1].Jobs[0].ID)
}

func TestPlanBadWorkerCount(t *testing.T) {
	_, err := Plan(mkjobs(1), 0)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = Plan(mkjobs(1), -3)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestPoolRunsBinInOrder(t *testing.T) {

	bins, err := Plan(mkjobs(5, 4, 3, 2, 1), 1)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	pool := &Pool{}
	errs := pool.Run(context.Background(), bins, nil, func(_ context.Context, j Job) error {
		mu.Lock()
		order = append(order, j.ID)
		mu.Unlock()
		return nil
	})

	assert.Empty(t, errs)
	assert.Equal(t, []string{"j0", "j1", "j2", "j3", "j4"}, order)
}

func TestPoolBootstrapRunsOncePerWorker(t *testing.T) {

	bins, err := Plan(mkjobs(4, 3, 2, 1), 2)
	require.NoError(t, err)

	var mu sync.Mutex
	boots := map[int]int{}
	pool := &Pool{}
	errs := pool.Run(context.Background(), bins,
		func(_ context.Context, worker int) error {
			mu.Lock()
			boots[worker]++
			mu.Unlock()
			return nil
		},
		func(_ context.Context, _ Job) error { return nil })

	assert.Empty(t, errs)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, boots)
}

func TestPoolBootstrapFailureSkipsBin(t *testing.T) {

	bins, err := Plan(mkjobs(4, 3, 2, 1), 2)
	require.NoError(t, err)

	boom := errors.New("no scratch dir")
	var mu sync.Mutex
	var ran []string
	pool := &Pool{}
	errs := pool.Run(context.Background(), bins,
		func(_ context.Context, worker int) error {
			if worker == 0 {
				return boom
			}
			return nil
		},
		func(_ context.Context, j Job) error {
			mu.Lock()
			ran = append(ran, j.ID)
			mu.Unlock()
			return nil
		})

	require.Len(t, errs, 1)
	assert.Equal(t, 0, errs[0].Bin)
	assert.Empty(t, errs[0].Job.ID)
	assert.ErrorIs(t, errs[0].Err, boom)

	// bin 1's jobs still ran
	for _, id := range ran {
		for _, j := range bins[0].Jobs {
			assert.NotEqual(t, j.ID, id)
		}
	}
	assert.Len(t, ran, len(bins[1].Jobs))
}

func TestPoolJobFailureDoesNotStopBin(t *testing.T) {

	bins, err := Plan(mkjobs(3, 2, 1), 1)
	require.NoError(t, err)

	boom := errors.New("tool exploded")
	var ran []string
	pool := &Pool{}
	errs := pool.Run(context.Background(), bins, nil,
		func(_ context.Context, j Job) error {
			ran = append(ran, j.ID)
			if j.ID == "j1" {
				return boom
			}
			return nil
		})

	require.Len(t, errs, 1)
	assert.Equal(t, "j1", errs[0].Job.ID)
	assert.ErrorIs(t, errs[0].Err, boom)
	assert.Equal(t, []string{"j0", "j1", "j2"}, ran)
}

func TestPoolCancelledContext(t *testing.T) {

	bins, err := Plan(mkjobs(2, 1), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := &Pool{}
	called := false
	errs := pool.Run(ctx, bins, nil, func(_ context.Context, _ Job) error {
		called = true
		return nil
	})

	assert.False(t, called)
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0].Err, context.Canceled)
}

func TestPoolEmptyBins(t *testing.T) {
	pool := &Pool{}
	errs := pool.Run(context.Background(), []Bin{{Index: 0}, {Index: 1}}, nil,
		func(_ context.Context, _ Job) error { return nil })
	assert.Empty(t, errs)
}
