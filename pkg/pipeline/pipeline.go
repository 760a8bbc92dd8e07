// Pipeline orchestration: bucket, cluster, then align + purify + build
// per cluster under the LPT scheduler.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/olsonanl/seed-profiles/internal/util"
	"github.com/olsonanl/seed-profiles/pkg/align"
	"github.com/olsonanl/seed-profiles/pkg/bucket"
	"github.com/olsonanl/seed-profiles/pkg/cluster"
	"github.com/olsonanl/seed-profiles/pkg/ledger"
	"github.com/olsonanl/seed-profiles/pkg/oracle"
	"github.com/olsonanl/seed-profiles/pkg/purify"
	"github.com/olsonanl/seed-profiles/pkg/schedule"
	"github.com/olsonanl/seed-profiles/pkg/seq"
)

type Options struct {
	OutDir      string
	Workers     int
	Concurrency int // 0: same as Workers

	Buckets    []bucket.Bucket
	ClusterCfg cluster.Config
	PurifyCfg  purify.Config
}

// PSSMBuilder is the optional oracle capability for producing the
// profile artifact. BlastOracle implements it; test fakes need not.
type PSSMBuilder interface {
	BuildPSSM(ctx context.Context, msa seq.Alignment, opt oracle.Options) ([]byte, error)
}

type Pipeline struct {
	opt     Options
	orc     oracle.Oracle
	aligner align.Aligner
	led     *ledger.Ledger // nil: no bookkeeping, no restart skip
	log     *zap.Logger
}

// Summary is what a run did, bucket by bucket.
type Summary struct {
	Buckets   int
	Unmatched int
	Clusters  int
	Completed int
	Skipped   int
	Failed    int
}

func New(opt Options, orc oracle.Oracle, aligner align.Aligner, led *ledger.Ledger, log *zap.Logger) (*Pipeline, error) {
	if opt.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count %d", schedule.ErrConfig, opt.Workers)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opt: opt, orc: orc, aligner: aligner, led: led, log: log}, nil
}

// Run processes the whole input set. Oracle failures abort only the
// cluster job they occur in; the summary carries the failure count.
func (p *Pipeline) Run(ctx context.Context, seqs []seq.Sequence) (Summary, error) {

	var summary Summary

	parts, unmatched := bucket.Partition(seqs, p.opt.Buckets)
	summary.Unmatched = unmatched
	if unmatched > 0 {
		p.log.Warn("sequences outside all size sets", zap.Int("count", unmatched))
	}

	// Buckets run in definition order so output is reproducible.
	for _, b := range p.opt.Buckets {
		members := parts[b.Name]
		if len(members) == 0 {
			continue
		}
		summary.Buckets++

		if err := p.runBucket(ctx, b.Name, members, &summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (p *Pipeline) runBucket(ctx context.Context, name string, members []seq.Sequence, summary *Summary) error {

	blog := p.log.Named(name)
	blog.Info("clustering bucket", zap.Int("sequences", len(members)))

	var sink cluster.EventSink
	if p.led != nil {
		sink = p.led.EventSink(name, func(err error) {
			blog.Warn("ledger event dropped", zap.Error(err))
		})
	}

	engine, err := cluster.NewEngine(p.opt.ClusterCfg, p.orc, sink)
	if err != nil {
		return err
	}

	clusters, stats, err := engine.Run(ctx, members)
	if err != nil {
		return err
	}
	summary.Clusters += len(clusters)

	blog.Info("clustering done",
		zap.Int("clusters", len(clusters)),
		zap.Int("assigned", stats.Assigned),
		zap.Int("founded", stats.Founded),
		zap.Int("malformed", stats.Malformed),
		zap.Int("duplicates", stats.Duplicates))

	done := map[string]bool{}
	if p.led != nil {
		if done, err = p.led.CompletedClusters(ctx, name); err != nil {
			return err
		}
	}

	jobs := make([]schedule.Job, 0, len(clusters))
	for _, c := range clusters {
		cost := 0.0
		for _, m := range c.Members {
			cost += float64(m.UngappedLen())
		}
		jobs = append(jobs, schedule.Job{ID: c.ID, Cost: cost, Payload: c})
	}

	bins, err := schedule.Plan(jobs, p.opt.Workers)
	if err != nil {
		return err
	}

	pool := &schedule.Pool{Concurrency: p.opt.Concurrency, Log: blog}

	bootstrap := func(ctx context.Context, worker int) error {
		return util.EnsureDir(filepath.Join(p.opt.OutDir, name))
	}

	var skipped, completed int64

	work := func(ctx context.Context, job schedule.Job) error {
		c := job.Payload.(*cluster.Cluster)

		// Restart skip: complete outputs on disk are enough on their
		// own; a configured ledger must also agree.
		if (p.led == nil || done[c.ID]) && p.doneOnDisk(name, c.ID) {
			atomic.AddInt64(&skipped, 1)
			blog.Debug("skipping completed cluster", zap.String("cluster", c.ID))
			return nil
		}

		if p.led != nil {
			_ = p.led.SetJobStatus(ctx, name, c.ID, ledger.JobRunning, nil)
		}

		err := p.processCluster(ctx, name, c)
		if err == nil {
			atomic.AddInt64(&completed, 1)
		}

		if p.led != nil {
			status := ledger.JobCompleted
			if err != nil {
				status = ledger.JobFailed
			}
			_ = p.led.SetJobStatus(ctx, name, c.ID, status, err)
		}
		return err
	}

	job_errs := pool.Run(ctx, bins, bootstrap, work)
	summary.Failed += len(job_errs)
	summary.Skipped += int(skipped)
	summary.Completed += int(completed)

	for _, je := range job_errs {
		blog.Error("cluster job failed", zap.String("job", je.Job.ID), zap.Error(je.Err))
	}

	return nil
}
