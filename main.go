package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/olsonanl/seed-profiles/internal/config"
	"github.com/olsonanl/seed-profiles/internal/util"
	"github.com/olsonanl/seed-profiles/logger"
	"github.com/olsonanl/seed-profiles/pkg/align"
	"github.com/olsonanl/seed-profiles/pkg/bucket"
	"github.com/olsonanl/seed-profiles/pkg/cluster"
	"github.com/olsonanl/seed-profiles/pkg/ledger"
	"github.com/olsonanl/seed-profiles/pkg/oracle"
	"github.com/olsonanl/seed-profiles/pkg/pipeline"
	"github.com/olsonanl/seed-profiles/pkg/purify"
	"github.com/olsonanl/seed-profiles/pkg/seq"

	_ "modernc.org/sqlite"
)

const VERSION = "0.2.0"

func main() {
	os.Exit(run())
}

func run() int {

	// Try load env
	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	// Flags override config-file and environment values
	var inputs string
	flag.StringVar(&inputs, "in", "", "comma-separated FASTA input files (required)")
	flag.StringVar(&cfg.Run.OutDir, "out", cfg.Run.OutDir, "output directory")
	flag.StringVar(&cfg.Run.LedgerPath, "ledger", cfg.Run.LedgerPath, "sqlite run ledger path (empty disables)")
	flag.StringVar(&cfg.Run.SizeSets, "size-sets", cfg.Run.SizeSets, "size set definitions, e.g. 0-200,201-400,401-")
	flag.IntVar(&cfg.Run.Workers, "workers", cfg.Run.Workers, "worker count for per-cluster jobs")
	flag.IntVar(&cfg.Run.Threads, "threads", cfg.Run.Threads, "threads per oracle invocation")

	flag.Float64Var(&cfg.Cluster.Threshold, "threshold", cfg.Cluster.Threshold, "clustering similarity threshold (0,1]")
	flag.StringVar(&cfg.Cluster.Measure, "measure", cfg.Cluster.Measure, "similarity measure: identity|positives|nbs")
	flag.Float64Var(&cfg.Cluster.MinCoverage, "min-coverage", cfg.Cluster.MinCoverage, "minimum coverage of both query and subject")
	flag.Float64Var(&cfg.Cluster.MaxOffsetFrac, "max-offset", cfg.Cluster.MaxOffsetFrac, "maximum alignment offset fraction (0 disables)")
	flag.StringVar(&cfg.Cluster.Traversal, "traversal", cfg.Cluster.Traversal, "traversal policy: input|length-desc|median-out")
	flag.BoolVar(&cfg.Cluster.MultiRep, "multi-rep", cfg.Cluster.MultiRep, "admit diverse members into the comparison pool")
	flag.BoolVar(&cfg.Cluster.SkipDuplicates, "skip-duplicates", cfg.Cluster.SkipDuplicates, "skip repeated ids instead of failing")
	flag.Parse()

	level, err := logger.ParseLevel(cfg.Run.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := logger.InitLogger(level); err != nil {
		panic(err)
	}
	defer logger.Sync() // Make sure that the buffered is flushed.

	if dotenvErr != nil {
		logger.Warn("No .env found, using local environment")
	}

	logger.Info("Start:", zap.String("Version", VERSION))

	input_files := cfg.Run.InputFiles
	if inputs != "" {
		input_files = strings.Split(inputs, ",")
	}
	if len(input_files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: seed-profiles -in seqs.fasta[,more.fasta] [flags]")
		return 1
	}

	opt, clusterCfg, err := buildOptions(cfg)
	if err != nil {
		logger.Error("Bad configuration", zap.Error(err))
		return 1
	}

	policy := seq.DuplicateError
	if cfg.Cluster.SkipDuplicates {
		policy = seq.DuplicateSkip
	}

	var all []seq.Sequence
	for _, path := range input_files {
		seqs, stats, err := seq.ReadFastaFile(strings.TrimSpace(path), policy)
		if err != nil {
			logger.Error("Reading input failed", zap.String("file", path), zap.Error(err))
			return 1
		}
		logger.Info("Read input", zap.String("file", path),
			zap.Int("sequences", stats.Read),
			zap.Int("malformed", stats.Malformed),
			zap.Int("skipped", stats.Skipped))
		all = append(all, seqs...)
	}

	ctx := context.Background()

	if util.DirExists(cfg.Run.OutDir) {
		logger.Info("Output directory exists, completed clusters will be skipped",
			zap.String("dir", cfg.Run.OutDir))
	}

	var led *ledger.Ledger
	if cfg.Run.LedgerPath != "" {
		led, err = ledger.Open(cfg.Run.LedgerPath)
		if err != nil {
			logger.Error("Opening ledger failed", zap.Error(err))
			return 1
		}
		defer led.Close()
		if _, err := led.BeginRun(ctx); err != nil {
			logger.Error("Starting run failed", zap.Error(err))
			return 1
		}
		logger.Info("Ledger run", zap.String("run_id", led.RunID()))
	}

	orc := oracle.NewBlastOracle()
	orc.BlastpPath = cfg.Tools.Blastp
	orc.PsiblastPath = cfg.Tools.Psiblast

	aligner := align.NewMuscleAligner()
	aligner.Path = cfg.Tools.Muscle

	opt.ClusterCfg = clusterCfg

	p, err := pipeline.New(opt, orc, aligner, led, logger.Named("pipeline"))
	if err != nil {
		logger.Error("Bad configuration", zap.Error(err))
		return 1
	}

	summary, runErr := p.Run(ctx, all)

	if led != nil {
		status := "completed"
		if runErr != nil {
			status = "failed"
		}
		if err := led.FinishRun(ctx, status); err != nil {
			logger.Warn("Closing run failed", zap.Error(err))
		}
	}

	logger.Info("Run finished",
		zap.Int("buckets", summary.Buckets),
		zap.Int("clusters", summary.Clusters),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed_jobs", summary.Failed),
		zap.Int("unmatched", summary.Unmatched))

	if runErr != nil {
		logger.Error("Run aborted", zap.Error(runErr))
		return 1
	}

	return 0
}

func buildOptions(cfg *config.Config) (pipeline.Options, cluster.Config, error) {

	measure, err := oracle.ParseMeasure(cfg.Cluster.Measure)
	if err != nil {
		return pipeline.Options{}, cluster.Config{}, err
	}
	traversal, err := cluster.ParseTraversal(cfg.Cluster.Traversal)
	if err != nil {
		return pipeline.Options{}, cluster.Config{}, err
	}
	redundancy, err := oracle.ParseMeasure(cfg.Purify.Measure)
	if err != nil {
		return pipeline.Options{}, cluster.Config{}, err
	}
	buckets, err := bucket.ParseSets(cfg.Run.SizeSets)
	if err != nil {
		return pipeline.Options{}, cluster.Config{}, err
	}

	pool_mode := cluster.PoolSingle
	if cfg.Cluster.MultiRep {
		pool_mode = cluster.PoolMulti
	}
	dup_policy := seq.DuplicateError
	if cfg.Cluster.SkipDuplicates {
		dup_policy = seq.DuplicateSkip
	}

	oracle_opts := oracle.Options{
		MaxEValue: cfg.Purify.MaxEValue,
		Threads:   cfg.Run.Threads,
	}

	cluster_cfg := cluster.Config{
		Threshold:     cfg.Cluster.Threshold,
		Measure:       measure,
		MinCoverage:   cfg.Cluster.MinCoverage,
		MaxOffsetFrac: cfg.Cluster.MaxOffsetFrac,
		Traversal:     traversal,
		PoolMode:      pool_mode,
		Duplicates:    dup_policy,
		OracleOpts:    oracle_opts,
	}

	opt := pipeline.Options{
		OutDir:  cfg.Run.OutDir,
		Workers: cfg.Run.Workers,
		Buckets: buckets,
		PurifyCfg: purify.Config{
			MinDepth:          cfg.Purify.MinDepth,
			RedundancyMeasure: redundancy,
			RedundancyCeiling: cfg.Purify.Ceiling,
			MinNBS:            cfg.Purify.MinNBS,
			MinQueryCov:       cfg.Purify.MinQueryCov,
			MinSubjectCov:     cfg.Purify.MinSubjectCov,
			MaxEValue:         cfg.Purify.MaxEValue,
			KeepFirst:         cfg.Purify.KeepFirst,
			NoReorder:         cfg.Purify.NoReorder,
			NoPack:            cfg.Purify.NoPack,
			OracleOpts:        oracle_opts,
		},
	}

	return opt, cluster_cfg, nil
}
