package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Run     RunConfig
	Cluster ClusterConfig
	Purify  PurifyConfig
	Tools   ToolsConfig
}

type RunConfig struct {
	InputFiles []string
	OutDir     string
	LedgerPath string
	SizeSets   string
	Workers    int
	Threads    int // oracle threads per invocation
	LogLevel   string
}

type ClusterConfig struct {
	Threshold      float64
	Measure        string
	MinCoverage    float64
	MaxOffsetFrac  float64
	Traversal      string
	MultiRep       bool
	SkipDuplicates bool
}

type PurifyConfig struct {
	MinDepth      float64
	Measure       string
	Ceiling       float64
	MinNBS        float64
	MinQueryCov   float64
	MinSubjectCov float64
	MaxEValue     float64
	KeepFirst     bool
	NoReorder     bool
	NoPack        bool
}

type ToolsConfig struct {
	Blastp   string
	Psiblast string
	Muscle   string
}

// Load reads defaults, the optional profiles.yaml, and environment
// overrides, in that order of increasing precedence. CLI flags are
// applied on top by main.
func Load() (*Config, error) {

	viper.SetConfigName("profiles")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("run.out_dir", "SEED_PROFILES_OUT")
	_ = viper.BindEnv("run.ledger_path", "SEED_PROFILES_LEDGER")
	_ = viper.BindEnv("run.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("tools.blastp", "BLASTP_PATH")
	_ = viper.BindEnv("tools.psiblast", "PSIBLAST_PATH")
	_ = viper.BindEnv("tools.muscle", "MUSCLE_PATH")

	// Defaults
	viper.SetDefault("run.out_dir", "./profiles-out")
	viper.SetDefault("run.ledger_path", "")
	viper.SetDefault("run.size_sets", "")
	viper.SetDefault("run.workers", 4)
	viper.SetDefault("run.threads", 1)
	viper.SetDefault("run.log_level", "info")

	viper.SetDefault("cluster.threshold", 0.9)
	viper.SetDefault("cluster.measure", "identity")
	viper.SetDefault("cluster.min_coverage", 0.8)
	viper.SetDefault("cluster.max_offset_frac", 0.0)
	viper.SetDefault("cluster.traversal", "length-desc")
	viper.SetDefault("cluster.multi_rep", false)
	viper.SetDefault("cluster.skip_duplicates", false)

	viper.SetDefault("purify.min_depth", 0.25)
	viper.SetDefault("purify.measure", "identity")
	viper.SetDefault("purify.ceiling", 0.85)
	viper.SetDefault("purify.min_nbs", 0.0)
	viper.SetDefault("purify.min_query_cov", 0.0)
	viper.SetDefault("purify.min_subject_cov", 0.0)
	viper.SetDefault("purify.max_e_value", 1e-5)

	viper.SetDefault("tools.blastp", "blastp")
	viper.SetDefault("tools.psiblast", "psiblast")
	viper.SetDefault("tools.muscle", "muscle")

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Run: RunConfig{
			InputFiles: viper.GetStringSlice("run.input_files"),
			OutDir:     viper.GetString("run.out_dir"),
			LedgerPath: viper.GetString("run.ledger_path"),
			SizeSets:   viper.GetString("run.size_sets"),
			Workers:    viper.GetInt("run.workers"),
			Threads:    viper.GetInt("run.threads"),
			LogLevel:   viper.GetString("run.log_level"),
		},
		Cluster: ClusterConfig{
			Threshold:      viper.GetFloat64("cluster.threshold"),
			Measure:        viper.GetString("cluster.measure"),
			MinCoverage:    viper.GetFloat64("cluster.min_coverage"),
			MaxOffsetFrac:  viper.GetFloat64("cluster.max_offset_frac"),
			Traversal:      viper.GetString("cluster.traversal"),
			MultiRep:       viper.GetBool("cluster.multi_rep"),
			SkipDuplicates: viper.GetBool("cluster.skip_duplicates"),
		},
		Purify: PurifyConfig{
			MinDepth:      viper.GetFloat64("purify.min_depth"),
			Measure:       viper.GetString("purify.measure"),
			Ceiling:       viper.GetFloat64("purify.ceiling"),
			MinNBS:        viper.GetFloat64("purify.min_nbs"),
			MinQueryCov:   viper.GetFloat64("purify.min_query_cov"),
			MinSubjectCov: viper.GetFloat64("purify.min_subject_cov"),
			MaxEValue:     viper.GetFloat64("purify.max_e_value"),
			KeepFirst:     viper.GetBool("purify.keep_first"),
			NoReorder:     viper.GetBool("purify.no_reorder"),
			NoPack:        viper.GetBool("purify.no_pack"),
		},
		Tools: ToolsConfig{
			Blastp:   viper.GetString("tools.blastp"),
			Psiblast: viper.GetString("tools.psiblast"),
			Muscle:   viper.GetString("tools.muscle"),
		},
	}

	if cfg.Run.Workers < 1 {
		return nil, fmt.Errorf("run.workers must be at least 1, got %d", cfg.Run.Workers)
	}

	return cfg, nil
}
