package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/crowdsynth/internal/adapters/export"
	service "github.com/okian/crowdsynth/internal/app"
	"github.com/okian/crowdsynth/internal/config"
	"github.com/okian/crowdsynth/internal/domain/confusion"
	"github.com/okian/crowdsynth/internal/domain/crowd"
	"github.com/okian/crowdsynth/pkg/logger"
	"github.com/okian/crowdsynth/pkg/metrics"
)

func newGenerateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate labeled datasets",
		Long: `Generate one or more synthetic datasets.

Configuration is layered: defaults, then the YAML file given by --config or
CROWDSYNTH_CONFIG, then CROWDSYNTH_* environment variables, then flags.

Examples:
  # 100 tasks, 30 workers, 5 labels per task, triplets on stdout
  crowdsynth generate

  # Power-law workloads, 10 replicates written as CSV
  crowdsynth generate --policy power_law --replicates 10 --out ./data

  # One-coin model from a config file
  crowdsynth generate --config bonald.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := config.Load(ctx, configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFlags(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setupLogging(ctx, cfg); err != nil {
				return err
			}
			return runGenerate(ctx, cfg, cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&configPath, "config", "", "YAML config file")
	fl.Uint64("seed", 0, "seed of the first replicate")
	fl.String("policy", "", "labeling policy: fixed, power_law or bonald")
	fl.String("out", "", "directory for CSV output (default: labels to stdout)")
	fl.Int("replicates", 0, "number of independent datasets")
	fl.String("log-level", "", "debug, info, warn or error")

	return cmd
}

// applyFlags overrides cfg with every flag the user set explicitly.
// Values were type-checked by pflag during parsing.
func applyFlags(fl *pflag.FlagSet, cfg *config.Config) {
	if fl.Changed("seed") {
		cfg.Seed, _ = fl.GetUint64("seed")
	}
	if fl.Changed("policy") {
		cfg.Policy, _ = fl.GetString("policy")
	}
	if fl.Changed("out") {
		cfg.OutputDir, _ = fl.GetString("out")
	}
	if fl.Changed("replicates") {
		cfg.Replicates, _ = fl.GetInt("replicates")
	}
	if fl.Changed("log-level") {
		cfg.LogLevel, _ = fl.GetString("log-level")
	}
}

// setupLogging re-initializes the logger with the configured format and level.
func setupLogging(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// runGenerate generates every replicate and hands the results to the
// export collaborator.
func runGenerate(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	log := logger.Get()

	sc, err := service.ScenarioFromConfig(cfg)
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithLogger(log.Named("generator")),
		service.WithParallelism(cfg.Parallelism),
		service.WithCrowdBuilder(crowd.NewBuilder(
			crowd.WithMatrixFactory(confusion.NewFactory(
				confusion.WithConcentration(cfg.ConcentrationBoost, cfg.ConcentrationBase),
			)),
		)),
	)

	log.Info(ctx, "starting generation",
		logger.String("policy", cfg.Policy),
		logger.Any("seed", cfg.Seed),
		logger.Int("tasks", cfg.Tasks),
		logger.Int("workers", cfg.Workers),
		logger.Int("classes", cfg.Classes),
		logger.Int("replicates", cfg.Replicates))

	datasets, err := svc.RunReplicates(ctx, sc, cfg.Replicates)
	if err != nil {
		return err
	}

	if cfg.OutputDir == "" {
		err = writeStdout(stdout, datasets)
	} else {
		err = writeBundles(ctx, log, cfg.OutputDir, datasets)
	}
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.Default().WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics textfile", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return nil
}

// writeStdout streams labels as one CSV document. Several replicates share
// a header and carry a replicate column.
func writeStdout(w io.Writer, datasets []*service.Dataset) error {
	if len(datasets) == 1 {
		return export.WriteLabels(w, datasets[0].Labels)
	}
	sets := make([]export.ReplicateLabels, len(datasets))
	for i, ds := range datasets {
		sets[i] = export.ReplicateLabels{Replicate: ds.Replicate, Labels: ds.Labels}
	}
	return export.WriteReplicateLabels(w, sets)
}

// writeBundles writes one set of CSV files per replicate into dir.
func writeBundles(ctx context.Context, log logger.Logger, dir string, datasets []*service.Dataset) error {
	for _, ds := range datasets {
		paths, err := export.WriteBundle(dir, export.Bundle{
			Prefix:      fmt.Sprintf("replicate-%03d-", ds.Replicate),
			GroundTruth: ds.GroundTruth,
			Crowd:       ds.Crowd,
			Labels:      ds.Labels,
		})
		if err != nil {
			return err
		}
		log.Info(ctx, "dataset written",
			logger.String("runID", ds.RunID.String()),
			logger.Int("replicate", ds.Replicate),
			logger.Any("files", paths))
	}
	return nil
}
