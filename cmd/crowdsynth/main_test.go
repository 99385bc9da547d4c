package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/crowdsynth/internal/config"
	"github.com/okian/crowdsynth/pkg/logger"
)

func initTestLogger(t *testing.T) {
	t.Helper()
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		t.Fatalf("logger init: %v", err)
	}
}

func smallConfig() *config.Config {
	cfg := config.New()
	cfg.Tasks = 20
	cfg.Workers = 10
	cfg.QueriesPerTask = 3
	cfg.Parallelism = 2
	return cfg
}

func TestRunGenerate(t *testing.T) {
	initTestLogger(t)

	convey.Convey("Given a small fixed-load configuration", t, func() {
		ctx := context.Background()
		cfg := smallConfig()

		convey.Convey("When no output directory is set", func() {
			var out bytes.Buffer
			err := runGenerate(ctx, cfg, &out)

			convey.Convey("Then triplets are written to stdout as CSV", func() {
				convey.So(err, convey.ShouldBeNil)
				rows, err := csv.NewReader(&out).ReadAll()
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows[0], convey.ShouldResemble, []string{"task", "worker", "class"})
				convey.So(len(rows)-1, convey.ShouldEqual, cfg.Tasks*cfg.QueriesPerTask)
			})
		})

		convey.Convey("When several replicates are streamed to stdout", func() {
			cfg.Tasks = 2
			cfg.QueriesPerTask = 1
			cfg.Replicates = 3
			var out bytes.Buffer
			err := runGenerate(ctx, cfg, &out)

			convey.Convey("Then one header is written and every row names its replicate", func() {
				convey.So(err, convey.ShouldBeNil)
				rows, err := csv.NewReader(&out).ReadAll()
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows[0], convey.ShouldResemble, []string{"replicate", "task", "worker", "class"})
				convey.So(len(rows)-1, convey.ShouldEqual, cfg.Replicates*cfg.Tasks*cfg.QueriesPerTask)

				perReplicate := map[string]int{}
				for _, row := range rows[1:] {
					convey.So(row[1], convey.ShouldNotEqual, "task")
					perReplicate[row[0]]++
				}
				convey.So(perReplicate, convey.ShouldResemble, map[string]int{"0": 2, "1": 2, "2": 2})
			})
		})

		convey.Convey("When an output directory and replicates are set", func() {
			dir := t.TempDir()
			cfg.OutputDir = dir
			cfg.Replicates = 3
			cfg.MetricsFile = filepath.Join(dir, "crowdsynth.prom")

			var out bytes.Buffer
			err := runGenerate(ctx, cfg, &out)

			convey.Convey("Then one bundle per replicate is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 0)
				for _, name := range []string{
					"replicate-000-labels.csv", "replicate-000-truth.csv", "replicate-000-crowd.csv",
					"replicate-002-labels.csv", "replicate-002-truth.csv",
				} {
					_, statErr := os.Stat(filepath.Join(dir, name))
					convey.So(statErr, convey.ShouldBeNil)
				}
			})

			convey.Convey("And the metrics textfile is dumped", func() {
				data, err := os.ReadFile(cfg.MetricsFile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, "crowdsynth")
			})
		})

		convey.Convey("When the policy is bonald with a shared reliability", func() {
			cfg.Policy = "bonald"
			cfg.Reliability = []float64{0.5}
			cfg.RatingRate = 1

			var out bytes.Buffer
			err := runGenerate(ctx, cfg, &out)

			convey.Convey("Then every worker labels every task", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Count(out.String(), "\n")
				convey.So(lines-1, convey.ShouldEqual, cfg.Tasks*cfg.Workers)
			})
		})

		convey.Convey("When the policy is unknown", func() {
			cfg.Policy = "round_robin"
			err := runGenerate(ctx, cfg, io.Discard)

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestApplyFlags(t *testing.T) {
	convey.Convey("Given the generate command", t, func() {
		cmd := newGenerateCmd()

		convey.Convey("When flags are set explicitly", func() {
			err := cmd.ParseFlags([]string{"--seed", "42", "--policy", "power_law", "--replicates", "4", "--out", "/tmp/x", "--log-level", "debug"})
			convey.So(err, convey.ShouldBeNil)
			cfg := config.New()
			applyFlags(cmd.Flags(), cfg)

			convey.Convey("Then they override the loaded config", func() {
				convey.So(cfg.Seed, convey.ShouldEqual, uint64(42))
				convey.So(cfg.Policy, convey.ShouldEqual, "power_law")
				convey.So(cfg.Replicates, convey.ShouldEqual, 4)
				convey.So(cfg.OutputDir, convey.ShouldEqual, "/tmp/x")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When no flags are set", func() {
			cfg := config.New()
			applyFlags(cmd.Flags(), cfg)

			convey.Convey("Then the config keeps its defaults", func() {
				convey.So(cfg.Seed, convey.ShouldEqual, uint64(1))
				convey.So(cfg.Policy, convey.ShouldEqual, "fixed")
				convey.So(cfg.Replicates, convey.ShouldEqual, 1)
				convey.So(cfg.OutputDir, convey.ShouldEqual, "")
			})
		})
	})
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("When running version", func() {
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"version"})
			err := root.Execute()

			convey.Convey("Then the version is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.TrimSpace(out.String()), convey.ShouldEqual, version)
			})
		})

		convey.Convey("When running generate with a config file", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "crowdsynth.yaml")
			yaml := "tasks: 10\nworkers: 5\nqueries_per_task: 2\nlog_level: error\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)

			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"generate", "--config", path, "--seed", "7"})
			err := root.Execute()

			convey.Convey("Then labels are written to stdout", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Count(out.String(), "\n")
				convey.So(lines-1, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When a flag overrides the policy a config file made invalid", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "crowdsynth.yaml")
			yaml := "policy: bonald\nclasses: 3\ntasks: 4\nworkers: 5\nqueries_per_task: 1\nlog_level: error\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)

			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"generate", "--config", path, "--policy", "fixed"})
			err := root.Execute()

			convey.Convey("Then generation runs under the overriding policy", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Count(out.String(), "\n")
				convey.So(lines-1, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the config is invalid after overrides", func() {
			root.SetOut(io.Discard)
			root.SetArgs([]string{"generate", "--policy", "round_robin"})
			err := root.Execute()

			convey.Convey("Then generate fails validation", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
