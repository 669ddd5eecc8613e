package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aixgo-dev/devkit/agent"
	"github.com/aixgo-dev/devkit/internal/bench"
	"github.com/aixgo-dev/devkit/internal/logger"
	tracing "github.com/aixgo-dev/devkit/internal/observability"
	"github.com/aixgo-dev/devkit/pkg/config"
	"github.com/aixgo-dev/devkit/pkg/observability"
)

func run(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	if err := tracing.Init(tracing.Config{
		ServiceName:  "inboxbench",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.Endpoint,
	}); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	metrics := observability.InitMetrics()
	driverOpts := []bench.Option{
		bench.WithPollInterval(cfg.Bench.PollInterval),
		bench.WithDrainTimeout(cfg.Bench.DrainTimeout),
		bench.WithMaxReactions(cfg.Bench.MaxReactions),
		bench.WithLogger(log),
		bench.WithMetrics(metrics),
	}

	var checks []observability.HealthCheck
	if cfg.Inbox.Backend == "redis" {
		store, err := agent.NewRedisStore(agent.RedisConfig{Addr: cfg.Inbox.RedisAddr, Prefix: cfg.Inbox.RedisPrefix})
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		driverOpts = append(driverOpts, bench.WithInboxFactory(func(ctx context.Context, name string) (agent.Inbox, error) {
			return store.Inbox(ctx, name)
		}))
		checks = append(checks, observability.HealthCheck{Name: "redis", CheckFunc: store.Ping})
	}

	params := bench.Params{
		AgentsNum:        cfg.Bench.AgentsNum,
		SkillsNum:        cfg.Bench.SkillsNum,
		InboxNum:         cfg.Bench.InboxNum,
		AgentLoopTimeout: cfg.Bench.AgentLoopTimeout,
	}

	control := bench.NewControl()
	var result *bench.Result

	g, gctx := errgroup.WithContext(ctx)
	var server *observability.Server
	if cfg.Metrics.Addr != "" {
		server = observability.NewServer(cfg.Metrics.Addr, metrics, checks...)
		g.Go(func() error {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
			return server.Start()
		})
	}
	g.Go(func() error {
		if server != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()
		}
		log.Info().
			Int("agents", params.AgentsNum).
			Int("skills", params.SkillsNum).
			Int("inbox", params.InboxNum).
			Dur("loop_timeout", params.AgentLoopTimeout).
			Str("backend", cfg.Inbox.Backend).
			Msg("running benchmark")

		var err error
		result, err = bench.NewDriver(driverOpts...).ReactSpeedInLoop(gctx, control, params)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run benchmark: %w", err)
	}

	report := &bench.Report{
		Version:     bench.ReportVersion,
		GeneratedAt: time.Now(),
		GitCommit:   getGitCommit(),
		GitBranch:   getGitBranch(),
		Environment: getEnvironment(),
		Inbox:       cfg.Inbox.Backend,
		Case:        bench.CaseName,
		Params:      params,
		Result:      result,
		Elapsed:     control.Elapsed(),
	}
	return writeReport(report, bench.OutputFormat(opts.format), opts.output, stdout, log)
}

func writeReport(report *bench.Report, format bench.OutputFormat, outputFile string, stdout io.Writer, log zerolog.Logger) error {
	writer := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile) // #nosec G304 - user-provided CLI argument
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		writer = f
	}

	if err := bench.FormatReport(report, format, writer); err != nil {
		return fmt.Errorf("format report: %w", err)
	}

	// Keep a JSON copy next to non-JSON output files.
	if outputFile != "" && format != bench.FormatJSON {
		jsonPath := strings.TrimSuffix(outputFile, "."+string(format)) + ".json"
		if err := bench.SaveReport(report, jsonPath); err != nil {
			log.Warn().Err(err).Str("path", jsonPath).Msg("could not save JSON report")
		}
	}
	return nil
}

func getGitCommit() string {
	if commit := os.Getenv("GITHUB_SHA"); commit != "" {
		return commit
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func getGitBranch() string {
	if ref := os.Getenv("GITHUB_REF_NAME"); ref != "" {
		return ref
	}
	out, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func getEnvironment() string {
	if os.Getenv("CI") != "" {
		return "ci"
	}
	return "local"
}
