package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aixgo-dev/devkit/internal/docs"
	"github.com/aixgo-dev/devkit/internal/logger"
	tracing "github.com/aixgo-dev/devkit/internal/observability"
	"github.com/aixgo-dev/devkit/pkg/config"
	"github.com/aixgo-dev/devkit/pkg/observability"
)

// errChecksFailed is returned when at least one document fails verification.
var errChecksFailed = errors.New("documentation checks failed")

type checkOptions struct {
	manifest    string
	format      string
	execTimeout time.Duration
}

func (o *checkOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.manifest, "manifest", "docs/verify.yaml", "Manifest listing the documents to verify")
	cmd.Flags().StringVar(&o.format, "format", "text", "Output format: text, json")
	cmd.Flags().DurationVar(&o.execTimeout, "exec-timeout", 30*time.Second, "Time limit for each executed code block")
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify every document listed in a manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Docs.Manifest = opts.manifest
			}
			return runCheck(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func loadConfig(g *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// setup builds the logger and tracing shared by the subcommands. The returned
// func flushes tracing.
func setup(cfg *config.Config, service string) (zerolog.Logger, func(), error) {
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	if err := tracing.Init(tracing.Config{
		ServiceName:  service,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.Endpoint,
	}); err != nil {
		return log, nil, fmt.Errorf("init tracing: %w", err)
	}
	return log, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}, nil
}

func newVerifier(cfg *config.Config, opts *checkOptions, log zerolog.Logger, metrics *observability.Metrics) *docs.Verifier {
	executor := docs.NewExecutor(
		docs.WithTimeout(opts.execTimeout),
		docs.WithLogger(log),
		docs.WithMetrics(metrics),
	)
	return docs.NewVerifier(
		docs.WithExecutor(executor),
		docs.WithVerifierLogger(log),
		docs.WithVerifierMetrics(metrics),
		docs.WithDefaults(cfg.Docs.Language, cfg.Docs.HeaderLines),
	)
}

type checkReport struct {
	Doc    string            `json:"doc"`
	Passed bool              `json:"passed"`
	Blocks int               `json:"blocks"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func runCheck(ctx context.Context, cfg *config.Config, opts *checkOptions, stdout io.Writer) error {
	log, shutdown, err := setup(cfg, "docverify")
	if err != nil {
		return err
	}
	defer shutdown()

	verifier := newVerifier(cfg, opts, log, observability.InitMetrics())
	return verifyManifest(ctx, verifier, cfg.Docs.Manifest, opts.format, stdout)
}

// verifyManifest verifies every document of the manifest at path and prints
// one report per document.
func verifyManifest(ctx context.Context, verifier *docs.Verifier, path, format string, stdout io.Writer) error {
	manifest, err := docs.LoadManifest(path)
	if err != nil {
		return err
	}

	results := verifier.VerifyAll(ctx, manifest)

	reports := make([]checkReport, 0, len(results))
	failed := 0
	for _, r := range results {
		rep := checkReport{Doc: r.Doc, Passed: r.Passed(), Blocks: r.Blocks}
		if len(r.Checks) > 0 {
			rep.Checks = make(map[string]string, len(r.Checks))
			for _, c := range r.Checks {
				rep.Checks[c.Name] = "pass"
				if !c.Passed() {
					rep.Checks[c.Name] = "fail"
				}
			}
		}
		if err := r.Err(); err != nil {
			rep.Error = err.Error()
			failed++
		}
		reports = append(reports, rep)
	}

	if err := printReports(reports, format, stdout); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d documents", errChecksFailed, failed, len(results))
	}
	return nil
}

func printReports(reports []checkReport, format string, w io.Writer) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "text":
		for _, r := range reports {
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
			}
			if _, err := fmt.Fprintf(w, "%s %s (%d blocks)\n", status, r.Doc, r.Blocks); err != nil {
				return err
			}
			if r.Error != "" {
				if _, err := fmt.Fprintf(w, "  %s\n", r.Error); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
