package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	tracing "github.com/aixgo-dev/devkit/internal/observability"
	"github.com/aixgo-dev/devkit/pkg/observability"
)

type watchOptions struct {
	checkOptions
	schedule    string
	metricsAddr string
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-verify the manifest on a schedule and export the results as metrics",
		Long: `watch runs the manifest checks once, then again on every tick of a cron
schedule ("@every 1h", "0 * * * *") until interrupted. Check outcomes are
exported on /metrics when --metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Docs.Manifest = opts.manifest
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = opts.metricsAddr
			}

			log, shutdown, err := setup(cfg, "docverify")
			if err != nil {
				return err
			}
			defer shutdown()
			verifier := newVerifier(cfg, &opts.checkOptions, log, observability.InitMetrics())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			verify := func(ctx context.Context, w io.Writer) error {
				err := verifyManifest(ctx, verifier, cfg.Docs.Manifest, opts.format, w)
				if ferr := tracing.ForceFlush(ctx); ferr != nil {
					log.Warn().Err(ferr).Msg("tracing flush failed")
				}
				return err
			}
			return runWatch(ctx, cfg.Docs.Manifest, cfg.Metrics.Addr, opts.schedule, verify, cmd.OutOrStdout())
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.schedule, "schedule", "@every 1h", "Cron schedule of the checks")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	return cmd
}

// runWatch runs verify immediately and then on every schedule tick until ctx
// is done. Failed checks are reported but do not stop the watch.
func runWatch(ctx context.Context, manifest, metricsAddr, schedule string,
	verify func(context.Context, io.Writer) error, stdout io.Writer) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	runOnce := func() {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(stdout, "=== %s %s ===\n", time.Now().Format(time.RFC3339), manifest)
		if err := verify(gctx, stdout); err != nil && !errors.Is(err, errChecksFailed) {
			_, _ = fmt.Fprintf(stdout, "error: %v\n", err)
		}
	}

	if metricsAddr != "" {
		server := observability.NewServer(metricsAddr, observability.InitMetrics())
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		runOnce()

		c := cron.New()
		if _, err := c.AddFunc(schedule, runOnce); err != nil {
			return err
		}
		c.Start()
		<-gctx.Done()
		<-c.Stop().Done()
		return nil
	})
	return g.Wait()
}
