package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/devkit/pkg/config"
)

type options struct {
	configFile string
	format     string
	output     string

	agentsNum        int
	skillsNum        int
	inboxNum         int
	agentLoopTimeout time.Duration
	drainTimeout     time.Duration
	inboxBackend     string
	redisAddr        string
	metricsAddr      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "inboxbench",
		Short: "Measure how fast agents drain pre-filled inboxes",
		Long: `inboxbench builds a number of agents, fills each inbox with dummy
envelopes, starts every agent loop and measures the wall-clock time until all
inboxes are empty.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, opts, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	f.StringVar(&opts.format, "format", "text", "Output format: json, markdown, text")
	f.StringVar(&opts.output, "output", "", "Output file path (default: stdout)")
	f.IntVar(&opts.agentsNum, "agents-num", 2, "Number of agents")
	f.IntVar(&opts.skillsNum, "skills-num", 1, "Skills per agent")
	f.IntVar(&opts.inboxNum, "inbox-num", 1000, "Envelopes put in each inbox")
	f.DurationVar(&opts.agentLoopTimeout, "agent-loop-timeout", 10*time.Millisecond, "Pause between agent loop iterations")
	f.DurationVar(&opts.drainTimeout, "drain-timeout", 0, "Give up when inboxes are not drained in time (0 waits forever)")
	f.StringVar(&opts.inboxBackend, "inbox-backend", "memory", "Inbox backend: memory, redis")
	f.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address while running")

	return cmd
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("agents-num") {
		cfg.Bench.AgentsNum = opts.agentsNum
	}
	if f.Changed("skills-num") {
		cfg.Bench.SkillsNum = opts.skillsNum
	}
	if f.Changed("inbox-num") {
		cfg.Bench.InboxNum = opts.inboxNum
	}
	if f.Changed("agent-loop-timeout") {
		cfg.Bench.AgentLoopTimeout = opts.agentLoopTimeout
	}
	if f.Changed("drain-timeout") {
		cfg.Bench.DrainTimeout = opts.drainTimeout
	}
	if f.Changed("inbox-backend") {
		cfg.Inbox.Backend = opts.inboxBackend
	}
	if f.Changed("redis-addr") {
		cfg.Inbox.RedisAddr = opts.redisAddr
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
}
