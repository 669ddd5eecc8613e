package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides:
// DEVKIT_BENCH_AGENTS_NUM -> bench.agents_num.
const EnvPrefix = "DEVKIT_"

// Config represents the devkit configuration shared by both commands.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Bench   BenchConfig   `koanf:"bench"`
	Inbox   InboxConfig   `koanf:"inbox"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Docs    DocsConfig    `koanf:"docs"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, console
}

// BenchConfig holds the inbox-flood benchmark parameters.
type BenchConfig struct {
	AgentsNum        int           `koanf:"agents_num"`
	SkillsNum        int           `koanf:"skills_num"`
	InboxNum         int           `koanf:"inbox_num"`
	AgentLoopTimeout time.Duration `koanf:"agent_loop_timeout"`
	PollInterval     time.Duration `koanf:"poll_interval"`
	DrainTimeout     time.Duration `koanf:"drain_timeout"` // 0 waits forever
	MaxReactions     int           `koanf:"max_reactions"`
}

type InboxConfig struct {
	Backend     string `koanf:"backend"` // memory, redis
	RedisAddr   string `koanf:"redis_addr"`
	RedisPrefix string `koanf:"redis_prefix"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the metrics server
}

type TracingConfig struct {
	Exporter string `koanf:"exporter"` // none, stdout, otlp
	Endpoint string `koanf:"endpoint"`
}

// DocsConfig holds the Markdown verifier settings.
type DocsConfig struct {
	Manifest    string `koanf:"manifest"`
	HeaderLines int    `koanf:"header_lines"`
	Language    string `koanf:"language"`
}

var defaults = map[string]any{
	"log.level":                "info",
	"log.format":               "console",
	"bench.agents_num":         2,
	"bench.skills_num":         1,
	"bench.inbox_num":          1000,
	"bench.agent_loop_timeout": "10ms",
	"bench.poll_interval":      "100ms",
	"bench.drain_timeout":      "0s",
	"bench.max_reactions":      20,
	"inbox.backend":            "memory",
	"inbox.redis_addr":         "localhost:6379",
	"inbox.redis_prefix":       "devkit:inbox:",
	"metrics.addr":             "",
	"tracing.exporter":         "none",
	"tracing.endpoint":         "",
	"docs.manifest":            "docs/verify.yaml",
	"docs.header_lines":        21,
	"docs.language":            "go",
}

// Load builds the configuration from defaults, then the YAML file at path
// (optional), then DEVKIT_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		// Only the section separator becomes a dot; keys keep underscores.
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Inbox.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("inbox.backend: unknown backend %q", c.Inbox.Backend)
	}

	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter)
	}

	if c.Docs.HeaderLines < 0 {
		return fmt.Errorf("docs.header_lines must not be negative")
	}
	return nil
}
