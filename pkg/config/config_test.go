package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Bench.AgentsNum)
	assert.Equal(t, 1, cfg.Bench.SkillsNum)
	assert.Equal(t, 1000, cfg.Bench.InboxNum)
	assert.Equal(t, 10*time.Millisecond, cfg.Bench.AgentLoopTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Bench.PollInterval)
	assert.Zero(t, cfg.Bench.DrainTimeout)
	assert.Equal(t, "memory", cfg.Inbox.Backend)
	assert.Equal(t, 21, cfg.Docs.HeaderLines)
	assert.Equal(t, "go", cfg.Docs.Language)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
bench:
  agents_num: 4
  agent_loop_timeout: 25ms
inbox:
  backend: redis
  redis_addr: redis:6379
docs:
  header_lines: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Bench.AgentsNum)
	assert.Equal(t, 1000, cfg.Bench.InboxNum)
	assert.Equal(t, 25*time.Millisecond, cfg.Bench.AgentLoopTimeout)
	assert.Equal(t, "redis", cfg.Inbox.Backend)
	assert.Equal(t, "redis:6379", cfg.Inbox.RedisAddr)
	assert.Equal(t, 3, cfg.Docs.HeaderLines)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
bench:
  agents_num: 4
`)
	t.Setenv("DEVKIT_BENCH_AGENTS_NUM", "8")
	t.Setenv("DEVKIT_INBOX_REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Bench.AgentsNum)
	assert.Equal(t, "cache:6380", cfg.Inbox.RedisAddr)
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/devkit.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, `
inbox:
  backend: kafka
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox.backend")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Inbox:   InboxConfig{Backend: "memory"},
		Tracing: TracingConfig{Exporter: "stdout"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Tracing.Exporter = "zipkin"
	assert.Error(t, cfg.Validate())

	cfg.Tracing.Exporter = "none"
	cfg.Docs.HeaderLines = -1
	assert.Error(t, cfg.Validate())
}
