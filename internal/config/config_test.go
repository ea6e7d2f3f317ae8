package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"FLOOD_MEMORY_DIR", "FLOOD_MEMORY_HOST", "FLOOD_MEMORY_PORT", "FLOOD_MEMORY_AUTH_TOKEN",
		"FLOOD_MEMORY_BACKEND", "FLOOD_MEMORY_LOG_LEVEL", "FLOOD_MEMORY_LOG_FORMAT",
		"FLOOD_MEMORY_WEBHOOK_URL", "FLOOD_MEMORY_TRACING",
		"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "flood", "memory"), cfg.Dir)
	assert.Equal(t, filepath.Join(home, "flood", "memory", "memory.db"), cfg.DatabasePath())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Empty(t, cfg.AuthToken)
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flood.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dir: /var/lib/flood
port: 9000
auth_token: from-file
log:
  level: debug
webhook_url: http://hooks.local/flood
webhook_events: [node.created]
`), 0644))

	t.Setenv("FLOOD_MEMORY_PORT", "9100")
	t.Setenv("FLOOD_MEMORY_AUTH_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/flood", cfg.Dir)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "from-env", cfg.AuthToken)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"node.created"}, cfg.WebhookEvents)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("FLOOD_MEMORY_PORT", "eighty")
	_, err = Load("")
	assert.ErrorContains(t, err, "FLOOD_MEMORY_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "neo4j", mutate: func(c *Config) { c.Backend = BackendNeo4j }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "redis" }, wantErr: "unknown backend"},
		{name: "port", mutate: func(c *Config) { c.Port = 0 }, wantErr: "port 0 out of range"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "unknown log level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	cfg := Default()
	cfg.Dir = filepath.Join(t.TempDir(), "nested", "memory")

	require.NoError(t, cfg.EnsureDir())
	info, err := os.Stat(cfg.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
