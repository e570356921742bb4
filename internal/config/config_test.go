package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5000, cfg.Analyzer.SampleSize)
	assert.Equal(t, 5, cfg.Planner.DefaultTopN)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.False(t, cfg.Insight.Enabled)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finsight.yaml")
	data := `
server:
  addr: ":9090"
analyzer:
  sample_size: 1000
session:
  ttl: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Analyzer.SampleSize)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)

	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Planner.DefaultTopN)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("FINSIGHT_INSIGHT_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Insight.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/finsight.yaml")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
