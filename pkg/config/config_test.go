package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "west indies vs south africa", c.Trends.Keyword)
	assert.Equal(t, 5, c.Trends.MaxRetries)
	assert.Equal(t, 60*time.Second, c.Trends.InitialBackoff)
	assert.Equal(t, 7, c.Trends.WindowDays)
	assert.Equal(t, "none", c.Cooldown.Backend)
	assert.Equal(t, 10, c.Cooldown.Redis.PoolSize)
	assert.Equal(t, time.Minute, c.Cooldown.Memory.CleanupInterval)
	assert.Equal(t, 5, c.RateLimit.Burst)
	assert.False(t, c.Server.CORS.Enabled)
	assert.False(t, c.Kafka.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
trends:
  keyword: golang
  max_retries: 3
  initial_backoff: 2s
  max_backoff: 30s
  share_boundary: true
metrics:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, "golang", c.Trends.Keyword)
	assert.Equal(t, 3, c.Trends.MaxRetries)
	assert.Equal(t, 2*time.Second, c.Trends.InitialBackoff)
	assert.Equal(t, 30*time.Second, c.Trends.MaxBackoff)
	assert.True(t, c.Trends.ShareBoundary)
	assert.False(t, c.Metrics.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero retries":         "trends:\n  max_retries: 0\n",
		"cap below initial":    "trends:\n  initial_backoff: 10s\n  max_backoff: 1s\n",
		"kafka no brokers":     "kafka:\n  enabled: true\n  brokers: []\n",
		"unknown cooldown":     "cooldown:\n  backend: disk\n",
		"unknown log format":   "log:\n  format: xml\n",
		"negative backoff":     "trends:\n  initial_backoff: -1s\n",
		"window out of range":  "trends:\n  window_days: 0\n",
		"cors without origins": "server:\n  cors:\n    enabled: true\n",
		"zero burst":           "ratelimit:\n  burst: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))

	t.Setenv("TRENDS_KEYWORD", "cricket")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("COOLDOWN_BACKEND", "memory")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "cricket", c.Trends.Keyword)
	assert.Equal(t, "memory", c.Cooldown.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
