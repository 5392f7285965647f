package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9991", cfg.App.HTTPAddr)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 2, cfg.Resilience.SuccessThreshold)
	assert.Equal(t, 60, cfg.Resilience.RecoveryTimeoutSeconds)
	assert.Equal(t, 3, cfg.Resilience.MaxRetries)
	assert.Equal(t, 1000, cfg.Resilience.BaseDelayMS)
	assert.Equal(t, 10000, cfg.Resilience.MaxDelayMS)
	assert.Equal(t, 30, cfg.Resilience.AttemptTimeoutSeconds)
	assert.InDelta(t, 0.2, cfg.Resilience.Jitter, 1e-12)
	assert.True(t, cfg.Resilience.FailFastOnOpen)
	assert.Equal(t, "debate", cfg.Judge.ArbitrationMode)
	assert.InDelta(t, 0.15, cfg.Judge.DebateMargin, 1e-12)
	assert.InDelta(t, 0.7, cfg.Judge.VetoThreshold, 1e-12)
	assert.Equal(t, 15, cfg.Judge.CooldownMinutes)
	assert.Equal(t, "balanced", cfg.Trading.RiskMode)
	assert.InDelta(t, 0.0001, cfg.Trading.PipSize, 1e-12)
	assert.Equal(t, "sentinel.decisions", cfg.Kafka.Topic)
	assert.False(t, cfg.LLM.Enabled)
}

func TestLoadExplicitZeroesSurvive(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[judge]
cooldown_minutes = 0

[resilience]
fail_fast_on_open = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Judge.CooldownMinutes)
	assert.False(t, cfg.Resilience.FailFastOnOpen)
}

func TestLoadIncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.toml", `
[trading]
risk_mode = "safe"
min_stop_pips = 20

[judge]
cooldown_minutes = 30
`)
	path := writeFile(t, dir, "config.toml", `
include = ["base.toml"]

[trading]
risk_mode = "Sniper"

[kafka]
enabled = true
brokers = ["k1:9092", "k1:9092", " k2:9092 "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sniper", cfg.Trading.RiskMode)
	assert.Equal(t, 20, cfg.Trading.MinStopPips)
	assert.Equal(t, 30, cfg.Judge.CooldownMinutes)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.toml", `include = ["b.toml"]`)
	writeFile(t, dir, "b.toml", `include = ["a.toml"]`)
	_, err := Load(filepath.Join(dir, "a.toml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_JUDGE_COOLDOWN_MINUTES", "5")
	t.Setenv("SENTINEL_LLM_API_KEY", "sk-test")
	t.Setenv("SENTINEL_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("SENTINEL_REDIS_ENABLED", "true")

	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[judge]
cooldown_minutes = 45
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Judge.CooldownMinutes)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"arbitration mode", "[judge]\narbitration_mode = \"vote\"\n", "judge.arbitration_mode"},
		{"risk mode", "[trading]\nrisk_mode = \"yolo\"\n", "trading.risk_mode"},
		{"delays", "[resilience]\nbase_delay_ms = 5000\nmax_delay_ms = 100\n", "max_delay_ms"},
		{"kafka brokers", "[kafka]\nenabled = true\n", "kafka.brokers"},
		{"telegram", "[notify.telegram]\nenabled = true\n", "notify.telegram"},
		{"llm provider", "[llm]\nenabled = true\nprovider = \"bard\"\n", "llm.provider"},
		{"log format", "[app]\nlog_format = \"xml\"\n", "app.log_format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.toml", tc.body)
			_, err := Load(path)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestConfigKeys(t *testing.T) {
	keys := configKeys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, keys, "notify.telegram.bot_token")
	assert.Contains(t, keys, "trading.indicators.cache_ttl_seconds")
	assert.NotContains(t, keys, "llm.headers")
}
