package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tickgauge/internal/model"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv(EnvAPIBase, "")

	cfg := New("space-game", "pk_123", "1.2.0")

	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.Equal(t, 10_000, cfg.MaxQueue)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 6*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ModeLive, cfg.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestAPIBaseEnvOverride(t *testing.T) {
	t.Setenv(EnvAPIBase, "http://localhost:8787/")

	cfg := New("space-game", "pk_123", "1.2.0")

	assert.Equal(t, "http://localhost:8787/v1/events/batch", cfg.URL("events/batch"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPublicKey, "pk_env")
	t.Setenv(EnvMode, "DEV")

	cfg := FromEnv("space-game", "0.1.0")

	assert.Equal(t, "pk_env", cfg.PublicKey)
	assert.Equal(t, ModeDev, cfg.Mode)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		want   error
	}{
		"missing key": {mutate: func(c *Config) { c.PublicKey = "  " }, want: model.ErrMissingPublicKey},
		"disabled":    {mutate: func(c *Config) { c.Mode = ModeDisabled }, want: model.ErrDisabled},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := New("g", "pk", "1")
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}

	cfg := New("g", "pk", "1")
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Disabled")
	assert.NoError(t, err)
	assert.Equal(t, ModeDisabled, m)

	_, err = ParseMode("turbo")
	assert.Error(t, err)
}

func TestArchiveDefaults(t *testing.T) {
	a := Archive{Dir: "/tmp/x"}.WithDefaults()

	assert.True(t, a.Enabled())
	assert.NotEmpty(t, a.InstanceID)
	assert.Equal(t, 256, a.BatchSize)
	assert.Equal(t, "captures", a.Prefix)
	assert.False(t, Archive{}.Enabled())
}
