package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *Config {
	t.Helper()
	var cfg Config
	require.NoError(t, newViper().Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, 10*time.Second, cfg.Alert.NotifyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Alert.FeedTimeout)
	assert.Equal(t, "postgres", cfg.Alert.StoreDriver)
	assert.Equal(t, "1d", cfg.Signal.DefaultTimeframe)

	require.Len(t, cfg.Scheduler.Jobs, 3)
	assert.Equal(t, "check-alerts", cfg.Scheduler.Jobs[0].Name)
	assert.Equal(t, 50*time.Second, cfg.Scheduler.Jobs[0].Timeout)
}

func TestEnvOverride(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name:  "notify timeout is independent of telegram",
			env:   "ALERT_NOTIFY_TIMEOUT",
			value: "3s",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3*time.Second, cfg.Alert.NotifyTimeout)
				assert.Equal(t, 10*time.Second, cfg.Telegram.TimeoutDuration)
			},
		},
		{
			name:  "store driver",
			env:   "ALERT_STORE_DRIVER",
			value: "memory",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "memory", cfg.Alert.StoreDriver)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			tt.check(t, load(t))
		})
	}
}

func TestAssetByID(t *testing.T) {
	s := Signal{Assets: []Asset{{ID: "bitcoin", Symbol: "BTC", Pair: "BTCUSDT"}}}

	assert.Equal(t, "BTC", s.AssetByID("Bitcoin").Symbol)
	assert.Equal(t, Asset{ID: "solana", Symbol: "SOLANA", Pair: "SOLANAUSDT"}, s.AssetByID("solana"))
}
