package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://api.steampowered.com", cfg.SteamAPIBase)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "730", cfg.AppID)
	assert.Equal(t, "steam://", cfg.Protocol)
	assert.Equal(t, "+gcconnect", cfg.ConnectPrefix)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CJ_HTTP_LISTEN_ADDR", ":9999")
	t.Setenv("CJ_JOIN_POLL_INTERVAL_MS", "250")
	t.Setenv("CJ_STEAM_SELF_ID", "76561198999999999")
	t.Setenv("CJ_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "76561198999999999", cfg.SelfID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero poll interval", "CJ_JOIN_POLL_INTERVAL_MS", "0"},
		{"negative poll interval", "CJ_JOIN_POLL_INTERVAL_MS", "-5"},
		{"protocol without scheme separator", "CJ_JOIN_PROTOCOL", "steam"},
		{"unknown log level", "CJ_LOG_LEVEL", "loud"},
		{"blank app id", "CJ_JOIN_APP_ID", " "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
