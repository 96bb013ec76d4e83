package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigName = "config"

type Config struct {
	ListenAddr string

	// Presence API endpoint and credential. The key may be empty at
	// boot: the UI can supply one per join request instead.
	SteamAPIBase string
	SteamAPIKey  string

	// SelfID is the user's own account id, used for server-id
	// comparison after a connect attempt.
	SelfID string

	PollInterval  time.Duration
	AppID         string
	Protocol      string
	ConnectPrefix string

	LogLevel string
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetEnvPrefix("CJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("steam.api_base", "https://api.steampowered.com")
	v.SetDefault("steam.api_key", "")
	v.SetDefault("steam.self_id", "")
	v.SetDefault("join.poll_interval_ms", 500)
	v.SetDefault("join.app_id", "730")
	v.SetDefault("join.protocol", "steam://")
	v.SetDefault("join.connect_prefix", "+gcconnect")
	v.SetDefault("log.level", "info")

	// Config file is optional; env-only is fine.
	_ = v.ReadInConfig()

	cfg := Config{
		ListenAddr:    strings.TrimSpace(v.GetString("http.listen_addr")),
		SteamAPIBase:  strings.TrimRight(strings.TrimSpace(v.GetString("steam.api_base")), "/"),
		SteamAPIKey:   strings.TrimSpace(v.GetString("steam.api_key")),
		SelfID:        strings.TrimSpace(v.GetString("steam.self_id")),
		PollInterval:  time.Duration(v.GetInt("join.poll_interval_ms")) * time.Millisecond,
		AppID:         strings.TrimSpace(v.GetString("join.app_id")),
		Protocol:      v.GetString("join.protocol"),
		ConnectPrefix: v.GetString("join.connect_prefix"),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
	}

	if cfg.ListenAddr == "" {
		return Config{}, fmt.Errorf("http.listen_addr must not be empty")
	}
	if cfg.SteamAPIBase == "" {
		return Config{}, fmt.Errorf("steam.api_base must not be empty")
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("invalid join.poll_interval_ms %d", v.GetInt("join.poll_interval_ms"))
	}
	if cfg.AppID == "" {
		return Config{}, fmt.Errorf("join.app_id must not be empty")
	}
	if !strings.HasSuffix(cfg.Protocol, "://") {
		return Config{}, fmt.Errorf("invalid join.protocol %q", cfg.Protocol)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid log.level %q", cfg.LogLevel)
	}
	return cfg, nil
}
