package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Env var names shared with the original deployment.
const (
	EnvToken   = "TELEGRAM_BOT_TOKEN"
	EnvAdminID = "ADMIN_USER_ID"
	EnvSecret  = "CRON_SECRET"
)

// Load reads the app config file, applies env overrides and validates the
// result. A missing credential is a configuration error: the run never
// starts half-wired.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAdminID)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.AdminID = id
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSecret)); v != "" {
		cfg.HTTP.Secret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Europe/Madrid"
	}
	if cfg.Schedule.DailyTime == "" {
		cfg.Schedule.DailyTime = "15:00"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/herald.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.MessagesFile == "" {
		cfg.MessagesFile = "./messages.yaml"
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or set " + EnvToken + ")")
	}
	if cfg.Telegram.AdminID == 0 {
		return errors.New("telegram.admin_id is required (or set " + EnvAdminID + ")")
	}
	return nil
}
