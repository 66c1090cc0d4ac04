// Package config loads herald's app configuration and the hot-reloadable
// message definitions file.
package config

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Report    ReportConfig    `yaml:"report"`
	Storage   StorageConfig   `yaml:"storage"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`

	// MessagesFile points at the message definitions YAML.
	MessagesFile string `yaml:"messages_file"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via
	// TELEGRAM_BOT_TOKEN instead.
	Token string `yaml:"token"`

	// AdminID receives run reports; override with ADMIN_USER_ID.
	AdminID int64 `yaml:"admin_id"`
}

type ScheduleConfig struct {
	Timezone  string `yaml:"timezone"`   // default Europe/Madrid
	DailyTime string `yaml:"daily_time"` // "HH:MM", default 15:00
}

type BroadcastConfig struct {
	Workers    int `yaml:"workers"`
	RatePerSec int `yaml:"rate_per_sec"`
}

type ReportConfig struct {
	// AttachReached uploads the reached-recipients JSON document alongside
	// the summary notice.
	AttachReached bool `yaml:"attach_reached"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`

	// BusyTimeout is a Go duration string (e.g. "500ms", "5s").
	BusyTimeout string `yaml:"busy_timeout"`
	HistoryMax  int    `yaml:"history_max"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`

	// Secret guards the run/test-send endpoints (Bearer token).
	// Override with CRON_SECRET. Empty disables the check.
	Secret string `yaml:"secret"`
}

type LoggingConfig struct {
	Level   string     `yaml:"level"`
	Console bool       `yaml:"console"`
	File    FileConfig `yaml:"file"`
}

type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
