package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BackupConfig controls the periodic database backup.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Auth struct {
		SessionTTLMinutes int `yaml:"session_ttl_minutes"`
	} `yaml:"auth"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		MinAdvanceMinutes      int    `yaml:"min_advance_minutes"`
		MaxAdvanceDays         int    `yaml:"max_advance_days"`
		ReminderHoursBefore    int    `yaml:"reminder_hours_before"`
		RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
		Timezone               string `yaml:"timezone"`
	} `yaml:"booking"`

	Telegram struct {
		BotToken       string  `yaml:"bot_token"`
		ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
	} `yaml:"telegram"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/clinicbook.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BookingMinAdvance is the minimum lead time before a slot can be booked.
// Zero config means no lead-time rule beyond "not in the past".
func (c *Config) BookingMinAdvance() time.Duration {
	if c.Booking.MinAdvanceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

// BookingMaxAdvance is how far ahead a slot can be booked.
func (c *Config) BookingMaxAdvance() time.Duration {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.Booking.MaxAdvanceDays) * 24 * time.Hour
}

// ReminderWindow is how long before the slot a reminder goes out.
func (c *Config) ReminderWindow() time.Duration {
	if c.Booking.ReminderHoursBefore <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Booking.ReminderHoursBefore) * time.Hour
}

// RefreshInterval is the temporal-status sweep period. The appointment list
// in the original client repolled every minute; the sweep matches that.
func (c *Config) RefreshInterval() time.Duration {
	if c.Booking.RefreshIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Booking.RefreshIntervalSeconds) * time.Second
}

// SessionTTL is how long a login session stays valid.
func (c *Config) SessionTTL() time.Duration {
	if c.Auth.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}

// Location resolves the clinic timezone, defaulting to local time.
func (c *Config) Location() *time.Location {
	if c.Booking.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
