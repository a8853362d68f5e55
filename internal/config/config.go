// Package config loads application configuration from a YAML file and
// KRODIT_-prefixed environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	JWT       JWTConfig       `koanf:"jwt"`
	CORS      CORSConfig      `koanf:"cors"`
	Push      PushConfig      `koanf:"push"`
	Email     EmailConfig     `koanf:"email"`
	Reminders RemindersConfig `koanf:"reminders"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	Migrate         bool          `koanf:"migrate"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig contains token validation settings. Tokens are issued by the
// external identity provider using the shared secret.
type JWTConfig struct {
	SecretKey string `koanf:"secret_key"`
	Issuer    string `koanf:"issuer"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// PushConfig contains Web Push (VAPID) settings. When the keys are empty the
// push channel silently no-ops.
type PushConfig struct {
	VAPIDPublicKey  string        `koanf:"vapid_public_key"`
	VAPIDPrivateKey string        `koanf:"vapid_private_key"`
	Subject         string        `koanf:"subject"`
	SendTimeout     time.Duration `koanf:"send_timeout"`
	RateLimit       float64       `koanf:"rate_limit"`
}

// EmailConfig contains SMTP settings for the email reminder channel. When the
// host is empty the email channel silently no-ops.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// RemindersConfig contains reminder pipeline settings.
type RemindersConfig struct {
	// Timezone is the single authoritative IANA location used to compute
	// "today" everywhere in the pipeline.
	Timezone          string `koanf:"timezone"`
	BaseURL           string `koanf:"base_url"`
	DailyDisplayLimit int    `koanf:"daily_display_limit"`
	AlarmMinSeconds   int    `koanf:"alarm_min_seconds"`
}

// SchedulerConfig contains cron expressions for the periodic jobs. The
// advancement job is offset from the reminder job to avoid contention.
type SchedulerConfig struct {
	Enabled         bool   `koanf:"enabled"`
	ReminderCron    string `koanf:"reminder_cron"`
	AdvancementCron string `koanf:"advancement_cron"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			Migrate:         true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Push: PushConfig{
			Subject:     "mailto:admin@example.com",
			SendTimeout: 10 * time.Second,
			RateLimit:   20,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Reminders: RemindersConfig{
			Timezone:          "UTC",
			DailyDisplayLimit: 2,
			AlarmMinSeconds:   60,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			ReminderCron:    "0 * * * *",
			AdvancementCron: "5 * * * *",
		},
	}
}

// Load reads configuration from the given YAML file (optional) and
// environment variables. Sections are separated by a double underscore:
// KRODIT_DATABASE__URL overrides database.url, etc.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("KRODIT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "KRODIT_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if _, err := time.LoadLocation(c.Reminders.Timezone); err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}
	if c.Reminders.DailyDisplayLimit < 1 {
		return errors.New("reminders.daily_display_limit must be at least 1")
	}
	return nil
}

// Location returns the authoritative timezone for "today" computations.
// Config validation guarantees the name parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
