package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the application configuration, loaded from the environment.
type Config struct {
	Environment string
	HTTPListen  string
	Bot         BotConfig
	Database    DatabaseConfig
	Scheduler   SchedulerConfig
}

type BotConfig struct {
	Token string
	Debug bool
	// EventsChannel is the default destination for one-off events created
	// without an explicit channel.
	EventsChannel string
}

type SchedulerConfig struct {
	// TopUpCron is the cron spec for the daily template top-up (UTC).
	TopUpCron string
	// PollSeconds is the reminder dispatch cadence.
	PollSeconds int
	// RemindOffsets are the default lead times (minutes) for events whose
	// template does not carry its own list.
	RemindOffsets []int64
}

// Load reads configuration from the environment (a .env file is picked up if
// present) and refuses to start on missing required values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Environment: env,
		HTTPListen:  getEnv("HTTP_LISTEN", ":8080"),
		Bot: BotConfig{
			Token:         getEnv("BOT_TOKEN", ""),
			Debug:         getEnvAsBool("BOT_DEBUG", env != "production"),
			EventsChannel: getEnv("EVENTS_CHANNEL", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Username: getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "rallypoint-db"),
			SSLMode:  getSSLMode(env),
		},
		Scheduler: SchedulerConfig{
			TopUpCron:     getEnv("TOPUP_CRON", "5 0 * * *"),
			PollSeconds:   getEnvAsInt("REMINDER_POLL_SECONDS", 30),
			RemindOffsets: parseOffsets(getEnv("EVENT_REMINDERS", ""), []int64{60, 15, 5}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate collects all missing required parameters in one pass.
func (c *Config) validate() error {
	var errs []string

	if c.Bot.Token == "" {
		errs = append(errs, "BOT_TOKEN is required")
	}
	if c.Database.Username == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.Database.Password == "" && c.Environment == "production" {
		errs = append(errs, "DB_PASSWORD is required in production")
	}
	if c.Scheduler.PollSeconds < 1 {
		errs = append(errs, "REMINDER_POLL_SECONDS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, ", "))
	}
	return nil
}

// parseOffsets parses a CSV of lead-time minutes like "60,15,5". Non-positive
// and malformed entries are dropped; an empty result falls back to def.
// Offsets are kept largest-first so reminders fire in sequence.
func parseOffsets(raw string, def []int64) []int64 {
	if strings.TrimSpace(raw) == "" {
		return def
	}

	seen := make(map[int64]bool)
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return def
	}

	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
