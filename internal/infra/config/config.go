package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// durationSeconds parses env as time.Duration: "10s", "5m" or bare number = seconds (e.g. "10" -> 10s).
type durationSeconds time.Duration

// SetValue implements cleanenv.Setter.
func (d *durationSeconds) SetValue(data string) error {
	v, err := parseDuration(data)
	if err != nil {
		return err
	}
	*d = durationSeconds(v)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

func (d durationSeconds) Duration() time.Duration { return time.Duration(d) }

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL     string          `env:"DATABASE_URL" env-required:"true"`
	TelegramToken   string          `env:"TELEGRAM_TOKEN"` // empty: pushes are only logged
	RedisURL        string          `env:"REDIS_URL"`      // empty: no cross-process lease
	LogLevel        string          `env:"LOG_LEVEL" env-default:"info"`
	Environment     string          `env:"ENVIRONMENT" env-default:"development"`
	HTTPAddr        string          `env:"HTTP_ADDR" env-default:":8080"`
	DefaultTimeZone string          `env:"DEFAULT_TIMEZONE" env-default:"UTC"`
	JobTimeout      durationSeconds `env:"JOB_TIMEOUT" env-default:"5m"`
	LeaseTTL        durationSeconds `env:"LEASE_TTL" env-default:"10m"`
	SettingsTTL     durationSeconds `env:"SETTINGS_CACHE_TTL" env-default:"30s"`

	Cron      CronConfig
	Reminders ReminderConfig
}

// CronConfig holds the standard 5-field spec and evaluation zone of every job.
type CronConfig struct {
	IncomeSpec               string `env:"CRON_SPEC_INCOME" env-default:"5 0 * * *"`
	IncomeTZ                 string `env:"CRON_TZ_INCOME" env-default:"UTC"`
	ExpenseSpec              string `env:"CRON_SPEC_EXPENSE" env-default:"10 0 * * *"`
	ExpenseTZ                string `env:"CRON_TZ_EXPENSE" env-default:"UTC"`
	BudgetSpec               string `env:"CRON_SPEC_BUDGET" env-default:"5 0 * * *"`
	BudgetTZ                 string `env:"CRON_TZ_BUDGET" env-default:"UTC"`
	RolloverSpec             string `env:"CRON_SPEC_DATE_NIGHT_ROLLOVER" env-default:"0 * * * *"`
	RolloverTZ               string `env:"CRON_TZ_DATE_NIGHT_ROLLOVER" env-default:"UTC"`
	AppointmentRemindersSpec string `env:"CRON_SPEC_APPOINTMENT_REMINDERS" env-default:"* * * * *"`
	AppointmentRemindersTZ   string `env:"CRON_TZ_APPOINTMENT_REMINDERS" env-default:"UTC"`
	DateNightRemindersSpec   string `env:"CRON_SPEC_DATE_NIGHT_REMINDERS" env-default:"* * * * *"`
	DateNightRemindersTZ     string `env:"CRON_TZ_DATE_NIGHT_REMINDERS" env-default:"UTC"`
	DebtRemindersSpec        string `env:"CRON_SPEC_DEBT_REMINDERS" env-default:"0 8 * * *"`
	DebtRemindersTZ          string `env:"CRON_TZ_DEBT_REMINDERS" env-default:"UTC"`
}

// ReminderConfig holds lead times and tolerance windows. Tolerance must stay below lead.
type ReminderConfig struct {
	AppointmentLead      durationSeconds `env:"APPOINTMENT_REMINDER_LEAD" env-default:"60m"`
	AppointmentTolerance durationSeconds `env:"APPOINTMENT_REMINDER_TOLERANCE" env-default:"1m"`
	DateNightLead        durationSeconds `env:"DATE_NIGHT_REMINDER_LEAD" env-default:"60m"`
	DateNightTolerance   durationSeconds `env:"DATE_NIGHT_REMINDER_TOLERANCE" env-default:"1m"`
	DebtLead             durationSeconds `env:"DEBT_REMINDER_LEAD" env-default:"24h"`
	DebtTolerance        durationSeconds `env:"DEBT_REMINDER_TOLERANCE" env-default:"12h"`
}

type cronEntry struct {
	name, spec, zone string
}

func (c CronConfig) entries() []cronEntry {
	return []cronEntry{
		{"CRON_SPEC_INCOME", c.IncomeSpec, c.IncomeTZ},
		{"CRON_SPEC_EXPENSE", c.ExpenseSpec, c.ExpenseTZ},
		{"CRON_SPEC_BUDGET", c.BudgetSpec, c.BudgetTZ},
		{"CRON_SPEC_DATE_NIGHT_ROLLOVER", c.RolloverSpec, c.RolloverTZ},
		{"CRON_SPEC_APPOINTMENT_REMINDERS", c.AppointmentRemindersSpec, c.AppointmentRemindersTZ},
		{"CRON_SPEC_DATE_NIGHT_REMINDERS", c.DateNightRemindersSpec, c.DateNightRemindersTZ},
		{"CRON_SPEC_DEBT_REMINDERS", c.DebtRemindersSpec, c.DebtRemindersTZ},
	}
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if _, err := time.LoadLocation(c.DefaultTimeZone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimeZone, err)
	}
	if c.JobTimeout.Duration() <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive")
	}
	// The lease must outlive the longest run or a second instance can start the same job.
	if c.RedisURL != "" && c.LeaseTTL <= c.JobTimeout {
		return fmt.Errorf("LEASE_TTL (%s) must exceed JOB_TIMEOUT (%s) when REDIS_URL is set",
			c.LeaseTTL.Duration(), c.JobTimeout.Duration())
	}
	for _, e := range c.Cron.entries() {
		if _, err := cron.ParseStandard(e.spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.name, e.spec, err)
		}
		if _, err := time.LoadLocation(e.zone); err != nil {
			return fmt.Errorf("invalid time zone %q for %s: %w", e.zone, e.name, err)
		}
	}

	r := c.Reminders
	windows := []struct {
		name            string
		lead, tolerance durationSeconds
	}{
		{"APPOINTMENT", r.AppointmentLead, r.AppointmentTolerance},
		{"DATE_NIGHT", r.DateNightLead, r.DateNightTolerance},
		{"DEBT", r.DebtLead, r.DebtTolerance},
	}
	for _, w := range windows {
		if w.tolerance < 0 || w.tolerance >= w.lead {
			return fmt.Errorf("%s_REMINDER_TOLERANCE (%s) must be below %s_REMINDER_LEAD (%s)",
				w.name, w.tolerance.Duration(), w.name, w.lead.Duration())
		}
	}
	return nil
}
