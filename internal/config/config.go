package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AnalyticsConfig struct {
	Timezone              string
	Location              *time.Location
	ExcludedRoles         []string
	Workers               int
	MaxRangeDays          int
	MonthlyMetricsMinDays int
	// HistoryDays bounds how far back events are replayed to resolve carry-in; 0 replays everything.
	HistoryDays int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Analytics   AnalyticsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("HTTP_ALLOWED_ORIGINS", "*")
	v.SetDefault("ANALYTICS_TIMEZONE", "UTC")
	v.SetDefault("ANALYTICS_EXCLUDED_ROLES", "ADMIN,STAFF")
	v.SetDefault("ANALYTICS_WORKERS", 4)
	v.SetDefault("ANALYTICS_MAX_RANGE_DAYS", 400)
	v.SetDefault("ANALYTICS_MONTHLY_METRICS_MIN_DAYS", 20)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: splitList(v.GetString("HTTP_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Analytics: AnalyticsConfig{
			Timezone:              v.GetString("ANALYTICS_TIMEZONE"),
			ExcludedRoles:         splitList(strings.ToUpper(v.GetString("ANALYTICS_EXCLUDED_ROLES"))),
			Workers:               v.GetInt("ANALYTICS_WORKERS"),
			MaxRangeDays:          v.GetInt("ANALYTICS_MAX_RANGE_DAYS"),
			MonthlyMetricsMinDays: v.GetInt("ANALYTICS_MONTHLY_METRICS_MIN_DAYS"),
			HistoryDays:           v.GetInt("ANALYTICS_HISTORY_DAYS"),
		},
	}

	if cfg.Analytics.Workers == 0 {
		cfg.Analytics.Workers = 4
	}
	if cfg.Analytics.MaxRangeDays <= 0 {
		cfg.Analytics.MaxRangeDays = 400
	}
	if cfg.Analytics.MonthlyMetricsMinDays <= 0 {
		cfg.Analytics.MonthlyMetricsMinDays = 20
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.DB.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(cfg.DB.ConnMaxLifetime); err != nil {
			return fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
		}
	}
	if cfg.Analytics.Workers < 0 {
		return fmt.Errorf("ANALYTICS_WORKERS must not be negative")
	}
	if cfg.Analytics.HistoryDays < 0 {
		return fmt.Errorf("ANALYTICS_HISTORY_DAYS must not be negative")
	}
	loc, err := time.LoadLocation(cfg.Analytics.Timezone)
	if err != nil {
		return fmt.Errorf("ANALYTICS_TIMEZONE: %w", err)
	}
	cfg.Analytics.Location = loc
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
