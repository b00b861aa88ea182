// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token        string `mapstructure:"token"`
	SuperadminID int64  `mapstructure:"superadmin_id"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// BaseURL is the public HTTPS URL the webapp is served from.
	// Telegram requires HTTPS for WebApp buttons.
	BaseURL   string `mapstructure:"base_url"`
	WebAppDir string `mapstructure:"webapp_dir"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// PolicyConfig holds submission validation policy.
type PolicyConfig struct {
	MinWinSeconds      int `mapstructure:"min_win_seconds"`
	MaxWinSeconds      int `mapstructure:"max_win_seconds"`
	SuspicionThreshold int `mapstructure:"suspicion_threshold"`
	// InitDataMaxAge bounds how old a signed init-data blob may be.
	// Zero disables the freshness check.
	InitDataMaxAge time.Duration `mapstructure:"init_data_max_age"`
}

// RateLimitConfig holds submission rate limiting configuration.
// An empty RedisURL disables rate limiting entirely.
type RateLimitConfig struct {
	RedisURL  string        `mapstructure:"redis_url"`
	PerWindow int           `mapstructure:"per_window"`
	Window    time.Duration `mapstructure:"window"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, RATELIMIT_REDIS_URL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.webapp_dir", "webapp")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "minesweeper")
	v.SetDefault("database.name", "minesweeper")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Submission policy defaults. A win faster than the suspicion
	// threshold on expert is flagged, not rejected.
	v.SetDefault("policy.min_win_seconds", 3)
	v.SetDefault("policy.max_win_seconds", 3600)
	v.SetDefault("policy.suspicion_threshold", 30)
	v.SetDefault("policy.init_data_max_age", "24h")

	v.SetDefault("ratelimit.per_window", 10)
	v.SetDefault("ratelimit.window", "1m")
}
