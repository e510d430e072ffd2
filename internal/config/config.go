// Package config loads and validates the web shell's configuration.
//
// Values come from an optional traivel.yaml (in . or ./config), overridden by
// TRAIVEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all configuration values for the binaries.
type Config struct {
	// BackendURL is the root of the recommendation backend.
	BackendURL string
	// Port is the TCP port the API listens on.
	Port string
	// MetricsPort is the TCP port /metrics is served on.
	MetricsPort string
	LogLevel    string
	LogFormat   string
	// RequestTimeout bounds each call to the backend.
	RequestTimeout time.Duration
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
	// RateLimit is the number of API requests allowed per IP per minute.
	RateLimit int
	// SessionStore selects where session state lives: memory or redis.
	SessionStore string
	RedisURL     string
	// SessionTTL is how long an untouched session is kept.
	SessionTTL time.Duration
}

// Load reads configuration and returns a validated Config.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("port", "8080")
	v.SetDefault("metrics_port", "9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("cors_origins", "http://localhost:4200")
	v.SetDefault("rate_limit", 60)
	v.SetDefault("session_store", StoreMemory)
	v.SetDefault("redis_url", "")
	v.SetDefault("session_ttl", "1h")

	v.SetConfigName("traivel")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetEnvPrefix("TRAIVEL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Config{
		BackendURL:   strings.TrimSpace(v.GetString("backend_url")),
		Port:         v.GetString("port"),
		MetricsPort:  v.GetString("metrics_port"),
		LogLevel:     v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
		CORSOrigins:  splitCSV(v.GetString("cors_origins")),
		SessionStore: strings.ToLower(v.GetString("session_store")),
		RedisURL:     v.GetString("redis_url"),
	}

	var problems []string

	if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("backend_url: %q is not an absolute URL", cfg.BackendURL))
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration(v, "request_timeout"); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.SessionTTL, err = parseDuration(v, "session_ttl"); err != nil {
		problems = append(problems, err.Error())
	} else if cfg.SessionTTL <= 0 {
		problems = append(problems, "session_ttl: must be positive")
	}

	cfg.RateLimit = v.GetInt("rate_limit")
	if cfg.RateLimit <= 0 {
		problems = append(problems, fmt.Sprintf("rate_limit: %q must be a positive integer", v.GetString("rate_limit")))
	}

	switch cfg.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			problems = append(problems, "redis_url: required when session_store is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("session_store: unknown store %q", cfg.SessionStore))
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// parseDuration reads key as a Go duration string such as "10s".
func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return d, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
