// Package config provides client configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration values loaded from file or environment variables.
type Config struct {
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	APIToken        string        `mapstructure:"API_TOKEN"`
	APITimeout      time.Duration `mapstructure:"API_TIMEOUT"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL"`
	SessionDBPath   string        `mapstructure:"SESSION_DB_PATH"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	Env             string        `mapstructure:"APP_ENV"`
	TracingEnabled  bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string        `mapstructure:"OTLP_ENDPOINT"`
	PushgatewayURL  string        `mapstructure:"METRICS_PUSHGATEWAY_URL"`
	MetricsJob      string        `mapstructure:"METRICS_JOB"`
	DevServerPort   string        `mapstructure:"DEV_SERVER_PORT"`
	DevJWTSecret    string        `mapstructure:"DEV_JWT_SECRET"`
}

const defaultDevJWTSecret = "snmvm-dev-secret-change-me"

// LoadConfig loads client configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config.%s.yml: %w", env, err)
			}
			log.Printf("No profile-specific config for %q; using base config and environment", env)
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("API_BASE_URL", "http://localhost:3000/api")
	viper.SetDefault("API_TOKEN", "")
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL", "30s")
	viper.SetDefault("SESSION_DB_PATH", "snmvm.db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("METRICS_PUSHGATEWAY_URL", "")
	viper.SetDefault("METRICS_JOB", "snmvm")
	viper.SetDefault("DEV_SERVER_PORT", "3000")
	viper.SetDefault("DEV_JWT_SECRET", defaultDevJWTSecret)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.TracingExporter = strings.ToLower(strings.TrimSpace(config.TracingExporter))
	config.PushgatewayURL = strings.TrimSpace(config.PushgatewayURL)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the client runs against a production backend.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q is not a valid URL", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must not be negative")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}

	if c.TracingEnabled {
		switch c.TracingExporter {
		case "", "stdout", "otlp":
		default:
			return fmt.Errorf("TRACING_EXPORTER %q is not one of stdout, otlp", c.TracingExporter)
		}
	}

	if c.PushgatewayURL != "" {
		if pu, err := url.Parse(c.PushgatewayURL); err != nil || pu.Host == "" {
			return fmt.Errorf("METRICS_PUSHGATEWAY_URL %q is not a valid URL", c.PushgatewayURL)
		}
		if c.MetricsJob == "" {
			return errors.New("METRICS_JOB is required when METRICS_PUSHGATEWAY_URL is set")
		}
	}

	if c.IsProduction() {
		if u.Scheme != "https" {
			return errors.New("API_BASE_URL must use https in production")
		}
		if c.DevJWTSecret == defaultDevJWTSecret {
			log.Println("WARNING: DEV_JWT_SECRET is the default value; the dev server must not be exposed in production.")
		}
	}

	return nil
}
