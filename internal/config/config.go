package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Events  EventsConfig  `yaml:"events" mapstructure:"events"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the GraphQL backend that fronts both catalogs.
type CatalogConfig struct {
	GraphQLURL  string        `yaml:"graphql_url" mapstructure:"graphql_url"`
	Token       string        `yaml:"token" mapstructure:"token"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int           `yaml:"burst" mapstructure:"burst"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig holds transport retry settings. Retries apply to transient
// transport failures only; the resolver never retries on its own.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig holds circuit breaker settings for catalog calls.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres or none
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig configures the episode listing cache.
type CacheConfig struct {
	EpisodeTTLHours int `yaml:"episode_ttl_hours" mapstructure:"episode_ttl_hours"`
}

// BatchConfig configures batch reconciliation.
type BatchConfig struct {
	SaveOnSuccess bool `yaml:"save_on_success" mapstructure:"save_on_success"`
	Limit         int  `yaml:"limit" mapstructure:"limit"`
}

// EventsConfig configures NATS progress publishing. Empty URL disables it.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" mapstructure:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// ServerConfig configures the progress API server.
type ServerConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUTOLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("catalog.graphql_url", "http://localhost:8080/query")
	v.SetDefault("catalog.token", "")
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("catalog.rate_per_sec", 4.0)
	v.SetDefault("catalog.burst", 2)
	v.SetDefault("catalog.retry.max_attempts", 3)
	v.SetDefault("catalog.retry.initial_backoff_ms", 500)
	v.SetDefault("catalog.retry.max_backoff_ms", 10000)
	v.SetDefault("catalog.retry.multiplier", 2.0)
	v.SetDefault("catalog.retry.jitter_fraction", 0.25)
	v.SetDefault("catalog.circuit.failure_threshold", 5)
	v.SetDefault("catalog.circuit.reset_timeout_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "autolink.db")
	v.SetDefault("cache.episode_ttl_hours", 24)
	v.SetDefault("batch.save_on_success", false)
	v.SetDefault("batch.limit", 0)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "autolink")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes: "link", "batch", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if strings.TrimSpace(c.Catalog.GraphQLURL) == "" {
		errs = append(errs, "catalog.graphql_url is required")
	}
	if c.Catalog.RatePerSec < 0 {
		errs = append(errs, "catalog.rate_per_sec must be >= 0")
	}

	switch mode {
	case "link":
	case "batch", "serve":
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "none":
		default:
			errs = append(errs, "store.driver must be one of sqlite, postgres, none")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
