package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Queue       QueueConfig     `toml:"queue"`
	Storage     StorageConfig   `toml:"storage"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Fetch       FetchConfig     `toml:"fetch"`
	Proxy       ProxyConfig     `toml:"proxy"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`                // e.g., "1s" - how often workers poll for messages
	VisibilityTimeout string `toml:"visibility_timeout"`           // e.g., "5m" - redelivery window for unacked messages
	MaxReceive        int    `toml:"max_receive" validate:"gte=1"` // broker poison guard, independent of stage retries
	FetchWorkers      int    `toml:"fetch_workers" validate:"gte=1"`
	QualityWorkers    int    `toml:"quality_workers" validate:"gte=1"`
	IngestWorkers     int    `toml:"ingest_workers" validate:"gte=1"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type PipelineConfig struct {
	QualityThreshold float64 `toml:"quality_threshold" validate:"gte=0,lte=1"`
	MaxRetries       int     `toml:"max_retries" validate:"gte=0"` // per-stage retry budget
	RetryBackoff     string  `toml:"retry_backoff"`                // initial requeue delay, e.g. "5s"
	RetryBackoffMax  string  `toml:"retry_backoff_max"`            // backoff cap, e.g. "2m"
}

type FetchConfig struct {
	RequestTimeout      string  `toml:"request_timeout"`                        // per-attempt timeout, e.g. "30s"
	AttemptsPerDelivery int     `toml:"attempts_per_delivery" validate:"gte=1"` // proxy rotations within one delivery
	RatePerSecond       float64 `toml:"rate_per_second" validate:"gt=0"`        // global outbound request rate
	Burst               int     `toml:"burst" validate:"gte=1"`
	UserAgent           string  `toml:"user_agent"`
}

type ProxyConfig struct {
	Endpoints              []string `toml:"endpoints"`                                                // proxy URLs (http/https/socks5), may be empty
	Strategy               string   `toml:"strategy" validate:"oneof=round_robin random performance"` // rotation strategy
	MaxConsecutiveFailures int      `toml:"max_consecutive_failures" validate:"gte=1"`
	CooldownMinutes        int      `toml:"cooldown_minutes" validate:"gte=1"`
	AllowDirect            bool     `toml:"allow_direct"` // fall back to direct connection when pool is exhausted
}

type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron expression for the maintenance report
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in curator.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Queue: QueueConfig{
			PollInterval:      "1s",
			VisibilityTimeout: "5m",
			MaxReceive:        5,
			FetchWorkers:      4,
			QualityWorkers:    2,
			IngestWorkers:     2,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Pipeline: PipelineConfig{
			QualityThreshold: 0.8,
			MaxRetries:       3,
			RetryBackoff:     "5s",
			RetryBackoffMax:  "2m",
		},
		Fetch: FetchConfig{
			RequestTimeout:      "30s",
			AttemptsPerDelivery: 3,
			RatePerSecond:       2,
			Burst:               4,
			UserAgent:           "curator/1.0",
		},
		Proxy: ProxyConfig{
			Strategy:               "performance",
			MaxConsecutiveFailures: 3,
			CooldownMinutes:        30,
			AllowDirect:            true,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Schedule: "*/15 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration from a single TOML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration in priority order: defaults, then each
// file in turn (later files override earlier ones), then environment
// variables. Flag overrides are applied separately by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies CURATOR_* environment variables over the loaded
// configuration. Only operational knobs are exposed this way.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CURATOR_ENV"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("CURATOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CURATOR_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("CURATOR_QUALITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Pipeline.QualityThreshold = f
		}
	}
	if v := os.Getenv("CURATOR_PROXY_LIST"); v != "" {
		endpoints := []string{}
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				endpoints = append(endpoints, p)
			}
		}
		config.Proxy.Endpoints = endpoints
	}
	if v := os.Getenv("CURATOR_ALLOW_DIRECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Proxy.AllowDirect = b
		}
	}
}

// Validate checks struct constraints, duration strings and the maintenance
// cron expression.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"queue.poll_interval":        c.Queue.PollInterval,
		"queue.visibility_timeout":   c.Queue.VisibilityTimeout,
		"pipeline.retry_backoff":     c.Pipeline.RetryBackoff,
		"pipeline.retry_backoff_max": c.Pipeline.RetryBackoffMax,
		"fetch.request_timeout":      c.Fetch.RequestTimeout,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", field, value)
		}
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule %q: %w", c.Scheduler.Schedule, err)
		}
	}

	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Duration helpers parse the already-validated duration strings.

func (c *QueueConfig) PollIntervalDuration() time.Duration {
	return mustDuration(c.PollInterval, time.Second)
}

func (c *QueueConfig) VisibilityTimeoutDuration() time.Duration {
	return mustDuration(c.VisibilityTimeout, 5*time.Minute)
}

func (c *PipelineConfig) RetryBackoffDuration() time.Duration {
	return mustDuration(c.RetryBackoff, 5*time.Second)
}

func (c *PipelineConfig) RetryBackoffMaxDuration() time.Duration {
	return mustDuration(c.RetryBackoffMax, 2*time.Minute)
}

func (c *FetchConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(c.RequestTimeout, 30*time.Second)
}

func (c *ProxyConfig) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
