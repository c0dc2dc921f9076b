package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

const defaultStatsPollRetries = 3

// Config is the root application configuration.
type Config struct {
	LogLevel  string
	GitHub    GitHubConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig
	Paging    PagingConfig
	StatsPoll StatsPollConfig
	Auth      AuthConfig
	Serve     ServeConfig
	Telemetry TelemetryConfig
}

// GitHubConfig configures GitHub API connectivity.
type GitHubConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
}

// RetryConfig configures request retries.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RateLimitConfig configures rate-limit backoff.
type RateLimitConfig struct {
	ResetPadding time.Duration
}

// PagingConfig configures contributor listing pagination.
type PagingConfig struct {
	PageSize  int
	PageDelay time.Duration
}

// StatsPollConfig bounds the contributor statistics not-ready polling.
type StatsPollConfig struct {
	MaxRetries int
	Interval   time.Duration
}

// AuthConfig configures credentials. A token and a GitHub App installation
// are alternatives; the app takes precedence when both are set.
type AuthConfig struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// ServeConfig configures the optional HTTP mode.
type ServeConfig struct {
	ListenAddr string
}

// TelemetryConfig configures OpenTelemetry behavior.
type TelemetryConfig struct {
	OTELEnabled          bool
	OTELTraceMode        string
	OTELTraceSampleRatio float64
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.StatsPoll.MaxRetries = defaultStatsPollRetries
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from YAML, applies defaults, and validates.
func Load(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("config reader is nil")
	}

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	var raw rawConfig
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg := raw.toConfig()
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates configuration values.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errs = append(errs, "log_level must be one of debug|info|warn|error")
	}
	if c.GitHub.APIBaseURL == "" {
		errs = append(errs, "github.api_base_url is required")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Paging.PageSize < 1 || c.Paging.PageSize > 100 {
		errs = append(errs, "paging.page_size must be between 1 and 100")
	}
	if c.StatsPoll.MaxRetries < 0 {
		errs = append(errs, "stats_poll.max_retries must be >= 0")
	}
	if c.StatsPoll.Interval <= 0 {
		errs = append(errs, "stats_poll.interval must be > 0")
	}

	if c.Auth.AppID != 0 || c.Auth.InstallationID != 0 || c.Auth.PrivateKeyPath != "" {
		if c.Auth.AppID <= 0 {
			errs = append(errs, "auth.app_id must be > 0 when app auth is configured")
		}
		if c.Auth.InstallationID <= 0 {
			errs = append(errs, "auth.installation_id must be > 0 when app auth is configured")
		}
		if c.Auth.PrivateKeyPath == "" {
			errs = append(errs, "auth.private_key_path is required when app auth is configured")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com/"
	}
	if cfg.GitHub.RequestTimeout <= 0 {
		cfg.GitHub.RequestTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 2
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = time.Second
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = 30 * time.Second
	}
	if cfg.RateLimit.ResetPadding <= 0 {
		cfg.RateLimit.ResetPadding = 60 * time.Second
	}
	if cfg.Paging.PageSize <= 0 {
		cfg.Paging.PageSize = 100
	}
	if cfg.Paging.PageDelay <= 0 {
		cfg.Paging.PageDelay = 100 * time.Millisecond
	}
	if cfg.StatsPoll.Interval <= 0 {
		cfg.StatsPoll.Interval = 5 * time.Second
	}
	if cfg.Telemetry.OTELTraceMode == "" {
		cfg.Telemetry.OTELTraceMode = "sampled"
	}
	if cfg.Telemetry.OTELTraceSampleRatio == 0 {
		cfg.Telemetry.OTELTraceSampleRatio = 0.1
	}
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind == 0 || strings.TrimSpace(value.Value) == "" {
		d.Duration = 0
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}

	parsed, err := parseFlexibleDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func parseFlexibleDuration(raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	if standard, err := time.ParseDuration(trimmed); err == nil {
		return standard, nil
	}

	if strings.HasSuffix(trimmed, "d") {
		return parseDurationWithMultiplier(strings.TrimSuffix(trimmed, "d"), 24)
	}
	if strings.HasSuffix(trimmed, "w") {
		return parseDurationWithMultiplier(strings.TrimSuffix(trimmed, "w"), 24*7)
	}

	return 0, fmt.Errorf("parse duration %q: invalid unit", raw)
}

func parseDurationWithMultiplier(numeric string, multiplierHours float64) (time.Duration, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(numeric), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration value %q: %w", numeric, err)
	}

	nanos := value * multiplierHours * float64(time.Hour)
	if nanos > math.MaxInt64 || nanos < math.MinInt64 {
		return 0, fmt.Errorf("parse duration value %q: out of range", numeric)
	}
	return time.Duration(nanos), nil
}

type rawConfig struct {
	LogLevel  string       `yaml:"log_level"`
	GitHub    rawGitHub    `yaml:"github"`
	Retry     rawRetry     `yaml:"retry"`
	RateLimit rawRateLimit `yaml:"rate_limit"`
	Paging    rawPaging    `yaml:"paging"`
	StatsPoll rawStatsPoll `yaml:"stats_poll"`
	Auth      rawAuth      `yaml:"auth"`
	Serve     rawServe     `yaml:"serve"`
	Telemetry rawTelemetry `yaml:"telemetry"`
}

type rawServe struct {
	ListenAddr string `yaml:"listen_addr"`
}

type rawGitHub struct {
	APIBaseURL     string   `yaml:"api_base_url"`
	RequestTimeout duration `yaml:"request_timeout"`
}

type rawRetry struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff duration `yaml:"initial_backoff"`
	MaxBackoff     duration `yaml:"max_backoff"`
}

type rawRateLimit struct {
	ResetPadding duration `yaml:"reset_padding"`
}

type rawPaging struct {
	PageSize  int      `yaml:"page_size"`
	PageDelay duration `yaml:"page_delay"`
}

// MaxRetries is a pointer so an explicit zero survives defaulting.
type rawStatsPoll struct {
	MaxRetries *int     `yaml:"max_retries"`
	Interval   duration `yaml:"interval"`
}

type rawAuth struct {
	Token          string `yaml:"token"`
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

type rawTelemetry struct {
	OTELEnabled          bool    `yaml:"otel_enabled"`
	OTELTraceMode        string  `yaml:"otel_trace_mode"`
	OTELTraceSampleRatio float64 `yaml:"otel_trace_sample_ratio"`
}

func statsPollRetriesOrDefault(raw *int) int {
	if raw == nil {
		return defaultStatsPollRetries
	}
	return *raw
}

func (r rawConfig) toConfig() *Config {
	return &Config{
		LogLevel: r.LogLevel,
		GitHub: GitHubConfig{
			APIBaseURL:     r.GitHub.APIBaseURL,
			RequestTimeout: r.GitHub.RequestTimeout.Duration,
		},
		Retry: RetryConfig{
			MaxAttempts:    r.Retry.MaxAttempts,
			InitialBackoff: r.Retry.InitialBackoff.Duration,
			MaxBackoff:     r.Retry.MaxBackoff.Duration,
		},
		RateLimit: RateLimitConfig{
			ResetPadding: r.RateLimit.ResetPadding.Duration,
		},
		Paging: PagingConfig{
			PageSize:  r.Paging.PageSize,
			PageDelay: r.Paging.PageDelay.Duration,
		},
		StatsPoll: StatsPollConfig{
			MaxRetries: statsPollRetriesOrDefault(r.StatsPoll.MaxRetries),
			Interval:   r.StatsPoll.Interval.Duration,
		},
		Auth: AuthConfig{
			Token:          r.Auth.Token,
			AppID:          r.Auth.AppID,
			InstallationID: r.Auth.InstallationID,
			PrivateKeyPath: r.Auth.PrivateKeyPath,
		},
		Serve: ServeConfig{
			ListenAddr: r.Serve.ListenAddr,
		},
		Telemetry: TelemetryConfig{
			OTELEnabled:          r.Telemetry.OTELEnabled,
			OTELTraceMode:        r.Telemetry.OTELTraceMode,
			OTELTraceSampleRatio: r.Telemetry.OTELTraceSampleRatio,
		},
	}
}
