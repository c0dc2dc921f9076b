package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.GitHub.APIBaseURL != "https://api.github.com/" {
		t.Fatalf("APIBaseURL = %q, want public API", cfg.GitHub.APIBaseURL)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Fatalf("Retry.MaxAttempts = %d, want 2", cfg.Retry.MaxAttempts)
	}
	if cfg.RateLimit.ResetPadding != 60*time.Second {
		t.Fatalf("ResetPadding = %v, want 60s", cfg.RateLimit.ResetPadding)
	}
	if cfg.Paging.PageSize != 100 || cfg.Paging.PageDelay != 100*time.Millisecond {
		t.Fatalf("Paging = %+v, want 100 entries with 100ms delay", cfg.Paging)
	}
	if cfg.StatsPoll.MaxRetries != 3 || cfg.StatsPoll.Interval != 5*time.Second {
		t.Fatalf("StatsPoll = %+v, want 3 retries at 5s", cfg.StatsPoll)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	yamlDoc := `
log_level: debug
github:
  api_base_url: https://github.example.com/api/v3/
  request_timeout: 15s
retry:
  max_attempts: 3
  initial_backoff: 2s
paging:
  page_size: 50
  page_delay: 250ms
stats_poll:
  max_retries: 2
  interval: 10s
serve:
  listen_addr: ":8080"
telemetry:
  otel_enabled: true
  otel_trace_mode: detailed
`

	cfg, err := Load(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.GitHub.APIBaseURL != "https://github.example.com/api/v3/" {
		t.Fatalf("APIBaseURL = %q", cfg.GitHub.APIBaseURL)
	}
	if cfg.GitHub.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %v, want 15s", cfg.GitHub.RequestTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Paging.PageSize != 50 || cfg.Paging.PageDelay != 250*time.Millisecond {
		t.Fatalf("Paging = %+v", cfg.Paging)
	}
	if cfg.StatsPoll.MaxRetries != 2 || cfg.StatsPoll.Interval != 10*time.Second {
		t.Fatalf("StatsPoll = %+v", cfg.StatsPoll)
	}
	if cfg.Serve.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q, want :8080", cfg.Serve.ListenAddr)
	}
	if !cfg.Telemetry.OTELEnabled || cfg.Telemetry.OTELTraceMode != "detailed" {
		t.Fatalf("Telemetry = %+v", cfg.Telemetry)
	}
	// Untouched sections still get defaults.
	if cfg.RateLimit.ResetPadding != 60*time.Second {
		t.Fatalf("ResetPadding = %v, want default 60s", cfg.RateLimit.ResetPadding)
	}
}

func TestLoadKeepsExplicitZeroStatsRetries(t *testing.T) {
	t.Parallel()

	cfg, err := Load(strings.NewReader("stats_poll:\n  max_retries: 0\n"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.StatsPoll.MaxRetries != 0 {
		t.Fatalf("MaxRetries = %d, want explicit 0 to survive defaulting", cfg.StatsPoll.MaxRetries)
	}

	cfg, err = Load(strings.NewReader("stats_poll:\n  interval: 10s\n"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.StatsPoll.MaxRetries != 3 {
		t.Fatalf("MaxRetries = %d, want default 3 when absent", cfg.StatsPoll.MaxRetries)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		yamlDoc string
		wantIn  string
	}{
		{
			name:    "bad_log_level",
			yamlDoc: "log_level: verbose",
			wantIn:  "log_level",
		},
		{
			name:    "unknown_field",
			yamlDoc: "nonsense: true",
			wantIn:  "nonsense",
		},
		{
			name: "oversized_page",
			yamlDoc: `
paging:
  page_size: 500
`,
			wantIn: "page_size",
		},
		{
			name: "partial_app_auth",
			yamlDoc: `
auth:
  app_id: 41
`,
			wantIn: "installation_id",
		},
		{
			name: "bad_duration_unit",
			yamlDoc: `
github:
  request_timeout: 5parsecs
`,
			wantIn: "duration",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(strings.NewReader(tc.yamlDoc))
			if err == nil {
				t.Fatalf("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantIn) {
				t.Fatalf("error = %q, missing %q", err.Error(), tc.wantIn)
			}
		})
	}
}

func TestParseFlexibleDuration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "90s", want: 90 * time.Second},
		{raw: "1.5h", want: 90 * time.Minute},
		{raw: "2d", want: 48 * time.Hour},
		{raw: "1w", want: 7 * 24 * time.Hour},
		{raw: "", want: 0},
		{raw: "5parsecs", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := parseFlexibleDuration(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseFlexibleDuration(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseFlexibleDuration(%q) unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseFlexibleDuration(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
