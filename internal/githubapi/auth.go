package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// NewTokenHTTPClient builds an HTTP client that sends a personal access
// token on every request.
func NewTokenHTTPClient(ctx context.Context, token string, timeout time.Duration) (*http.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("token is required")
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, source)
	client.Timeout = timeout
	return client, nil
}

// InstallationAuthConfig configures GitHub App installation authentication.
type InstallationAuthConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	Timeout        time.Duration
	BaseTransport  http.RoundTripper
}

// NewInstallationHTTPClient creates an authenticated HTTP client for one
// GitHub App installation.
func NewInstallationHTTPClient(cfg InstallationAuthConfig) (*http.Client, error) {
	if cfg.AppID <= 0 {
		return nil, fmt.Errorf("app id must be > 0")
	}
	if cfg.InstallationID <= 0 {
		return nil, fmt.Errorf("installation id must be > 0")
	}
	if strings.TrimSpace(cfg.PrivateKeyPath) == "" {
		return nil, fmt.Errorf("private key path is required")
	}

	baseTransport := cfg.BaseTransport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	transport, err := ghinstallation.NewKeyFromFile(baseTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("create github app transport: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// QuotaSnapshot reports the core API quota returned by a credential preflight.
type QuotaSnapshot struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// VerifyCredentials checks that the configured credentials are usable and
// reports the remaining core quota. The caller decides whether a failure
// is worth more than a log line.
func VerifyCredentials(ctx context.Context, httpClient *http.Client, apiBaseURL string) (QuotaSnapshot, error) {
	client := github.NewClient(httpClient)

	trimmedBaseURL := strings.TrimSpace(apiBaseURL)
	if trimmedBaseURL != "" {
		parsedURL, err := url.Parse(trimmedBaseURL)
		if err != nil {
			return QuotaSnapshot{}, fmt.Errorf("parse github api base url: %w", err)
		}
		if parsedURL.Scheme == "" || parsedURL.Host == "" {
			return QuotaSnapshot{}, fmt.Errorf("parse github api base url: missing scheme or host")
		}
		if !strings.HasSuffix(parsedURL.Path, "/") {
			parsedURL.Path += "/"
		}
		client.BaseURL = parsedURL
	}

	limits, _, err := client.RateLimit.Get(ctx)
	if err != nil {
		return QuotaSnapshot{}, fmt.Errorf("rate limit preflight: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return QuotaSnapshot{}, fmt.Errorf("rate limit preflight: missing core quota")
	}

	return QuotaSnapshot{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetAt:   core.Reset.Time,
	}, nil
}
