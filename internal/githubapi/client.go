package githubapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/contribtools/ghreport/internal/metrics"
	"github.com/contribtools/ghreport/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	acceptHeader = "application/vnd.github.v3+json"
	userAgent    = "ghreport-contribution-reporter"
)

// ErrRateLimited reports that the API kept answering with a rate-limit
// response after the retry budget was spent.
var ErrRateLimited = errors.New("github: rate limited after retry")

// RetryConfig configures request retry behavior.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPDoer is implemented by http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallMetadata reports execution metadata for a client call.
type CallMetadata struct {
	Attempts        int
	RateLimited     bool
	LastRateHeaders RateLimitHeaders
}

// Client performs GitHub API requests with bounded retry and
// rate-limit backoff. Authorization comes from the wrapped doer's
// transport, so credentials are attached only when configured.
type Client struct {
	doer       HTTPDoer
	retry      RetryConfig
	ratePolicy RateLimitPolicy
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.ClientMetrics
	// Sleep is injected for testability.
	Sleep func(duration time.Duration)
}

// NewClient creates a GitHub API client wrapper.
func NewClient(doer HTTPDoer, retry RetryConfig, ratePolicy RateLimitPolicy) *Client {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 2
	}
	if ratePolicy.ResetPadding <= 0 {
		ratePolicy.ResetPadding = 60 * time.Second
	}
	return &Client{
		doer:       doer,
		retry:      retry,
		ratePolicy: ratePolicy,
		Sleep:      time.Sleep,
	}
}

// Do executes a request with retry and rate-limit awareness. Rate-limited
// responses trigger exactly one sleep-and-retry per remaining attempt;
// exhausting the budget on a rate limit returns ErrRateLimited.
func (c *Client) Do(req *http.Request) (*http.Response, CallMetadata, error) {
	if req == nil {
		return nil, CallMetadata{}, fmt.Errorf("request is nil")
	}

	ctx := req.Context()
	var span trace.Span
	if telemetry.ShouldTraceDependencies() {
		ctx, span = otel.Tracer("ghreport/internal/githubapi").Start(
			ctx,
			"githubapi.client.do",
			trace.WithAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.path", req.URL.EscapedPath()),
				attribute.Int("github.max_attempts", c.retry.MaxAttempts),
			),
		)
		defer span.End()
	}

	metadata := CallMetadata{}
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		metadata.Attempts = attempt

		nextReq := req.Clone(ctx)
		nextReq.Header.Set("Accept", acceptHeader)
		nextReq.Header.Set("User-Agent", userAgent)

		resp, err := c.doer.Do(nextReq)
		if err != nil {
			c.Metrics.ObserveRequest("error")
			if span != nil {
				span.RecordError(err)
			}
			if attempt == c.retry.MaxAttempts {
				if span != nil {
					span.SetStatus(codes.Error, err.Error())
				}
				return nil, metadata, err
			}
			c.Sleep(backoffForAttempt(c.retry, attempt))
			continue
		}

		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			body := readAndClose(resp.Body)
			if resp.StatusCode == http.StatusTooManyRequests || BodySignalsRateLimit(body) {
				headers := ParseRateLimitHeaders(resp.Header)
				metadata.RateLimited = true
				metadata.LastRateHeaders = headers
				c.Metrics.ObserveRequest("rate_limited")
				if span != nil {
					span.AddEvent("rate_limited", trace.WithAttributes(
						attribute.Int("github.attempt", attempt),
						attribute.Int64("github.rate_limit_reset_unix", headers.ResetUnix),
					))
				}
				if attempt == c.retry.MaxAttempts {
					if span != nil {
						span.SetStatus(codes.Error, "rate limited")
					}
					return nil, metadata, ErrRateLimited
				}
				c.Metrics.ObserveRateLimitWait()
				c.Sleep(c.ratePolicy.WaitFor(headers))
				continue
			}
			// Forbidden for another reason; hand the response back intact.
			resp.Body = io.NopCloser(bytes.NewReader(body))
			c.Metrics.ObserveRequest("forbidden")
			if span != nil {
				span.SetStatus(codes.Error, "forbidden")
			}
			return resp, metadata, nil
		}

		if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
			c.Metrics.ObserveRequest("server_error")
			if attempt == c.retry.MaxAttempts {
				if span != nil {
					span.SetStatus(codes.Error, fmt.Sprintf("transient status %d", resp.StatusCode))
				}
				return resp, metadata, nil
			}
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			c.Sleep(backoffForAttempt(c.retry, attempt))
			continue
		}

		c.Metrics.ObserveRequest("ok")
		if span != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			span.SetStatus(codes.Ok, "request completed")
		}
		return resp, metadata, nil
	}

	if span != nil {
		span.SetStatus(codes.Error, "request attempts exhausted")
	}
	return nil, metadata, fmt.Errorf("request attempts exhausted")
}

func readAndClose(body io.ReadCloser) []byte {
	if body == nil {
		return nil
	}
	defer func() {
		_ = body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil
	}
	return data
}

func backoffForAttempt(retry RetryConfig, attempt int) time.Duration {
	backoff := retry.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if retry.MaxBackoff > 0 && backoff > retry.MaxBackoff {
			return retry.MaxBackoff
		}
	}
	if retry.MaxBackoff > 0 && backoff > retry.MaxBackoff {
		return retry.MaxBackoff
	}
	return backoff
}
