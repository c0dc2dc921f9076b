package githubapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitHeaders contains parsed GitHub rate-limit response headers.
type RateLimitHeaders struct {
	Remaining  int
	ResetUnix  int64
	RetryAfter time.Duration
}

// ParseRateLimitHeaders parses rate-limit and retry headers.
func ParseRateLimitHeaders(header http.Header) RateLimitHeaders {
	parsed := RateLimitHeaders{}
	parsed.Remaining = parseInt(header.Get("X-RateLimit-Remaining"))
	parsed.ResetUnix = parseInt64(header.Get("X-RateLimit-Reset"))

	retryAfterSeconds := parseInt(header.Get("Retry-After"))
	if retryAfterSeconds > 0 {
		parsed.RetryAfter = time.Duration(retryAfterSeconds) * time.Second
	}
	return parsed
}

// BodySignalsRateLimit reports whether a 403 response body describes a
// rate-limit condition rather than an ordinary authorization failure.
func BodySignalsRateLimit(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "rate limit")
}

// RateLimitPolicy computes how long to pause before retrying a
// rate-limited request. Now is injected for testability.
type RateLimitPolicy struct {
	ResetPadding time.Duration
	Now          func() time.Time
}

// WaitFor returns the pause before retrying: the time until the quota
// resets (never negative) plus the configured padding. A larger
// Retry-After header wins over the computed value.
func (p RateLimitPolicy) WaitFor(headers RateLimitHeaders) time.Duration {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	wait := time.Duration(0)
	if headers.ResetUnix > 0 {
		if untilReset := time.Unix(headers.ResetUnix, 0).Sub(now); untilReset > 0 {
			wait = untilReset
		}
	}
	wait += p.ResetPadding

	if headers.RetryAfter > wait {
		wait = headers.RetryAfter
	}
	return wait
}

func parseInt(raw string) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt64(raw string) int64 {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
