package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contribtools/ghreport/internal/metrics"
)

const defaultGitHubAPIBaseURL = "https://api.github.com/"

// EndpointStatus represents a normalized GitHub API endpoint outcome.
type EndpointStatus string

const (
	// EndpointStatusOK indicates a successful response.
	EndpointStatusOK EndpointStatus = "ok"
	// EndpointStatusAccepted indicates GitHub accepted the request and is still computing results.
	EndpointStatusAccepted EndpointStatus = "accepted"
	// EndpointStatusForbidden indicates authorization failure or restricted access.
	EndpointStatusForbidden EndpointStatus = "forbidden"
	// EndpointStatusNotFound indicates the resource does not exist or is hidden.
	EndpointStatusNotFound EndpointStatus = "not_found"
	// EndpointStatusConflict indicates a state conflict, like stats on an empty repository.
	EndpointStatusConflict EndpointStatus = "conflict"
	// EndpointStatusUnavailable indicates a temporary service-side or transport failure.
	EndpointStatusUnavailable EndpointStatus = "unavailable"
	// EndpointStatusUnknown indicates an unclassified non-success status.
	EndpointStatusUnknown EndpointStatus = "unknown"
)

// RepositoryInfo is a read-only repository metadata snapshot. Timestamps
// stay in the wire's RFC 3339 form; serializers truncate as needed.
type RepositoryInfo struct {
	FullName    string
	Description string
	URL         string
	Stars       int
	Forks       int
	Language    string
	CreatedAt   string
	UpdatedAt   string
}

// RepositoryResult is the typed result for `/repos/{owner}/{repo}`.
type RepositoryResult struct {
	Status   EndpointStatus
	Info     RepositoryInfo
	Metadata CallMetadata
}

// ContributorSummary is one entry from the contributor listing.
type ContributorSummary struct {
	Login         string
	Contributions int
	ProfileURL    string
	AvatarURL     string
	Type          string
}

// ContributorsResult is the typed result for the paginated contributor listing.
// Truncated reports that a page failed mid-listing and the slice is partial.
type ContributorsResult struct {
	Status       EndpointStatus
	Contributors []ContributorSummary
	Truncated    bool
	Metadata     CallMetadata
}

// WeeklyBucket is one author-week of commit and line-change counts.
type WeeklyBucket struct {
	WeekStart time.Time
	Commits   int
	Additions int
	Deletions int
}

// AuthorStats is one author's weekly buckets from `/stats/contributors`.
type AuthorStats struct {
	Login string
	Weeks []WeeklyBucket
}

// ContributorStatsResult is the typed result for contributor statistics.
// An accepted status with no authors means the upstream computation never
// became ready within the poll budget.
type ContributorStatsResult struct {
	Status   EndpointStatus
	Authors  []AuthorStats
	Attempts int
	Metadata CallMetadata
}

// UserResult is the typed result for `/users/{login}`.
type UserResult struct {
	Status   EndpointStatus
	Login    string
	Name     string
	Metadata CallMetadata
}

// StatsPollPolicy bounds the not-ready polling of contributor statistics.
type StatsPollPolicy struct {
	MaxRetries int
	Interval   time.Duration
}

// DataClientConfig configures the typed data client.
type DataClientConfig struct {
	BaseURL   string
	PageSize  int
	PageDelay time.Duration
	StatsPoll StatsPollPolicy
}

// DataClient is a typed GitHub REST client for the report's endpoints.
type DataClient struct {
	baseURL       *url.URL
	requestClient *Client
	pageSize      int
	pageDelay     time.Duration
	statsPoll     StatsPollPolicy
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.ClientMetrics
	// Sleep is injected for testability.
	Sleep func(duration time.Duration)
}

// NewDataClient creates a typed data client over the retry/rate-limit
// request client.
func NewDataClient(cfg DataClientConfig, requestClient *Client) (*DataClient, error) {
	if requestClient == nil {
		return nil, fmt.Errorf("request client is required")
	}

	parsed, err := parseAPIBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = 100 * time.Millisecond
	}
	statsPoll := cfg.StatsPoll
	if statsPoll.MaxRetries < 0 {
		statsPoll.MaxRetries = 0
	}
	if statsPoll.Interval <= 0 {
		statsPoll.Interval = 5 * time.Second
	}

	return &DataClient{
		baseURL:       parsed,
		requestClient: requestClient,
		pageSize:      pageSize,
		pageDelay:     pageDelay,
		statsPoll:     statsPoll,
		Sleep:         time.Sleep,
	}, nil
}

// GetRepository reads repository metadata.
func (c *DataClient) GetRepository(ctx context.Context, owner, repo string) (RepositoryResult, error) {
	trimmedOwner, trimmedRepo, err := requireOwnerRepo(owner, repo)
	if err != nil {
		return RepositoryResult{}, err
	}

	reqURL := c.cloneBaseURL()
	reqURL.Path = joinURLPath(reqURL.Path, "repos", url.PathEscape(trimmedOwner), url.PathEscape(trimmedRepo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return RepositoryResult{}, fmt.Errorf("build repository request: %w", err)
	}

	resp, callMeta, err := c.requestClient.Do(req)
	if err != nil {
		return RepositoryResult{Status: EndpointStatusUnavailable, Metadata: callMeta}, nil
	}
	if resp == nil {
		return RepositoryResult{Status: EndpointStatusUnavailable, Metadata: callMeta}, nil
	}

	status := endpointStatusFromHTTP(resp.StatusCode)
	result := RepositoryResult{
		Status:   status,
		Metadata: callMeta,
	}
	if status != EndpointStatusOK {
		_ = resp.Body.Close()
		return result, nil
	}

	var payload repositoryPayload
	if err := decodeJSONAndClose(resp, &payload); err != nil {
		result.Status = EndpointStatusUnavailable
		return result, nil
	}

	result.Info = RepositoryInfo{
		FullName:    payload.FullName,
		Description: payload.Description,
		URL:         payload.HTMLURL,
		Stars:       payload.StargazersCount,
		Forks:       payload.ForksCount,
		Language:    payload.Language,
		CreatedAt:   payload.CreatedAt,
		UpdatedAt:   payload.UpdatedAt,
	}
	return result, nil
}

// ListContributors reads the full contributor listing, one page at a time,
// excluding anonymous contributors. A short-page, empty-page, or failed
// page ends the listing; accumulated entries are returned either way.
func (c *DataClient) ListContributors(ctx context.Context, owner, repo string) (ContributorsResult, error) {
	trimmedOwner, trimmedRepo, err := requireOwnerRepo(owner, repo)
	if err != nil {
		return ContributorsResult{}, err
	}

	result := ContributorsResult{
		Status: EndpointStatusOK,
	}
	page := 1
	for {
		reqURL := c.cloneBaseURL()
		reqURL.Path = joinURLPath(reqURL.Path, "repos", url.PathEscape(trimmedOwner), url.PathEscape(trimmedRepo), "contributors")
		query := reqURL.Query()
		query.Set("per_page", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))
		query.Set("anon", "false")
		reqURL.RawQuery = query.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
		if err != nil {
			return ContributorsResult{}, fmt.Errorf("build contributor listing request: %w", err)
		}

		resp, callMeta, err := c.requestClient.Do(req)
		result.Metadata = mergeMetadata(result.Metadata, callMeta)
		if err != nil || resp == nil {
			return c.finishPartialListing(result, EndpointStatusUnavailable), nil
		}

		status := endpointStatusFromHTTP(resp.StatusCode)
		if status != EndpointStatusOK {
			_ = resp.Body.Close()
			return c.finishPartialListing(result, status), nil
		}

		var payload []contributorPayload
		if err := decodeJSONAndClose(resp, &payload); err != nil {
			return c.finishPartialListing(result, EndpointStatusUnavailable), nil
		}

		for _, entry := range payload {
			result.Contributors = append(result.Contributors, ContributorSummary{
				Login:         entry.Login,
				Contributions: entry.Contributions,
				ProfileURL:    entry.HTMLURL,
				AvatarURL:     entry.AvatarURL,
				Type:          entry.Type,
			})
		}

		if len(payload) < c.pageSize {
			break
		}
		page++
		c.Sleep(c.pageDelay)
	}

	return result, nil
}

// GetContributorStats reads per-author weekly commit statistics, polling
// while the upstream computation reports not-ready. Exhausting the poll
// budget, or any request failure, yields an empty statistics set.
func (c *DataClient) GetContributorStats(ctx context.Context, owner, repo string) (ContributorStatsResult, error) {
	trimmedOwner, trimmedRepo, err := requireOwnerRepo(owner, repo)
	if err != nil {
		return ContributorStatsResult{}, err
	}

	result := ContributorStatsResult{}
	retriesLeft := c.statsPoll.MaxRetries
	for {
		reqURL := c.cloneBaseURL()
		reqURL.Path = joinURLPath(reqURL.Path, "repos", url.PathEscape(trimmedOwner), url.PathEscape(trimmedRepo), "stats", "contributors")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
		if err != nil {
			return ContributorStatsResult{}, fmt.Errorf("build contributor stats request: %w", err)
		}

		result.Attempts++
		c.Metrics.ObserveStatsPoll()
		resp, callMeta, err := c.requestClient.Do(req)
		result.Metadata = mergeMetadata(result.Metadata, callMeta)
		if err != nil || resp == nil {
			result.Status = EndpointStatusUnavailable
			return result, nil
		}

		status := endpointStatusFromHTTP(resp.StatusCode)
		notReady := status == EndpointStatusAccepted
		if !notReady && status != EndpointStatusOK {
			_ = resp.Body.Close()
			result.Status = status
			return result, nil
		}

		if !notReady {
			body := readAndClose(resp.Body)
			authors, ready, parseErr := parseAuthorStats(body)
			if parseErr != nil {
				result.Status = EndpointStatusUnavailable
				return result, nil
			}
			if ready {
				result.Status = EndpointStatusOK
				result.Authors = authors
				return result, nil
			}
			notReady = true
		} else {
			_ = resp.Body.Close()
		}

		if retriesLeft <= 0 {
			result.Status = EndpointStatusAccepted
			return result, nil
		}
		retriesLeft--
		c.Sleep(c.statsPoll.Interval)
	}
}

// GetUser reads one user profile for its display name.
func (c *DataClient) GetUser(ctx context.Context, login string) (UserResult, error) {
	trimmedLogin := strings.TrimSpace(login)
	if trimmedLogin == "" {
		return UserResult{}, fmt.Errorf("login is required")
	}

	reqURL := c.cloneBaseURL()
	reqURL.Path = joinURLPath(reqURL.Path, "users", url.PathEscape(trimmedLogin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return UserResult{}, fmt.Errorf("build user request: %w", err)
	}

	resp, callMeta, err := c.requestClient.Do(req)
	if err != nil || resp == nil {
		return UserResult{Status: EndpointStatusUnavailable, Metadata: callMeta}, nil
	}

	status := endpointStatusFromHTTP(resp.StatusCode)
	result := UserResult{
		Status:   status,
		Metadata: callMeta,
	}
	if status != EndpointStatusOK {
		_ = resp.Body.Close()
		return result, nil
	}

	var payload userProfilePayload
	if err := decodeJSONAndClose(resp, &payload); err != nil {
		result.Status = EndpointStatusUnavailable
		return result, nil
	}
	result.Login = payload.Login
	result.Name = payload.Name
	return result, nil
}

func (c *DataClient) finishPartialListing(result ContributorsResult, status EndpointStatus) ContributorsResult {
	if len(result.Contributors) == 0 {
		result.Status = status
		return result
	}
	result.Truncated = true
	return result
}

// parseAuthorStats decodes the stats payload. The endpoint answers with a
// JSON array once ready; an object body carrying a "not ready" style
// message counts as the warming sentinel. Null weekly buckets are skipped.
// A body that decodes as neither is reported as an error.
func parseAuthorStats(body []byte) ([]AuthorStats, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, nil
	}

	if trimmed[0] == '{' {
		var sentinel struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &sentinel); err != nil {
			return nil, false, fmt.Errorf("decode contributor stats body: %w", err)
		}
		if strings.Contains(strings.ToLower(sentinel.Message), "not ready") {
			return nil, false, nil
		}
		// Unknown object shape; treat as ready-but-empty.
		return nil, true, nil
	}

	var payload []authorStatsPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, false, fmt.Errorf("decode contributor stats body: %w", err)
	}

	authors := make([]AuthorStats, 0, len(payload))
	for _, entry := range payload {
		typed := AuthorStats{}
		if entry.Author != nil {
			typed.Login = entry.Author.Login
		}
		for _, week := range entry.Weeks {
			if week == nil {
				continue
			}
			typed.Weeks = append(typed.Weeks, WeeklyBucket{
				WeekStart: time.Unix(week.UnixWeek, 0).UTC(),
				Commits:   week.Commits,
				Additions: week.Additions,
				Deletions: week.Deletions,
			})
		}
		authors = append(authors, typed)
	}
	return authors, true, nil
}

func requireOwnerRepo(owner, repo string) (string, string, error) {
	trimmedOwner := strings.TrimSpace(owner)
	trimmedRepo := strings.TrimSpace(repo)
	if trimmedOwner == "" {
		return "", "", fmt.Errorf("owner is required")
	}
	if trimmedRepo == "" {
		return "", "", fmt.Errorf("repo is required")
	}
	return trimmedOwner, trimmedRepo, nil
}

func parseAPIBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultGitHubAPIBaseURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse github api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse github api base url: missing scheme or host")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}

func (c *DataClient) cloneBaseURL() *url.URL {
	cloned := *c.baseURL
	return &cloned
}

func joinURLPath(base string, segments ...string) string {
	trimmedBase := strings.TrimSuffix(base, "/")
	builder := strings.Builder{}
	builder.WriteString(trimmedBase)
	for _, segment := range segments {
		builder.WriteString("/")
		builder.WriteString(strings.TrimPrefix(segment, "/"))
	}
	return builder.String()
}

func endpointStatusFromHTTP(statusCode int) EndpointStatus {
	switch statusCode {
	case http.StatusAccepted:
		return EndpointStatusAccepted
	case http.StatusForbidden:
		return EndpointStatusForbidden
	case http.StatusNotFound:
		return EndpointStatusNotFound
	case http.StatusConflict:
		return EndpointStatusConflict
	}
	if statusCode >= 200 && statusCode <= 299 {
		return EndpointStatusOK
	}
	if statusCode >= 500 {
		return EndpointStatusUnavailable
	}
	return EndpointStatusUnknown
}

func decodeJSONAndClose(resp *http.Response, target any) error {
	defer func() {
		_ = resp.Body.Close()
	}()
	return json.NewDecoder(resp.Body).Decode(target)
}

func mergeMetadata(current CallMetadata, incoming CallMetadata) CallMetadata {
	current.Attempts += incoming.Attempts
	current.RateLimited = current.RateLimited || incoming.RateLimited
	current.LastRateHeaders = incoming.LastRateHeaders
	return current
}

type repositoryPayload struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	HTMLURL         string `json:"html_url"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Language        string `json:"language"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type contributorPayload struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	HTMLURL       string `json:"html_url"`
	AvatarURL     string `json:"avatar_url"`
	Type          string `json:"type"`
}

type authorStatsPayload struct {
	Author *userRefPayload  `json:"author"`
	Weeks  []*weeklyPayload `json:"weeks"`
}

type weeklyPayload struct {
	UnixWeek  int64 `json:"w"`
	Additions int   `json:"a"`
	Deletions int   `json:"d"`
	Commits   int   `json:"c"`
}

type userRefPayload struct {
	Login string `json:"login"`
}

type userProfilePayload struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}
