package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/contribtools/ghreport/internal/githubapi"
	"github.com/contribtools/ghreport/internal/repoid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyResult reports that the upstream data was too empty to build a
// meaningful report.
var ErrEmptyResult = errors.New("no data to report")

// Fetcher is the subset of the GitHub data client the builder needs.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (githubapi.RepositoryResult, error)
	ListContributors(ctx context.Context, owner, repo string) (githubapi.ContributorsResult, error)
	GetContributorStats(ctx context.Context, owner, repo string) (githubapi.ContributorStatsResult, error)
	GetUser(ctx context.Context, login string) (githubapi.UserResult, error)
}

// Builder assembles contribution reports from fetched data.
type Builder struct {
	fetcher Fetcher
	logger  *zap.Logger
	// Now and NewRunID are injected for testability.
	Now      func() time.Time
	NewRunID func() string
}

// NewBuilder creates a report builder.
func NewBuilder(fetcher Fetcher, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		fetcher:  fetcher,
		logger:   logger,
		Now:      time.Now,
		NewRunID: uuid.NewString,
	}
}

// Build fetches, merges, and sorts one repository's contribution data.
// Missing repository metadata or an empty contributor listing is fatal;
// everything else degrades to defaults.
func (b *Builder) Build(ctx context.Context, ref repoid.Ref) (*Report, error) {
	runID := b.NewRunID()
	logger := b.logger.With(
		zap.String("run_id", runID),
		zap.String("repository", ref.String()),
	)

	repoResult, err := b.fetcher.GetRepository(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch repository metadata: %w", err)
	}
	if repoResult.Status != githubapi.EndpointStatusOK {
		logger.Error("repository metadata unavailable", zap.String("status", string(repoResult.Status)))
		return nil, fmt.Errorf("%w: repository metadata unavailable (%s)", ErrEmptyResult, repoResult.Status)
	}

	listing, err := b.fetcher.ListContributors(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch contributors: %w", err)
	}
	if len(listing.Contributors) == 0 {
		logger.Error("no contributors found", zap.String("status", string(listing.Status)))
		return nil, fmt.Errorf("%w: no contributors found (%s)", ErrEmptyResult, listing.Status)
	}
	if listing.Truncated {
		logger.Warn("contributor listing is partial, reporting what was fetched",
			zap.Int("contributors", len(listing.Contributors)))
	}

	statsResult, err := b.fetcher.GetContributorStats(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch contributor stats: %w", err)
	}
	switch statsResult.Status {
	case githubapi.EndpointStatusOK:
	case githubapi.EndpointStatusAccepted:
		logger.Warn("commit statistics still computing upstream, proceeding with zero totals",
			zap.Int("attempts", statsResult.Attempts))
	default:
		logger.Warn("commit statistics unavailable, proceeding with zero totals",
			zap.String("status", string(statsResult.Status)))
	}

	records := make([]ContributionRecord, 0, len(listing.Contributors))
	for _, contributor := range listing.Contributors {
		record := ContributionRecord{
			Username:      contributor.Login,
			Contributions: contributor.Contributions,
			ProfileURL:    contributor.ProfileURL,
			AvatarURL:     contributor.AvatarURL,
			Type:          defaultString(contributor.Type, "User"),
		}

		record.DisplayName = b.displayName(ctx, logger, contributor.Login)

		// First matching login wins; the upstream list is expected to be
		// duplicate-free but that is not guaranteed.
		for _, author := range statsResult.Authors {
			if author.Login != contributor.Login {
				continue
			}
			for _, week := range author.Weeks {
				record.TotalCommits += week.Commits
				record.Additions += week.Additions
				record.Deletions += week.Deletions
			}
			record.StatsCollected = true
			break
		}

		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Contributions > records[j].Contributions
	})

	totalContributions := 0
	for _, record := range records {
		totalContributions += record.Contributions
	}

	built := &Report{
		Repository:   buildRepository(ref, repoResult.Info),
		Contributors: records,
		Summary: Summary{
			TotalContributors:  len(records),
			TotalContributions: totalContributions,
			GeneratedAt:        b.Now().Format(time.RFC3339),
			RunID:              runID,
		},
	}

	logger.Info("report assembled",
		zap.Int("contributors", built.Summary.TotalContributors),
		zap.Int("contributions", built.Summary.TotalContributions))
	return built, nil
}

func (b *Builder) displayName(ctx context.Context, logger *zap.Logger, login string) string {
	userResult, err := b.fetcher.GetUser(ctx, login)
	if err != nil {
		logger.Debug("profile fetch failed", zap.String("login", login), zap.Error(err))
		return ""
	}
	if userResult.Status != githubapi.EndpointStatusOK {
		logger.Debug("profile unavailable",
			zap.String("login", login),
			zap.String("status", string(userResult.Status)))
		return ""
	}
	return userResult.Name
}

func buildRepository(ref repoid.Ref, info githubapi.RepositoryInfo) Repository {
	return Repository{
		Name:        defaultString(info.FullName, ref.String()),
		Description: info.Description,
		URL:         info.URL,
		Stars:       info.Stars,
		Forks:       info.Forks,
		Language:    defaultString(info.Language, "Unknown"),
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.UpdatedAt,
	}
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
