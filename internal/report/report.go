package report

// Repository is the read-only repository summary included in a report.
type Repository struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Summary carries run-level counters.
type Summary struct {
	TotalContributors  int    `json:"total_contributors"`
	TotalContributions int    `json:"total_contributions"`
	GeneratedAt        string `json:"report_generated"`
	RunID              string `json:"run_id"`
}

// ContributionRecord is one normalized contributor row. Commit and
// line-change totals default to zero; StatsCollected distinguishes a
// genuine zero from statistics that were never available.
type ContributionRecord struct {
	Username       string `json:"username"`
	DisplayName    string `json:"name"`
	Contributions  int    `json:"contributions"`
	TotalCommits   int    `json:"total_commits"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	ProfileURL     string `json:"profile_url"`
	AvatarURL      string `json:"avatar_url"`
	Type           string `json:"type"`
	StatsCollected bool   `json:"stats_collected"`
}

// Report is the complete output of one run, ordered by contributions
// descending with listing order preserved on ties.
type Report struct {
	Repository   Repository           `json:"repository"`
	Summary      Summary              `json:"summary"`
	Contributors []ContributionRecord `json:"contributors"`
}
