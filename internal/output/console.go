package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/contribtools/ghreport/internal/report"
)

const consoleTopN = 20

func writeConsole(out io.Writer, rep *report.Report) error {
	bar := strings.Repeat("=", 80)
	rule := strings.Repeat("-", 80)

	fmt.Fprintln(out)
	fmt.Fprintln(out, bar)
	fmt.Fprintf(out, "CONTRIBUTION REPORT: %s\n", rep.Repository.Name)
	fmt.Fprintln(out, bar)

	fmt.Fprintf(out, "Description: %s\n", rep.Repository.Description)
	fmt.Fprintf(out, "URL: %s\n", rep.Repository.URL)
	fmt.Fprintf(out, "Stars: %d | Forks: %d | Language: %s\n",
		rep.Repository.Stars, rep.Repository.Forks, rep.Repository.Language)
	fmt.Fprintf(out, "Created: %s | Updated: %s\n",
		truncate(rep.Repository.CreatedAt, 10), truncate(rep.Repository.UpdatedAt, 10))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total Contributors: %d\n", rep.Summary.TotalContributors)
	fmt.Fprintf(out, "Total Contributions: %d\n", rep.Summary.TotalContributions)
	fmt.Fprintf(out, "Report Generated: %s\n", truncate(rep.Summary.GeneratedAt, 19))

	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "TOP CONTRIBUTORS:")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "%-4s %-20s %-25s %-12s %-8s\n", "Rank", "Username", "Name", "Contributions", "Type")
	fmt.Fprintln(out, rule)

	for i, record := range rep.Contributors {
		if i >= consoleTopN {
			break
		}
		fmt.Fprintf(out, "%-4d %-20s %-25s %-12d %-8s\n",
			i+1,
			truncate(record.Username, 19),
			truncate(record.DisplayName, 24),
			record.Contributions,
			record.Type)
	}

	return nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
