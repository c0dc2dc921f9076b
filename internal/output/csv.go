package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/contribtools/ghreport/internal/report"
)

var csvHeader = []string{
	"Username", "Name", "Contributions", "Total Commits",
	"Additions", "Deletions", "Profile URL", "Type",
}

func writeCSVFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(out io.Writer, rep *report.Report) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, record := range rep.Contributors {
		row := []string{
			record.Username,
			record.DisplayName,
			strconv.Itoa(record.Contributions),
			"", "", "",
			record.ProfileURL,
			record.Type,
		}
		// Commit cells stay empty when statistics never arrived, so a
		// reader can tell missing data apart from genuine zeros.
		if record.StatsCollected {
			row[3] = strconv.Itoa(record.TotalCommits)
			row[4] = strconv.Itoa(record.Additions)
			row[5] = strconv.Itoa(record.Deletions)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
