package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/contribtools/ghreport/internal/report"
)

func writeJSONFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(out io.Writer, rep *report.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}
