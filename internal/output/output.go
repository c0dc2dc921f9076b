// Package output renders contribution reports to the supported formats.
package output

import (
	"fmt"
	"os"
	"time"

	"github.com/contribtools/ghreport/internal/report"
	"go.uber.org/zap"
)

// Format selects a report rendering.
type Format string

const (
	FormatConsole Format = "console"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatHTML    Format = "html"
	FormatXLSX    Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatConsole, FormatCSV, FormatJSON, FormatHTML, FormatXLSX:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", raw)
	}
}

// Extension returns the file extension for formats written to disk.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	case FormatXLSX:
		return "xlsx"
	default:
		return "txt"
	}
}

// DefaultFilename builds a timestamped filename for a format.
func DefaultFilename(format Format, now time.Time) string {
	return fmt.Sprintf("contribution_report_%s.%s", now.Format("20060102_150405"), format.Extension())
}

// Writer renders reports and records where they went.
type Writer struct {
	logger *zap.Logger
	// Now feeds default filenames.
	Now func() time.Time
}

// NewWriter creates a report writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger, Now: time.Now}
}

// Write renders the report in the requested format. Console output goes to
// stdout; the other formats go to path, or a generated filename when path
// is empty.
func (w *Writer) Write(rep *report.Report, format Format, path string) error {
	if format == FormatConsole {
		return writeConsole(os.Stdout, rep)
	}

	if path == "" {
		path = DefaultFilename(format, w.Now())
	}

	var err error
	switch format {
	case FormatCSV:
		err = writeCSVFile(path, rep)
	case FormatJSON:
		err = writeJSONFile(path, rep)
	case FormatHTML:
		err = writeChartFile(path, rep)
	case FormatXLSX:
		err = writeExcelFile(path, rep)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("write %s report: %w", format, err)
	}

	w.logger.Info("report saved",
		zap.String("format", string(format)),
		zap.String("path", path))
	return nil
}
