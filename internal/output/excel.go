package output

import (
	"fmt"

	"github.com/contribtools/ghreport/internal/report"
	"github.com/xuri/excelize/v2"
)

const excelSheet = "Contributors"

func writeExcelFile(path string, rep *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", excelSheet)

	for col, name := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(excelSheet, cell, name); err != nil {
			return err
		}
	}

	for i, record := range rep.Contributors {
		row := i + 2
		cells := []any{
			record.Username,
			record.DisplayName,
			record.Contributions,
			nil, nil, nil,
			record.ProfileURL,
			record.Type,
		}
		if record.StatsCollected {
			cells[3] = record.TotalCommits
			cells[4] = record.Additions
			cells[5] = record.Deletions
		}
		for col, value := range cells {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(excelSheet, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
