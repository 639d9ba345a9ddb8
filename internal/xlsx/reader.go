package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	appLog "tabcal/internal/log"
	"tabcal/internal/model"
)

// ReadRecords loads the first sheet of an xlsx file into records. The
// first non-empty row is the header row; subsequent rows become one
// record each, keyed by header. Fully empty rows are skipped. Cells are
// kept as strings; typing happens later in transforms and assembly.
func ReadRecords(path string) ([]model.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s!%s: %w", path, sheet, err)
	}

	var headers []string
	records := make([]model.Record, 0, len(rows))

	for _, row := range rows {
		if emptyRow(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, h := range row {
				headers[i] = strings.TrimSpace(h)
			}
			continue
		}

		rec := make(model.Record, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}

	if headers == nil {
		return nil, fmt.Errorf("%s!%s has no header row", path, sheet)
	}

	appLog.Info("spreadsheet loaded", "path", path, "sheet", sheet,
		"columns", len(headers), "records", len(records))
	return records, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
