package extractor

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

// extractSpreadsheet loads the first sheet of an Excel workbook into a
// row/column grid. The header row is preserved verbatim as the first row.
func (e *Extractor) extractSpreadsheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	e.logger.Debug("Spreadsheet loaded",
		logging.Field{Key: "sheet", Value: sheets[0]},
		logging.Field{Key: "rows", Value: len(rows)})

	return rows, nil
}
