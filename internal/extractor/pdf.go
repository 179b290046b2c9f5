package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

// fieldGapPoints is the horizontal gap (in PDF points) between text fragments
// that separates two table cells. Fragments closer than this are glued into
// one field.
const fieldGapPoints = 8.0

// minHeuristicTokens is the minimum whitespace-separated token count for a
// free-text line to be treated as a table row in the fallback path.
const minHeuristicTokens = 4

// extractPDF pulls table rows out of each page. Pages with positional row
// data are read as tables; pages without fall back to plain-text lines split
// on whitespace, keeping only lines with at least minHeuristicTokens tokens.
func (e *Extractor) extractPDF(data []byte) (rows [][]string, err error) {
	// The pdf library panics on some malformed documents; a decode panic is
	// an extraction failure like any other.
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("pdf decode panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageRows := e.extractPageRows(page, pageNum)
		rows = append(rows, pageRows...)
	}

	return rows, nil
}

// extractPageRows extracts one page, preferring positional rows over the
// plain-text heuristic.
func (e *Extractor) extractPageRows(page pdf.Page, pageNum int) [][]string {
	textRows, err := page.GetTextByRow()
	if err == nil && len(textRows) > 0 {
		var rows [][]string
		for _, row := range textRows {
			fields := groupRowFields(row)
			if len(fields) > 0 {
				rows = append(rows, fields)
			}
		}
		if len(rows) > 0 {
			return rows
		}
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to extract page text",
			logging.Field{Key: "page", Value: pageNum})
		return nil
	}

	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) >= minHeuristicTokens {
			rows = append(rows, tokens)
		}
	}
	return rows
}

// groupRowFields merges the positioned text fragments of one row into cell
// values, starting a new cell whenever the horizontal gap to the previous
// fragment exceeds fieldGapPoints.
func groupRowFields(row *pdf.Row) []string {
	var (
		fields  []string
		current strings.Builder
		lastEnd float64
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			fields = append(fields, s)
		}
		current.Reset()
	}

	for i, text := range row.Content {
		if i > 0 && text.X-lastEnd > fieldGapPoints {
			flush()
		}
		current.WriteString(text.S)
		lastEnd = text.X + text.W
	}
	flush()

	return fields
}
