// Package extractor converts uploaded statement documents (PDF or
// spreadsheet) into a flattened tabular text preview, one comma-separated
// row per line. This is the first stage of the ingestion pipeline; it knows
// nothing about transactions, only about getting rows of text out of bytes.
package extractor

import (
	"encoding/csv"
	"strings"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/parsererror"
)

// Kind is the detected document kind.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindUnsupported Kind = "unsupported"
)

// Extractor turns raw uploaded documents into tabular previews.
type Extractor struct {
	logger logging.Logger
}

// New creates an Extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger}
}

// DetectKind determines the document kind from the declared media type
// first, falling back to the filename extension.
func DetectKind(contentType, filename string) Kind {
	switch contentType {
	case "application/pdf":
		return KindPDF
	case "application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return KindSpreadsheet
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return KindPDF
	case strings.HasSuffix(lower, ".xls"), strings.HasSuffix(lower, ".xlsx"):
		return KindSpreadsheet
	}

	return KindUnsupported
}

// Extract converts a raw document into a tabular preview. Unsupported kinds
// fail with UnsupportedFormatError; decode failures fail with
// ExtractionError. There is no partial recovery at this stage.
func (e *Extractor) Extract(doc models.RawDocument) (models.TabularPreview, error) {
	kind := DetectKind(doc.ContentType, doc.Filename)

	e.logger.Info("Extracting uploaded document",
		logging.Field{Key: "filename", Value: doc.Filename},
		logging.Field{Key: "kind", Value: string(kind)},
		logging.Field{Key: "size", Value: len(doc.Data)})

	var (
		rows [][]string
		err  error
	)
	switch kind {
	case KindPDF:
		rows, err = e.extractPDF(doc.Data)
	case KindSpreadsheet:
		rows, err = e.extractSpreadsheet(doc.Data)
	default:
		return models.TabularPreview{}, &parsererror.UnsupportedFormatError{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
		}
	}
	if err != nil {
		return models.TabularPreview{}, &parsererror.ExtractionError{
			Filename: doc.Filename,
			Kind:     string(kind),
			Err:      err,
		}
	}

	preview := flattenRows(rows)
	e.logger.Debug("Document extracted",
		logging.Field{Key: "filename", Value: doc.Filename},
		logging.Field{Key: "rows", Value: len(preview.Lines)})
	return preview, nil
}

// flattenRows serializes extracted rows into the comma-separated preview
// form, quoting fields that embed delimiters.
func flattenRows(rows [][]string) models.TabularPreview {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		// Write errors only occur on the underlying writer; a Builder
		// cannot fail.
		_ = w.Write(row)
	}
	w.Flush()

	text := strings.TrimRight(buf.String(), "\n")
	if text == "" {
		return models.TabularPreview{}
	}
	return models.TabularPreview{Lines: strings.Split(text, "\n")}
}

// ParsePreview splits preview lines back into field records, tolerating
// ragged row lengths.
func ParsePreview(preview models.TabularPreview) [][]string {
	r := csv.NewReader(strings.NewReader(preview.Text()))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		// The preview was produced by our own writer, so a parse failure
		// means a pathological row slipped through; degrade to naive
		// splitting rather than dropping the upload.
		records = nil
		for _, line := range preview.Lines {
			records = append(records, strings.Split(line, ","))
		}
	}
	return records
}
