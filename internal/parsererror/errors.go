// Package parsererror defines the typed errors produced by the statement
// ingestion pipeline. Only document-level failures are represented here;
// row-level defects are skipped and logged, never surfaced as errors.
package parsererror

import "fmt"

// UnsupportedFormatError indicates the uploaded document kind cannot be
// extracted (neither PDF nor spreadsheet). The whole upload is rejected.
type UnsupportedFormatError struct {
	Filename    string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format for '%s' (content type %q): expected PDF or Excel",
		e.Filename, e.ContentType)
}

// ExtractionError indicates the document bytes could not be decoded.
// The whole upload is rejected.
type ExtractionError struct {
	Filename string
	Kind     string // "pdf" or "spreadsheet"
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s document '%s': %v", e.Kind, e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NoHeaderError indicates no recognizable transaction table header was found
// in the extracted preview. The upload yields an empty result with an
// explanatory message rather than a crash.
type NoHeaderError struct {
	Lines int // number of preview lines scanned
}

func (e *NoHeaderError) Error() string {
	return fmt.Sprintf("no transaction table header found in %d extracted lines", e.Lines)
}
