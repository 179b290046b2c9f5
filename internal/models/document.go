package models

import "strings"

// RawDocument is an uploaded statement as received from the request layer:
// opaque bytes plus the declared media type and original filename. It is
// ephemeral and owned solely by the extraction call.
type RawDocument struct {
	Data        []byte
	ContentType string
	Filename    string
}

// TabularPreview is the flattened text representation of an extracted
// document: one table row per line, fields comma-separated. It is transient,
// consumed immediately by the source identifier and schema mapper.
type TabularPreview struct {
	Lines []string
}

// Text returns the whole preview as a single newline-joined buffer.
func (p TabularPreview) Text() string {
	return strings.Join(p.Lines, "\n")
}

// Fingerprint returns the first n characters of the flattened preview,
// used as input to source identification.
func (p TabularPreview) Fingerprint(n int) string {
	text := p.Text()
	if len(text) <= n {
		return text
	}
	return text[:n]
}

// IsEmpty reports whether extraction produced no rows at all.
func (p TabularPreview) IsEmpty() bool {
	for _, line := range p.Lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}
