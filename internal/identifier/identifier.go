// Package identifier labels an extracted statement with its originating
// platform (Khalti, eSewa, Global IME) by sending a fingerprint of the
// preview to the classification service. Identification is advisory: any
// failure degrades to the Unknown label and never blocks the pipeline.
package identifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

// fingerprintChars is how much of the flattened preview is sent for
// identification. Statement headers and column names all appear well within
// this window.
const fingerprintChars = 2000

const identifyInstructions = `You identify the source platform of a bank or wallet statement from a text snippet of its contents.
The possible sources are exactly: "Khalti", "eSewa", "Global IME".
Khalti statements mention Khalti, have columns like "Transaction ID", "Service", and amounts in a single signed column.
eSewa statements mention eSewa, have a "Status" column with values like COMPLETE, and separate "Dr." and "Cr." columns.
Global IME statements mention Global IME Bank, have "Withdraw" and "Deposit" columns and a running "Balance".
Reply with only a JSON object of the form {"source": "<one of the three, or Unknown>", "confidence": "<HIGH, MEDIUM or LOW>"} and nothing else.`

// Identifier resolves a statement preview to a SourceLabel.
type Identifier struct {
	client  classify.Client
	timeout time.Duration
	logger  logging.Logger
}

// New creates an Identifier using the given classification client. A nil
// client disables identification; every upload then resolves to Unknown.
func New(client classify.Client, timeout time.Duration, logger logging.Logger) *Identifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Identifier{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

type identifyReply struct {
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
}

// Identify labels the preview with its source platform. It never fails:
// classification errors, malformed replies and unrecognized sources all
// resolve to the Unknown label.
func (id *Identifier) Identify(ctx context.Context, preview models.TabularPreview) models.SourceLabel {
	if preview.IsEmpty() {
		return models.Unknown()
	}

	req := classify.Request{
		Instructions: identifyInstructions,
		Content:      preview.Fingerprint(fingerprintChars),
		Temperature:  0.1,
		MaxTokens:    100,
	}

	reply := classify.WithFallback(ctx, id.client, req, "", id.timeout, id.logger)
	if reply == "" {
		return models.Unknown()
	}

	label := id.parseReply(reply)
	id.logger.Info("Statement source identified",
		logging.Field{Key: "source", Value: label.Name},
		logging.Field{Key: "confidence", Value: string(label.Confidence)})
	return label
}

// parseReply decodes the classifier's JSON reply, tolerating surrounding
// prose by extracting the first balanced JSON object.
func (id *Identifier) parseReply(reply string) models.SourceLabel {
	raw := extractJSONObject(reply)
	if raw == "" {
		id.logger.Warn("source reply contained no JSON object",
			logging.Field{Key: "reply", Value: reply})
		return models.Unknown()
	}

	var parsed identifyReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		id.logger.WithError(err).Warn("failed to decode source reply")
		return models.Unknown()
	}

	label := models.SourceLabel{
		Name:       canonicalSource(parsed.Source),
		Confidence: canonicalConfidence(parsed.Confidence),
	}
	if !label.IsKnown() {
		return models.Unknown()
	}
	return label
}

// extractJSONObject returns the first balanced {...} span in s, or "".
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func canonicalSource(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "khalti":
		return models.SourceKhalti
	case "esewa":
		return models.SourceESewa
	case "global ime", "global ime bank", "globalime":
		return models.SourceGlobalIME
	}
	return models.SourceUnknown
}

func canonicalConfidence(s string) models.Confidence {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.ConfidenceHigh):
		return models.ConfidenceHigh
	case string(models.ConfidenceMedium):
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}
