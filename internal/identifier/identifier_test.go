package identifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

type stubClient struct {
	reply string
	err   error
	last  classify.Request
}

func (s *stubClient) Complete(_ context.Context, req classify.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func preview(lines ...string) models.TabularPreview {
	return models.TabularPreview{Lines: lines}
}

func TestIdentifyKnownSources(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		source     string
		confidence models.Confidence
	}{
		{"khalti high", `{"source": "Khalti", "confidence": "HIGH"}`, models.SourceKhalti, models.ConfidenceHigh},
		{"esewa medium", `{"source": "eSewa", "confidence": "MEDIUM"}`, models.SourceESewa, models.ConfidenceMedium},
		{"global ime", `{"source": "Global IME", "confidence": "LOW"}`, models.SourceGlobalIME, models.ConfidenceLow},
		{"case insensitive source", `{"source": "KHALTI", "confidence": "high"}`, models.SourceKhalti, models.ConfidenceHigh},
		{"bank suffix tolerated", `{"source": "Global IME Bank", "confidence": "HIGH"}`, models.SourceGlobalIME, models.ConfidenceHigh},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{reply: tc.reply}
			id := New(client, time.Second, logging.NewMockLogger())

			label := id.Identify(context.Background(), preview("Date,Description,Debit,Credit"))
			assert.Equal(t, tc.source, label.Name)
			assert.Equal(t, tc.confidence, label.Confidence)
		})
	}
}

func TestIdentifyToleratesSurroundingProse(t *testing.T) {
	client := &stubClient{reply: "Sure! Here is the result: {\"source\": \"eSewa\", \"confidence\": \"HIGH\"} Hope that helps."}
	id := New(client, time.Second, logging.NewMockLogger())

	label := id.Identify(context.Background(), preview("Transaction Code,Date,Dr.,Cr."))
	assert.Equal(t, models.SourceESewa, label.Name)
}

func TestIdentifyDegradesToUnknown(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
	}{
		{"call failure", &stubClient{err: errors.New("boom")}},
		{"empty reply", &stubClient{reply: ""}},
		{"no json", &stubClient{reply: "I cannot tell"}},
		{"malformed json", &stubClient{reply: `{"source": `}},
		{"unrecognized source", &stubClient{reply: `{"source": "PayPal", "confidence": "HIGH"}`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := New(tc.client, time.Second, logging.NewMockLogger())
			label := id.Identify(context.Background(), preview("Date,Description"))
			assert.Equal(t, models.Unknown(), label)
		})
	}
}

func TestIdentifyNilClient(t *testing.T) {
	id := New(nil, time.Second, logging.NewMockLogger())
	label := id.Identify(context.Background(), preview("Date,Description"))
	assert.Equal(t, models.Unknown(), label)
}

func TestIdentifyEmptyPreviewSkipsCall(t *testing.T) {
	client := &stubClient{reply: `{"source": "Khalti", "confidence": "HIGH"}`}
	id := New(client, time.Second, logging.NewMockLogger())

	label := id.Identify(context.Background(), preview("", "  "))
	assert.Equal(t, models.Unknown(), label)
	assert.Empty(t, client.last.Content)
}

func TestIdentifySendsFingerprintOnly(t *testing.T) {
	long := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, "2025-04-11,Some repeated statement row content,100,0")
	}
	client := &stubClient{reply: `{"source": "Khalti", "confidence": "HIGH"}`}
	id := New(client, time.Second, logging.NewMockLogger())

	id.Identify(context.Background(), preview(long...))
	assert.LessOrEqual(t, len(client.last.Content), fingerprintChars)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSONObject(`prefix {"a": 1} suffix`))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSONObject(`{"a": {"b": 2}}`))
	assert.Empty(t, extractJSONObject("no braces here"))
	assert.Empty(t, extractJSONObject(`{"unbalanced": `))
}
