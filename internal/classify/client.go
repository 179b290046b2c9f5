// Package classify provides the external text-classification capability used
// by both source identification and category detection. Both callers follow
// the same contract: send instructions plus content, read back freeform text,
// and degrade to a safe default on any failure.
package classify

import (
	"context"
	"strings"
	"time"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

// Request is one classification call: a fixed instruction prompt plus the
// content to classify, with sampling limits.
type Request struct {
	Instructions string
	Content      string
	Temperature  float64
	MaxTokens    int
}

// Client is the interface to an external text-classification service.
// Implementations interact with a concrete provider (Groq, Gemini).
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// WithFallback performs one classification call and returns the trimmed
// reply, or fallback if the call fails, times out, or returns an empty
// reply. It never returns an error: classification failures must degrade,
// not propagate.
func WithFallback(ctx context.Context, client Client, req Request, fallback string, timeout time.Duration, logger logging.Logger) string {
	if client == nil {
		return fallback
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := client.Complete(ctx, req)
	if err != nil {
		logger.WithError(err).Warn("classification call failed, using fallback",
			logging.Field{Key: "fallback", Value: fallback})
		return fallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		logger.Warn("classification returned empty reply, using fallback",
			logging.Field{Key: "fallback", Value: fallback})
		return fallback
	}
	return reply
}
