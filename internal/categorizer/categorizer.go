// Package categorizer assigns a spending category to each transaction by
// classifying its description against a closed label set. Categorization is
// best-effort: failures, timeouts and off-script replies all resolve to the
// fallback category and the batch always completes.
package categorizer

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

// sequentialThreshold is the batch size below which the worker pool is not
// worth spinning up.
const sequentialThreshold = 8

// Categorizer labels transaction descriptions.
type Categorizer struct {
	client       classify.Client
	timeout      time.Duration
	workerCount  int
	instructions string
	logger       logging.Logger
}

// New creates a Categorizer using the given classification client. A nil
// client disables classification; every transaction then gets the fallback
// category.
func New(client classify.Client, timeout time.Duration, logger logging.Logger) *Categorizer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Categorizer{
		client:       client,
		timeout:      timeout,
		workerCount:  runtime.NumCPU(),
		instructions: buildInstructions(),
		logger:       logger,
	}
}

func buildInstructions() string {
	var b strings.Builder
	b.WriteString("You classify a personal-finance transaction description into exactly one category.\n")
	b.WriteString("The categories are:\n")
	for _, label := range models.CategoryLabels {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteByte('\n')
	}
	b.WriteString("Reply with the category name only, verbatim, with no punctuation or explanation. ")
	b.WriteString("If nothing fits, reply Other.")
	return b.String()
}

// Categorize labels one description. It never fails; the worst outcome is
// the fallback category.
func (c *Categorizer) Categorize(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.CategoryFallback
	}

	req := classify.Request{
		Instructions: c.instructions,
		Content:      description,
		Temperature:  0.1,
		MaxTokens:    20,
	}

	reply := classify.WithFallback(ctx, c.client, req, models.CategoryFallback, c.timeout, c.logger)
	label := cleanLabel(reply)
	if !models.IsValidCategory(label) {
		c.logger.Debug("Classifier replied outside the label set",
			logging.Field{Key: "reply", Value: reply})
		return models.CategoryFallback
	}
	return label
}

// CategorizeAll labels every transaction in the batch, preserving order.
// Large batches fan out over a bounded worker pool with one classification
// call per transaction.
func (c *Categorizer) CategorizeAll(ctx context.Context, transactions []models.Transaction) {
	if len(transactions) == 0 {
		return
	}
	if c.client == nil || len(transactions) < sequentialThreshold {
		for i := range transactions {
			transactions[i].Category = c.Categorize(ctx, transactions[i].Description)
		}
		return
	}

	jobs := make(chan int, c.workerCount)
	var wg sync.WaitGroup
	for w := 0; w < c.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				transactions[i].Category = c.Categorize(ctx, transactions[i].Description)
			}
		}()
	}

	for i := range transactions {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			c.fillRemaining(transactions)
			return
		}
	}
	close(jobs)
	wg.Wait()

	c.logger.Debug("Batch categorization completed",
		logging.Field{Key: "transactions", Value: len(transactions)},
		logging.Field{Key: "workers", Value: c.workerCount})
}

// fillRemaining assigns the fallback to any transaction a canceled batch
// never reached.
func (c *Categorizer) fillRemaining(transactions []models.Transaction) {
	for i := range transactions {
		if transactions[i].Category == "" {
			transactions[i].Category = models.CategoryFallback
		}
	}
}

// cleanLabel strips the quoting and trailing punctuation chat models like to
// add around single-label replies.
func cleanLabel(reply string) string {
	label := strings.TrimSpace(reply)
	label = strings.Trim(label, `"'`)
	label = strings.TrimSuffix(label, ".")
	return strings.TrimSpace(label)
}
