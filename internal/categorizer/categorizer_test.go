package categorizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

type stubClient struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (s *stubClient) Complete(_ context.Context, req classify.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if reply, ok := s.replies[req.Content]; ok {
		return reply, nil
	}
	return "Other", nil
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected string
	}{
		{"valid label", "Food & Dining", "Food & Dining"},
		{"quoted label", `"Transportation"`, "Transportation"},
		{"trailing period", "Utilities.", "Utilities"},
		{"off-script reply", "Probably groceries", models.CategoryFallback},
		{"empty reply", "", models.CategoryFallback},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{replies: map[string]string{"Some merchant": tc.reply}}
			cat := New(client, time.Second, logging.NewMockLogger())

			assert.Equal(t, tc.expected, cat.Categorize(context.Background(), "Some merchant"))
		})
	}
}

func TestCategorizeFailureDegradesToFallback(t *testing.T) {
	client := &stubClient{err: errors.New("timeout")}
	cat := New(client, time.Second, logging.NewMockLogger())

	assert.Equal(t, models.CategoryFallback, cat.Categorize(context.Background(), "Grocery Store"))
}

func TestCategorizeEmptyDescriptionSkipsCall(t *testing.T) {
	client := &stubClient{}
	cat := New(client, time.Second, logging.NewMockLogger())

	assert.Equal(t, models.CategoryFallback, cat.Categorize(context.Background(), "   "))
	assert.Zero(t, client.calls)
}

func TestCategorizeNilClient(t *testing.T) {
	cat := New(nil, time.Second, logging.NewMockLogger())
	assert.Equal(t, models.CategoryFallback, cat.Categorize(context.Background(), "Coffee"))
}

func TestCategorizeAllPreservesOrder(t *testing.T) {
	replies := map[string]string{
		"desc-0": "Food & Dining",
		"desc-1": "Transportation",
		"desc-2": "Rent",
	}
	transactions := make([]models.Transaction, 0, 30)
	for i := 0; i < 30; i++ {
		transactions = append(transactions, models.Transaction{
			Description: "desc-" + string(rune('0'+i%3)),
		})
	}

	client := &stubClient{replies: replies}
	cat := New(client, time.Second, logging.NewMockLogger())
	cat.CategorizeAll(context.Background(), transactions)

	for i, tx := range transactions {
		assert.Equal(t, replies["desc-"+string(rune('0'+i%3))], tx.Category, "index %d", i)
	}
}

func TestCategorizeAllSmallBatchSequential(t *testing.T) {
	transactions := []models.Transaction{
		{Description: "Coffee"},
		{Description: "Bus fare"},
	}
	client := &stubClient{replies: map[string]string{
		"Coffee":   "Food & Dining",
		"Bus fare": "Transportation",
	}}
	cat := New(client, time.Second, logging.NewMockLogger())
	cat.CategorizeAll(context.Background(), transactions)

	assert.Equal(t, "Food & Dining", transactions[0].Category)
	assert.Equal(t, "Transportation", transactions[1].Category)
	assert.Equal(t, 2, client.calls)
}

func TestCategorizeAllWithFailingClientCompletesBatch(t *testing.T) {
	transactions := make([]models.Transaction, 20)
	for i := range transactions {
		transactions[i].Description = "tx"
	}

	client := &stubClient{err: errors.New("provider down")}
	cat := New(client, time.Second, logging.NewMockLogger())
	cat.CategorizeAll(context.Background(), transactions)

	for _, tx := range transactions {
		assert.Equal(t, models.CategoryFallback, tx.Category)
	}
}

func TestBuildInstructionsListsEveryLabel(t *testing.T) {
	instructions := buildInstructions()
	for _, label := range models.CategoryLabels {
		assert.True(t, strings.Contains(instructions, label), "missing label %q", label)
	}
}
