package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/categorizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/extractor"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/identifier"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/normalizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/parsererror"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/schema"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

// scriptedClient answers identification with a fixed source and every
// categorization with a fixed label.
type scriptedClient struct {
	sourceReply   string
	categoryReply string
	err           error
}

func (s *scriptedClient) Complete(_ context.Context, req classify.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(req.Instructions) > 0 && req.MaxTokens == 100 {
		return s.sourceReply, nil
	}
	return s.categoryReply, nil
}

func testService(t *testing.T, client classify.Client) (*Service, *store.Store) {
	t.Helper()
	log := logging.NewMockLogger()
	st, err := store.Open(":memory:", log)
	require.NoError(t, err)

	svc := NewService(
		extractor.New(log),
		identifier.New(client, time.Second, log),
		schema.NewMapper(log),
		normalizer.New(log),
		categorizer.New(client, time.Second, log),
		st,
		log,
	)
	return svc, st
}

func createTestUser(t *testing.T, st *store.Store) uuid.UUID {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Username: "u-" + uuid.NewString(),
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, st.CreateUser(user))
	return user.ID
}

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestProcessUploadEndToEnd(t *testing.T) {
	client := &scriptedClient{
		sourceReply:   `{"source": "Khalti", "confidence": "HIGH"}`,
		categoryReply: "Food & Dining",
	}
	svc, st := testService(t, client)
	userID := createTestUser(t, st)

	data := buildWorkbook(t, [][]interface{}{
		{"Khalti Statement"},
		{"Date", "Description", "Debit", "Credit", "Balance"},
		{"2024-01-05", "Grocery Store", "500", "0", "1500"},
		{"2024-01-06", "Salary", "0", "20000", "21500"},
		{"Total", "", "", "", ""},
	})

	summary, err := svc.ProcessUpload(context.Background(), userID, models.RawDocument{
		Data:     data,
		Filename: "statement.xlsx",
	})
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, models.SourceKhalti, summary.Source)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, "500", summary.TotalDebits.String())
	assert.Equal(t, "20000", summary.TotalCredits.String())
	assert.Equal(t, "19500", summary.NetFlow.String())
	assert.Equal(t, "2024-01-05", summary.PeriodStart)
	assert.Equal(t, "2024-01-06", summary.PeriodEnd)

	stored, err := st.ListTransactions(userID, store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, tx := range stored {
		assert.Equal(t, models.SourceKhalti, tx.Source)
		assert.Equal(t, "Food & Dining", tx.Category)
		assert.True(t, tx.HasAmount())
	}

	profile, err := st.GetProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, 10, profile.Points)
	assert.Equal(t, 1, profile.TotalUploads)
	assert.Equal(t, 2, profile.TotalTransactions)
}

func TestProcessUploadClassifierDownStillIngests(t *testing.T) {
	client := &scriptedClient{err: errors.New("provider down")}
	svc, st := testService(t, client)
	userID := createTestUser(t, st)

	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Description", "Debit", "Credit"},
		{"2024-01-05", "Grocery Store", "500", ""},
	})

	summary, err := svc.ProcessUpload(context.Background(), userID, models.RawDocument{
		Data:     data,
		Filename: "statement.xlsx",
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourceUnknown, summary.Source)
	assert.Equal(t, 1, summary.Count)

	stored, err := st.ListTransactions(userID, store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.CategoryFallback, stored[0].Category)
	assert.Equal(t, models.SourceUnknown, stored[0].Source)
}

func TestProcessUploadNoHeader(t *testing.T) {
	svc, st := testService(t, nil)
	userID := createTestUser(t, st)

	data := buildWorkbook(t, [][]interface{}{
		{"just", "some", "noise"},
		{"1", "2", "3"},
	})

	summary, err := svc.ProcessUpload(context.Background(), userID, models.RawDocument{
		Data:     data,
		Filename: "noise.xlsx",
	})
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Zero(t, summary.Count)
	assert.Contains(t, summary.Message, "no transaction table")

	stored, err := st.ListTransactions(userID, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestProcessUploadUnsupportedFormat(t *testing.T) {
	svc, st := testService(t, nil)
	userID := createTestUser(t, st)

	_, err := svc.ProcessUpload(context.Background(), userID, models.RawDocument{
		Data:        []byte("plain text"),
		ContentType: "text/plain",
		Filename:    "notes.txt",
	})

	var unsupported *parsererror.UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)
}

func TestProcessUploadAllRowsFiltered(t *testing.T) {
	svc, st := testService(t, nil)
	userID := createTestUser(t, st)

	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Description", "Debit", "Credit"},
		{"2024-01-05", "Pending transfer", "-", "-"},
		{"Total", "", "", ""},
	})

	summary, err := svc.ProcessUpload(context.Background(), userID, models.RawDocument{
		Data:     data,
		Filename: "statement.xlsx",
	})
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Zero(t, summary.Count)
	assert.Equal(t, 2, summary.Dropped)

	// No points for an empty batch.
	profile, err := st.GetProfile(userID)
	require.NoError(t, err)
	assert.Zero(t, profile.Points)
}

func TestDateRange(t *testing.T) {
	var dr DateRange
	assert.Empty(t, dr.String())

	jan5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	jan9 := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)

	dr = dr.Extend(jan5)
	dr = dr.Extend(jan2)
	dr = dr.Extend(jan9)
	dr = dr.Extend(time.Time{})

	assert.Equal(t, jan2, dr.Start)
	assert.Equal(t, jan9, dr.End)
	assert.Equal(t, "2024-01-02_2024-01-09", dr.String())
}
