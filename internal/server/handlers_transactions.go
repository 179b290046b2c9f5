package server

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/dateutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/export"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/parsererror"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

// handleUpload runs an uploaded statement through the ingestion pipeline.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "failed to read uploaded file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close upload")
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "failed to read uploaded file")
	}

	doc := models.RawDocument{
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
	}

	summary, err := s.deps.Ingest().ProcessUpload(c.Context(), currentUserID(c), doc)
	if err != nil {
		var unsupported *parsererror.UnsupportedFormatError
		var extraction *parsererror.ExtractionError
		switch {
		case errors.As(err, &unsupported):
			return fail(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.As(err, &extraction):
			return fail(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		s.logger.WithError(err).Error("Upload processing failed",
			logging.Field{Key: "filename", Value: doc.Filename})
		return fail(c, fiber.StatusInternalServerError, "upload processing failed")
	}

	return c.JSON(summary)
}

type createTransactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Debit       string `json:"dr"`
	Credit      string `json:"cr"`
}

// handleCreateTransaction stores one manually entered transaction.
func (s *Server) handleCreateTransaction(c *fiber.Ctx) error {
	var req createTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	date, timeOfDay, ok := dateutils.ParseStatementDate(req.Date)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "unrecognized date format")
	}
	if timeOfDay == "" {
		timeOfDay = time.Now().Format(dateutils.TimeLayout)
	}

	debit, _ := decimal.NewFromString(req.Debit)
	credit, _ := decimal.NewFromString(req.Credit)
	if !debit.IsPositive() && !credit.IsPositive() {
		return fail(c, fiber.StatusBadRequest, "either dr or cr must be a positive amount")
	}

	category := req.Category
	if !models.IsValidCategory(category) {
		category = models.CategoryFallback
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      currentUserID(c),
		Date:        date,
		TimeOfDay:   timeOfDay,
		Description: req.Description,
		Category:    category,
		Debit:       debit,
		Credit:      credit,
		Source:      "Manual",
		CreatedAt:   time.Now(),
	}
	if err := s.deps.Store().CreateTransaction(tx); err != nil {
		s.logger.WithError(err).Error("Transaction creation failed")
		return fail(c, fiber.StatusInternalServerError, "failed to save transaction")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"transaction": tx,
	})
}

// handleListTransactions returns the caller's transactions, newest first.
func (s *Server) handleListTransactions(c *fiber.Ctx) error {
	filter := store.TransactionFilter{
		Source:   c.Query("source"),
		Category: c.Query("category"),
		Offset:   c.QueryInt("offset", 0),
		Limit:    c.QueryInt("limit", 100),
	}
	if from := c.Query("from"); from != "" {
		if t, ok := dateutils.ParseDate(from); ok {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, ok := dateutils.ParseDate(to); ok {
			filter.To = &t
		}
	}

	transactions, err := s.deps.Store().ListTransactions(currentUserID(c), filter)
	if err != nil {
		s.logger.WithError(err).Error("Transaction listing failed")
		return fail(c, fiber.StatusInternalServerError, "failed to list transactions")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"count":        len(transactions),
		"transactions": transactions,
	})
}

// handleExportTransactions streams the caller's transactions as CSV.
func (s *Server) handleExportTransactions(c *fiber.Ctx) error {
	transactions, err := s.deps.Store().ListTransactions(currentUserID(c), store.TransactionFilter{})
	if err != nil {
		s.logger.WithError(err).Error("Transaction export query failed")
		return fail(c, fiber.StatusInternalServerError, "failed to export transactions")
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, transactions); err != nil {
		s.logger.WithError(err).Error("CSV export failed")
		return fail(c, fiber.StatusInternalServerError, "failed to export transactions")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Send(buf.Bytes())
}

// handleDeleteTransaction removes one of the caller's transactions.
func (s *Server) handleDeleteTransaction(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid transaction id")
	}

	if err := s.deps.Store().DeleteTransaction(currentUserID(c), txID); err != nil {
		if err == store.ErrNotFound {
			return fail(c, fiber.StatusNotFound, "transaction not found")
		}
		s.logger.WithError(err).Error("Transaction deletion failed")
		return fail(c, fiber.StatusInternalServerError, "failed to delete transaction")
	}

	return c.JSON(fiber.Map{"success": true, "message": "transaction deleted"})
}
