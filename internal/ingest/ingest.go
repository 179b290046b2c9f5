// Package ingest orchestrates the statement pipeline: extract the uploaded
// document, identify its source, resolve the column schema, normalize the
// rows, categorize the result and persist the batch atomically.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/categorizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/dateutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/extractor"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/identifier"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/normalizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/parsererror"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/schema"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

// pointsPerUpload is the loyalty reward for a successfully ingested
// statement.
const pointsPerUpload = 10

// DateRange is the calendar span covered by an ingested batch.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the range as "YYYY-MM-DD_YYYY-MM-DD", or "" when empty.
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s",
		dr.Start.Format(dateutils.DateLayoutISO),
		dr.End.Format(dateutils.DateLayoutISO))
}

// Extend widens the range to include t.
func (dr DateRange) Extend(t time.Time) DateRange {
	if t.IsZero() {
		return dr
	}
	if dr.Start.IsZero() || t.Before(dr.Start) {
		dr.Start = t
	}
	if dr.End.IsZero() || t.After(dr.End) {
		dr.End = t
	}
	return dr
}

// Summary is the outcome of one upload reported back to the client.
type Summary struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Source       string          `json:"source"`
	Confidence   string          `json:"confidence"`
	Count        int             `json:"count"`
	Dropped      int             `json:"dropped"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	NetFlow      decimal.Decimal `json:"net_flow"`
	PeriodStart  string          `json:"period_start,omitempty"`
	PeriodEnd    string          `json:"period_end,omitempty"`
}

// Service wires the pipeline stages together.
type Service struct {
	extractor   *extractor.Extractor
	identifier  *identifier.Identifier
	mapper      *schema.Mapper
	normalizer  *normalizer.Normalizer
	categorizer *categorizer.Categorizer
	store       *store.Store
	logger      logging.Logger
}

// NewService creates the ingestion service.
func NewService(
	ext *extractor.Extractor,
	ident *identifier.Identifier,
	mapper *schema.Mapper,
	norm *normalizer.Normalizer,
	cat *categorizer.Categorizer,
	st *store.Store,
	logger logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Service{
		extractor:   ext,
		identifier:  ident,
		mapper:      mapper,
		normalizer:  norm,
		categorizer: cat,
		store:       st,
		logger:      logger,
	}
}

// ProcessUpload runs the full pipeline for one uploaded statement. A document
// without a recognizable header yields an empty successful summary; format
// and extraction failures are returned as errors for the transport layer to
// map to client responses.
func (s *Service) ProcessUpload(ctx context.Context, userID uuid.UUID, doc models.RawDocument) (Summary, error) {
	preview, err := s.extractor.Extract(doc)
	if err != nil {
		return Summary{}, err
	}
	if preview.IsEmpty() {
		return Summary{
			Success: true,
			Message: "no tabular content found in document",
		}, nil
	}

	source := s.identifier.Identify(ctx, preview)
	records := extractor.ParsePreview(preview)

	mapping, err := s.mapper.Resolve(records, source)
	if err != nil {
		var noHeader *parsererror.NoHeaderError
		if errors.As(err, &noHeader) {
			s.logger.Warn("No header row found in upload",
				logging.Field{Key: "filename", Value: doc.Filename},
				logging.Field{Key: "lines", Value: noHeader.Lines})
			return Summary{
				Success: true,
				Message: "no transaction table found in document",
				Source:  source.Name,
			}, nil
		}
		return Summary{}, err
	}
	if !mapping.Roles.Usable() {
		return Summary{
			Success: true,
			Message: "no amount columns recognized in document",
			Source:  source.Name,
		}, nil
	}

	result := s.normalizer.Normalize(records, mapping, source, userID)
	if len(result.Transactions) == 0 {
		return Summary{
			Success: true,
			Message: "no transactions survived filtering",
			Source:  source.Name,
			Dropped: result.Dropped,
		}, nil
	}

	s.categorizer.CategorizeAll(ctx, result.Transactions)

	if err := s.store.SaveTransactions(userID, result.Transactions, pointsPerUpload); err != nil {
		return Summary{}, fmt.Errorf("failed to persist batch: %w", err)
	}

	summary := s.summarize(result, source)
	s.logger.Info("Upload processed",
		logging.Field{Key: "filename", Value: doc.Filename},
		logging.Field{Key: "source", Value: source.Name},
		logging.Field{Key: "transactions", Value: summary.Count},
		logging.Field{Key: "dropped", Value: summary.Dropped})
	return summary, nil
}

func (s *Service) summarize(result normalizer.Result, source models.SourceLabel) Summary {
	var (
		debits  = decimal.Zero
		credits = decimal.Zero
		period  DateRange
	)
	for _, tx := range result.Transactions {
		debits = debits.Add(tx.Debit)
		credits = credits.Add(tx.Credit)
		period = period.Extend(tx.Date)
	}

	summary := Summary{
		Success:      true,
		Message:      fmt.Sprintf("processed %d transactions", len(result.Transactions)),
		Source:       source.Name,
		Confidence:   string(source.Confidence),
		Count:        len(result.Transactions),
		Dropped:      result.Dropped,
		TotalDebits:  debits,
		TotalCredits: credits,
		NetFlow:      credits.Sub(debits),
	}
	if !period.Start.IsZero() {
		summary.PeriodStart = period.Start.Format(dateutils.DateLayoutISO)
		summary.PeriodEnd = period.End.Format(dateutils.DateLayoutISO)
	}
	return summary
}
