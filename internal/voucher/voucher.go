// Package voucher manages the loyalty reward catalogue and redemption.
package voucher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

var (
	ErrNotRedeemable      = errors.New("voucher is not redeemable")
	ErrInsufficientPoints = errors.New("insufficient points")
)

// codeAlphabet deliberately omits ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 10

// Service implements voucher creation and redemption on top of the store.
type Service struct {
	store  *store.Store
	logger logging.Logger
	now    func() time.Time
}

// NewService creates the voucher service.
func NewService(st *store.Store, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Service{store: st, logger: logger, now: time.Now}
}

// CreateInput is the admin-supplied voucher definition.
type CreateInput struct {
	Title             string
	Description       string
	Amount            decimal.Decimal
	Type              string
	PointsCost        int
	ValidFrom         time.Time
	ValidUntil        *time.Time
	UsageLimit        int
	MinPurchaseAmount decimal.Decimal
	ImageURL          string
	CreatedByID       *uuid.UUID
}

// Create registers a new voucher with a generated redemption code.
func (s *Service) Create(in CreateInput) (*models.Voucher, error) {
	if in.Type != models.VoucherTypeFixed && in.Type != models.VoucherTypePercentage {
		return nil, fmt.Errorf("unknown voucher type %q", in.Type)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = s.now()
	}

	v := &models.Voucher{
		ID:                uuid.New(),
		Code:              code,
		Title:             in.Title,
		Description:       in.Description,
		Amount:            in.Amount,
		Type:              in.Type,
		PointsCost:        in.PointsCost,
		ValidFrom:         validFrom,
		ValidUntil:        in.ValidUntil,
		IsActive:          true,
		UsageLimit:        in.UsageLimit,
		MinPurchaseAmount: in.MinPurchaseAmount,
		ImageURL:          in.ImageURL,
		CreatedByID:       in.CreatedByID,
	}
	if err := s.store.CreateVoucher(v); err != nil {
		return nil, err
	}

	s.logger.Info("Voucher created",
		logging.Field{Key: "code", Value: v.Code},
		logging.Field{Key: "type", Value: v.Type})
	return v, nil
}

// ListActive returns vouchers that are redeemable right now.
func (s *Service) ListActive() ([]models.Voucher, error) {
	vouchers, err := s.store.ListActiveVouchers()
	if err != nil {
		return nil, err
	}
	now := s.now()
	valid := vouchers[:0]
	for _, v := range vouchers {
		if v.IsValidAt(now) {
			valid = append(valid, v)
		}
	}
	return valid, nil
}

// Redeem spends the user's points on the voucher identified by code.
func (s *Service) Redeem(userID uuid.UUID, code string) (*models.Voucher, error) {
	v, err := s.store.GetVoucherByCode(code)
	if err != nil {
		return nil, err
	}
	if !v.IsValidAt(s.now()) {
		return nil, ErrNotRedeemable
	}

	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if profile.Points < v.PointsCost {
		return nil, ErrInsufficientPoints
	}

	if err := s.store.RedeemVoucher(userID, v.ID, v.PointsCost); err != nil {
		return nil, err
	}

	s.logger.Info("Voucher redeemed",
		logging.Field{Key: "code", Value: v.Code},
		logging.Field{Key: "user", Value: userID.String()},
		logging.Field{Key: "pointsSpent", Value: v.PointsCost})
	return v, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate voucher code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
