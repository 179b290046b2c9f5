package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/dateutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/voucher"
)

type createVoucherRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	Type              string `json:"type"`
	PointsCost        int    `json:"points_cost"`
	ValidFrom         string `json:"valid_from"`
	ValidUntil        string `json:"valid_until"`
	UsageLimit        int    `json:"usage_limit"`
	MinPurchaseAmount string `json:"min_purchase_amount"`
	ImageURL          string `json:"image_url"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

// handleListVouchers returns the currently redeemable vouchers.
func (s *Server) handleListVouchers(c *fiber.Ctx) error {
	vouchers, err := s.deps.Vouchers().ListActive()
	if err != nil {
		s.logger.WithError(err).Error("Voucher listing failed")
		return fail(c, fiber.StatusInternalServerError, "failed to list vouchers")
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(vouchers),
		"vouchers": vouchers,
	})
}

// handleCreateVoucher registers a new voucher. Admin only.
func (s *Server) handleCreateVoucher(c *fiber.Ctx) error {
	if !isAdmin(c) {
		return fail(c, fiber.StatusForbidden, "admin access required")
	}

	var req createVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fail(c, fiber.StatusBadRequest, "amount must be a positive number")
	}
	minPurchase := decimal.Zero
	if req.MinPurchaseAmount != "" {
		if minPurchase, err = decimal.NewFromString(req.MinPurchaseAmount); err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid min_purchase_amount")
		}
	}

	in := voucher.CreateInput{
		Title:             req.Title,
		Description:       req.Description,
		Amount:            amount,
		Type:              req.Type,
		PointsCost:        req.PointsCost,
		UsageLimit:        req.UsageLimit,
		MinPurchaseAmount: minPurchase,
		ImageURL:          req.ImageURL,
	}
	userID := currentUserID(c)
	in.CreatedByID = &userID

	if req.ValidFrom != "" {
		if t, ok := dateutils.ParseDate(req.ValidFrom); ok {
			in.ValidFrom = t
		}
	}
	if req.ValidUntil != "" {
		if t, ok := dateutils.ParseDate(req.ValidUntil); ok {
			// Valid through the end of the stated day.
			until := t.Add(24*time.Hour - time.Second)
			in.ValidUntil = &until
		}
	}

	v, err := s.deps.Vouchers().Create(in)
	if err != nil {
		s.logger.WithError(err).Error("Voucher creation failed")
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"voucher": v,
	})
}

// handleRedeemVoucher spends the caller's points on a voucher.
func (s *Server) handleRedeemVoucher(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return fail(c, fiber.StatusBadRequest, "voucher code is required")
	}

	v, err := s.deps.Vouchers().Redeem(currentUserID(c), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fail(c, fiber.StatusNotFound, "voucher not found")
		case errors.Is(err, voucher.ErrNotRedeemable):
			return fail(c, fiber.StatusConflict, "voucher is not redeemable")
		case errors.Is(err, voucher.ErrInsufficientPoints):
			return fail(c, fiber.StatusPaymentRequired, "insufficient points")
		}
		s.logger.WithError(err).Error("Voucher redemption failed")
		return fail(c, fiber.StatusInternalServerError, "redemption failed")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "voucher redeemed",
		"voucher": v,
	})
}
