package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher is a redeemable reward. Type is either VoucherTypeFixed (flat
// amount) or VoucherTypePercentage (percentage discount).
type Voucher struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code              string          `gorm:"uniqueIndex;not null" json:"code"`
	Title             string          `gorm:"not null" json:"title"`
	Description       string          `json:"description,omitempty"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type              string          `gorm:"not null;default:FIXED" json:"type"`
	PointsCost        int             `json:"points_cost"`
	ValidFrom         time.Time       `json:"valid_from"`
	ValidUntil        *time.Time      `json:"valid_until,omitempty"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	UsageLimit        int             `gorm:"default:1" json:"usage_limit"`
	UsageCount        int             `gorm:"default:0" json:"usage_count"`
	MinPurchaseAmount decimal.Decimal `gorm:"type:decimal(20,2)" json:"min_purchase_amount"`
	ImageURL          string          `json:"image_url,omitempty"`
	CreatedByID       *uuid.UUID      `gorm:"type:uuid" json:"created_by_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsValidAt reports whether the voucher is redeemable at the given moment:
// active, inside its validity window and under its usage limit.
func (v Voucher) IsValidAt(now time.Time) bool {
	if !v.IsActive {
		return false
	}
	if !v.ValidFrom.IsZero() && now.Before(v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return false
	}
	if v.UsageLimit > 0 && v.UsageCount >= v.UsageLimit {
		return false
	}
	return true
}
