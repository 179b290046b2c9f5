package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the canonical transaction record produced by the row
// normalizer, regardless of which source format the row came from.
// Created exclusively during one ingestion run (or via the direct-entry
// API) and never mutated afterward.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id" csv:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id" csv:"-"`
	ReferenceID string          `gorm:"column:reference_id" json:"reference_id,omitempty" csv:"reference"`
	Date        time.Time       `gorm:"not null;index" json:"date" csv:"date"`
	TimeOfDay   string          `gorm:"column:time_of_day" json:"time" csv:"time"`
	Description string          `json:"description" csv:"description"`
	Category    string          `json:"category" csv:"category"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,2)" json:"dr" csv:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,2)" json:"cr" csv:"credit"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance" csv:"balance"`
	Source      string          `gorm:"not null" json:"source" csv:"source"`
	RawData     string          `json:"raw_data,omitempty" csv:"-"`
	CreatedAt   time.Time       `json:"created_at" csv:"-"`
}

// HasAmount reports whether at least one of debit/credit is strictly
// positive. Every transaction emitted by the normalizer satisfies this.
func (t Transaction) HasAmount() bool {
	return t.Debit.IsPositive() || t.Credit.IsPositive()
}

// IsDebit reports whether the transaction is an outgoing movement.
func (t Transaction) IsDebit() bool {
	return t.Debit.IsPositive()
}

// IsCredit reports whether the transaction is an incoming movement.
func (t Transaction) IsCredit() bool {
	return t.Credit.IsPositive()
}
