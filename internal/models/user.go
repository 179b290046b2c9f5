package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an account holder. Passwords are stored as bcrypt hashes.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Username      string     `gorm:"uniqueIndex;not null" json:"username"`
	Password      string     `gorm:"not null" json:"-"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	IsActive      bool       `json:"is_active"`
	IsAdmin       bool       `json:"is_admin"`
	VerifyCode    string     `json:"-"`
	VerifyExpires *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// UserProfile carries per-user aggregates and the loyalty points balance.
type UserProfile struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Points            int             `json:"points"`
	TotalUploads      int             `json:"total_uploads"`
	TotalTransactions int             `json:"total_transactions"`
	TotalSavings      decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_savings"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
