// Package store is the persistence layer, backed by SQLite through GORM.
// Every write that spans multiple records runs inside one database
// transaction so an ingestion batch lands atomically or not at all.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store wraps the database handle.
type Store struct {
	db  *gorm.DB
	log logging.Logger
}

// Open connects to the SQLite database at dbPath and migrates the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(dbPath string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.GetLogger()
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Transaction{},
		&models.Voucher{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database ready", logging.Field{Key: "path", Value: dbPath})
	return &Store{db: db, log: log}, nil
}

// DB exposes the underlying handle for request-scoped queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// --- users ---

// CreateUser inserts a user together with an empty profile.
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		profile := &models.UserProfile{
			ID:     uuid.New(),
			UserID: user.ID,
		}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// GetUserByEmail looks a user up by email.
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetUserByID looks a user up by primary key.
func (s *Store) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// UpdateUser persists changed user fields.
func (s *Store) UpdateUser(user *models.User) error {
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetProfile returns the profile belonging to the user.
func (s *Store) GetProfile(userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

// --- transactions ---

// SaveTransactions stores an ingestion batch and bumps the owner's profile
// counters in one database transaction.
func (s *Store) SaveTransactions(userID uuid.UUID, transactions []models.Transaction, pointsEarned int) error {
	if len(transactions) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transactions).Error; err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		updates := map[string]interface{}{
			"total_uploads":      gorm.Expr("total_uploads + 1"),
			"total_transactions": gorm.Expr("total_transactions + ?", len(transactions)),
			"points":             gorm.Expr("points + ?", pointsEarned),
			"updated_at":         time.Now(),
		}
		if err := tx.Model(&models.UserProfile{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update profile counters: %w", err)
		}
		return nil
	})
}

// CreateTransaction stores one manually entered transaction.
func (s *Store) CreateTransaction(tx *models.Transaction) error {
	if err := s.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Source   string
	Category string
	From     *time.Time
	To       *time.Time
	Offset   int
	Limit    int
}

// ListTransactions returns the user's transactions newest first.
func (s *Store) ListTransactions(userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error) {
	q := s.db.Where("user_id = ?", userID)
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var transactions []models.Transaction
	if err := q.Order("date DESC, created_at DESC").Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// DeleteTransaction removes one transaction owned by the user.
func (s *Store) DeleteTransaction(userID, txID uuid.UUID) error {
	res := s.db.Where("id = ? AND user_id = ?", txID, userID).Delete(&models.Transaction{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- vouchers ---

// CreateVoucher inserts a voucher.
func (s *Store) CreateVoucher(v *models.Voucher) error {
	if err := s.db.Create(v).Error; err != nil {
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// GetVoucherByCode looks a voucher up by its code.
func (s *Store) GetVoucherByCode(code string) (*models.Voucher, error) {
	var v models.Voucher
	err := s.db.Where("code = ?", code).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voucher: %w", err)
	}
	return &v, nil
}

// ListActiveVouchers returns all vouchers currently marked active.
func (s *Store) ListActiveVouchers() ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := s.db.Where("is_active = ?", true).Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return vouchers, nil
}

// RedeemVoucher spends pointsCost from the user's profile and bumps the
// voucher's usage count, atomically. The caller validates redeemability
// first; the balance and limit checks here guard the race.
func (s *Store) RedeemVoucher(userID uuid.UUID, voucherID uuid.UUID, pointsCost int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserProfile{}).
			Where("user_id = ? AND points >= ?", userID, pointsCost).
			Updates(map[string]interface{}{
				"points":     gorm.Expr("points - ?", pointsCost),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to deduct points: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.New("insufficient points")
		}

		res = tx.Model(&models.Voucher{}).
			Where("id = ? AND (usage_limit = 0 OR usage_count < usage_limit)", voucherID).
			Updates(map[string]interface{}{
				"usage_count": gorm.Expr("usage_count + 1"),
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update voucher usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.New("voucher usage limit reached")
		}
		return nil
	})
}
