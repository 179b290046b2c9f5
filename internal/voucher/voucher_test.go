package voucher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/store"
)

func testService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", logging.NewMockLogger())
	require.NoError(t, err)
	return NewService(st, logging.NewMockLogger()), st
}

func createUserWithPoints(t *testing.T, st *store.Store, points int) uuid.UUID {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Username: "u-" + uuid.NewString(),
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, st.CreateUser(user))
	if points > 0 {
		require.NoError(t, st.SaveTransactions(user.ID, []models.Transaction{
			{ID: uuid.New(), UserID: user.ID, Date: time.Now(), Debit: decimal.NewFromInt(1), Source: "Manual"},
		}, points))
	}
	return user.ID
}

func TestCreateGeneratesCode(t *testing.T) {
	svc, _ := testService(t)

	v, err := svc.Create(CreateInput{
		Title:      "Movie ticket",
		Amount:     decimal.NewFromInt(500),
		Type:       models.VoucherTypeFixed,
		PointsCost: 100,
	})
	require.NoError(t, err)
	assert.Len(t, v.Code, codeLength)
	assert.True(t, v.IsActive)
	assert.False(t, v.ValidFrom.IsZero())
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Create(CreateInput{
		Title:  "Broken",
		Amount: decimal.NewFromInt(10),
		Type:   "BOGOF",
	})
	assert.Error(t, err)
}

func TestListActiveFiltersExpired(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Create(CreateInput{
		Title: "Current", Amount: decimal.NewFromInt(100),
		Type: models.VoucherTypeFixed,
	})
	require.NoError(t, err)

	expired := time.Now().Add(-time.Hour)
	_, err = svc.Create(CreateInput{
		Title: "Expired", Amount: decimal.NewFromInt(100),
		Type:       models.VoucherTypePercentage,
		ValidFrom:  time.Now().Add(-2 * time.Hour),
		ValidUntil: &expired,
	})
	require.NoError(t, err)

	vouchers, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	assert.Equal(t, "Current", vouchers[0].Title)
}

func TestRedeem(t *testing.T) {
	svc, st := testService(t)
	userID := createUserWithPoints(t, st, 200)

	v, err := svc.Create(CreateInput{
		Title: "Coffee", Amount: decimal.NewFromInt(100),
		Type: models.VoucherTypeFixed, PointsCost: 150, UsageLimit: 1,
	})
	require.NoError(t, err)

	redeemed, err := svc.Redeem(userID, v.Code)
	require.NoError(t, err)
	assert.Equal(t, v.ID, redeemed.ID)

	profile, err := st.GetProfile(userID)
	require.NoError(t, err)
	assert.Equal(t, 50, profile.Points)

	// Second redemption exceeds the usage limit.
	_, err = svc.Redeem(userID, v.Code)
	assert.ErrorIs(t, err, ErrNotRedeemable)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	svc, st := testService(t)
	userID := createUserWithPoints(t, st, 10)

	v, err := svc.Create(CreateInput{
		Title: "Pricey", Amount: decimal.NewFromInt(100),
		Type: models.VoucherTypeFixed, PointsCost: 500,
	})
	require.NoError(t, err)

	_, err = svc.Redeem(userID, v.Code)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, st := testService(t)
	userID := createUserWithPoints(t, st, 10)

	_, err := svc.Redeem(userID, "NOSUCHCODE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
