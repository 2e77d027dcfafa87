package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fxjournal/internal/calc"
	"fxjournal/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Float returns a pointer to v, for the nullable trade prices.
func Float(v float64) *float64 {
	return &v
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email and password
// "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// TradeAttrs returns valid attributes for an open EURUSD long opened at openedAt.
func TradeAttrs(openedAt time.Time) models.TradeAttributes {
	return models.TradeAttributes{
		Symbol:     "EURUSD",
		OpenedAt:   openedAt,
		Direction:  models.DirectionLong,
		Volume:     1,
		EntryPrice: 1.1,
	}
}

// CreateTestTrade inserts a fully derived trade for userID straight into the
// database, bypassing the trade service.
func CreateTestTrade(t *testing.T, db *gorm.DB, userID string, attrs models.TradeAttributes) *models.Trade {
	t.Helper()

	trade := calc.NewTrade("", userID, attrs)
	if err := db.Create(&trade).Error; err != nil {
		t.Fatalf("failed to create test trade: %v", err)
	}
	return &trade
}

// CreateTestClosedTrade inserts a closed trade with the given symbol, entry and exit.
func CreateTestClosedTrade(t *testing.T, db *gorm.DB, userID, symbol string, openedAt time.Time, entry, exit float64) *models.Trade {
	t.Helper()

	attrs := TradeAttrs(openedAt)
	attrs.Symbol = symbol
	attrs.EntryPrice = entry
	attrs.ExitPrice = Float(exit)
	return CreateTestTrade(t, db, userID, attrs)
}
