package testutil

import (
	"time"

	"casino/models"

	"github.com/shopspring/decimal"
)

// CreateTestAccount creates an account with a 1000.00 balance
func CreateTestAccount(userID string) *models.UserAccount {
	return CreateTestAccountWithBalance(userID, "1000.00")
}

// CreateTestAccountWithBalance creates an account with a specific balance
func CreateTestAccountWithBalance(userID, balance string) *models.UserAccount {
	account := models.NewUserAccount(userID)
	account.Balance = decimal.RequireFromString(balance)
	return account
}

// CreateTestLogEntry creates a log entry for a completed wager
func CreateTestLogEntry(userID string, game models.Game, netGain string, at time.Time) *models.CasinoLogEntry {
	return &models.CasinoLogEntry{
		UserID:    userID,
		Game:      game,
		NetGain:   decimal.RequireFromString(netGain),
		Timestamp: at.UTC(),
	}
}
