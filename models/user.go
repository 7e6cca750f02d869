package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NeverClaimed is the LastDailyClaimAt sentinel for accounts that never claimed a daily reward
const NeverClaimed int64 = 0

// UserAccount represents a user's ledger record: balance plus daily reward streak state
type UserAccount struct {
	ID               string          `db:"user_id"`
	Balance          decimal.Decimal `db:"balance"`
	LastDailyClaimAt int64           `db:"last_daily"` // ms since epoch, NeverClaimed if never
	DailyStreak      int             `db:"daily_streak"`
	TotalDailyClaims int             `db:"total_daily"`
	HighestStreak    int             `db:"highest_streak"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// NewUserAccount returns an account with default values, as created lazily on first touch
func NewUserAccount(id string) *UserAccount {
	return &UserAccount{
		ID:      id,
		Balance: decimal.Zero,
	}
}

// HasClaimedDaily reports whether the account ever claimed a daily reward
func (a *UserAccount) HasClaimedDaily() bool {
	return a.LastDailyClaimAt != NeverClaimed
}

// LastDailyClaimTime returns the last claim as a time.Time (zero time if never claimed)
func (a *UserAccount) LastDailyClaimTime() time.Time {
	if !a.HasClaimedDaily() {
		return time.Time{}
	}
	return time.UnixMilli(a.LastDailyClaimAt).UTC()
}

// CanAfford checks if the account balance covers an amount
func (a *UserAccount) CanAfford(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Clone returns a copy that can be handed out without exposing cached state
func (a *UserAccount) Clone() *UserAccount {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// AccountUpdate describes an upsert against a user account.
// Balance sets the balance absolutely, BalanceDelta applies a relative change;
// setting both is invalid. Nil fields are left untouched (or defaulted on create).
type AccountUpdate struct {
	Balance          *decimal.Decimal
	BalanceDelta     *decimal.Decimal
	LastDailyClaimAt *int64
	DailyStreak      *int
	TotalDailyClaims *int
	HighestStreak    *int
}

// SetBalance builds an absolute balance update
func SetBalance(amount decimal.Decimal) AccountUpdate {
	return AccountUpdate{Balance: &amount}
}

// AddBalance builds a relative balance update
func AddBalance(delta decimal.Decimal) AccountUpdate {
	return AccountUpdate{BalanceDelta: &delta}
}

// Apply applies the update to an account in memory and reports the resulting account.
// Repositories without a native increment use this to compute the row they write.
func (u AccountUpdate) Apply(account *UserAccount) *UserAccount {
	next := account.Clone()
	if u.Balance != nil {
		next.Balance = *u.Balance
	}
	if u.BalanceDelta != nil {
		next.Balance = next.Balance.Add(*u.BalanceDelta)
	}
	if u.LastDailyClaimAt != nil {
		next.LastDailyClaimAt = *u.LastDailyClaimAt
	}
	if u.DailyStreak != nil {
		next.DailyStreak = *u.DailyStreak
	}
	if u.TotalDailyClaims != nil {
		next.TotalDailyClaims = *u.TotalDailyClaims
	}
	if u.HighestStreak != nil {
		next.HighestStreak = *u.HighestStreak
	}
	return next
}
