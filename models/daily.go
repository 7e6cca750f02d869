package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStatus is the state of the daily reward state machine
type DailyStatus string

const (
	DailyStatusUnavailable DailyStatus = "unavailable"
	DailyStatusAvailable   DailyStatus = "available"
	DailyStatusLate        DailyStatus = "late"
)

// IsClaimable returns true if a claim in this state pays out
func (s DailyStatus) IsClaimable() bool {
	return s == DailyStatusAvailable || s == DailyStatusLate
}

// DailyResponse describes the outcome of a daily reward check or claim.
// Only the timing field relevant to Status is populated.
type DailyResponse struct {
	Status     DailyStatus
	Claimed    bool
	Reward     decimal.Decimal
	Balance    decimal.Decimal
	Streak     int
	TotalDaily int

	AvailableAt  time.Time     // unavailable
	LateBy       time.Duration // late
	AlmostLateBy time.Duration // available, 0 for first-ever claims
	AlmostLate   bool          // available and AlmostLateBy within the warning window
}
