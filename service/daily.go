package service

import (
	"math"
	"time"

	"casino/config"
	"casino/models"

	"github.com/shopspring/decimal"
)

// DailyPolicy holds the timing windows and reward curve of the daily reward
type DailyPolicy struct {
	MinInterval      time.Duration
	MaxInterval      time.Duration
	AlmostLateWindow time.Duration
	BaseReward       float64
	FlatReward       float64
	Exponent         float64
}

// DefaultDailyPolicy returns 18h/36h windows and the 1000 + 10t, s^1.1 curve
func DefaultDailyPolicy() DailyPolicy {
	return DailyPolicy{
		MinInterval:      18 * time.Hour,
		MaxInterval:      36 * time.Hour,
		AlmostLateWindow: 30 * time.Minute,
		BaseReward:       1000,
		FlatReward:       10,
		Exponent:         1.1,
	}
}

// DailyPolicyFromConfig builds the policy from application config
func DailyPolicyFromConfig(cfg *config.Config) DailyPolicy {
	return DailyPolicy{
		MinInterval:      cfg.DailyMinInterval(),
		MaxInterval:      cfg.DailyMaxInterval(),
		AlmostLateWindow: cfg.DailyAlmostLateWindow(),
		BaseReward:       cfg.DailyBaseReward,
		FlatReward:       cfg.DailyFlatReward,
		Exponent:         cfg.DailyExponent,
	}
}

// Evaluate computes the current state for an account. Boundaries count as
// already reached: now == availableAt is available and now == lateAt is late.
func (p DailyPolicy) Evaluate(account *models.UserAccount, now time.Time) *models.DailyResponse {
	resp := &models.DailyResponse{
		Balance:    account.Balance,
		Streak:     account.DailyStreak,
		TotalDaily: account.TotalDailyClaims,
	}

	if !account.HasClaimedDaily() {
		resp.Status = models.DailyStatusAvailable
		return resp
	}

	last := account.LastDailyClaimTime()
	availableAt := last.Add(p.MinInterval)
	lateAt := last.Add(p.MaxInterval)

	switch {
	case now.Before(availableAt):
		resp.Status = models.DailyStatusUnavailable
		resp.AvailableAt = availableAt
	case !now.Before(lateAt):
		resp.Status = models.DailyStatusLate
		resp.LateBy = now.Sub(lateAt)
	default:
		resp.Status = models.DailyStatusAvailable
		resp.AlmostLateBy = lateAt.Sub(now)
		resp.AlmostLate = resp.AlmostLateBy <= p.AlmostLateWindow
	}

	return resp
}

// NextStreak returns the streak counters after a claim in the given state
func (p DailyPolicy) NextStreak(account *models.UserAccount, status models.DailyStatus) (streak, total, highest int) {
	total = account.TotalDailyClaims + 1
	switch {
	case !account.HasClaimedDaily(), status == models.DailyStatusLate:
		streak = 1
	default:
		streak = account.DailyStreak + 1
	}
	highest = max(account.HighestStreak, streak)
	return streak, total, highest
}

// Reward computes (base + flat*t) * s^exponent rounded to cents
func (p DailyPolicy) Reward(streak, total int) decimal.Decimal {
	raw := (p.BaseReward + p.FlatReward*float64(total)) * math.Pow(float64(streak), p.Exponent)
	return decimal.NewFromFloat(raw).Round(2)
}
