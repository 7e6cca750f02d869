package games

import (
	"fmt"
	"math/big"

	"casino/models"

	"github.com/shopspring/decimal"
)

const (
	// limboScale is 2^53: u is drawn uniformly from [1, limboScale], so U = u/limboScale is uniform on (0,1]
	limboScale uint64 = 1 << 53
)

var (
	// MinLimboTarget is the smallest target a player may pick
	MinLimboTarget = decimal.RequireFromString("1.01")
	// DefaultLimboMaxTarget bounds the payout of a single limbo round
	DefaultLimboMaxTarget = decimal.NewFromInt(1_000_000)
)

// LimboEngine draws a crash multiplier m = 1/U floored to two decimals.
// The player wins when m reaches the chosen target; the win probability is 1/target.
type LimboEngine struct {
	MaxTarget decimal.Decimal
}

func (LimboEngine) Game() models.Game { return models.GameLimbo }

// ValidateTarget checks a target multiplier against the engine bounds
func (e LimboEngine) ValidateTarget(target decimal.Decimal) error {
	if target.LessThan(MinLimboTarget) {
		return fmt.Errorf("%w: must be at least %sx", ErrInvalidTarget, MinLimboTarget.StringFixed(2))
	}
	if !e.MaxTarget.IsZero() && target.GreaterThan(e.MaxTarget) {
		return fmt.Errorf("%w: must be at most %sx", ErrInvalidTarget, e.MaxTarget.StringFixed(2))
	}
	if !target.Equal(target.Truncate(2)) {
		return fmt.Errorf("%w: use at most two decimal places", ErrInvalidTarget)
	}
	return nil
}

// Play draws a multiplier and settles the wager against the target
func (e LimboEngine) Play(src RandomSource, wager decimal.Decimal, params Params) (Outcome, error) {
	if err := e.ValidateTarget(params.Target); err != nil {
		return Outcome{}, err
	}

	multiplier := DrawLimboMultiplier(src)
	won := multiplier.GreaterThanOrEqual(params.Target)

	netGain := wager.Neg()
	if won {
		netGain = floorCents(wager.Mul(params.Target.Sub(decimal.NewFromInt(1))))
	}

	return Outcome{
		Won:     won,
		NetGain: netGain,
		Detail:  fmt.Sprintf("Rolled %sx against a %sx target.", multiplier.StringFixed(2), params.Target.StringFixed(2)),
	}, nil
}

// DrawLimboMultiplier returns floor(100/U)/100 for U uniform on (0,1], computed in integers
func DrawLimboMultiplier(src RandomSource) decimal.Decimal {
	u := src.Uint64()%limboScale + 1
	hundredths := new(big.Int).Mul(big.NewInt(100), new(big.Int).SetUint64(limboScale))
	hundredths.Quo(hundredths, new(big.Int).SetUint64(u))
	return decimal.NewFromBigInt(hundredths, -2)
}

// LimboWinProbability is the implied chance of reaching a target, 1/target
func LimboWinProbability(target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	p, _ := decimal.NewFromInt(1).Div(target).Float64()
	return p
}
