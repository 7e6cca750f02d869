package games

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	MinesGridSize = 5
	MinesCells    = MinesGridSize * MinesGridSize
	MinMines      = 1
	MaxMines      = MinesCells - 1
)

// factorials holds 0! through 25!
var factorials = func() [MinesCells + 1]*big.Int {
	var table [MinesCells + 1]*big.Int
	table[0] = big.NewInt(1)
	for i := 1; i <= MinesCells; i++ {
		table[i] = new(big.Int).Mul(table[i-1], big.NewInt(int64(i)))
	}
	return table
}()

func validateOddsInput(mines, reveals int) error {
	if mines < MinMines || mines > MaxMines {
		return fmt.Errorf("mines must be between %d and %d, got %d", MinMines, MaxMines, mines)
	}
	if reveals < 0 || reveals > MinesCells-mines {
		return fmt.Errorf("reveals must be between 0 and %d, got %d", MinesCells-mines, reveals)
	}
	return nil
}

// WinProbability is the exact chance that the first reveals cells are all safe:
// [(25-k)!/(25-k-r)!] / [25!/(25-r)!]
func WinProbability(mines, reveals int) (*big.Rat, error) {
	if err := validateOddsInput(mines, reveals); err != nil {
		return nil, err
	}
	safe := MinesCells - mines

	num := new(big.Int).Quo(factorials[safe], factorials[safe-reveals])
	den := new(big.Int).Quo(factorials[MinesCells], factorials[MinesCells-reveals])
	return new(big.Rat).SetFrac(num, den), nil
}

// Multiplier is the fair payout multiplier 1/P(r)
func Multiplier(mines, reveals int) (*big.Rat, error) {
	p, err := WinProbability(mines, reveals)
	if err != nil {
		return nil, err
	}
	return new(big.Rat).Inv(p), nil
}

// NextTileProbability is the survival chance of the (r+1)th reveal, (25-r-k)/(25-r)
func NextTileProbability(mines, reveals int) (*big.Rat, error) {
	if err := validateOddsInput(mines, reveals); err != nil {
		return nil, err
	}
	if reveals == MinesCells-mines {
		return new(big.Rat), nil
	}
	remaining := int64(MinesCells - reveals)
	return big.NewRat(remaining-int64(mines), remaining), nil
}

// Payout is wager * 1/P(r), floored to whole cents
func Payout(wager decimal.Decimal, mines, reveals int) (decimal.Decimal, error) {
	m, err := Multiplier(mines, reveals)
	if err != nil {
		return decimal.Zero, err
	}
	return MulRat(wager, m), nil
}

// Profit is the payout minus the wager
func Profit(wager decimal.Decimal, mines, reveals int) (decimal.Decimal, error) {
	payout, err := Payout(wager, mines, reveals)
	if err != nil {
		return decimal.Zero, err
	}
	return payout.Sub(wager), nil
}

// MulRat multiplies an amount by an exact ratio and floors toward zero at the cent
func MulRat(amount decimal.Decimal, ratio *big.Rat) decimal.Decimal {
	cents := amount.Shift(2).Truncate(0).BigInt()
	cents.Mul(cents, ratio.Num())
	cents.Quo(cents, ratio.Denom())
	return decimal.NewFromBigInt(cents, -2)
}

// RatFloat renders an exact ratio for display
func RatFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}
