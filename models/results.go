package models

import "github.com/shopspring/decimal"

// PlayResult represents the outcome of a single-shot game (returned to the caller)
type PlayResult struct {
	Game       Game
	Won        bool
	AllIn      bool
	Wager      decimal.Decimal
	NetGain    decimal.Decimal
	NewBalance decimal.Decimal
	Detail     string
}

// TransferResult represents the outcome of a transfer
type TransferResult struct {
	Amount      decimal.Decimal
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// MinesResult is a snapshot of a Mines session after an action
type MinesResult struct {
	State          string
	Mines          int
	Reveals        int
	HitMine        bool
	Wager          decimal.Decimal
	Multiplier     float64 // fair multiplier at the current reveal count
	NextTileChance float64 // probability the next reveal is safe
	Payout         decimal.Decimal
	NetGain        decimal.Decimal // only meaningful once the session is over
	Balance        decimal.Decimal
	Board          string
	Tiles          []MinesTile // row-major 5x5 grid
}

// MinesTile is the visible state of one grid square. Mine is only set once
// the tile is revealed.
type MinesTile struct {
	Revealed bool
	Mine     bool
}

// IsOver reports whether the session reached a terminal state
func (r *MinesResult) IsOver() bool {
	return r.State != "playing"
}
