package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Game identifies a casino game
type Game string

const (
	GameFlip  Game = "flip"
	GameLimbo Game = "limbo"
	GameMines Game = "mines"
)

// AllGames lists every game in display order
var AllGames = []Game{GameFlip, GameLimbo, GameMines}

// ParseGame converts a raw identifier into a Game
func ParseGame(raw string) (Game, error) {
	g := Game(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllGames {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown game %q", raw)
}

// String returns the string representation of the game
func (g Game) String() string {
	return string(g)
}

// CasinoLogEntry is an append-only audit record of a completed wager
type CasinoLogEntry struct {
	ID        int64           `db:"id"`
	UserID    string          `db:"user_id"`
	Game      Game            `db:"game"`
	NetGain   decimal.Decimal `db:"net_gain"`
	Timestamp time.Time       `db:"timestamp"`
}

// IsWin returns true if the wager ended with a positive net gain
func (e *CasinoLogEntry) IsWin() bool {
	return e.NetGain.IsPositive()
}

// IsLoss returns true if the wager ended with a negative net gain
func (e *CasinoLogEntry) IsLoss() bool {
	return e.NetGain.IsNegative()
}
