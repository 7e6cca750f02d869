package games

import (
	"errors"
	"fmt"

	"casino/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownGame   = errors.New("unknown game")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrInvalidTarget = errors.New("invalid target multiplier")
)

// Params carries the player's game-specific choices
type Params struct {
	Choice string          // flip: heads or tails
	Target decimal.Decimal // limbo: target multiplier
}

// Outcome is the result of a single-shot engine run
type Outcome struct {
	Won     bool
	NetGain decimal.Decimal
	Detail  string
}

// Engine resolves a single wager. Engines hold no mutable state.
type Engine interface {
	Game() models.Game
	Play(src RandomSource, wager decimal.Decimal, params Params) (Outcome, error)
}

// Engines maps each single-shot game to its engine. Mines is multi-step and
// is driven through MinesGame instead.
var Engines = map[models.Game]Engine{
	models.GameFlip:  FlipEngine{},
	models.GameLimbo: LimboEngine{MaxTarget: DefaultLimboMaxTarget},
}

// Lookup returns the engine for a game
func Lookup(game models.Game) (Engine, error) {
	engine, ok := Engines[game]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, game)
	}
	return engine, nil
}

// floorCents truncates a non-negative amount to whole cents
func floorCents(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(2)
}
