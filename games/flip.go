package games

import (
	"fmt"
	"strings"

	"casino/models"

	"github.com/shopspring/decimal"
)

const (
	Heads = "heads"
	Tails = "tails"
)

// FlipEngine is a fair coin: the player doubles the wager or loses it
type FlipEngine struct{}

func (FlipEngine) Game() models.Game { return models.GameFlip }

// Play tosses the coin. An empty choice defaults to heads.
func (FlipEngine) Play(src RandomSource, wager decimal.Decimal, params Params) (Outcome, error) {
	choice, err := normalizeSide(params.Choice)
	if err != nil {
		return Outcome{}, err
	}

	side := Heads
	if src.IntN(2) == 1 {
		side = Tails
	}

	won := side == choice
	netGain := wager.Neg()
	if won {
		netGain = wager
	}

	return Outcome{
		Won:     won,
		NetGain: netGain,
		Detail:  fmt.Sprintf("The coin landed on %s.", side),
	}, nil
}

func normalizeSide(choice string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "", Heads, "h":
		return Heads, nil
	case Tails, "t":
		return Tails, nil
	default:
		return "", fmt.Errorf("%w: %q (pick heads or tails)", ErrInvalidChoice, choice)
	}
}
