package service

import (
	"errors"
	"fmt"

	"casino/currency"
	"casino/games"
)

var (
	// Wager validation failures; the wrapped currency.ValidityError carries the player-facing message
	ErrInvalidWager        = errors.New("invalid wager")
	ErrNonPositiveWager    = errors.New("wager must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Ledger store failures
	ErrStoreUnavailable           = errors.New("ledger store unavailable")
	ErrConcurrentMutationConflict = errors.New("concurrent mutation conflict")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSelfTransfer     = errors.New("you cannot send money to yourself")
	ErrGameInProgress   = errors.New("you already have a mines game in progress")
	ErrNoActiveGame     = errors.New("you don't have a mines game in progress")
	ErrSettlementFailed = errors.New("game finished but the payout could not be recorded yet")
)

const genericFailureMessage = "Something went wrong while updating your balance. Please try again later."

// WagerError converts a non-valid currency value into the matching sentinel
func WagerError(v currency.Value) error {
	validity := v.Validity()
	switch validity.Code {
	case currency.CodeValid:
		return nil
	case currency.CodeNegativeOrZero:
		return fmt.Errorf("%w: %w", ErrNonPositiveWager, v.Err())
	case currency.CodeInsufficientBalance:
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, v.Err())
	default:
		return fmt.Errorf("%w: %w", ErrInvalidWager, v.Err())
	}
}

// UserMessage translates an error into text that is safe to show a player.
// Store errors collapse into a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validityErr *currency.ValidityError
	if errors.As(err, &validityErr) {
		return validityErr.Validity.Message
	}

	switch {
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrConcurrentMutationConflict):
		return genericFailureMessage
	case errors.Is(err, ErrInsufficientBalance):
		return "You don't have enough money for that."
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrGameInProgress),
		errors.Is(err, ErrNoActiveGame),
		errors.Is(err, ErrSettlementFailed),
		errors.Is(err, games.ErrInvalidChoice),
		errors.Is(err, games.ErrInvalidTarget),
		errors.Is(err, games.ErrInvalidMines),
		errors.Is(err, games.ErrCellOutOfRange),
		errors.Is(err, games.ErrCellRevealed),
		errors.Is(err, games.ErrNothingRevealed),
		errors.Is(err, games.ErrGameOver),
		errors.Is(err, games.ErrUnknownGame):
		return capitalize(err.Error())
	default:
		return genericFailureMessage
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
