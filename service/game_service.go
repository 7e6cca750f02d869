package service

import (
	"context"
	"fmt"
	"time"

	"casino/currency"
	"casino/games"
	"casino/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type gameService struct {
	economy EconomyService
	engines map[models.Game]games.Engine
	random  games.RandomSource
}

// NewGameService creates the game session controller. limboMaxTarget caps
// the limbo target; zero keeps the engine default.
func NewGameService(economy EconomyService, random games.RandomSource, limboMaxTarget decimal.Decimal) GameService {
	if random == nil {
		random = games.DefaultSource
	}

	engines := make(map[models.Game]games.Engine, len(games.Engines))
	for game, engine := range games.Engines {
		engines[game] = engine
	}
	if limboMaxTarget.IsPositive() {
		engines[models.GameLimbo] = games.LimboEngine{MaxTarget: limboMaxTarget}
	}

	return &gameService{
		economy: economy,
		engines: engines,
		random:  random,
	}
}

// Play validates the wager, resolves the engine and settles the result.
// The balance change is committed before the log entry is written, and a
// failed log append does not fail the play.
func (s *gameService) Play(ctx context.Context, userID string, game models.Game, rawWager string, params games.Params) (*models.PlayResult, error) {
	engine, ok := s.engines[game]
	if !ok {
		return nil, fmt.Errorf("%w: %s", games.ErrUnknownGame, game)
	}

	var outcome games.Outcome
	settlement, err := s.economy.SettleWager(ctx, userID, game, rawWager, func(wager decimal.Decimal) (WagerPlay, error) {
		var err error
		outcome, err = engine.Play(s.random, wager, params)
		if err != nil {
			return WagerPlay{}, err
		}
		return WagerPlay{
			Delta:           outcome.NetGain,
			TransactionType: transactionTypeFor(outcome.NetGain),
			Completed:       true,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.appendLog(ctx, userID, game, settlement.Play.Delta)

	return &models.PlayResult{
		Game:       game,
		Won:        outcome.Won,
		AllIn:      settlement.Wager.IsAllIn(),
		Wager:      settlement.Wager.Amount(),
		NetGain:    settlement.Play.Delta,
		NewBalance: settlement.Account.Balance,
		Detail:     outcome.Detail,
	}, nil
}

// Transfer parses the amount like a wager so "all" and the balance check apply
func (s *gameService) Transfer(ctx context.Context, fromID, toID string, rawAmount string) (*models.TransferResult, error) {
	if fromID == toID {
		return nil, ErrSelfTransfer
	}

	amount := currency.New(rawAmount, s.economy.GetBalance(fromID))
	if err := WagerError(amount); err != nil {
		return nil, err
	}

	return s.economy.TransferBalance(ctx, fromID, toID, amount.Amount())
}

// Stats aggregates a player's log entries over a trailing window
func (s *gameService) Stats(ctx context.Context, userID string, window time.Duration, game *models.Game) (*models.GameStats, error) {
	entries, err := s.economy.FetchLogs(ctx, userID, window, game)
	if err != nil {
		return nil, err
	}
	return models.NewGameStats(entries, game), nil
}

func (s *gameService) appendLog(ctx context.Context, userID string, game models.Game, netGain decimal.Decimal) {
	if _, err := s.economy.AddLog(ctx, userID, game, netGain); err != nil {
		log.WithFields(log.Fields{
			"user":    userID,
			"game":    game,
			"netGain": netGain.StringFixed(currency.Precision),
			"error":   err,
		}).Error("Failed to append casino log after settled wager")
	}
}

func transactionTypeFor(netGain decimal.Decimal) models.TransactionType {
	switch {
	case netGain.IsPositive():
		return models.TransactionTypeGameWin
	case netGain.IsNegative():
		return models.TransactionTypeGameLoss
	default:
		return models.TransactionTypeGamePush
	}
}
