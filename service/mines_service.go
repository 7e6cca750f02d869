package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"casino/currency"
	"casino/games"
	"casino/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// minesSession is one player's game. mu serializes actions on the game.
type minesSession struct {
	mu         sync.Mutex
	id         string
	game       *games.MinesGame
	lastActive time.Time
	settled    bool
	hitMine    bool
}

type minesService struct {
	economy EconomyService
	random  games.RandomSource
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*minesSession
}

// NewMinesService creates the Mines controller. Sessions idle longer than
// ttl are settled by SweepIdle.
func NewMinesService(economy EconomyService, random games.RandomSource, ttl time.Duration, now func() time.Time) MinesService {
	if random == nil {
		random = games.DefaultSource
	}
	if now == nil {
		now = time.Now
	}
	return &minesService{
		economy:  economy,
		random:   random,
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*minesSession),
	}
}

// Start escrows the wager and opens a session
func (s *minesService) Start(ctx context.Context, userID string, rawWager string, mines int) (*models.MinesResult, error) {
	if mines < games.MinMines || mines > games.MaxMines {
		return nil, fmt.Errorf("%w: pick between %d and %d mines", games.ErrInvalidMines, games.MinMines, games.MaxMines)
	}

	// Reserve the slot so two concurrent starts cannot both escrow
	session := &minesSession{id: uuid.New().String(), lastActive: s.now()}
	session.mu.Lock()
	defer session.mu.Unlock()

	s.mu.Lock()
	if _, exists := s.sessions[userID]; exists {
		s.mu.Unlock()
		return nil, ErrGameInProgress
	}
	s.sessions[userID] = session
	s.mu.Unlock()

	settlement, err := s.economy.SettleWager(ctx, userID, models.GameMines, rawWager, func(wager decimal.Decimal) (WagerPlay, error) {
		game, err := games.NewMinesGame(s.random, wager, mines)
		if err != nil {
			return WagerPlay{}, err
		}
		session.game = game
		return WagerPlay{
			Delta:           wager.Neg(),
			TransactionType: models.TransactionTypeMinesEscrow,
		}, nil
	})
	if err != nil {
		s.remove(userID, session)
		return nil, err
	}

	log.WithFields(log.Fields{
		"user":    userID,
		"session": session.id,
		"mines":   mines,
		"wager":   settlement.Wager.Amount().StringFixed(currency.Precision),
	}).Debug("Mines game started")

	return s.snapshot(session, settlement.Account.Balance), nil
}

// Reveal uncovers a 1-based cell
func (s *minesService) Reveal(ctx context.Context, userID string, cell int) (*models.MinesResult, error) {
	session, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.game == nil || s.current(userID) != session {
		return nil, ErrNoActiveGame
	}
	if session.game.IsOver() {
		return s.finish(ctx, userID, session)
	}

	hitMine, err := session.game.Reveal(cell - 1)
	if err != nil {
		return nil, err
	}
	session.lastActive = s.now()
	session.hitMine = hitMine

	if session.game.IsOver() {
		return s.finish(ctx, userID, session)
	}
	return s.snapshot(session, s.economy.GetBalance(userID)), nil
}

// CashOut ends the session at the current multiplier
func (s *minesService) CashOut(ctx context.Context, userID string) (*models.MinesResult, error) {
	session, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.game == nil || s.current(userID) != session {
		return nil, ErrNoActiveGame
	}
	if !session.game.IsOver() {
		if err := session.game.CashOut(); err != nil {
			return nil, err
		}
	}
	return s.finish(ctx, userID, session)
}

// Active returns the session state without changing it
func (s *minesService) Active(userID string) (*models.MinesResult, bool) {
	session, err := s.lookup(userID)
	if err != nil {
		return nil, false
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.game == nil {
		return nil, false
	}
	return s.snapshot(session, s.economy.GetBalance(userID)), true
}

// SweepIdle settles sessions idle past the TTL. Sessions with reveals are
// cashed out, untouched ones are refunded. Terminal sessions whose payout
// failed earlier are retried.
func (s *minesService) SweepIdle(ctx context.Context) int {
	return s.sweep(ctx, false)
}

// SettleAll expires every open session regardless of idle time, waiting on
// sessions busy with another action. Called at shutdown.
func (s *minesService) SettleAll(ctx context.Context) int {
	return s.sweep(ctx, true)
}

func (s *minesService) sweep(ctx context.Context, force bool) int {
	s.mu.Lock()
	candidates := make(map[string]*minesSession, len(s.sessions))
	for userID, session := range s.sessions {
		candidates[userID] = session
	}
	s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	closed := 0

	for userID, session := range candidates {
		if force {
			session.mu.Lock()
		} else if !session.mu.TryLock() {
			continue
		}

		if session.game == nil {
			session.mu.Unlock()
			continue
		}

		pending := session.game.IsOver() && !session.settled
		idle := !session.game.IsOver() && (force || session.lastActive.Before(cutoff))
		if !pending && !idle {
			session.mu.Unlock()
			continue
		}

		if idle {
			if err := session.game.Expire(); err != nil {
				session.mu.Unlock()
				continue
			}
		}

		if _, err := s.finish(ctx, userID, session); err != nil {
			log.WithFields(log.Fields{
				"user":    userID,
				"session": session.id,
				"error":   err,
			}).Warn("Failed to settle idle mines game")
		} else {
			closed++
		}
		session.mu.Unlock()
	}

	if closed > 0 {
		log.WithFields(log.Fields{
			"closed": closed,
			"forced": force,
		}).Info("Settled idle mines games")
	}
	return closed
}

// StartSweeper schedules SweepIdle on a fixed interval
func (s *minesService) StartSweeper(interval time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.SweepIdle(context.Background())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule mines sweeper: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

// finish pays out a terminal game, appends the log and drops the session.
// On a store failure the session stays so the sweeper can retry. Callers
// hold session.mu.
func (s *minesService) finish(ctx context.Context, userID string, session *minesSession) (*models.MinesResult, error) {
	game := session.game
	payout := game.Payout()

	account, err := s.economy.CompleteWager(ctx, userID, models.GameMines, game.Wager, payout)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConcurrentMutationConflict) {
			return nil, fmt.Errorf("%w: %w", ErrSettlementFailed, err)
		}
		return nil, err
	}
	session.settled = true
	s.remove(userID, session)

	netGain := payout.Sub(game.Wager)
	if _, err := s.economy.AddLog(ctx, userID, models.GameMines, netGain); err != nil {
		log.WithFields(log.Fields{
			"user":    userID,
			"session": session.id,
			"error":   err,
		}).Error("Failed to append casino log after mines game")
	}

	result := s.snapshot(session, account.Balance)
	result.NetGain = netGain
	return result, nil
}

func (s *minesService) snapshot(session *minesSession, balance decimal.Decimal) *models.MinesResult {
	game := session.game
	return &models.MinesResult{
		State:          string(game.State),
		Mines:          game.Mines,
		Reveals:        game.Reveals,
		HitMine:        session.hitMine,
		Wager:          game.Wager,
		Multiplier:     games.RatFloat(game.CurrentMultiplier()),
		NextTileChance: games.RatFloat(game.NextTileChance()),
		Payout:         game.Payout(),
		NetGain:        game.NetGain(),
		Balance:        balance,
		Board:          game.Render(),
		Tiles:          visibleTiles(game.Cells()),
	}
}

func visibleTiles(cells []games.Cell) []models.MinesTile {
	tiles := make([]models.MinesTile, len(cells))
	for i, cell := range cells {
		tiles[i] = models.MinesTile{Revealed: cell.Revealed, Mine: cell.Revealed && cell.Mine}
	}
	return tiles
}

func (s *minesService) lookup(userID string) (*minesSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoActiveGame
	}
	return session, nil
}

func (s *minesService) current(userID string) *minesSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *minesService) remove(userID string, session *minesSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[userID] == session {
		delete(s.sessions, userID)
	}
}
