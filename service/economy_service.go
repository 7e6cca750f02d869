package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino/currency"
	"casino/events"
	"casino/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultRetryAttempts bounds how often a conflicting mutation is retried
const DefaultRetryAttempts = 3

// EconomyConfig configures the economy service
type EconomyConfig struct {
	Daily         DailyPolicy
	RetryAttempts int
	Now           func() time.Time // defaults to time.Now
}

// PlayFunc resolves a validated wager into a balance change
type PlayFunc func(wager decimal.Decimal) (WagerPlay, error)

// WagerPlay is the balance effect of a wager. Completed marks the wager as
// finished; escrow debits leave it false.
type WagerPlay struct {
	Delta           decimal.Decimal
	TransactionType models.TransactionType
	Completed       bool
}

// WagerSettlement is the committed result of SettleWager
type WagerSettlement struct {
	Wager   currency.Value
	Play    WagerPlay
	Account *models.UserAccount
}

type economyService struct {
	uowFactory    UnitOfWorkFactory
	daily         DailyPolicy
	retryAttempts int
	now           func() time.Time

	locks *userLocks

	cacheMu sync.RWMutex
	cache   map[string]*models.UserAccount
}

// NewEconomyService creates the economy service. The balance cache starts
// empty; call LoadCache before serving reads.
func NewEconomyService(uowFactory UnitOfWorkFactory, cfg EconomyConfig) EconomyService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &economyService{
		uowFactory:    uowFactory,
		daily:         cfg.Daily,
		retryAttempts: cfg.RetryAttempts,
		now:           cfg.Now,
		locks:         newUserLocks(),
		cache:         make(map[string]*models.UserAccount),
	}
}

// LoadCache mirrors every stored account into memory
func (s *economyService) LoadCache(ctx context.Context) error {
	var accounts []*models.UserAccount
	err := WithUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		accounts, err = uow.AccountRepository().GetAll(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	cache := make(map[string]*models.UserAccount, len(accounts))
	for _, account := range accounts {
		cache[account.ID] = account.Clone()
	}

	s.cacheMu.Lock()
	s.cache = cache
	s.cacheMu.Unlock()

	log.WithField("accounts", len(accounts)).Info("Loaded account cache")
	return nil
}

// GetBalance returns the cached balance, zero for unknown users
func (s *economyService) GetBalance(userID string) decimal.Decimal {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	if account, ok := s.cache[userID]; ok {
		return account.Balance
	}
	return decimal.Zero
}

// GetAccount returns a copy of the cached account or a default one
func (s *economyService) GetAccount(userID string) *models.UserAccount {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	if account, ok := s.cache[userID]; ok {
		return account.Clone()
	}
	return models.NewUserAccount(userID)
}

// AddBalance applies a signed delta, creating the account if needed
func (s *economyService) AddBalance(ctx context.Context, userID string, delta decimal.Decimal, txType models.TransactionType) (*models.UserAccount, error) {
	delta = delta.Round(currency.Precision)

	unlock := s.locks.Lock(userID)
	defer unlock()

	updated, err := s.mutate(ctx, "add balance", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		account, err := s.applyDelta(ctx, uow, userID, delta, txType)
		if err != nil {
			return nil, err
		}
		return []*models.UserAccount{account}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated[0].Clone(), nil
}

// SetBalance overwrites the balance with an absolute non-negative amount
func (s *economyService) SetBalance(ctx context.Context, userID string, amount decimal.Decimal) (*models.UserAccount, error) {
	amount = amount.Round(currency.Precision)
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: balance cannot be set below zero", ErrInvalidAmount)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	updated, err := s.mutate(ctx, "set balance", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		current, err := uow.AccountRepository().GetForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		before := decimal.Zero
		if current != nil {
			before = current.Balance
		}

		account, err := uow.AccountRepository().Upsert(ctx, userID, models.SetBalance(amount))
		if err != nil {
			return nil, err
		}

		uow.EventBus().Publish(events.BalanceChangeEvent{
			UserID:          userID,
			OldBalance:      before,
			NewBalance:      account.Balance,
			ChangeAmount:    account.Balance.Sub(before),
			TransactionType: models.TransactionTypeSet,
		})
		return []*models.UserAccount{account}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated[0].Clone(), nil
}

// TransferBalance debits fromID and credits toID in a single transaction.
// Both user locks are held for the duration so no other mutation interleaves.
func (s *economyService) TransferBalance(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error) {
	amount = amount.Round(currency.Precision)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfers must be positive", ErrInvalidAmount)
	}
	if fromID == toID {
		return nil, ErrSelfTransfer
	}

	unlock := s.locks.Lock(fromID, toID)
	defer unlock()

	updated, err := s.mutate(ctx, "transfer balance", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		repo := uow.AccountRepository()

		// Row locks are taken in the same lexical order as the user locks
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*models.UserAccount, 2)
		for _, id := range []string{first, second} {
			account, err := repo.GetForUpdate(ctx, id)
			if err != nil {
				return nil, err
			}
			if account == nil {
				account = models.NewUserAccount(id)
			}
			locked[id] = account
		}

		sender := locked[fromID]
		if !sender.CanAfford(amount) {
			return nil, fmt.Errorf("%w: balance %s cannot cover %s", ErrInsufficientBalance, currency.Format(sender.Balance), currency.Format(amount))
		}

		from, err := s.applyDelta(ctx, uow, fromID, amount.Neg(), models.TransactionTypeTransferOut)
		if err != nil {
			return nil, err
		}
		to, err := s.applyDelta(ctx, uow, toID, amount, models.TransactionTypeTransferIn)
		if err != nil {
			return nil, err
		}
		return []*models.UserAccount{from, to}, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"from":   fromID,
		"to":     toID,
		"amount": amount.StringFixed(currency.Precision),
	}).Info("Transfer completed")

	return &models.TransferResult{
		Amount:      amount,
		FromBalance: updated[0].Balance,
		ToBalance:   updated[1].Balance,
	}, nil
}

// AddLog appends an audit entry for a completed wager
func (s *economyService) AddLog(ctx context.Context, userID string, game models.Game, netGain decimal.Decimal) (*models.CasinoLogEntry, error) {
	entry := &models.CasinoLogEntry{
		UserID:    userID,
		Game:      game,
		NetGain:   netGain.Round(currency.Precision),
		Timestamp: s.now().UTC(),
	}

	err := withConflictRetry(ctx, s.retryAttempts, "add log", func() error {
		return WithUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
			return uow.CasinoLogRepository().Append(ctx, entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append casino log: %w", err)
	}
	return entry, nil
}

// FetchLogs returns entries within the trailing window, newest first
func (s *economyService) FetchLogs(ctx context.Context, userID string, window time.Duration, game *models.Game) ([]*models.CasinoLogEntry, error) {
	since := s.now().Add(-window)

	var entries []*models.CasinoLogEntry
	err := WithUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		entries, err = uow.CasinoLogRepository().GetByUserSince(ctx, userID, since, game)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch casino logs: %w", err)
	}
	return entries, nil
}

// SettleWager validates rawWager against the cached balance and applies the
// outcome of play. The user's lock is held from validation to commit so a
// concurrent mutation cannot invalidate the check.
func (s *economyService) SettleWager(ctx context.Context, userID string, game models.Game, rawWager any, play PlayFunc) (*WagerSettlement, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	wager := currency.New(rawWager, s.GetBalance(userID))
	if err := WagerError(wager); err != nil {
		return nil, err
	}

	outcome, err := play(wager.Amount())
	if err != nil {
		return nil, err
	}
	outcome.Delta = outcome.Delta.Round(currency.Precision)

	updated, err := s.mutate(ctx, "settle wager", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		account, err := s.applyDelta(ctx, uow, userID, outcome.Delta, outcome.TransactionType)
		if err != nil {
			return nil, err
		}
		if outcome.Completed {
			uow.EventBus().Publish(events.GamePlayedEvent{
				UserID:  userID,
				Game:    game,
				Wager:   wager.Amount(),
				NetGain: outcome.Delta,
			})
		}
		return []*models.UserAccount{account}, nil
	})
	if err != nil {
		return nil, err
	}

	return &WagerSettlement{
		Wager:   wager,
		Play:    outcome,
		Account: updated[0].Clone(),
	}, nil
}

// CompleteWager credits the payout of an escrowed wager. A zero payout
// still records the finished game.
func (s *economyService) CompleteWager(ctx context.Context, userID string, game models.Game, wager, payout decimal.Decimal) (*models.UserAccount, error) {
	payout = payout.Round(currency.Precision)
	if payout.IsNegative() {
		return nil, fmt.Errorf("%w: payout cannot be negative", ErrInvalidAmount)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	updated, err := s.mutate(ctx, "complete wager", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		account, err := s.applyDelta(ctx, uow, userID, payout, models.TransactionTypeMinesPayout)
		if err != nil {
			return nil, err
		}
		uow.EventBus().Publish(events.GamePlayedEvent{
			UserID:  userID,
			Game:    game,
			Wager:   wager,
			NetGain: payout.Sub(wager),
		})
		return []*models.UserAccount{account}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated[0].Clone(), nil
}

// DailyStatus evaluates the daily reward state without claiming
func (s *economyService) DailyStatus(userID string) *models.DailyResponse {
	return s.daily.Evaluate(s.GetAccount(userID), s.now())
}

// ClaimDaily claims the daily reward. An unavailable reward is reported
// through the response status, not as an error.
func (s *economyService) ClaimDaily(ctx context.Context, userID string) (*models.DailyResponse, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var resp *models.DailyResponse

	_, err := s.mutate(ctx, "claim daily", func(uow UnitOfWork) ([]*models.UserAccount, error) {
		current, err := uow.AccountRepository().GetForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			current = models.NewUserAccount(userID)
		}

		resp = s.daily.Evaluate(current, now)
		if !resp.Status.IsClaimable() {
			return nil, nil
		}

		streak, total, highest := s.daily.NextStreak(current, resp.Status)
		reward := s.daily.Reward(streak, total)
		claimedAt := now.UnixMilli()

		account, err := uow.AccountRepository().Upsert(ctx, userID, models.AccountUpdate{
			BalanceDelta:     &reward,
			LastDailyClaimAt: &claimedAt,
			DailyStreak:      &streak,
			TotalDailyClaims: &total,
			HighestStreak:    &highest,
		})
		if err != nil {
			return nil, err
		}

		uow.EventBus().Publish(events.BalanceChangeEvent{
			UserID:          userID,
			OldBalance:      current.Balance,
			NewBalance:      account.Balance,
			ChangeAmount:    reward,
			TransactionType: models.TransactionTypeDaily,
		})
		uow.EventBus().Publish(events.DailyClaimedEvent{
			UserID: userID,
			Reward: reward,
			Streak: streak,
			Late:   resp.Status == models.DailyStatusLate,
		})

		resp.Claimed = true
		resp.Reward = reward
		resp.Balance = account.Balance
		resp.Streak = account.DailyStreak
		resp.TotalDaily = account.TotalDailyClaims
		return []*models.UserAccount{account}, nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Claimed {
		log.WithFields(log.Fields{
			"user":   userID,
			"status": resp.Status,
			"streak": resp.Streak,
			"reward": resp.Reward.StringFixed(currency.Precision),
		}).Info("Daily reward claimed")
	}
	return resp, nil
}

// applyDelta reads the locked row, rejects a negative result and writes the
// increment. Callers hold the user's lock.
func (s *economyService) applyDelta(ctx context.Context, uow UnitOfWork, userID string, delta decimal.Decimal, txType models.TransactionType) (*models.UserAccount, error) {
	repo := uow.AccountRepository()

	current, err := repo.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := decimal.Zero
	if current != nil {
		before = current.Balance
	}

	if before.Add(delta).IsNegative() {
		return nil, fmt.Errorf("%w: balance %s cannot cover %s", ErrInsufficientBalance, currency.Format(before), currency.Format(delta.Neg()))
	}

	account, err := repo.Upsert(ctx, userID, models.AddBalance(delta))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user":    userID,
		"delta":   delta.StringFixed(currency.Precision),
		"balance": account.Balance.StringFixed(currency.Precision),
		"type":    txType,
	}).Debug("Balance updated")

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          userID,
		OldBalance:      before,
		NewBalance:      account.Balance,
		ChangeAmount:    delta,
		TransactionType: txType,
	})
	return account, nil
}

// mutate runs fn in a unit of work with conflict retries and refreshes the
// cache only after the commit succeeded
func (s *economyService) mutate(ctx context.Context, operation string, fn func(uow UnitOfWork) ([]*models.UserAccount, error)) ([]*models.UserAccount, error) {
	var updated []*models.UserAccount
	err := withConflictRetry(ctx, s.retryAttempts, operation, func() error {
		return WithUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
			var err error
			updated, err = fn(uow)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	for _, account := range updated {
		s.cache[account.ID] = account.Clone()
	}
	s.cacheMu.Unlock()

	return updated, nil
}
