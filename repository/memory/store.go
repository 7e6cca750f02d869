// Package memory is an in-process ledger store. Each unit of work holds the
// store lock from Begin until Commit or Rollback, so transactions are fully
// serialized. It backs tests and local runs without a database.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"casino/events"
	"casino/models"
	"casino/service"

	log "github.com/sirupsen/logrus"
)

// Store holds committed accounts and logs
type Store struct {
	mu        sync.Mutex
	accounts  map[string]*models.UserAccount
	logs      []*models.CasinoLogEntry
	nextLogID int64
	eventBus  *events.Bus
	now       func() time.Time

	faultMu   sync.Mutex
	beginErr  error
	appendErr error
	conflicts int
}

// NewStore creates an empty store. eventBus may be nil.
func NewStore(eventBus *events.Bus) *Store {
	return &Store{
		accounts: make(map[string]*models.UserAccount),
		eventBus: eventBus,
		now:      time.Now,
	}
}

// Create implements service.UnitOfWorkFactory
func (s *Store) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            s,
		transactionalBus: events.NewTransactionalBus(s.eventBus),
	}
}

// Seed writes accounts directly, bypassing units of work
func (s *Store) Seed(accounts ...*models.UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range accounts {
		s.accounts[account.ID] = account.Clone()
	}
}

// Account returns a committed account snapshot or nil
func (s *Store) Account(userID string) *models.UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID].Clone()
}

// Logs returns a user's committed log entries in insertion order
func (s *Store) Logs(userID string) []*models.CasinoLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.CasinoLogEntry
	for _, entry := range s.logs {
		if entry.UserID == userID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out
}

// FailBegin makes every Begin fail with err until cleared with nil
func (s *Store) FailBegin(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.beginErr = err
}

// FailAppends makes every log append fail with err until cleared with nil
func (s *Store) FailAppends(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.appendErr = err
}

// InjectConflicts makes the next n commits fail with a concurrency conflict
func (s *Store) InjectConflicts(n int) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.conflicts = n
}

func (s *Store) takeConflict() bool {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return true
	}
	return false
}

func (s *Store) faults() (beginErr, appendErr error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.beginErr, s.appendErr
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, service.ErrStoreUnavailable, err)
}

type unitOfWork struct {
	store            *Store
	active           bool
	ctx              context.Context
	staged           map[string]*models.UserAccount
	stagedLogs       []*models.CasinoLogEntry
	transactionalBus *events.TransactionalBus
	accountRepo      *accountRepository
	casinoLogRepo    *casinoLogRepository
}

// Begin takes the store lock for the lifetime of the unit of work
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}
	if beginErr, _ := u.store.faults(); beginErr != nil {
		return storeError("begin", beginErr)
	}

	u.store.mu.Lock()
	u.active = true
	u.ctx = ctx
	u.staged = make(map[string]*models.UserAccount)
	u.stagedLogs = nil
	u.accountRepo = &accountRepository{uow: u}
	u.casinoLogRepo = &casinoLogRepository{uow: u}
	return nil
}

// Commit publishes staged writes and flushes queued events
func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	if u.store.takeConflict() {
		u.abort()
		return fmt.Errorf("commit: %w", service.ErrConcurrentMutationConflict)
	}

	for id, account := range u.staged {
		u.store.accounts[id] = account
	}
	u.store.logs = append(u.store.logs, u.stagedLogs...)
	u.active = false
	u.store.mu.Unlock()

	if err := u.transactionalBus.Flush(u.ctx); err != nil {
		log.WithError(err).Warn("Failed to flush events after commit")
	}
	return nil
}

// Rollback discards staged writes
func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.abort()
	return nil
}

func (u *unitOfWork) abort() {
	u.staged = nil
	u.stagedLogs = nil
	u.active = false
	u.store.mu.Unlock()
	u.transactionalBus.Discard()
}

func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

func (u *unitOfWork) CasinoLogRepository() service.CasinoLogRepository {
	if u.casinoLogRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.casinoLogRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}

func (u *unitOfWork) lookup(userID string) *models.UserAccount {
	if account, ok := u.staged[userID]; ok {
		return account
	}
	return u.store.accounts[userID]
}

var errInactive = errors.New("unit of work is not active")

type accountRepository struct {
	uow *unitOfWork
}

func (r *accountRepository) GetByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	if !r.uow.active {
		return nil, errInactive
	}
	return r.uow.lookup(userID).Clone(), nil
}

// GetForUpdate needs no extra locking; the unit of work already holds the store lock
func (r *accountRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserAccount, error) {
	return r.GetByID(ctx, userID)
}

func (r *accountRepository) Upsert(ctx context.Context, userID string, update models.AccountUpdate) (*models.UserAccount, error) {
	if !r.uow.active {
		return nil, errInactive
	}
	if update.Balance != nil && update.BalanceDelta != nil {
		return nil, fmt.Errorf("upsert %s: balance and balance delta are mutually exclusive", userID)
	}

	now := r.uow.store.now().UTC()
	current := r.uow.lookup(userID)
	if current == nil {
		current = models.NewUserAccount(userID)
		current.CreatedAt = now
	}

	next := update.Apply(current)
	if next.Balance.IsNegative() {
		return nil, fmt.Errorf("upsert %s: %w", userID, service.ErrInsufficientBalance)
	}
	next.UpdatedAt = now

	r.uow.staged[userID] = next
	return next.Clone(), nil
}

func (r *accountRepository) GetAll(ctx context.Context) ([]*models.UserAccount, error) {
	if !r.uow.active {
		return nil, errInactive
	}

	merged := make(map[string]*models.UserAccount, len(r.uow.store.accounts))
	for id, account := range r.uow.store.accounts {
		merged[id] = account
	}
	for id, account := range r.uow.staged {
		merged[id] = account
	}

	out := make([]*models.UserAccount, 0, len(merged))
	for _, account := range merged {
		out = append(out, account.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type casinoLogRepository struct {
	uow *unitOfWork
}

func (r *casinoLogRepository) Append(ctx context.Context, entry *models.CasinoLogEntry) error {
	if !r.uow.active {
		return errInactive
	}
	if _, appendErr := r.uow.store.faults(); appendErr != nil {
		return storeError("append casino log", appendErr)
	}

	r.uow.store.nextLogID++
	entry.ID = r.uow.store.nextLogID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.uow.store.now().UTC()
	}

	copied := *entry
	r.uow.stagedLogs = append(r.uow.stagedLogs, &copied)
	return nil
}

func (r *casinoLogRepository) GetByUserSince(ctx context.Context, userID string, since time.Time, game *models.Game) ([]*models.CasinoLogEntry, error) {
	if !r.uow.active {
		return nil, errInactive
	}

	var out []*models.CasinoLogEntry
	for _, group := range [][]*models.CasinoLogEntry{r.uow.store.logs, r.uow.stagedLogs} {
		for _, entry := range group {
			if entry.UserID != userID || entry.Timestamp.Before(since) {
				continue
			}
			if game != nil && entry.Game != *game {
				continue
			}
			copied := *entry
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
