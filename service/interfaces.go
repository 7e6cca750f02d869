package service

import (
	"context"
	"time"

	"casino/events"
	"casino/games"
	"casino/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the ledger store operations on user accounts
type AccountRepository interface {
	// GetByID returns the account or nil if it was never created
	GetByID(ctx context.Context, userID string) (*models.UserAccount, error)

	// GetForUpdate is GetByID that also locks the row until the unit of work ends
	GetForUpdate(ctx context.Context, userID string) (*models.UserAccount, error)

	// Upsert creates the account with defaults if absent and applies the update.
	// Balance deltas are applied atomically by the store.
	Upsert(ctx context.Context, userID string, update models.AccountUpdate) (*models.UserAccount, error)

	// GetAll returns every account, used to warm the balance cache
	GetAll(ctx context.Context) ([]*models.UserAccount, error)
}

// CasinoLogRepository defines the append-only audit log store
type CasinoLogRepository interface {
	// Append writes a new entry and fills in its ID and Timestamp
	Append(ctx context.Context, entry *models.CasinoLogEntry) error

	// GetByUserSince returns a user's entries at or after since, newest first,
	// optionally restricted to one game
	GetByUserSince(ctx context.Context, userID string, since time.Time, game *models.Game) ([]*models.CasinoLogEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases queued events
	Commit() error

	// Rollback rolls back the transaction; a no-op after Commit
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	CasinoLogRepository() CasinoLogRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// EconomyService is the single authority over balances and the daily reward
type EconomyService interface {
	// LoadCache mirrors every stored account into memory
	LoadCache(ctx context.Context) error

	// GetBalance returns the cached balance, zero for unknown users. It never performs I/O.
	GetBalance(userID string) decimal.Decimal

	// GetAccount returns a copy of the cached account or a default one
	GetAccount(userID string) *models.UserAccount

	// AddBalance applies a signed delta, creating the account if needed.
	// A delta that would leave the balance negative fails with ErrInsufficientBalance.
	AddBalance(ctx context.Context, userID string, delta decimal.Decimal, txType models.TransactionType) (*models.UserAccount, error)

	// SetBalance overwrites the balance with an absolute non-negative amount
	SetBalance(ctx context.Context, userID string, amount decimal.Decimal) (*models.UserAccount, error)

	// TransferBalance moves amount between two accounts in one transaction
	TransferBalance(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error)

	// AddLog appends an audit entry for a completed wager
	AddLog(ctx context.Context, userID string, game models.Game, netGain decimal.Decimal) (*models.CasinoLogEntry, error)

	// FetchLogs returns entries within the trailing window, newest first
	FetchLogs(ctx context.Context, userID string, window time.Duration, game *models.Game) ([]*models.CasinoLogEntry, error)

	// SettleWager validates a wager expression against the current balance and
	// applies the outcome of play while holding the user's lock
	SettleWager(ctx context.Context, userID string, game models.Game, rawWager any, play PlayFunc) (*WagerSettlement, error)

	// CompleteWager credits the payout of a wager whose stake was escrowed earlier
	CompleteWager(ctx context.Context, userID string, game models.Game, wager, payout decimal.Decimal) (*models.UserAccount, error)

	// DailyStatus evaluates the daily reward state without claiming
	DailyStatus(userID string) *models.DailyResponse

	// ClaimDaily claims the daily reward when it is available or late
	ClaimDaily(ctx context.Context, userID string) (*models.DailyResponse, error)
}

// GameService runs single-shot games and player transfers
type GameService interface {
	// Play validates the wager, resolves the game and settles the outcome
	Play(ctx context.Context, userID string, game models.Game, rawWager string, params games.Params) (*models.PlayResult, error)

	// Transfer moves a wager-style amount expression to another player
	Transfer(ctx context.Context, fromID, toID string, rawAmount string) (*models.TransferResult, error)

	// Stats aggregates a player's log entries over a trailing window
	Stats(ctx context.Context, userID string, window time.Duration, game *models.Game) (*models.GameStats, error)
}

// MinesService drives multi-step Mines sessions
type MinesService interface {
	// Start escrows the wager and opens a session
	Start(ctx context.Context, userID string, rawWager string, mines int) (*models.MinesResult, error)

	// Reveal uncovers a cell (1-based) in the active session
	Reveal(ctx context.Context, userID string, cell int) (*models.MinesResult, error)

	// CashOut ends the active session and pays out at the current multiplier
	CashOut(ctx context.Context, userID string) (*models.MinesResult, error)

	// Active returns the current state of a player's session, if any
	Active(userID string) (*models.MinesResult, bool)

	// SweepIdle settles sessions idle longer than the TTL and returns how many were closed
	SweepIdle(ctx context.Context) int

	// SettleAll settles every open session, refunding untouched games and
	// cashing out the rest. Returns how many were closed.
	SettleAll(ctx context.Context) int

	// StartSweeper schedules SweepIdle on a fixed interval
	StartSweeper(interval time.Duration) (gocron.Scheduler, error)
}
