// Package sqlitestore keeps the ledger in an embedded SQLite database.
// Balances are stored as decimal text and log timestamps as epoch millis.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casino/events"
	"casino/models"
	"casino/service"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// queryable is satisfied by *sql.DB and *sql.Tx
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewUnitOfWorkFactory creates a factory over a database opened with database.OpenSQLite
func NewUnitOfWorkFactory(db *sql.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, eventBus: eventBus}
}

type unitOfWorkFactory struct {
	db       *sql.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

type unitOfWork struct {
	db               *sql.DB
	tx               *sql.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      *accountRepository
	casinoLogRepo    *casinoLogRepository
}

// Begin starts a transaction. The pool holds a single connection, so
// transactions run one at a time.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err)
	}

	u.tx = tx
	u.ctx = ctx
	u.accountRepo = &accountRepository{q: tx}
	u.casinoLogRepo = &casinoLogRepository{q: tx}
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	if err := u.tx.Commit(); err != nil {
		return storeError("commit transaction", err)
	}
	u.tx = nil

	if u.transactionalBus != nil {
		if err := u.transactionalBus.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}
	return nil
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
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}

const accountColumns = `user_id, balance, last_daily, daily_streak, total_daily, highest_streak, created_at, updated_at`

type accountRepository struct {
	q queryable
}

func (r *accountRepository) GetByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE user_id = ?`, userID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("get account %s", userID), err)
	}
	return account, nil
}

// GetForUpdate is a plain read; the single connection already serializes writers
func (r *accountRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserAccount, error) {
	return r.GetByID(ctx, userID)
}

// Upsert computes the next row in Go since balances are stored as text
func (r *accountRepository) Upsert(ctx context.Context, userID string, update models.AccountUpdate) (*models.UserAccount, error) {
	if update.Balance != nil && update.BalanceDelta != nil {
		return nil, fmt.Errorf("upsert %s: balance and balance delta are mutually exclusive", userID)
	}

	current, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = models.NewUserAccount(userID)
	}

	next := update.Apply(current)
	if next.Balance.IsNegative() {
		return nil, fmt.Errorf("upsert %s: %w", userID, service.ErrInsufficientBalance)
	}

	query := `
		INSERT INTO users (user_id, balance, last_daily, daily_streak, total_daily, highest_streak)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			balance        = excluded.balance,
			last_daily     = excluded.last_daily,
			daily_streak   = excluded.daily_streak,
			total_daily    = excluded.total_daily,
			highest_streak = excluded.highest_streak,
			updated_at     = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		RETURNING ` + accountColumns

	row := r.q.QueryRowContext(ctx, query,
		userID,
		next.Balance.StringFixed(2),
		next.LastDailyClaimAt,
		next.DailyStreak,
		next.TotalDailyClaims,
		next.HighestStreak,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError(fmt.Sprintf("upsert account %s", userID), err)
	}
	return account, nil
}

func (r *accountRepository) GetAll(ctx context.Context) ([]*models.UserAccount, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, storeError("list accounts", err)
	}
	defer rows.Close()

	var accounts []*models.UserAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storeError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list accounts", err)
	}
	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.UserAccount, error) {
	var account models.UserAccount
	var balance, createdAt, updatedAt string
	err := row.Scan(
		&account.ID,
		&balance,
		&account.LastDailyClaimAt,
		&account.DailyStreak,
		&account.TotalDailyClaims,
		&account.HighestStreak,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	if account.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if account.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	return &account, nil
}

type casinoLogRepository struct {
	q queryable
}

func (r *casinoLogRepository) Append(ctx context.Context, entry *models.CasinoLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO casino_logs (user_id, game, net_gain, timestamp) VALUES (?, ?, ?, ?)`,
		entry.UserID,
		string(entry.Game),
		entry.NetGain.StringFixed(2),
		entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return storeError(fmt.Sprintf("append casino log for %s", entry.UserID), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeError("read casino log id", err)
	}
	entry.ID = id
	return nil
}

func (r *casinoLogRepository) GetByUserSince(ctx context.Context, userID string, since time.Time, game *models.Game) ([]*models.CasinoLogEntry, error) {
	query := `
		SELECT id, user_id, game, net_gain, timestamp
		FROM casino_logs
		WHERE user_id = ? AND timestamp >= ? AND (? IS NULL OR game = ?)
		ORDER BY timestamp DESC, id DESC
	`

	var gameArg any
	if game != nil {
		gameArg = string(*game)
	}

	rows, err := r.q.QueryContext(ctx, query, userID, since.UnixMilli(), gameArg, gameArg)
	if err != nil {
		return nil, storeError(fmt.Sprintf("query casino logs for %s", userID), err)
	}
	defer rows.Close()

	var entries []*models.CasinoLogEntry
	for rows.Next() {
		var entry models.CasinoLogEntry
		var game, netGain string
		var millis int64
		if err := rows.Scan(&entry.ID, &entry.UserID, &game, &netGain, &millis); err != nil {
			return nil, storeError("scan casino log", err)
		}
		entry.Game = models.Game(game)
		if entry.NetGain, err = decimal.NewFromString(netGain); err != nil {
			return nil, fmt.Errorf("invalid net gain %q: %w", netGain, err)
		}
		entry.Timestamp = time.UnixMilli(millis).UTC()
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(fmt.Sprintf("query casino logs for %s", userID), err)
	}
	return entries, nil
}
