package repository

import (
	"context"
	"errors"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `user_id, balance::text, last_daily, daily_streak, total_daily, highest_streak, created_at, updated_at`

// AccountRepository stores user accounts in Postgres
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates an account repository on the pool
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByID retrieves an account, nil if the user has none yet
func (r *AccountRepository) GetByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE user_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("get account %s", userID), err)
	}
	return account, nil
}

// GetForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE user_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("lock account %s", userID), err)
	}
	return account, nil
}

// Upsert creates the account with defaults or updates it in place.
// A balance delta is applied by the database, so the balance CHECK
// constraint rejects a write that would go below zero.
func (r *AccountRepository) Upsert(ctx context.Context, userID string, update models.AccountUpdate) (*models.UserAccount, error) {
	if update.Balance != nil && update.BalanceDelta != nil {
		return nil, fmt.Errorf("upsert %s: balance and balance delta are mutually exclusive", userID)
	}

	query := `
		INSERT INTO users (user_id, balance, last_daily, daily_streak, total_daily, highest_streak)
		VALUES (
			$1,
			COALESCE($2::numeric, 0) + COALESCE($3::numeric, 0),
			COALESCE($4::bigint, 0),
			COALESCE($5::integer, 0),
			COALESCE($6::integer, 0),
			COALESCE($7::integer, 0)
		)
		ON CONFLICT (user_id) DO UPDATE SET
			balance        = COALESCE($2::numeric, users.balance) + COALESCE($3::numeric, 0),
			last_daily     = COALESCE($4::bigint, users.last_daily),
			daily_streak   = COALESCE($5::integer, users.daily_streak),
			total_daily    = COALESCE($6::integer, users.total_daily),
			highest_streak = COALESCE($7::integer, users.highest_streak)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query,
		userID,
		decimalArg(update.Balance),
		decimalArg(update.BalanceDelta),
		update.LastDailyClaimAt,
		update.DailyStreak,
		update.TotalDailyClaims,
		update.HighestStreak,
	))
	if err != nil {
		return nil, storeError(fmt.Sprintf("upsert account %s", userID), err)
	}
	return account, nil
}

// GetAll returns every account ordered by user ID
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM users ORDER BY user_id`

	rows, err := r.q.Query(ctx, query)
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

func scanAccount(row pgx.Row) (*models.UserAccount, error) {
	var account models.UserAccount
	var balance string
	err := row.Scan(
		&account.ID,
		&balance,
		&account.LastDailyClaimAt,
		&account.DailyStreak,
		&account.TotalDailyClaims,
		&account.HighestStreak,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	return &account, nil
}

// decimalArg passes amounts as text so NUMERIC keeps every digit
func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
