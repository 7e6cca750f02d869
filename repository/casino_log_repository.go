package repository

import (
	"context"
	"fmt"
	"time"

	"casino/database"
	"casino/models"

	"github.com/shopspring/decimal"
)

// CasinoLogRepository stores the append-only wager log in Postgres
type CasinoLogRepository struct {
	q Queryable
}

// NewCasinoLogRepository creates a casino log repository on the pool
func NewCasinoLogRepository(db *database.DB) *CasinoLogRepository {
	return &CasinoLogRepository{q: db.Pool}
}

func newCasinoLogRepositoryWithTx(tx Queryable) *CasinoLogRepository {
	return &CasinoLogRepository{q: tx}
}

// Append inserts an entry and fills in its ID. A zero timestamp uses the database clock.
func (r *CasinoLogRepository) Append(ctx context.Context, entry *models.CasinoLogEntry) error {
	query := `
		INSERT INTO casino_logs (user_id, game, net_gain, timestamp)
		VALUES ($1, $2, $3::numeric, COALESCE($4::timestamptz, NOW()))
		RETURNING id, timestamp
	`

	var timestamp *time.Time
	if !entry.Timestamp.IsZero() {
		timestamp = &entry.Timestamp
	}

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		string(entry.Game),
		entry.NetGain.String(),
		timestamp,
	).Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return storeError(fmt.Sprintf("append casino log for %s", entry.UserID), err)
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return nil
}

// GetByUserSince returns a user's entries at or after since, newest first.
// A nil game includes every game.
func (r *CasinoLogRepository) GetByUserSince(ctx context.Context, userID string, since time.Time, game *models.Game) ([]*models.CasinoLogEntry, error) {
	query := `
		SELECT id, user_id, game, net_gain::text, timestamp
		FROM casino_logs
		WHERE user_id = $1
		  AND timestamp >= $2
		  AND ($3::text IS NULL OR game = $3)
		ORDER BY timestamp DESC, id DESC
	`

	var gameArg *string
	if game != nil {
		g := string(*game)
		gameArg = &g
	}

	rows, err := r.q.Query(ctx, query, userID, since, gameArg)
	if err != nil {
		return nil, storeError(fmt.Sprintf("query casino logs for %s", userID), err)
	}
	defer rows.Close()

	var entries []*models.CasinoLogEntry
	for rows.Next() {
		var entry models.CasinoLogEntry
		var game, netGain string
		if err := rows.Scan(&entry.ID, &entry.UserID, &game, &netGain, &entry.Timestamp); err != nil {
			return nil, storeError("scan casino log", err)
		}
		entry.Game = models.Game(game)
		entry.NetGain, err = decimal.NewFromString(netGain)
		if err != nil {
			return nil, fmt.Errorf("invalid net gain %q: %w", netGain, err)
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(fmt.Sprintf("query casino logs for %s", userID), err)
	}
	return entries, nil
}
