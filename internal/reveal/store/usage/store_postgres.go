package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// runs standalone or inside a reveal transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists usage counters in PostgreSQL. The store is pure
// I/O; the day-rollover and limit rules it encodes in SQL are exactly the
// contract stated on ports.UsageStore.
type PostgresStore struct {
	q querier
}

// NewPostgres constructs a store bound to a database handle.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// NewPostgresTx constructs a store bound to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: tx}
}

func (s *PostgresStore) Get(ctx context.Context, userID dom.UserID) (*models.Usage, error) {
	query := `
		SELECT count, window_date
		FROM user_usage
		WHERE user_id = $1
	`
	var count int
	var windowDate time.Time
	err := s.q.QueryRowContext(ctx, query, userID.String()).Scan(&count, &windowDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &models.Usage{
		UserID:     userID,
		Count:      count,
		WindowDate: models.Day(windowDate.Format("2006-01-02")),
	}, nil
}

// IncrementIfUnder performs the lazy-create, day-reset and conditional
// increment as one atomic statement. A stale window resets to 1; a current
// window increments only while under the limit. When the guard fails no
// row comes back and nothing was mutated.
func (s *PostgresStore) IncrementIfUnder(ctx context.Context, userID dom.UserID, day models.Day, limit int) (int, bool, error) {
	query := `
		INSERT INTO user_usage AS u (user_id, count, window_date)
		VALUES ($1, 1, $2::date)
		ON CONFLICT (user_id) DO UPDATE SET
			count = CASE WHEN u.window_date <> $2::date THEN 1 ELSE u.count + 1 END,
			window_date = $2::date
		WHERE u.window_date <> $2::date OR u.count < $3
		RETURNING count
	`
	var count int
	err := s.q.QueryRowContext(ctx, query, userID.String(), day.String(), limit).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Guard rejected the update: the limit is reached for this day.
			return limit, false, nil
		}
		return 0, false, fmt.Errorf("increment usage: %w", err)
	}
	return count, true, nil
}
