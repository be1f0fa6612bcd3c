package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	dom "agencydesk/pkg/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists reveal entitlements in PostgreSQL. The
// (user_id, contact_id) primary key makes duplicate-insert races harmless:
// the loser's insert affects zero rows.
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

func (s *PostgresStore) Has(ctx context.Context, userID dom.UserID, contactID dom.ContactID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM contact_reveals
			WHERE user_id = $1 AND contact_id = $2
		)
	`
	var exists bool
	if err := s.q.QueryRowContext(ctx, query, userID.String(), contactID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reveal: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Record(ctx context.Context, userID dom.UserID, contactID dom.ContactID, at time.Time) (bool, error) {
	query := `
		INSERT INTO contact_reveals (user_id, contact_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, contact_id) DO NOTHING
	`
	result, err := s.q.ExecContext(ctx, query, userID.String(), contactID.String(), at)
	if err != nil {
		return false, fmt.Errorf("record reveal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record reveal rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) Revealed(ctx context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error) {
	out := make(map[dom.ContactID]struct{})
	if len(ids) == 0 {
		return out, nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query := `
		SELECT contact_id FROM contact_reveals
		WHERE user_id = $1 AND contact_id = ANY($2::uuid[])
	`
	rows, err := s.q.QueryContext(ctx, query, userID.String(), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list reveals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan reveal: %w", err)
		}
		id, err := dom.ParseContactID(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse revealed contact id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
