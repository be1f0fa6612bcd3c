package main

import (
	"context"
	"database/sql"
	"time"

	ledgerstore "agencydesk/internal/reveal/store/ledger"
	usagestore "agencydesk/internal/reveal/store/usage"

	"agencydesk/internal/reveal/ports"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
)

const defaultRevealTxTimeout = 5 * time.Second

// revealPostgresTx runs a reveal unit of work inside one database
// transaction, serialized per user with an advisory lock. The lock is
// released automatically at commit or rollback, and a failure after the
// increment rolls everything back.
type revealPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRevealPostgresTx(db *sql.DB) *revealPostgresTx {
	return &revealPostgresTx{db: db}
}

func (t *revealPostgresTx) RunInTx(ctx context.Context, userID dom.UserID, fn func(usage ports.UsageStore, ledger ports.LedgerStore) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRevealTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID.String()); err != nil {
		return err
	}

	if err := fn(usagestore.NewPostgresTx(tx), ledgerstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
