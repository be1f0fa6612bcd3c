// Package ports defines shared interfaces for the reveal module.
// Interfaces are placed here when consumed by multiple packages to avoid
// duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
)

// UsageStore manages per-user daily reveal counters.
type UsageStore interface {
	// Get retrieves the stored counter, or nil when the user has none.
	// No day rollover is persisted on read.
	Get(ctx context.Context, userID dom.UserID) (*models.Usage, error)

	// IncrementIfUnder atomically creates the counter if absent, resets it
	// when its window is not day, and increments it only while the count is
	// under limit. Returns the resulting count and ok=false with no
	// mutation when the limit is already reached for day.
	IncrementIfUnder(ctx context.Context, userID dom.UserID, day models.Day, limit int) (count int, ok bool, err error)
}

// LedgerStore manages the permanent (user, contact) reveal entitlements.
type LedgerStore interface {
	// Has reports whether the pair was ever granted.
	Has(ctx context.Context, userID dom.UserID, contactID dom.ContactID) (bool, error)

	// Record inserts the pair if absent. Returns created=false when the
	// pair already exists; concurrent duplicate inserts lose gracefully
	// and never surface a conflict error.
	Record(ctx context.Context, userID dom.UserID, contactID dom.ContactID, at time.Time) (created bool, err error)

	// Revealed returns the subset of ids already granted to the user.
	Revealed(ctx context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error)
}

// ContactSource is the external directory read the reveal service depends
// on. Returns nil when the contact id does not resolve.
type ContactSource interface {
	GetContact(ctx context.Context, contactID dom.ContactID) (*models.ContactCard, error)
}

// Tx serializes the check-ledger / increment / insert sequence for one
// user as a single unit of work. In-memory implementations take a per-user
// lock; the PostgreSQL implementation runs fn inside a database
// transaction so a partial failure rolls the increment back too.
type Tx interface {
	RunInTx(ctx context.Context, userID dom.UserID, fn func(usage UsageStore, ledger LedgerStore) error) error
}

// LogAudit is a shared helper for logging audit events from the reveal
// module. Events carry event/log_type attrs so the aggregation pipeline
// can route them.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	args := append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}
