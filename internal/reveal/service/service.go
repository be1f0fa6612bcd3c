// Package service orchestrates the reveal quota subsystem: the usage
// counter and the idempotency ledger behind one serialized operation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agencydesk/internal/reveal/metrics"
	"agencydesk/internal/reveal/models"
	"agencydesk/internal/reveal/ports"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
)

type Service struct {
	usage    ports.UsageStore
	ledger   ports.LedgerStore
	contacts ports.ContactSource
	tx       ports.Tx

	limit   int
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLimit overrides the default daily ceiling. Values below one are
// ignored.
func WithLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithLocation sets the zone the daily window is anchored to.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock injects the reference clock. Tests use this to cross day
// boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(usage ports.UsageStore, ledger ports.LedgerStore, contacts ports.ContactSource, tx ports.Tx, opts ...Option) (*Service, error) {
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact source is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}

	svc := &Service{
		usage:    usage,
		ledger:   ledger,
		contacts: contacts,
		tx:       tx,
		limit:    models.DefaultDailyLimit,
		loc:      time.UTC,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Limit returns the configured daily ceiling, for display alongside counts.
func (s *Service) Limit() int { return s.limit }

// Reveal unmasks a contact's sensitive fields for a user. A first reveal
// consumes one unit of the user's daily quota and records the pair in the
// ledger; any later reveal of the same pair is free. The ledger check, the
// conditional increment and the ledger insert run as one per-user unit of
// work, so a failure after the increment rolls the increment back and
// concurrent reveals of the same pair cannot double-charge.
//
// Errors: CodeUnauthorized without a caller identity, CodeNotFound when
// the contact does not resolve (checked before any quota is consumed),
// CodeQuotaExceeded when the daily ceiling is reached, CodeUnavailable
// when a store is unreachable. Store failures never default to a grant.
func (s *Service) Reveal(ctx context.Context, userID dom.UserID, contactID dom.ContactID) (*models.Reveal, error) {
	start := time.Now()

	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	card, err := s.contacts.GetContact(ctx, contactID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "contact directory unreachable")
	}
	if card == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "contact not found")
	}

	today := models.DayOf(s.now(), s.loc)

	var result *models.Reveal
	err = s.tx.RunInTx(ctx, userID, func(usage ports.UsageStore, ledger ports.LedgerStore) error {
		has, err := ledger.Has(ctx, userID, contactID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "reveal ledger unreachable")
		}

		if has {
			count, err := effectiveCount(ctx, usage, userID, today)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "usage store unreachable")
			}
			result = &models.Reveal{ContactCard: *card, Count: count, AlreadyRevealed: true}
			return nil
		}

		count, ok, err := usage.IncrementIfUnder(ctx, userID, today, s.limit)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "usage store unreachable")
		}
		if !ok {
			return dErrors.New(dErrors.CodeQuotaExceeded, "daily reveal limit reached")
		}

		created, err := ledger.Record(ctx, userID, contactID, s.now())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "reveal ledger unreachable")
		}
		if !created {
			// Unreachable while the unit of work is serialized per user;
			// abort so the increment rolls back rather than orphan a unit.
			return dErrors.New(dErrors.CodeInternal, "ledger insert raced the usage increment")
		}

		result = &models.Reveal{ContactCard: *card, Count: count}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeQuotaExceeded) {
			s.metrics.ObserveQuotaDenied()
			ports.LogAudit(ctx, s.logger, "reveal_quota_denied",
				"user_id", userID.String(),
				"contact_id", contactID.String(),
				"limit", s.limit,
			)
		}
		return nil, err
	}

	s.metrics.ObserveDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	if result.AlreadyRevealed {
		s.metrics.ObserveRepeat()
		return result, nil
	}

	s.metrics.ObserveGranted()
	ports.LogAudit(ctx, s.logger, "contact_revealed",
		"user_id", userID.String(),
		"contact_id", contactID.String(),
		"count", result.Count,
		"limit", s.limit,
	)
	return result, nil
}

// Usage returns the user's effective counter for today. A stored counter
// from an earlier window reads as zero; the rollover is not persisted.
func (s *Service) Usage(ctx context.Context, userID dom.UserID) (*models.Usage, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	today := models.DayOf(s.now(), s.loc)
	u, err := s.usage.Get(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "usage store unreachable")
	}
	if u == nil || u.WindowDate != today {
		return &models.Usage{UserID: userID, Count: 0, WindowDate: today}, nil
	}
	return u, nil
}

// Revealed returns which of the given contacts the user has already been
// granted. Listing uses it to decide which rows to unmask before sending.
func (s *Service) Revealed(ctx context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if len(ids) == 0 {
		return map[dom.ContactID]struct{}{}, nil
	}

	revealed, err := s.ledger.Revealed(ctx, userID, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "reveal ledger unreachable")
	}
	return revealed, nil
}

func effectiveCount(ctx context.Context, usage ports.UsageStore, userID dom.UserID, today models.Day) (int, error) {
	u, err := usage.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil || u.WindowDate != today {
		return 0, nil
	}
	return u.Count, nil
}
