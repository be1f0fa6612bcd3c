// Package service assembles masked directory listings. Sensitive fields
// stay masked unless the reveal ledger says the caller already paid for
// them; the listing itself never writes to the reveal stores.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"agencydesk/internal/directory/models"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
	"agencydesk/pkg/platform/circuit"
)

const (
	maskedValue  = "****"
	missingValue = "N/A"

	defaultPageSize = 20
	maxPageSize     = 100

	// ledgerProbeInterval is how often an open breaker lets one lookup
	// through to see whether the reveal ledger recovered.
	ledgerProbeInterval = 30 * time.Second
)

// Store is the directory's persistence surface.
type Store interface {
	ListContacts(ctx context.Context, q models.ContactQuery) ([]*models.Contact, int, error)
	GetContact(ctx context.Context, id dom.ContactID) (*models.Contact, error)
	ListAgencies(ctx context.Context, page, pageSize int) ([]*models.AgencyWithCount, int, error)
	AllAgencies(ctx context.Context) ([]*models.AgencyRef, error)
}

// RevealChecker reports which contacts a user has already been granted.
// Implemented by the reveal service.
type RevealChecker interface {
	Revealed(ctx context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error)
}

type Service struct {
	store   Store
	reveals RevealChecker
	logger  *slog.Logger

	breaker   *circuit.Breaker
	lastProbe atomic.Int64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, reveals RevealChecker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "directory store is required")
	}
	if reveals == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "reveal checker is required")
	}

	svc := &Service{
		store:   store,
		reveals: reveals,
		breaker: circuit.New("reveal-ledger"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListContacts returns one masked page. On a reveal-ledger failure the
// page degrades to fully masked rather than failing: listings may degrade,
// but sensitive fields never open up on ambiguity.
func (s *Service) ListContacts(ctx context.Context, userID dom.UserID, q models.ContactQuery) (*models.ContactPage, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	q.Page, q.PageSize = clampPage(q.Page, q.PageSize)

	contacts, total, err := s.store.ListContacts(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory store unreachable")
	}

	ids := make([]dom.ContactID, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}

	revealed := map[dom.ContactID]struct{}{}
	if s.allowRevealLookup() {
		found, err := s.reveals.Revealed(ctx, userID, ids)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.WarnContext(ctx, "reveal lookup failed, serving masked listing",
					"user_id", userID.String(),
					"error", err.Error(),
				)
			}
			if _, change := s.breaker.RecordFailure(); change.Opened {
				s.lastProbe.Store(time.Now().UnixNano())
				if s.logger != nil {
					s.logger.WarnContext(ctx, "reveal ledger breaker opened, listings fully masked")
				}
			}
		default:
			revealed = found
			if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
				s.logger.InfoContext(ctx, "reveal ledger breaker closed")
			}
		}
	}

	views := make([]*models.ContactView, 0, len(contacts))
	for _, c := range contacts {
		_, isRevealed := revealed[c.ID]
		views = append(views, maskContact(c, isRevealed))
	}

	return &models.ContactPage{
		Contacts:   views,
		Total:      total,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

// ListAgencies returns one page of agencies with contact counts.
func (s *Service) ListAgencies(ctx context.Context, page, pageSize int) (*models.AgencyPage, error) {
	page, pageSize = clampPage(page, pageSize)

	agencies, total, err := s.store.ListAgencies(ctx, page, pageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory store unreachable")
	}

	return &models.AgencyPage{
		Agencies:   agencies,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// AllAgencies returns every agency id and name, for filter dropdowns.
func (s *Service) AllAgencies(ctx context.Context) ([]*models.AgencyRef, error) {
	refs, err := s.store.AllAgencies(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory store unreachable")
	}
	return refs, nil
}

// allowRevealLookup gates the ledger call. While the breaker is open one
// probe per interval goes through; everything else serves masked without
// waiting on a dependency known to be down.
func (s *Service) allowRevealLookup() bool {
	if !s.breaker.IsOpen() {
		return true
	}
	now := time.Now().UnixNano()
	last := s.lastProbe.Load()
	if now-last < int64(ledgerProbeInterval) {
		return false
	}
	return s.lastProbe.CompareAndSwap(last, now)
}

func maskContact(c *models.Contact, revealed bool) *models.ContactView {
	view := &models.ContactView{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Title:      c.Title,
		AgencyID:   c.AgencyID,
		AgencyName: c.AgencyName,
		IsRevealed: revealed,
		Email:      maskedValue,
		Phone:      maskedValue,
	}
	if revealed {
		view.Email = valueOrMissing(c.Email)
		view.Phone = valueOrMissing(c.Phone)
	}
	return view
}

func valueOrMissing(v *string) string {
	if v == nil || *v == "" {
		return missingValue
	}
	return *v
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
