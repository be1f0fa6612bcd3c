package main

import (
	"context"

	directorymodels "agencydesk/internal/directory/models"
	revealmodels "agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
)

// directoryContactSource adapts the directory store to the narrow contact
// read the reveal service needs.
type directoryContactSource struct {
	store interface {
		GetContact(ctx context.Context, id dom.ContactID) (*directorymodels.Contact, error)
	}
}

func (s *directoryContactSource) GetContact(ctx context.Context, contactID dom.ContactID) (*revealmodels.ContactCard, error) {
	c, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return &revealmodels.ContactCard{Email: c.Email, Phone: c.Phone}, nil
}
