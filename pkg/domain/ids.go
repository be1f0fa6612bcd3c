// Package domain holds typed identifiers shared across modules. Distinct
// types keep a contact id from ever being passed where a user id is
// expected; the compiler enforces what code review would otherwise have to.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "agencydesk/pkg/domain-errors"
)

// UserID is the opaque subject supplied by the external identity provider.
// It is not a UUID and carries no structure beyond being non-empty; this
// service never mints one.
type UserID string

// ParseUserID validates an identity-provider subject at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id cannot be empty")
	}
	return UserID(s), nil
}

func (u UserID) String() string { return string(u) }

// ContactID identifies a directory contact.
type ContactID uuid.UUID

// AgencyID identifies a directory agency.
type AgencyID uuid.UUID

// ParseContactID constructs a ContactID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or
// the nil UUID; no other errors are expected.
func ParseContactID(s string) (ContactID, error) {
	id, err := parseUUID(s, "contact id")
	return ContactID(id), err
}

// ParseAgencyID constructs an AgencyID from external input.
func ParseAgencyID(s string) (AgencyID, error) {
	id, err := parseUUID(s, "agency id")
	return AgencyID(id), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return id, nil
}

func (c ContactID) String() string { return uuid.UUID(c).String() }
func (a AgencyID) String() string  { return uuid.UUID(a).String() }

// NewContactID mints a fresh contact id. Used by seeding and tests.
func NewContactID() ContactID { return ContactID(uuid.New()) }

// NewAgencyID mints a fresh agency id.
func NewAgencyID() AgencyID { return AgencyID(uuid.New()) }
