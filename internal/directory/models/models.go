// Package models defines the directory's read model: agencies and their
// contacts. The directory is read-only from this service's point of view;
// rows are produced by the seed importer.
package models

import (
	"time"

	dom "agencydesk/pkg/domain"
)

// Agency is an organization contacts belong to.
type Agency struct {
	ID        dom.AgencyID
	Name      string
	State     string
	Type      string
	Website   string
	CreatedAt time.Time
}

// AgencyWithCount pairs an agency with its contact count for listings.
type AgencyWithCount struct {
	Agency
	ContactCount int
}

// AgencyRef is the minimal shape used to populate filter dropdowns.
type AgencyRef struct {
	ID   dom.AgencyID
	Name string
}

// Contact is a directory entry. Email and Phone are the sensitive fields
// gated by the reveal quota; nil means nothing on file.
type Contact struct {
	ID         dom.ContactID
	FirstName  string
	LastName   string
	Title      string
	Email      *string
	Phone      *string
	AgencyID   dom.AgencyID
	AgencyName string
	CreatedAt  time.Time
}

// ContactQuery narrows and pages a contact listing. Search matches first
// name, last name, or email, case-insensitively.
type ContactQuery struct {
	Search   string
	AgencyID dom.AgencyID
	Page     int
	PageSize int
}

// ContactView is a listing row with masking applied: Email and Phone hold
// either the real value, "N/A" for a revealed-but-empty field, or "****".
type ContactView struct {
	ID         dom.ContactID
	FirstName  string
	LastName   string
	Title      string
	Email      string
	Phone      string
	AgencyID   dom.AgencyID
	AgencyName string
	IsRevealed bool
}

// ContactPage is one page of masked contact rows.
type ContactPage struct {
	Contacts   []*ContactView
	Total      int
	TotalPages int
}

// AgencyPage is one page of agencies.
type AgencyPage struct {
	Agencies   []*AgencyWithCount
	Total      int
	TotalPages int
}
