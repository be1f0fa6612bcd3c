// Package models defines the reveal module's domain types: the per-user
// daily usage counter, the idempotency ledger entry, and the calendar-day
// value both are scoped to.
package models

import (
	"time"

	dom "agencydesk/pkg/domain"
)

// DefaultDailyLimit is the ceiling of new reveals per user per calendar day.
const DefaultDailyLimit = 50

// Day is a calendar date (year, month, day) in the service's configured
// zone, formatted as 2006-01-02. Days are compared as values, never as
// instants: instant comparison resets counters early near local midnight.
type Day string

// DayOf computes the calendar day of t in loc. It is the single canonical
// day function; every read and write path that asks "is it still today"
// must go through it.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format("2006-01-02"))
}

func (d Day) String() string { return string(d) }

// Usage is the per-user quota counter. Count is meaningful only relative
// to WindowDate: when the current day differs, the counter is logically
// zero regardless of the stored value.
type Usage struct {
	UserID     dom.UserID
	Count      int
	WindowDate Day
}

// RevealRecord marks a permanent (user, contact) entitlement. Created
// exactly once per pair and never updated or deleted.
type RevealRecord struct {
	UserID    dom.UserID
	ContactID dom.ContactID
	CreatedAt time.Time
}

// ContactCard carries the sensitive fields handed back on a successful
// reveal. Nil means the directory has no value on file.
type ContactCard struct {
	Email *string
	Phone *string
}

// Reveal is the outcome of a granted or repeated reveal. Count is the
// user's usage after the operation; AlreadyRevealed distinguishes a free
// re-view from a freshly charged grant.
type Reveal struct {
	ContactCard
	Count           int
	AlreadyRevealed bool
}
