// Package testutil provides common helpers for handler tests.
package testutil

import (
	"net/http"

	"agencydesk/internal/platform/middleware"
	dom "agencydesk/pkg/domain"
)

// WithUserID adds a user ID to the request context, simulating what the
// auth middleware does for authenticated requests. Invalid ids are
// silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := dom.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(middleware.WithUserID(req.Context(), parsed))
}
