// Package revealflow exercises the full HTTP stack over in-memory stores:
// router, auth middleware, directory listing, and the reveal quota.
package revealflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directoryhandler "agencydesk/internal/directory/handler"
	directorymodels "agencydesk/internal/directory/models"
	directoryservice "agencydesk/internal/directory/service"
	directorystore "agencydesk/internal/directory/store"
	"agencydesk/internal/jwttoken"
	revealhandler "agencydesk/internal/reveal/handler"
	revealmodels "agencydesk/internal/reveal/models"
	revealservice "agencydesk/internal/reveal/service"
	ledgerstore "agencydesk/internal/reveal/store/ledger"
	usagestore "agencydesk/internal/reveal/store/usage"
	httptransport "agencydesk/internal/transport/http"
	dom "agencydesk/pkg/domain"
)

const signingKey = "integration-test-signing-key"

type fixture struct {
	router   http.Handler
	contacts []dom.ContactID
}

type directorySource struct {
	store *directorystore.InMemoryStore
}

func (s *directorySource) GetContact(ctx context.Context, contactID dom.ContactID) (*revealmodels.ContactCard, error) {
	c, err := s.store.GetContact(ctx, contactID)
	if err != nil || c == nil {
		return nil, err
	}
	return &revealmodels.ContactCard{Email: c.Email, Phone: c.Phone}, nil
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	dirStore := directorystore.NewInMemory()
	agencyID := dom.NewAgencyID()
	dirStore.PutAgency(&directorymodels.Agency{
		ID:        agencyID,
		Name:      "Department of Records",
		State:     "CA",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	emails := []string{"ana@records.ca.gov", "bo@records.ca.gov", "chi@records.ca.gov"}
	var contactIDs []dom.ContactID
	for i, email := range emails {
		e := email
		id := dom.NewContactID()
		contactIDs = append(contactIDs, id)
		dirStore.PutContact(&directorymodels.Contact{
			ID:        id,
			FirstName: "Contact",
			LastName:  string(rune('A' + i)),
			Email:     &e,
			AgencyID:  agencyID,
			CreatedAt: time.Date(2026, 2, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}

	usage := usagestore.NewInMemory()
	ledger := ledgerstore.NewInMemory()
	tx := revealservice.NewShardedTx(usage, ledger)

	revealSvc, err := revealservice.New(usage, ledger, &directorySource{store: dirStore}, tx,
		revealservice.WithLogger(logger),
		revealservice.WithLimit(limit),
	)
	require.NoError(t, err)

	dirSvc, err := directoryservice.New(dirStore, revealSvc, directoryservice.WithLogger(logger))
	require.NoError(t, err)

	validator := jwttoken.New(signingKey)
	router := httptransport.NewRouter(logger,
		revealhandler.New(revealSvc, logger, validator),
		directoryhandler.New(dirSvc, logger, validator),
	)

	return &fixture{router: router, contacts: contactIDs}
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type revealBody struct {
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Count           int     `json:"count"`
	Limit           int     `json:"limit"`
	AlreadyRevealed bool    `json:"already_revealed"`
}

type listingBody struct {
	Contacts []struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		IsRevealed bool   `json:"is_revealed"`
	} `json:"contacts"`
	Total int `json:"total"`
}

func TestRevealFlow(t *testing.T) {
	f := newFixture(t, 2)
	token := mintToken(t, "user-1")

	t.Run("listing starts fully masked", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/contacts", token)
		require.Equal(t, http.StatusOK, w.Code)

		var body listingBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Equal(t, 3, body.Total)
		for _, c := range body.Contacts {
			assert.False(t, c.IsRevealed)
			assert.Equal(t, "****", c.Email)
			assert.Equal(t, "****", c.Phone)
		}
	})

	t.Run("first reveal consumes quota and returns the card", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/contacts/"+f.contacts[0].String()+"/reveal", token)
		require.Equal(t, http.StatusOK, w.Code)

		var body revealBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.NotNil(t, body.Email)
		assert.Equal(t, "ana@records.ca.gov", *body.Email)
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, 2, body.Limit)
		assert.False(t, body.AlreadyRevealed)
	})

	t.Run("listing unmasks the revealed row only", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/contacts", token)
		require.Equal(t, http.StatusOK, w.Code)

		var body listingBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		unmasked := 0
		for _, c := range body.Contacts {
			if c.ID == f.contacts[0].String() {
				assert.True(t, c.IsRevealed)
				assert.Equal(t, "ana@records.ca.gov", c.Email)
				// No phone on file reads as N/A once revealed.
				assert.Equal(t, "N/A", c.Phone)
				unmasked++
			} else {
				assert.False(t, c.IsRevealed)
			}
		}
		assert.Equal(t, 1, unmasked)
	})

	t.Run("repeat reveal is free", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/contacts/"+f.contacts[0].String()+"/reveal", token)
		require.Equal(t, http.StatusOK, w.Code)

		var body revealBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.True(t, body.AlreadyRevealed)
		assert.Equal(t, 1, body.Count)
	})

	t.Run("quota denies past the ceiling", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/contacts/"+f.contacts[1].String()+"/reveal", token)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodPost, "/contacts/"+f.contacts[2].String()+"/reveal", token)
		require.Equal(t, http.StatusTooManyRequests, w.Code)

		var errBody map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errBody))
		assert.Equal(t, "quota_exceeded", errBody["error"])
	})

	t.Run("usage reflects consumed quota", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/usage", token)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count int `json:"count"`
			Limit int `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, 2, body.Count)
		assert.Equal(t, 2, body.Limit)
	})

	t.Run("another user has a fresh quota and masked rows", func(t *testing.T) {
		other := mintToken(t, "user-2")

		w := f.do(t, http.MethodGet, "/contacts", other)
		require.Equal(t, http.StatusOK, w.Code)
		var body listingBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		for _, c := range body.Contacts {
			assert.False(t, c.IsRevealed)
		}

		w = f.do(t, http.MethodPost, "/contacts/"+f.contacts[2].String()+"/reveal", other)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, 2)

	for _, path := range []string{"/contacts", "/usage", "/agencies"} {
		w := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := f.do(t, http.MethodPost, "/contacts/"+f.contacts[0].String()+"/reveal", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte(signingKey))
	require.NoError(t, err)
	w = f.do(t, http.MethodGet, "/usage", signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
