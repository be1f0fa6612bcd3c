// Package handler exposes the reveal operations over HTTP. It is a thin
// layer: parse, delegate, translate.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencydesk/internal/platform/middleware"
	"agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
	"agencydesk/pkg/platform/httputil"
)

// Service defines the reveal operations the handler delegates to.
type Service interface {
	Reveal(ctx context.Context, userID dom.UserID, contactID dom.ContactID) (*models.Reveal, error)
	Usage(ctx context.Context, userID dom.UserID) (*models.Usage, error)
	Limit() int
}

type Handler struct {
	logger       *slog.Logger
	reveals      Service
	jwtValidator middleware.JWTValidator
}

func New(reveals Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		reveals:      reveals,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the reveal routes. All of them require a caller identity.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/contacts/{contactID}/reveal", h.handleReveal)
		r.Get("/usage", h.handleUsage)
	})
}

type revealResponse struct {
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Count           int     `json:"count"`
	Limit           int     `json:"limit"`
	AlreadyRevealed bool    `json:"already_revealed"`
}

type usageResponse struct {
	Count      int    `json:"count"`
	Limit      int    `json:"limit"`
	WindowDate string `json:"window_date"`
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
		return
	}

	contactID, err := dom.ParseContactID(chi.URLParam(r, "contactID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.reveals.Reveal(ctx, userID, contactID)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeQuotaExceeded),
			dErrors.HasCode(err, dErrors.CodeNotFound):
			// Expected business outcomes; surfaced as-is.
		default:
			h.logger.ErrorContext(ctx, "reveal failed",
				"request_id", middleware.GetRequestID(ctx),
				"contact_id", contactID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, revealResponse{
		Email:           result.Email,
		Phone:           result.Phone,
		Count:           result.Count,
		Limit:           h.reveals.Limit(),
		AlreadyRevealed: result.AlreadyRevealed,
	})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
		return
	}

	u, err := h.reveals.Usage(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "usage lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, usageResponse{
		Count:      u.Count,
		Limit:      h.reveals.Limit(),
		WindowDate: u.WindowDate.String(),
	})
}
