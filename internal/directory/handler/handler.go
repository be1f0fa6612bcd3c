// Package handler exposes the masked directory listings over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agencydesk/internal/directory/models"
	"agencydesk/internal/platform/middleware"
	dom "agencydesk/pkg/domain"
	dErrors "agencydesk/pkg/domain-errors"
	"agencydesk/pkg/platform/httputil"
)

// Service defines the directory operations the handler delegates to.
type Service interface {
	ListContacts(ctx context.Context, userID dom.UserID, q models.ContactQuery) (*models.ContactPage, error)
	ListAgencies(ctx context.Context, page, pageSize int) (*models.AgencyPage, error)
	AllAgencies(ctx context.Context) ([]*models.AgencyRef, error)
}

type Handler struct {
	logger       *slog.Logger
	directory    Service
	jwtValidator middleware.JWTValidator
}

func New(directory Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		directory:    directory,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the directory routes behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/contacts", h.handleListContacts)
		r.Get("/agencies", h.handleListAgencies)
		r.Get("/agencies/all", h.handleAllAgencies)
	})
}

type contactRow struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Title      string `json:"title,omitempty"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	AgencyID   string `json:"agency_id"`
	AgencyName string `json:"agency_name"`
	IsRevealed bool   `json:"is_revealed"`
}

type contactPageResponse struct {
	Contacts   []contactRow `json:"contacts"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

type agencyRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	State        string `json:"state,omitempty"`
	Type         string `json:"type,omitempty"`
	Website      string `json:"website,omitempty"`
	ContactCount int    `json:"contact_count"`
}

type agencyPageResponse struct {
	Agencies   []agencyRow `json:"agencies"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
}

type agencyRefRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
		return
	}

	q := models.ContactQuery{
		Search:   r.URL.Query().Get("search"),
		Page:     intParam(r, "page"),
		PageSize: intParam(r, "page_size"),
	}
	if raw := r.URL.Query().Get("agency_id"); raw != "" {
		agencyID, err := dom.ParseAgencyID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.AgencyID = agencyID
	}

	page, err := h.directory.ListContacts(ctx, userID, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "contact listing failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	rows := make([]contactRow, 0, len(page.Contacts))
	for _, c := range page.Contacts {
		rows = append(rows, contactRow{
			ID:         c.ID.String(),
			FirstName:  c.FirstName,
			LastName:   c.LastName,
			Title:      c.Title,
			Email:      c.Email,
			Phone:      c.Phone,
			AgencyID:   c.AgencyID.String(),
			AgencyName: c.AgencyName,
			IsRevealed: c.IsRevealed,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, contactPageResponse{
		Contacts:   rows,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.directory.ListAgencies(ctx, intParam(r, "page"), intParam(r, "page_size"))
	if err != nil {
		h.logger.ErrorContext(ctx, "agency listing failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	rows := make([]agencyRow, 0, len(page.Agencies))
	for _, a := range page.Agencies {
		rows = append(rows, agencyRow{
			ID:           a.ID.String(),
			Name:         a.Name,
			State:        a.State,
			Type:         a.Type,
			Website:      a.Website,
			ContactCount: a.ContactCount,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, agencyPageResponse{
		Agencies:   rows,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) handleAllAgencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refs, err := h.directory.AllAgencies(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows := make([]agencyRefRow, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, agencyRefRow{ID: ref.ID.String(), Name: ref.Name})
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func intParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
