package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/internal/middleware"
	"shepherd-api/internal/service"
	"shepherd-api/pkg/errors"
)

// RequestHandler exposes the request approval workflow over HTTP.
type RequestHandler struct {
	requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List handles GET /api/requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	result, err := h.requests.List(ctx, actor, page, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondPage(w, http.StatusOK, result.Requests, &Pagination{
		Page:       result.PageNum,
		Limit:      result.Limit,
		Total:      result.Total,
		TotalPages: totalPages(result.Total, result.Limit),
	})
}

// Get handles GET /api/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		respondError(w, errors.NewValidationError("request id is required", nil))
		return
	}

	req, err := h.requests.Get(ctx, actor, requestID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Create handles POST /api/requests
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var in service.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}

	req, err := h.requests.Create(ctx, actor, &in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, req, "Request submitted")
}

// Decide handles PUT /api/requests/{id}/decision
func (h *RequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var sub domain.DecisionSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}

	// The path is authoritative for the request id.
	if id := chi.URLParam(r, "id"); id != "" {
		sub.ID = id
	}

	req, err := h.requests.Decide(ctx, actor, &sub)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, req, "Decision recorded")
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
