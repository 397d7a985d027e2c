package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Flare200/natours/pkg/httputil"
	"github.com/Flare200/natours/pkg/middleware"
	"github.com/Flare200/natours/pkg/pagination"
	"github.com/Flare200/natours/pkg/validator"

	"github.com/Flare200/natours/internal/review"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *review.Service, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// Create handles POST /api/v1/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input review.CreateInput
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	auth := middleware.AuthFromContext(r.Context())

	created, err := h.service.Create(r.Context(), auth.SubjectID, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: created})
}

// Update handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input review.UpdateInput
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	auth := middleware.AuthFromContext(r.Context())

	updated, err := h.service.Update(r.Context(), id, auth.SubjectID, auth.Role, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: updated})
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	auth := middleware.AuthFromContext(r.Context())

	if err := h.service.Delete(r.Context(), id, auth.SubjectID, auth.Role); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByTour handles GET /api/v1/tours/{tourId}/reviews
func (h *ReviewHandler) ListByTour(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourId")

	params := pagination.FromRequest(r)

	result, err := h.service.ListByTour(r.Context(), tourID, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
