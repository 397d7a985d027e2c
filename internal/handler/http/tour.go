package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/Flare200/natours/pkg/errors"
	"github.com/Flare200/natours/pkg/httputil"
	"github.com/Flare200/natours/pkg/validator"

	"github.com/Flare200/natours/internal/tour"
)

// TourHandler handles HTTP requests for tour endpoints.
type TourHandler struct {
	service *tour.Service
	logger  *slog.Logger
}

// NewTourHandler creates a new tour HTTP handler.
func NewTourHandler(svc *tour.Service, logger *slog.Logger) *TourHandler {
	return &TourHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateTour handles POST /api/v1/tours
func (h *TourHandler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var input tour.CreateInput
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

	created, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: created})
}

// GetTour handles GET /api/v1/tours/{tourId}
func (h *TourHandler) GetTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tourId")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "tour id is required"},
		})
		return
	}

	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: t})
}

// ToursWithin handles GET /api/v1/tours/tours-within/{distance}/center/{latlng}/unit/{unit}
func (h *TourHandler) ToursWithin(w http.ResponseWriter, r *http.Request) {
	distanceStr := chi.URLParam(r, "distance")
	latlng := chi.URLParam(r, "latlng")
	unit := chi.URLParam(r, "unit")

	distance, err := strconv.ParseFloat(distanceStr, 64)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("distance must be a number"), h.logger)
		return
	}

	tours, err := h.service.FindWithin(r.Context(), distance, latlng, unit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tours})
}

// Distances handles GET /api/v1/tours/distances/{latlng}/unit/{unit}
func (h *TourHandler) Distances(w http.ResponseWriter, r *http.Request) {
	latlng := chi.URLParam(r, "latlng")
	unit := chi.URLParam(r, "unit")

	distances, err := h.service.Distances(r.Context(), latlng, unit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: distances})
}

// TopTours handles GET /api/v1/tours/top-5-cheap
func (h *TourHandler) TopTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.service.TopTours(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tours})
}

// Stats handles GET /api/v1/tours/stats
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// MonthlyPlan handles GET /api/v1/tours/monthly-plan/{year}
func (h *TourHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("year must be a number"), h.logger)
		return
	}

	plan, err := h.service.MonthlyPlan(r.Context(), year)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: plan})
}
