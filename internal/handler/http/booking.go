package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Flare200/natours/pkg/httputil"
	"github.com/Flare200/natours/pkg/middleware"

	"github.com/Flare200/natours/internal/booking"
)

// SignatureHeader carries the gateway's HMAC signature on webhook deliveries.
const SignatureHeader = "X-Webhook-Signature"

// maxWebhookBody bounds webhook payload reads. Gateway events are small;
// anything past 1 MiB is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// BookingHandler handles HTTP requests for booking and checkout endpoints.
type BookingHandler struct {
	service *booking.Service
	logger  *slog.Logger
}

// NewBookingHandler creates a new booking HTTP handler.
func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		logger:  logger,
	}
}

// GetCheckoutSession handles GET /api/v1/bookings/checkout-session/{tourId}
func (h *BookingHandler) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourId")
	auth := middleware.AuthFromContext(r.Context())

	session, err := h.service.CreateCheckoutSession(r.Context(), tourID, auth.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Webhook handles POST /webhook/checkout. The body is read raw because the
// signature covers the exact bytes the gateway sent.
func (h *BookingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to read request body"},
		})
		return
	}

	booked, err := h.service.HandleWebhookEvent(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Ignored event types come back with no booking; the gateway just needs
	// a 2xx so it stops retrying.
	if booked == nil {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"received": true}})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: booked})
}

// MyBookings handles GET /api/v1/bookings/my-bookings
func (h *BookingHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	auth := middleware.AuthFromContext(r.Context())

	bookings, err := h.service.ListForUser(r.Context(), auth.SubjectID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bookings})
}
