package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ridepool/ridepool/internal/middleware"
	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/internal/service"
	"github.com/ridepool/ridepool/pkg/utils"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rides/{id}/bookings", h.Book)
	r.Get("/bookings", h.ListMine)
	r.Get("/bookings/requests", h.ListRequests)
	r.Post("/bookings/{id}/approve", h.Approve)
	r.Post("/bookings/{id}/reject", h.Reject)
	r.Post("/bookings/{id}/cancel", h.Cancel)
}

// POST /v1/rides/{id}/bookings
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	rideID := chi.URLParam(r, "id")
	if rideID == "" {
		utils.BadRequest(w, "ride id is required")
		return
	}

	booking, err := h.bookingService.Book(r.Context(), actor, rideID)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, booking.ToResponse())
}

// GET /v1/bookings
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	bookings, err := h.bookingService.ListMine(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, bookings)
}

// GET /v1/bookings/requests
func (h *BookingHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	bookings, err := h.bookingService.ListRequests(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, bookings)
}

// POST /v1/bookings/{id}/approve
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.BookingActionApprove)
}

// POST /v1/bookings/{id}/reject
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.BookingActionReject)
}

// POST /v1/bookings/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.BookingActionCancel)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, action string) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "booking id is required")
		return
	}

	var booking *models.Booking
	var err error
	switch action {
	case models.BookingActionApprove:
		booking, err = h.bookingService.Approve(r.Context(), actor, id)
	case models.BookingActionReject:
		booking, err = h.bookingService.Reject(r.Context(), actor, id)
	case models.BookingActionCancel:
		booking, err = h.bookingService.Cancel(r.Context(), actor, id)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, booking.ToResponse())
}
