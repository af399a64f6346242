package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/ridepool/ridepool/internal/errors"
	"github.com/ridepool/ridepool/internal/middleware"
	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/internal/service"
	"github.com/ridepool/ridepool/pkg/utils"
)

type RideHandler struct {
	rideService service.RideService
	validate    *validator.Validate
}

func NewRideHandler(rideService service.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		validate:    validator.New(),
	}
}

func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rides", h.CreateRide)
	r.Get("/rides", h.ListOpenRides)
	r.Get("/rides/mine", h.ListMyRides)
	r.Get("/rides/{id}", h.GetRide)
	r.Put("/rides/{id}", h.UpdateRide)
	r.Delete("/rides/{id}", h.DeleteRide)
}

// POST /v1/rides
func (h *RideHandler) CreateRide(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	var req models.CreateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.rideService.CreateRide(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Created(w, ride.ToResponse())
}

// GET /v1/rides
func (h *RideHandler) ListOpenRides(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	rides, err := h.rideService.ListOpenRides(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, rides)
}

// GET /v1/rides/mine
func (h *RideHandler) ListMyRides(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	rides, err := h.rideService.ListMyRides(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, rides)
}

// GET /v1/rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "ride id is required")
		return
	}

	ride, err := h.rideService.GetRide(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// PUT /v1/rides/{id}
func (h *RideHandler) UpdateRide(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "ride id is required")
		return
	}

	var req models.UpdateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.BadRequest(w, err.Error())
		return
	}

	ride, err := h.rideService.UpdateRide(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, ride.ToResponse())
}

// DELETE /v1/rides/{id}
func (h *RideHandler) DeleteRide(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.Unauthorized(w, "missing identity")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		utils.BadRequest(w, "ride id is required")
		return
	}

	if err := h.rideService.DeleteRide(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}

	utils.NoContent(w)
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*apperrors.APIError); ok {
		utils.Error(w, apiErr)
		return
	}

	switch err {
	case apperrors.ErrNotFound:
		utils.NotFound(w, "resource")
	case apperrors.ErrUnauthorized:
		utils.Error(w, apperrors.Unauthorized("you are not allowed to perform this action"))
	case apperrors.ErrBadRequest:
		utils.BadRequest(w, "invalid request")
	case apperrors.ErrConflict:
		utils.Error(w, apperrors.Conflict("the resource is in a conflicting state"))
	case apperrors.ErrNoSeatsAvailable:
		utils.Error(w, apperrors.NoSeatsAvailable())
	case apperrors.ErrDuplicateBooking:
		utils.Error(w, apperrors.DuplicateBooking())
	case apperrors.ErrRideNotBookable:
		utils.Error(w, apperrors.RideNotBookable("ride is not accepting bookings"))
	case apperrors.ErrIllegalTransition:
		utils.Error(w, apperrors.Conflict("booking state does not allow this action"))
	default:
		utils.InternalError(w, "internal server error")
	}
}
