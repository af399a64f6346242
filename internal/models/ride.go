package models

import (
	"time"
)

// Ride status constants
const (
	RideStatusOpen      = "open"
	RideStatusFull      = "full"
	RideStatusCompleted = "completed"
)

// Actor roles supplied by the identity provider
const (
	RoleDriver    = "driver"
	RolePassenger = "passenger"
)

type Ride struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Origin      string    `db:"origin" json:"origin"`
	Destination string    `db:"destination" json:"destination"`
	Price       float64   `db:"price" json:"price"`
	Capacity    int       `db:"capacity" json:"capacity"`
	SeatsTaken  int       `db:"seats_taken" json:"seats_taken"`
	DepartureAt time.Time `db:"departure_at" json:"departure_at"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CreateRideRequest struct {
	Origin      string    `json:"origin" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	Capacity    int       `json:"capacity" validate:"required,min=1,max=8"`
	DepartureAt time.Time `json:"departure_at" validate:"required"`
}

type UpdateRideRequest struct {
	Origin      string    `json:"origin" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	Capacity    int       `json:"capacity" validate:"required,min=1,max=8"`
	DepartureAt time.Time `json:"departure_at" validate:"required"`
}

type RideResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	SeatsTaken  int       `json:"seats_taken"`
	SeatsLeft   int       `json:"seats_left"`
	DepartureAt time.Time `json:"departure_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Ride) ToResponse() *RideResponse {
	return &RideResponse{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Price:       r.Price,
		Capacity:    r.Capacity,
		SeatsTaken:  r.SeatsTaken,
		SeatsLeft:   r.SeatsLeft(),
		DepartureAt: r.DepartureAt,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SeatsLeft returns the number of seats still free
func (r *Ride) SeatsLeft() int {
	left := r.Capacity - r.SeatsTaken
	if left < 0 {
		return 0
	}
	return left
}

// Bookable reports whether the ride accepts new booking requests at the
// given instant. Completed rides and departed rides never do.
func (r *Ride) Bookable(now time.Time) bool {
	if r.Status == RideStatusCompleted {
		return false
	}
	return r.DepartureAt.After(now)
}

// IsActive returns true if the ride has not yet completed
func (r *Ride) IsActive() bool {
	return r.Status != RideStatusCompleted
}
