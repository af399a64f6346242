package models

import (
	"time"
)

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusApproved  = "approved"
	BookingStatusRejected  = "rejected"
	BookingStatusCancelled = "cancelled"
)

// Booking actions
const (
	BookingActionApprove = "approve"
	BookingActionReject  = "reject"
	BookingActionCancel  = "cancel"
)

// Valid booking state transitions. Rejected and cancelled bookings are
// never reactivated; a fresh booking must be created instead.
var ValidBookingTransitions = map[string][]string{
	BookingStatusPending:   {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved:  {BookingStatusCancelled},
	BookingStatusRejected:  {},
	BookingStatusCancelled: {},
}

type Booking struct {
	ID          string    `db:"id" json:"id"`
	RideID      string    `db:"ride_id" json:"ride_id"`
	PassengerID string    `db:"passenger_id" json:"passenger_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type BookingResponse struct {
	ID          string        `json:"id"`
	RideID      string        `json:"ride_id"`
	PassengerID string        `json:"passenger_id"`
	Status      string        `json:"status"`
	Ride        *RideResponse `json:"ride,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (b *Booking) ToResponse() *BookingResponse {
	return &BookingResponse{
		ID:          b.ID,
		RideID:      b.RideID,
		PassengerID: b.PassengerID,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// CanTransitionTo checks if a booking can transition to a new status
func (b *Booking) CanTransitionTo(newStatus string) bool {
	validNextStates, exists := ValidBookingTransitions[b.Status]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == newStatus {
			return true
		}
	}
	return false
}

// HoldsSeat returns true while the booking still occupies a seat on its ride
func (b *Booking) HoldsSeat() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusApproved
}
