package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/ridepool/ridepool/internal/errors"
	"github.com/ridepool/ridepool/internal/models"
)

func TestCreateRideRequiresDriverRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rides.CreateRide(context.Background(), models.Actor{ID: "p1", Role: models.RolePassenger}, &models.CreateRideRequest{
		Origin:      "Campus",
		Destination: "Downtown",
		Capacity:    2,
		DepartureAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("CreateRide() as passenger error = %v, want ErrUnauthorized", err)
	}
}

func TestCreateRideRejectsPastDeparture(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rides.CreateRide(context.Background(), models.Actor{ID: "d1", Role: models.RoleDriver}, &models.CreateRideRequest{
		Origin:      "Campus",
		Destination: "Downtown",
		Capacity:    2,
		DepartureAt: time.Now().Add(-time.Hour),
	})
	if !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("CreateRide() in the past error = %v, want ErrBadRequest", err)
	}
}

func TestCreateRideStartsOpenAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	ride := env.mustCreateRide(t, "d1", 3, time.Now().Add(time.Hour))

	if ride.Status != models.RideStatusOpen || ride.SeatsTaken != 0 {
		t.Errorf("new ride status=%s seats_taken=%d, want open 0", ride.Status, ride.SeatsTaken)
	}
	if ride.ID == "" {
		t.Error("new ride has no id")
	}
}

func TestGetRideNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rides.GetRide(context.Background(), "missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetRide() error = %v, want ErrNotFound", err)
	}
}

func TestListOpenRidesHidesOwnAndBookedRides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	departure := time.Now().Add(2 * time.Hour)

	mine := env.mustCreateRide(t, "viewer", 2, departure)
	booked := env.mustCreateRide(t, "d1", 2, departure)
	open := env.mustCreateRide(t, "d2", 2, departure)

	if _, err := env.bookings.Book(ctx, models.Actor{ID: "viewer"}, booked.ID); err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	rides, err := env.rides.ListOpenRides(ctx, models.Actor{ID: "viewer"})
	if err != nil {
		t.Fatalf("ListOpenRides() error = %v", err)
	}
	if len(rides) != 1 || rides[0].ID != open.ID {
		t.Errorf("ListOpenRides() returned %d rides, want only %s (not %s or %s)",
			len(rides), open.ID, mine.ID, booked.ID)
	}
}

func TestUpdateRideOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ride := env.mustCreateRide(t, "d1", 2, time.Now().Add(2*time.Hour))

	req := &models.UpdateRideRequest{
		Origin:      "Campus",
		Destination: "Airport",
		Price:       12,
		Capacity:    2,
		DepartureAt: ride.DepartureAt,
	}
	if _, err := env.rides.UpdateRide(context.Background(), models.Actor{ID: "intruder"}, ride.ID, req); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("UpdateRide() by non-owner error = %v, want ErrUnauthorized", err)
	}

	updated, err := env.rides.UpdateRide(context.Background(), models.Actor{ID: "d1"}, ride.ID, req)
	if err != nil {
		t.Fatalf("UpdateRide() by owner error = %v", err)
	}
	if updated.Destination != "Airport" {
		t.Errorf("destination = %s, want Airport", updated.Destination)
	}
}

func TestUpdateRideCannotShrinkBelowSeatsTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ride := env.mustCreateRide(t, "d1", 3, time.Now().Add(2*time.Hour))

	for _, p := range []string{"p1", "p2"} {
		if _, err := env.bookings.Book(ctx, models.Actor{ID: p}, ride.ID); err != nil {
			t.Fatalf("Book(%s) error = %v", p, err)
		}
	}

	req := &models.UpdateRideRequest{
		Origin:      "Campus",
		Destination: "Downtown",
		Price:       ride.Price,
		Capacity:    1,
		DepartureAt: ride.DepartureAt,
	}
	if _, err := env.rides.UpdateRide(ctx, models.Actor{ID: "d1"}, ride.ID, req); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("UpdateRide() shrinking under bookings error = %v, want ErrConflict", err)
	}

	// Shrinking to exactly the seats taken is allowed and flips the ride full.
	req.Capacity = 2
	updated, err := env.rides.UpdateRide(ctx, models.Actor{ID: "d1"}, ride.ID, req)
	if err != nil {
		t.Fatalf("UpdateRide() to exact fit error = %v", err)
	}
	if updated.Status != models.RideStatusFull {
		t.Errorf("status = %s, want full at capacity", updated.Status)
	}
}

func TestDeleteRideOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ride := env.mustCreateRide(t, "d1", 2, time.Now().Add(2*time.Hour))

	if err := env.rides.DeleteRide(ctx, models.Actor{ID: "intruder"}, ride.ID); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("DeleteRide() by non-owner error = %v, want ErrUnauthorized", err)
	}
	if err := env.rides.DeleteRide(ctx, models.Actor{ID: "d1"}, ride.ID); err != nil {
		t.Fatalf("DeleteRide() by owner error = %v", err)
	}
	if _, err := env.rides.GetRide(ctx, ride.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetRide() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRideRefusedWhileBookingsLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ride := env.mustCreateRide(t, "d1", 2, time.Now().Add(2*time.Hour))

	booking, err := env.bookings.Book(ctx, models.Actor{ID: "p1"}, ride.ID)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	if err := env.rides.DeleteRide(ctx, models.Actor{ID: "d1"}, ride.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("DeleteRide() with live booking error = %v, want ErrConflict", err)
	}

	// The passenger's booking survives the refused delete.
	mine, err := env.bookings.ListMine(ctx, models.Actor{ID: "p1"})
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(mine) != 1 || mine[0].Status != models.BookingStatusPending {
		t.Errorf("ListMine() = %+v, want the pending booking intact", mine)
	}

	// Once the seat is released the owner can delete.
	if _, err := env.bookings.Cancel(ctx, models.Actor{ID: "p1"}, booking.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := env.rides.DeleteRide(ctx, models.Actor{ID: "d1"}, ride.ID); err != nil {
		t.Errorf("DeleteRide() after cancel error = %v", err)
	}
}

func TestCompleteDueRidesIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	due := env.mustCreateRide(t, "d1", 2, time.Now().Add(20*time.Millisecond))
	future := env.mustCreateRide(t, "d1", 2, time.Now().Add(2*time.Hour))
	time.Sleep(40 * time.Millisecond)

	completed, err := env.rides.CompleteDueRides(ctx)
	if err != nil {
		t.Fatalf("CompleteDueRides() error = %v", err)
	}
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}

	if state := env.rideState(t, due.ID); state.Status != models.RideStatusCompleted {
		t.Errorf("due ride status = %s, want completed", state.Status)
	}
	if state := env.rideState(t, future.ID); state.Status != models.RideStatusOpen {
		t.Errorf("future ride status = %s, want open", state.Status)
	}

	// A second sweep finds nothing to do.
	completed, err = env.rides.CompleteDueRides(ctx)
	if err != nil {
		t.Fatalf("second CompleteDueRides() error = %v", err)
	}
	if completed != 0 {
		t.Errorf("second sweep completed = %d, want 0", completed)
	}
}
