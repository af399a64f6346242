// Package ledger implements seat-count accounting for a single ride.
//
// The functions here mutate the in-memory Ride and recompute its derived
// status; they hold no locks and perform no I/O. Callers must invoke them
// inside the coordinator's critical section for the ride and persist the
// result in the same transaction.
package ledger

import (
	"time"

	apperrors "github.com/ridepool/ridepool/internal/errors"
	"github.com/ridepool/ridepool/internal/models"
)

// Reserve takes one seat on the ride. It fails with ErrNoSeatsAvailable
// when the ride is already at capacity; the caller must not create a
// booking row in that case.
func Reserve(ride *models.Ride, now time.Time) error {
	if ride.SeatsTaken >= ride.Capacity {
		return apperrors.ErrNoSeatsAvailable
	}
	ride.SeatsTaken++
	SyncStatus(ride, now)
	return nil
}

// Release gives one seat back. A release on a ride with zero seats taken
// means the caller sequence is corrupted; that is reported as
// ErrLedgerInvariant and must abort the enclosing transaction.
func Release(ride *models.Ride, now time.Time) error {
	if ride.SeatsTaken <= 0 {
		return apperrors.ErrLedgerInvariant
	}
	ride.SeatsTaken--
	SyncStatus(ride, now)
	return nil
}

// SyncStatus recomputes the ride's derived status from the ledger state
// and the clock. Completion wins over fullness.
func SyncStatus(ride *models.Ride, now time.Time) {
	switch {
	case !ride.DepartureAt.After(now):
		ride.Status = models.RideStatusCompleted
	case ride.SeatsTaken >= ride.Capacity:
		ride.Status = models.RideStatusFull
	default:
		ride.Status = models.RideStatusOpen
	}
}
