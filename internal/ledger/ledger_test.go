package ledger

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/ridepool/ridepool/internal/errors"
	"github.com/ridepool/ridepool/internal/models"
)

func futureRide(capacity, taken int) *models.Ride {
	return &models.Ride{
		ID:          "ride-1",
		Capacity:    capacity,
		SeatsTaken:  taken,
		DepartureAt: time.Now().Add(24 * time.Hour),
		Status:      models.RideStatusOpen,
	}
}

func TestReserve(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		capacity   int
		taken      int
		wantErr    error
		wantTaken  int
		wantStatus string
	}{
		{"first seat", 3, 0, nil, 1, models.RideStatusOpen},
		{"last seat flips to full", 2, 1, nil, 2, models.RideStatusFull},
		{"capacity one", 1, 0, nil, 1, models.RideStatusFull},
		{"already full", 2, 2, apperrors.ErrNoSeatsAvailable, 2, models.RideStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := futureRide(tt.capacity, tt.taken)
			err := Reserve(ride, now)

			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Fatalf("Reserve() error = %v, want %v", err, tt.wantErr)
			}
			if ride.SeatsTaken != tt.wantTaken {
				t.Errorf("SeatsTaken = %d, want %d", ride.SeatsTaken, tt.wantTaken)
			}
			if err == nil && ride.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", ride.Status, tt.wantStatus)
			}
		})
	}
}

func TestRelease(t *testing.T) {
	now := time.Now()

	t.Run("full ride returns to open", func(t *testing.T) {
		ride := futureRide(2, 2)
		ride.Status = models.RideStatusFull

		if err := Release(ride, now); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if ride.SeatsTaken != 1 {
			t.Errorf("SeatsTaken = %d, want 1", ride.SeatsTaken)
		}
		if ride.Status != models.RideStatusOpen {
			t.Errorf("Status = %s, want %s", ride.Status, models.RideStatusOpen)
		}
	})

	t.Run("release on empty ledger is an invariant violation", func(t *testing.T) {
		ride := futureRide(2, 0)

		err := Release(ride, now)
		if !errors.Is(err, apperrors.ErrLedgerInvariant) {
			t.Fatalf("Release() error = %v, want ErrLedgerInvariant", err)
		}
		if ride.SeatsTaken != 0 {
			t.Errorf("SeatsTaken = %d, want 0", ride.SeatsTaken)
		}
	})
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	now := time.Now()
	ride := futureRide(4, 2)

	if err := Reserve(ride, now); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if err := Release(ride, now); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ride.SeatsTaken != 2 {
		t.Errorf("SeatsTaken = %d, want 2 after round trip", ride.SeatsTaken)
	}
	if ride.Status != models.RideStatusOpen {
		t.Errorf("Status = %s, want %s", ride.Status, models.RideStatusOpen)
	}
}

func TestSyncStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		departure time.Time
		capacity  int
		taken     int
		want      string
	}{
		{"future with seats", now.Add(time.Hour), 3, 1, models.RideStatusOpen},
		{"future at capacity", now.Add(time.Hour), 3, 3, models.RideStatusFull},
		{"departed", now.Add(-time.Minute), 3, 1, models.RideStatusCompleted},
		{"departed and full", now.Add(-time.Minute), 3, 3, models.RideStatusCompleted},
		{"departing exactly now", now, 3, 0, models.RideStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := &models.Ride{Capacity: tt.capacity, SeatsTaken: tt.taken, DepartureAt: tt.departure}
			SyncStatus(ride, now)
			if ride.Status != tt.want {
				t.Errorf("SyncStatus() status = %s, want %s", ride.Status, tt.want)
			}
		})
	}
}
