package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/pkg/utils"
)

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	// GetByIDForUpdate takes a row lock on the ride; only meaningful on a
	// transaction-bound repository (see TxManager).
	GetByIDForUpdate(ctx context.Context, id string) (*models.Ride, error)
	Update(ctx context.Context, ride *models.Ride) error
	UpdateSeats(ctx context.Context, id string, seatsTaken int, status string) error
	Delete(ctx context.Context, id string) error
	ListBookable(ctx context.Context, viewerID string, now time.Time) ([]*models.Ride, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error)
	ListDueForCompletion(ctx context.Context, now time.Time) ([]string, error)
}

type rideRepository struct {
	db sqlx.ExtContext
}

func NewRideRepository(db *sqlx.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = utils.GenerateID()
	}
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	ride.SeatsTaken = 0
	ride.Status = models.RideStatusOpen

	query := `
		INSERT INTO rides (id, owner_id, origin, destination, price, capacity,
			seats_taken, departure_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		ride.ID, ride.OwnerID, ride.Origin, ride.Destination, ride.Price, ride.Capacity,
		ride.SeatsTaken, ride.DepartureAt, ride.Status, ride.CreatedAt, ride.UpdatedAt)
	return err
}

func (r *rideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT * FROM rides WHERE id = $1`
	err := sqlx.GetContext(ctx, r.db, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &ride, err
}

func (r *rideRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT * FROM rides WHERE id = $1 FOR UPDATE`
	err := sqlx.GetContext(ctx, r.db, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &ride, err
}

func (r *rideRepository) Update(ctx context.Context, ride *models.Ride) error {
	ride.UpdatedAt = time.Now()
	query := `
		UPDATE rides
		SET origin = $1, destination = $2, price = $3, capacity = $4,
			seats_taken = $5, departure_at = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := r.db.ExecContext(ctx, query,
		ride.Origin, ride.Destination, ride.Price, ride.Capacity,
		ride.SeatsTaken, ride.DepartureAt, ride.Status, ride.UpdatedAt, ride.ID)
	return err
}

func (r *rideRepository) UpdateSeats(ctx context.Context, id string, seatsTaken int, status string) error {
	query := `UPDATE rides SET seats_taken = $1, status = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, seatsTaken, status, time.Now(), id)
	return err
}

func (r *rideRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM rides WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListBookable returns open rides departing after now, excluding rides the
// viewer already holds a pending or approved booking on, and rides the
// viewer owns.
func (r *rideRepository) ListBookable(ctx context.Context, viewerID string, now time.Time) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	query := `
		SELECT * FROM rides
		WHERE status = $1 AND departure_at > $2 AND owner_id != $3
			AND NOT EXISTS (
				SELECT 1 FROM bookings
				WHERE bookings.ride_id = rides.id
					AND bookings.passenger_id = $3
					AND bookings.status IN ($4, $5)
			)
		ORDER BY departure_at ASC
	`
	err := sqlx.SelectContext(ctx, r.db, &rides, query,
		models.RideStatusOpen, now, viewerID,
		models.BookingStatusPending, models.BookingStatusApproved)
	return rides, err
}

func (r *rideRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	query := `SELECT * FROM rides WHERE owner_id = $1 ORDER BY departure_at DESC`
	err := sqlx.SelectContext(ctx, r.db, &rides, query, ownerID)
	return rides, err
}

// ListDueForCompletion returns ids of rides whose departure time has
// passed but are not yet marked completed. The sweep completes each one
// under its ride lock.
func (r *rideRepository) ListDueForCompletion(ctx context.Context, now time.Time) ([]string, error) {
	ids := []string{}
	query := `SELECT id FROM rides WHERE departure_at <= $1 AND status != $2`
	err := sqlx.SelectContext(ctx, r.db, &ids, query, now, models.RideStatusCompleted)
	return ids, err
}
