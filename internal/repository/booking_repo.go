package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/pkg/utils"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// GetActiveByRideAndPassenger returns the passenger's pending or
	// approved booking on the ride, if any.
	GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*models.Booking, error)
	ListByPassenger(ctx context.Context, passengerID string) ([]*models.Booking, error)
	ListByRideOwner(ctx context.Context, ownerID string) ([]*models.Booking, error)
}

type bookingRepository struct {
	db sqlx.ExtContext
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = utils.GenerateID()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Status = models.BookingStatusPending

	query := `
		INSERT INTO bookings (id, ride_id, passenger_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.RideID, booking.PassengerID, booking.Status,
		booking.CreatedAt, booking.UpdatedAt)
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT * FROM bookings WHERE id = $1`
	err := sqlx.GetContext(ctx, r.db, &booking, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &booking, err
}

func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT * FROM bookings WHERE id = $1 FOR UPDATE`
	err := sqlx.GetContext(ctx, r.db, &booking, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &booking, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (r *bookingRepository) GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID string) (*models.Booking, error) {
	var booking models.Booking
	query := `
		SELECT * FROM bookings
		WHERE ride_id = $1 AND passenger_id = $2 AND status IN ($3, $4)
		LIMIT 1
	`
	err := sqlx.GetContext(ctx, r.db, &booking, query,
		rideID, passengerID, models.BookingStatusPending, models.BookingStatusApproved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &booking, err
}

func (r *bookingRepository) ListByPassenger(ctx context.Context, passengerID string) ([]*models.Booking, error) {
	bookings := []*models.Booking{}
	query := `SELECT * FROM bookings WHERE passenger_id = $1 ORDER BY created_at DESC`
	err := sqlx.SelectContext(ctx, r.db, &bookings, query, passengerID)
	return bookings, err
}

// ListByRideOwner returns every booking made against rides the owner
// offers, newest first.
func (r *bookingRepository) ListByRideOwner(ctx context.Context, ownerID string) ([]*models.Booking, error) {
	bookings := []*models.Booking{}
	query := `
		SELECT b.* FROM bookings b
		JOIN rides r ON r.id = b.ride_id
		WHERE r.owner_id = $1
		ORDER BY b.created_at DESC
	`
	err := sqlx.SelectContext(ctx, r.db, &bookings, query, ownerID)
	return bookings, err
}
