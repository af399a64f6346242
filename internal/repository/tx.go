package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// TxManager runs a function against transaction-bound repositories. The
// seat-ledger write and the booking row write for one transition must go
// through a single WithinTx call so they commit or roll back as a unit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(rides RideRepository, bookings BookingRepository) error) error
}

type sqlxTxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) TxManager {
	return &sqlxTxManager{db: db}
}

func (m *sqlxTxManager) WithinTx(ctx context.Context, fn func(rides RideRepository, bookings BookingRepository) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&rideRepository{db: tx}, &bookingRepository{db: tx}); err != nil {
		return err
	}

	return tx.Commit()
}
