package service

import (
	"context"
	"log"
	"time"

	"github.com/ridepool/ridepool/internal/audit"
	"github.com/ridepool/ridepool/internal/cache"
	"github.com/ridepool/ridepool/internal/coordinator"
	apperrors "github.com/ridepool/ridepool/internal/errors"
	"github.com/ridepool/ridepool/internal/ledger"
	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/internal/repository"
)

type BookingService interface {
	Book(ctx context.Context, actor models.Actor, rideID string) (*models.Booking, error)
	Approve(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	Reject(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	ListMine(ctx context.Context, actor models.Actor) ([]*models.BookingResponse, error)
	ListRequests(ctx context.Context, actor models.Actor) ([]*models.BookingResponse, error)
}

type bookingService struct {
	tx          repository.TxManager
	rideRepo    repository.RideRepository
	bookingRepo repository.BookingRepository
	coord       coordinator.Coordinator
	notifier    *audit.Notifier
	viewCache   cache.RideViewCache
}

func NewBookingService(
	tx repository.TxManager,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	coord coordinator.Coordinator,
	notifier *audit.Notifier,
	viewCache cache.RideViewCache,
) BookingService {
	return &bookingService{
		tx:          tx,
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		coord:       coord,
		notifier:    notifier,
		viewCache:   viewCache,
	}
}

// Book reserves a seat and creates a pending booking. The seat reservation
// and the booking row commit as one unit inside the ride's critical
// section, so two passengers racing for the last seat cannot both win.
func (s *bookingService) Book(ctx context.Context, actor models.Actor, rideID string) (*models.Booking, error) {
	var booking *models.Booking
	var ride *models.Ride

	err := s.coord.WithRideLock(ctx, rideID, func() error {
		return s.tx.WithinTx(ctx, func(rides repository.RideRepository, bookings repository.BookingRepository) error {
			now := time.Now()

			r, err := rides.GetByIDForUpdate(ctx, rideID)
			if err != nil {
				return err
			}
			if r == nil {
				return apperrors.ErrNotFound
			}
			if r.OwnerID == actor.ID {
				return apperrors.ErrRideNotBookable
			}
			if !r.Bookable(now) {
				return apperrors.ErrRideNotBookable
			}

			existing, err := bookings.GetActiveByRideAndPassenger(ctx, rideID, actor.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperrors.ErrDuplicateBooking
			}

			// Reserve before the booking row exists; a failed reserve
			// means no row is written.
			if err := ledger.Reserve(r, now); err != nil {
				return err
			}

			b := &models.Booking{RideID: rideID, PassengerID: actor.ID}
			if err := bookings.Create(ctx, b); err != nil {
				return err
			}
			if err := rides.UpdateSeats(ctx, r.ID, r.SeatsTaken, r.Status); err != nil {
				return err
			}

			booking = b
			ride = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, ride, actor.ID)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionBook,
		EntityType:  audit.EntityBooking,
		EntityID:    booking.ID,
		Description: "Booking created",
	})

	return booking, nil
}

// Approve marks a pending booking approved. The seat was already reserved
// at booking time, so the ledger is untouched.
func (s *bookingService) Approve(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, ride, err := s.transition(ctx, actor, bookingID, models.BookingStatusApproved)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, ride, booking.PassengerID)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionApprove,
		EntityType:  audit.EntityBooking,
		EntityID:    booking.ID,
		Description: "Booking approved",
	})
	return booking, nil
}

// Reject marks a pending booking rejected and releases its seat.
func (s *bookingService) Reject(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, ride, err := s.transition(ctx, actor, bookingID, models.BookingStatusRejected)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, ride, booking.PassengerID)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionReject,
		EntityType:  audit.EntityBooking,
		EntityID:    booking.ID,
		Description: "Booking rejected",
	})
	return booking, nil
}

// Cancel lets the booking's passenger withdraw a pending or approved
// booking, releasing the seat.
func (s *bookingService) Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, ride, err := s.transition(ctx, actor, bookingID, models.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, ride, booking.PassengerID)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionCancel,
		EntityType:  audit.EntityBooking,
		EntityID:    booking.ID,
		Description: "Booking cancelled",
	})
	return booking, nil
}

// transition runs an approve/reject/cancel state change under the ride
// lock, validating the actor and the transition table, and releasing the
// seat when the booking stops holding one.
func (s *bookingService) transition(ctx context.Context, actor models.Actor, bookingID, target string) (*models.Booking, *models.Ride, error) {
	// Resolve the ride outside the lock; the booking's ride never changes.
	peek, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if peek == nil {
		return nil, nil, apperrors.ErrNotFound
	}

	var booking *models.Booking
	var ride *models.Ride

	err = s.coord.WithRideLock(ctx, peek.RideID, func() error {
		return s.tx.WithinTx(ctx, func(rides repository.RideRepository, bookings repository.BookingRepository) error {
			now := time.Now()

			b, err := bookings.GetByIDForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if b == nil {
				return apperrors.ErrNotFound
			}

			r, err := rides.GetByIDForUpdate(ctx, b.RideID)
			if err != nil {
				return err
			}
			if r == nil {
				return apperrors.ErrNotFound
			}

			switch target {
			case models.BookingStatusApproved, models.BookingStatusRejected:
				if r.OwnerID != actor.ID {
					return apperrors.ErrUnauthorized
				}
			case models.BookingStatusCancelled:
				if b.PassengerID != actor.ID {
					return apperrors.ErrUnauthorized
				}
			}

			if !b.CanTransitionTo(target) {
				return apperrors.ErrIllegalTransition
			}

			// Reject and cancel give the seat back; approve keeps it.
			if target != models.BookingStatusApproved && b.HoldsSeat() {
				if err := ledger.Release(r, now); err != nil {
					return err
				}
				if err := rides.UpdateSeats(ctx, r.ID, r.SeatsTaken, r.Status); err != nil {
					return err
				}
			}

			if err := bookings.UpdateStatus(ctx, b.ID, target); err != nil {
				return err
			}
			b.Status = target

			booking = b
			ride = r
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	return booking, ride, nil
}

func (s *bookingService) ListMine(ctx context.Context, actor models.Actor) ([]*models.BookingResponse, error) {
	if s.viewCache != nil {
		if cached, err := s.viewCache.GetPassengerBookings(ctx, actor.ID); err == nil {
			return cached, nil
		}
	}

	bookings, err := s.bookingRepo.ListByPassenger(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp := b.ToResponse()
		if ride, err := s.rideRepo.GetByID(ctx, b.RideID); err == nil && ride != nil {
			resp.Ride = ride.ToResponse()
		}
		responses = append(responses, resp)
	}

	if s.viewCache != nil {
		if err := s.viewCache.SetPassengerBookings(ctx, actor.ID, responses); err != nil {
			log.Printf("failed to cache passenger bookings: %v", err)
		}
	}
	return responses, nil
}

// ListRequests returns every booking made against the actor's rides.
func (s *bookingService) ListRequests(ctx context.Context, actor models.Actor) ([]*models.BookingResponse, error) {
	if s.viewCache != nil {
		if cached, err := s.viewCache.GetOwnerRequests(ctx, actor.ID); err == nil {
			return cached, nil
		}
	}

	bookings, err := s.bookingRepo.ListByRideOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp := b.ToResponse()
		if ride, err := s.rideRepo.GetByID(ctx, b.RideID); err == nil && ride != nil {
			resp.Ride = ride.ToResponse()
		}
		responses = append(responses, resp)
	}

	if s.viewCache != nil {
		if err := s.viewCache.SetOwnerRequests(ctx, actor.ID, responses); err != nil {
			log.Printf("failed to cache owner requests: %v", err)
		}
	}
	return responses, nil
}

// invalidateViews drops exactly the read views a transition touched: the
// ride detail, the passenger's booking list, the owner's request list,
// and the open-ride listings generation.
func (s *bookingService) invalidateViews(ctx context.Context, ride *models.Ride, passengerID string) {
	if s.viewCache == nil || ride == nil {
		return
	}
	if err := s.viewCache.InvalidateRide(ctx, ride.ID); err != nil {
		log.Printf("failed to invalidate ride view: %v", err)
	}
	if err := s.viewCache.InvalidatePassengerBookings(ctx, passengerID); err != nil {
		log.Printf("failed to invalidate passenger bookings view: %v", err)
	}
	if err := s.viewCache.InvalidateOwnerRequests(ctx, ride.OwnerID); err != nil {
		log.Printf("failed to invalidate owner requests view: %v", err)
	}
	if err := s.viewCache.BumpListings(ctx); err != nil {
		log.Printf("failed to bump ride listings: %v", err)
	}
}
