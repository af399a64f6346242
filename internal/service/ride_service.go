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

type RideService interface {
	CreateRide(ctx context.Context, actor models.Actor, req *models.CreateRideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, id string) (*models.RideResponse, error)
	ListOpenRides(ctx context.Context, actor models.Actor) ([]*models.RideResponse, error)
	ListMyRides(ctx context.Context, actor models.Actor) ([]*models.RideResponse, error)
	UpdateRide(ctx context.Context, actor models.Actor, id string, req *models.UpdateRideRequest) (*models.Ride, error)
	DeleteRide(ctx context.Context, actor models.Actor, id string) error
	// CompleteDueRides transitions departed rides to completed. Safe to
	// call redundantly; already-completed rides are skipped.
	CompleteDueRides(ctx context.Context) (int, error)
}

type rideService struct {
	tx        repository.TxManager
	rideRepo  repository.RideRepository
	coord     coordinator.Coordinator
	notifier  *audit.Notifier
	viewCache cache.RideViewCache
}

func NewRideService(
	tx repository.TxManager,
	rideRepo repository.RideRepository,
	coord coordinator.Coordinator,
	notifier *audit.Notifier,
	viewCache cache.RideViewCache,
) RideService {
	return &rideService{
		tx:        tx,
		rideRepo:  rideRepo,
		coord:     coord,
		notifier:  notifier,
		viewCache: viewCache,
	}
}

func (s *rideService) CreateRide(ctx context.Context, actor models.Actor, req *models.CreateRideRequest) (*models.Ride, error) {
	if actor.Role != models.RoleDriver {
		return nil, apperrors.ErrUnauthorized
	}
	if !req.DepartureAt.After(time.Now()) {
		return nil, apperrors.ErrBadRequest
	}

	ride := &models.Ride{
		OwnerID:     actor.ID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Price:       req.Price,
		Capacity:    req.Capacity,
		DepartureAt: req.DepartureAt,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.bumpListings(ctx)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionCreate,
		EntityType:  audit.EntityRide,
		EntityID:    ride.ID,
		Description: "Ride created",
	})

	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, id string) (*models.RideResponse, error) {
	if s.viewCache != nil {
		if cached, err := s.viewCache.GetRide(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.ErrNotFound
	}

	response := ride.ToResponse()
	if s.viewCache != nil {
		if err := s.viewCache.SetRide(ctx, response); err != nil {
			log.Printf("failed to cache ride view: %v", err)
		}
	}
	return response, nil
}

// ListOpenRides returns bookable rides for the viewer, hiding rides they
// own and rides they already hold an active booking on.
func (s *rideService) ListOpenRides(ctx context.Context, actor models.Actor) ([]*models.RideResponse, error) {
	if s.viewCache != nil {
		if cached, err := s.viewCache.GetOpenRides(ctx, actor.ID); err == nil {
			return cached, nil
		}
	}

	rides, err := s.rideRepo.ListBookable(ctx, actor.ID, time.Now())
	if err != nil {
		return nil, err
	}

	responses := make([]*models.RideResponse, 0, len(rides))
	for _, ride := range rides {
		responses = append(responses, ride.ToResponse())
	}

	if s.viewCache != nil {
		if err := s.viewCache.SetOpenRides(ctx, actor.ID, responses); err != nil {
			log.Printf("failed to cache open rides: %v", err)
		}
	}
	return responses, nil
}

func (s *rideService) ListMyRides(ctx context.Context, actor models.Actor) ([]*models.RideResponse, error) {
	rides, err := s.rideRepo.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.RideResponse, 0, len(rides))
	for _, ride := range rides {
		responses = append(responses, ride.ToResponse())
	}
	return responses, nil
}

func (s *rideService) UpdateRide(ctx context.Context, actor models.Actor, id string, req *models.UpdateRideRequest) (*models.Ride, error) {
	var ride *models.Ride

	err := s.coord.WithRideLock(ctx, id, func() error {
		return s.tx.WithinTx(ctx, func(rides repository.RideRepository, _ repository.BookingRepository) error {
			r, err := rides.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r == nil {
				return apperrors.ErrNotFound
			}
			if r.OwnerID != actor.ID {
				return apperrors.ErrUnauthorized
			}
			// Capacity can never drop below seats already handed out.
			if req.Capacity < r.SeatsTaken {
				return apperrors.ErrConflict
			}

			r.Origin = req.Origin
			r.Destination = req.Destination
			r.Price = req.Price
			r.Capacity = req.Capacity
			r.DepartureAt = req.DepartureAt
			ledger.SyncStatus(r, time.Now())

			if err := rides.Update(ctx, r); err != nil {
				return err
			}

			ride = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRide(ctx, id)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionUpdate,
		EntityType:  audit.EntityRide,
		EntityID:    ride.ID,
		Description: "Ride updated",
	})

	return ride, nil
}

func (s *rideService) DeleteRide(ctx context.Context, actor models.Actor, id string) error {
	err := s.coord.WithRideLock(ctx, id, func() error {
		return s.tx.WithinTx(ctx, func(rides repository.RideRepository, _ repository.BookingRepository) error {
			r, err := rides.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r == nil {
				return apperrors.ErrNotFound
			}
			if r.OwnerID != actor.ID {
				return apperrors.ErrUnauthorized
			}
			// Seats taken equals live bookings; the owner must reject or
			// wait for cancellations before removing the ride.
			if r.SeatsTaken > 0 {
				return apperrors.ErrConflict
			}
			return rides.Delete(ctx, id)
		})
	})
	if err != nil {
		return err
	}

	s.invalidateRide(ctx, id)
	s.notifier.Notify(audit.Event{
		ActorID:     actor.ID,
		ActionType:  audit.ActionDelete,
		EntityType:  audit.EntityRide,
		EntityID:    id,
		Description: "Ride deleted",
	})

	return nil
}

func (s *rideService) CompleteDueRides(ctx context.Context) (int, error) {
	ids, err := s.rideRepo.ListDueForCompletion(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, id := range ids {
		rideID := id
		err := s.coord.WithRideLock(ctx, rideID, func() error {
			return s.tx.WithinTx(ctx, func(rides repository.RideRepository, _ repository.BookingRepository) error {
				r, err := rides.GetByIDForUpdate(ctx, rideID)
				if err != nil {
					return err
				}
				// Deleted or already swept; nothing to do.
				if r == nil || r.Status == models.RideStatusCompleted {
					return nil
				}

				ledger.SyncStatus(r, time.Now())
				if err := rides.UpdateSeats(ctx, r.ID, r.SeatsTaken, r.Status); err != nil {
					return err
				}

				completed++
				return nil
			})
		})
		if err != nil {
			log.Printf("sweep: failed to complete ride %s: %v", rideID, err)
			continue
		}

		s.invalidateRide(ctx, rideID)
		s.notifier.Notify(audit.Event{
			ActorID:     "system",
			ActionType:  audit.ActionComplete,
			EntityType:  audit.EntityRide,
			EntityID:    rideID,
			Description: "Ride completed",
		})
	}

	return completed, nil
}

func (s *rideService) invalidateRide(ctx context.Context, id string) {
	if s.viewCache == nil {
		return
	}
	if err := s.viewCache.InvalidateRide(ctx, id); err != nil {
		log.Printf("failed to invalidate ride view: %v", err)
	}
	s.bumpListings(ctx)
}

func (s *rideService) bumpListings(ctx context.Context) {
	if s.viewCache == nil {
		return
	}
	if err := s.viewCache.BumpListings(ctx); err != nil {
		log.Printf("failed to bump ride listings: %v", err)
	}
}
