package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ridepool/ridepool/internal/audit"
	"github.com/ridepool/ridepool/internal/coordinator"
	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/internal/repository"
	"github.com/ridepool/ridepool/pkg/utils"
)

// memStore backs the in-memory repositories used by the service tests. A
// single mutex covers both tables; every operation already runs inside the
// ride lock, so contention here is not what the tests measure.
type memStore struct {
	mu       sync.Mutex
	rides    map[string]models.Ride
	bookings map[string]models.Booking
}

func newMemStore() *memStore {
	return &memStore{
		rides:    make(map[string]models.Ride),
		bookings: make(map[string]models.Booking),
	}
}

type memRideRepo struct{ s *memStore }

func (r *memRideRepo) Create(_ context.Context, ride *models.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if ride.ID == "" {
		ride.ID = utils.GenerateID()
	}
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	ride.SeatsTaken = 0
	ride.Status = models.RideStatusOpen
	r.s.rides[ride.ID] = *ride
	return nil
}

func (r *memRideRepo) GetByID(_ context.Context, id string) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return nil, nil
	}
	return &ride, nil
}

func (r *memRideRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r *memRideRepo) Update(_ context.Context, ride *models.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride.UpdatedAt = time.Now()
	r.s.rides[ride.ID] = *ride
	return nil
}

func (r *memRideRepo) UpdateSeats(_ context.Context, id string, seatsTaken int, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[id]
	if !ok {
		return nil
	}
	ride.SeatsTaken = seatsTaken
	ride.Status = status
	ride.UpdatedAt = time.Now()
	r.s.rides[id] = ride
	return nil
}

func (r *memRideRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.rides, id)
	for bid, b := range r.s.bookings {
		if b.RideID == id {
			delete(r.s.bookings, bid)
		}
	}
	return nil
}

func (r *memRideRepo) ListBookable(_ context.Context, viewerID string, now time.Time) ([]*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rides := []*models.Ride{}
	for _, ride := range r.s.rides {
		if ride.Status != models.RideStatusOpen || !ride.DepartureAt.After(now) || ride.OwnerID == viewerID {
			continue
		}
		held := false
		for _, b := range r.s.bookings {
			if b.RideID == ride.ID && b.PassengerID == viewerID && b.HoldsSeat() {
				held = true
				break
			}
		}
		if held {
			continue
		}
		copied := ride
		rides = append(rides, &copied)
	}
	return rides, nil
}

func (r *memRideRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rides := []*models.Ride{}
	for _, ride := range r.s.rides {
		if ride.OwnerID == ownerID {
			copied := ride
			rides = append(rides, &copied)
		}
	}
	return rides, nil
}

func (r *memRideRepo) ListDueForCompletion(_ context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := []string{}
	for _, ride := range r.s.rides {
		if !ride.DepartureAt.After(now) && ride.Status != models.RideStatusCompleted {
			ids = append(ids, ride.ID)
		}
	}
	return ids, nil
}

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if booking.ID == "" {
		booking.ID = utils.GenerateID()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Status = models.BookingStatusPending
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &booking, nil
}

func (r *memBookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[id]
	if !ok {
		return nil
	}
	booking.Status = status
	booking.UpdatedAt = time.Now()
	r.s.bookings[id] = booking
	return nil
}

func (r *memBookingRepo) GetActiveByRideAndPassenger(_ context.Context, rideID, passengerID string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.RideID == rideID && b.PassengerID == passengerID && b.HoldsSeat() {
			copied := b
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) ListByPassenger(_ context.Context, passengerID string) ([]*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bookings := []*models.Booking{}
	for _, b := range r.s.bookings {
		if b.PassengerID == passengerID {
			copied := b
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}

func (r *memBookingRepo) ListByRideOwner(_ context.Context, ownerID string) ([]*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bookings := []*models.Booking{}
	for _, b := range r.s.bookings {
		ride, ok := r.s.rides[b.RideID]
		if ok && ride.OwnerID == ownerID {
			copied := b
			bookings = append(bookings, &copied)
		}
	}
	return bookings, nil
}

// memTxManager hands the callback repositories over the shared store. The
// ride lock supplies the isolation a real transaction would.
type memTxManager struct{ s *memStore }

func (m *memTxManager) WithinTx(_ context.Context, fn func(repository.RideRepository, repository.BookingRepository) error) error {
	return fn(&memRideRepo{s: m.s}, &memBookingRepo{s: m.s})
}

type recordSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordSink) Write(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.events))
	for _, e := range s.events {
		actions = append(actions, e.ActionType)
	}
	return actions
}

type testEnv struct {
	store    *memStore
	sink     *recordSink
	notifier *audit.Notifier
	rides    RideService
	bookings BookingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	sink := &recordSink{}
	notifier := audit.NewNotifier(sink, 256)
	t.Cleanup(notifier.Close)

	tx := &memTxManager{s: store}
	rideRepo := &memRideRepo{s: store}
	bookingRepo := &memBookingRepo{s: store}
	coord := coordinator.New()

	return &testEnv{
		store:    store,
		sink:     sink,
		notifier: notifier,
		rides:    NewRideService(tx, rideRepo, coord, notifier, nil),
		bookings: NewBookingService(tx, rideRepo, bookingRepo, coord, notifier, nil),
	}
}

func (e *testEnv) mustCreateRide(t *testing.T, ownerID string, capacity int, departure time.Time) *models.Ride {
	t.Helper()

	ride, err := e.rides.CreateRide(context.Background(), models.Actor{ID: ownerID, Role: models.RoleDriver}, &models.CreateRideRequest{
		Origin:      "Campus",
		Destination: "Downtown",
		Price:       7.50,
		Capacity:    capacity,
		DepartureAt: departure,
	})
	if err != nil {
		t.Fatalf("CreateRide() error = %v", err)
	}
	return ride
}

func (e *testEnv) rideState(t *testing.T, id string) models.Ride {
	t.Helper()

	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	ride, ok := e.store.rides[id]
	if !ok {
		t.Fatalf("ride %s not found in store", id)
	}
	return ride
}
