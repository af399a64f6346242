package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ridepool/ridepool/internal/models"
)

const (
	rideKeyPrefix      = "ride:"
	openRidesKeyFmt    = "rides:open:%d:%s"
	listingGenKey      = "rides:open:gen"
	passengerKeyPrefix = "bookings:passenger:"
	ownerKeyPrefix     = "bookings:owner:"

	rideTTL    = 5 * time.Minute
	listingTTL = 30 * time.Second
)

// RideViewCache serves read views of rides and bookings from Redis.
// Transitions invalidate only the keys they actually touch: the ride
// detail, the affected passenger's booking list, and the ride owner's
// request list. Open-ride listings are versioned with a generation
// counter instead of a scan-and-evict, so bumping the generation retires
// every listing in one write.
type RideViewCache interface {
	GetRide(ctx context.Context, id string) (*models.RideResponse, error)
	SetRide(ctx context.Context, ride *models.RideResponse) error
	InvalidateRide(ctx context.Context, id string) error

	GetOpenRides(ctx context.Context, viewerID string) ([]*models.RideResponse, error)
	SetOpenRides(ctx context.Context, viewerID string, rides []*models.RideResponse) error
	BumpListings(ctx context.Context) error

	GetPassengerBookings(ctx context.Context, passengerID string) ([]*models.BookingResponse, error)
	SetPassengerBookings(ctx context.Context, passengerID string, bookings []*models.BookingResponse) error
	InvalidatePassengerBookings(ctx context.Context, passengerID string) error

	GetOwnerRequests(ctx context.Context, ownerID string) ([]*models.BookingResponse, error)
	SetOwnerRequests(ctx context.Context, ownerID string, bookings []*models.BookingResponse) error
	InvalidateOwnerRequests(ctx context.Context, ownerID string) error
}

type rideViewCache struct {
	redis *redis.Client
}

func NewRideViewCache(redisClient *redis.Client) RideViewCache {
	return &rideViewCache{redis: redisClient}
}

func (c *rideViewCache) GetRide(ctx context.Context, id string) (*models.RideResponse, error) {
	data, err := c.redis.Get(ctx, rideKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}

	var ride models.RideResponse
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (c *rideViewCache) SetRide(ctx context.Context, ride *models.RideResponse) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, rideKeyPrefix+ride.ID, data, rideTTL).Err()
}

func (c *rideViewCache) InvalidateRide(ctx context.Context, id string) error {
	return c.redis.Del(ctx, rideKeyPrefix+id).Err()
}

func (c *rideViewCache) GetOpenRides(ctx context.Context, viewerID string) ([]*models.RideResponse, error) {
	key, err := c.listingKey(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var rides []*models.RideResponse
	if err := json.Unmarshal(data, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (c *rideViewCache) SetOpenRides(ctx context.Context, viewerID string, rides []*models.RideResponse) error {
	key, err := c.listingKey(ctx, viewerID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rides)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, data, listingTTL).Err()
}

// BumpListings advances the listing generation; cached listings under the
// old generation simply expire.
func (c *rideViewCache) BumpListings(ctx context.Context) error {
	return c.redis.Incr(ctx, listingGenKey).Err()
}

func (c *rideViewCache) listingKey(ctx context.Context, viewerID string) (string, error) {
	gen, err := c.redis.Get(ctx, listingGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf(openRidesKeyFmt, gen, viewerID), nil
}

func (c *rideViewCache) GetPassengerBookings(ctx context.Context, passengerID string) ([]*models.BookingResponse, error) {
	return c.getBookings(ctx, passengerKeyPrefix+passengerID)
}

func (c *rideViewCache) SetPassengerBookings(ctx context.Context, passengerID string, bookings []*models.BookingResponse) error {
	return c.setBookings(ctx, passengerKeyPrefix+passengerID, bookings)
}

func (c *rideViewCache) InvalidatePassengerBookings(ctx context.Context, passengerID string) error {
	return c.redis.Del(ctx, passengerKeyPrefix+passengerID).Err()
}

func (c *rideViewCache) GetOwnerRequests(ctx context.Context, ownerID string) ([]*models.BookingResponse, error) {
	return c.getBookings(ctx, ownerKeyPrefix+ownerID)
}

func (c *rideViewCache) SetOwnerRequests(ctx context.Context, ownerID string, bookings []*models.BookingResponse) error {
	return c.setBookings(ctx, ownerKeyPrefix+ownerID, bookings)
}

func (c *rideViewCache) InvalidateOwnerRequests(ctx context.Context, ownerID string) error {
	return c.redis.Del(ctx, ownerKeyPrefix+ownerID).Err()
}

func (c *rideViewCache) getBookings(ctx context.Context, key string) ([]*models.BookingResponse, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var bookings []*models.BookingResponse
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *rideViewCache) setBookings(ctx context.Context, key string, bookings []*models.BookingResponse) error {
	data, err := json.Marshal(bookings)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, data, listingTTL).Err()
}
