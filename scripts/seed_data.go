//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/ridepool/ridepool/internal/config"
	"github.com/ridepool/ridepool/internal/database"
	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/internal/repository"
	"github.com/ridepool/ridepool/pkg/utils"
)

var (
	origins      = []string{"Koramangala", "Indiranagar", "Whitefield", "HSR Layout", "Jayanagar", "Malleshwaram"}
	destinations = []string{"Airport", "Majestic", "Electronic City", "Hebbal", "MG Road", "Marathahalli"}
)

func main() {
	rand.Seed(time.Now().UnixNano())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	rideRepo := repository.NewRideRepository(db.DB)
	bookingRepo := repository.NewBookingRepository(db.DB)

	// Create drivers with open rides
	log.Println("Creating 30 rides...")
	rideIDs := make([]string, 0)
	ownerIDs := make([]string, 0)
	for i := 0; i < 30; i++ {
		ownerID := utils.GenerateID()
		ride := &models.Ride{
			OwnerID:     ownerID,
			Origin:      origins[rand.Intn(len(origins))],
			Destination: destinations[rand.Intn(len(destinations))],
			Price:       float64(50 + rand.Intn(450)),
			Capacity:    1 + rand.Intn(4),
			DepartureAt: time.Now().Add(time.Duration(1+rand.Intn(72)) * time.Hour),
		}

		if err := rideRepo.Create(ctx, ride); err != nil {
			log.Printf("Failed to create ride: %v", err)
			continue
		}
		rideIDs = append(rideIDs, ride.ID)
		ownerIDs = append(ownerIDs, ownerID)
	}
	log.Printf("Created %d rides", len(rideIDs))

	// Book roughly half the rides once each
	log.Println("Creating bookings...")
	booked := 0
	for _, rideID := range rideIDs {
		if rand.Intn(2) == 0 {
			continue
		}

		booking := &models.Booking{
			RideID:      rideID,
			PassengerID: utils.GenerateID(),
		}
		if err := bookingRepo.Create(ctx, booking); err != nil {
			log.Printf("Failed to create booking: %v", err)
			continue
		}

		ride, err := rideRepo.GetByID(ctx, rideID)
		if err != nil || ride == nil {
			continue
		}
		status := models.RideStatusOpen
		if ride.SeatsTaken+1 >= ride.Capacity {
			status = models.RideStatusFull
		}
		if err := rideRepo.UpdateSeats(ctx, rideID, ride.SeatsTaken+1, status); err != nil {
			log.Printf("Failed to update seats: %v", err)
			continue
		}
		booked++
	}
	log.Printf("Created %d bookings", booked)

	fmt.Println("Seed data complete")
	fmt.Printf("Sample owner id: %s\n", ownerIDs[0])
	fmt.Printf("Sample ride id:  %s\n", rideIDs[0])
}
