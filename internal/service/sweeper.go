package service

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// CompletionSweeper periodically completes rides whose departure time has
// passed. Each run is idempotent, so an overlapping or repeated run is
// harmless.
type CompletionSweeper struct {
	scheduler gocron.Scheduler
	rides     RideService
	interval  time.Duration
}

func NewCompletionSweeper(rides RideService, interval time.Duration) (*CompletionSweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &CompletionSweeper{
		scheduler: scheduler,
		rides:     rides,
		interval:  interval,
	}, nil
}

func (s *CompletionSweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	log.Printf("completion sweeper running every %s", s.interval)
	return nil
}

func (s *CompletionSweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *CompletionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed, err := s.rides.CompleteDueRides(ctx)
	if err != nil {
		log.Printf("completion sweep failed: %v", err)
		return
	}
	if completed > 0 {
		log.Printf("completion sweep: marked %d ride(s) completed", completed)
	}
}
