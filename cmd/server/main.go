package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/ridepool/ridepool/internal/audit"
	"github.com/ridepool/ridepool/internal/cache"
	"github.com/ridepool/ridepool/internal/config"
	"github.com/ridepool/ridepool/internal/coordinator"
	"github.com/ridepool/ridepool/internal/database"
	"github.com/ridepool/ridepool/internal/handler"
	"github.com/ridepool/ridepool/internal/middleware"
	"github.com/ridepool/ridepool/internal/repository"
	"github.com/ridepool/ridepool/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
			newrelic.ConfigInfoLogger(os.Stdout),
		)
		if err != nil {
			log.Printf("Warning: Failed to initialize New Relic: %v", err)
		} else {
			log.Println("New Relic initialized successfully")
			if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
				log.Printf("Warning: New Relic connection timeout: %v", err)
			}
		}
	}

	// Initialize PostgreSQL
	db, err := database.NewPostgres(
		cfg.DatabaseURL,
		cfg.DBMaxConnections,
		cfg.DBMaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis
	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	log.Println("Connected to Redis")

	// Audit trail sink: Kafka when configured, process log otherwise
	var sink audit.Sink
	var kafkaSink *audit.KafkaSink
	if cfg.AuditEnabled {
		kafkaSink = audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		sink = kafkaSink
		log.Printf("Audit events publishing to Kafka topic %s", cfg.AuditTopic)
	} else {
		sink = audit.NewLogSink()
	}
	notifier := audit.NewNotifier(sink, cfg.NotifierQueue)

	// Initialize cache, repositories and coordination
	viewCache := cache.NewRideViewCache(redis.Client)
	rideRepo := repository.NewRideRepository(db.DB)
	bookingRepo := repository.NewBookingRepository(db.DB)
	txManager := repository.NewTxManager(db.DB)
	coord := coordinator.New()

	// Initialize services
	rideService := service.NewRideService(txManager, rideRepo, coord, notifier, viewCache)
	bookingService := service.NewBookingService(txManager, rideRepo, bookingRepo, coord, notifier, viewCache)

	// Completion sweep for departed rides
	sweeper, err := service.NewCompletionSweeper(rideService, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("Failed to create completion sweeper: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start completion sweeper: %v", err)
	}

	// Initialize handlers
	rideHandler := handler.NewRideHandler(rideService)
	bookingHandler := handler.NewBookingHandler(bookingService)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-User-ID", "X-User-Role"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// New Relic middleware
	if nrApp != nil {
		r.Use(middleware.NewRelicMiddleware(nrApp))
	}

	// Rate limiter
	rateLimiter := middleware.NewRateLimiter(redis.Client, cfg.RateLimitRequests, cfg.RateLimitWindow)
	r.Use(rateLimiter.Handler)

	// Idempotency middleware
	idempotencyMw := middleware.NewIdempotencyMiddleware(redis.Client)
	r.Use(idempotencyMw.Handler)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := db.Health(ctx); err != nil {
			http.Error(w, "database unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := redis.Health(ctx); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","services":{"database":"up","redis":"up"}}`))
	})

	// API v1 routes require an authenticated caller
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Identity)
		rideHandler.RegisterRoutes(r)
		bookingHandler.RegisterRoutes(r)
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. Background work is only torn down once Shutdown
	// has returned, so in-flight handlers finish before the notifier goes
	// away.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	log.Println("API endpoints:")
	log.Println("  POST   /v1/rides                  - Offer a ride")
	log.Println("  GET    /v1/rides                  - List bookable rides")
	log.Println("  GET    /v1/rides/mine             - List my rides")
	log.Println("  GET    /v1/rides/{id}             - Get ride")
	log.Println("  PUT    /v1/rides/{id}             - Update ride")
	log.Println("  DELETE /v1/rides/{id}             - Delete ride")
	log.Println("  POST   /v1/rides/{id}/bookings    - Request a seat")
	log.Println("  GET    /v1/bookings               - My bookings")
	log.Println("  GET    /v1/bookings/requests      - Requests on my rides")
	log.Println("  POST   /v1/bookings/{id}/approve  - Approve request")
	log.Println("  POST   /v1/bookings/{id}/reject   - Reject request")
	log.Println("  POST   /v1/bookings/{id}/cancel   - Cancel my booking")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone

	// Drain background work before exiting
	if err := sweeper.Stop(); err != nil {
		log.Printf("Sweeper shutdown error: %v", err)
	}
	notifier.Close()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Printf("Kafka sink close error: %v", err)
		}
	}

	log.Println("Server stopped gracefully")
}
