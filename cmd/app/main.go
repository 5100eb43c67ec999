package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Domenick1991/airline-ticketing/api"
	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/bootstrap"
	"github.com/Domenick1991/airline-ticketing/internal/cache"
	"github.com/Domenick1991/airline-ticketing/internal/metrics"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/service/booking"
	"github.com/Domenick1991/airline-ticketing/internal/service/flights"
	"github.com/Domenick1991/airline-ticketing/internal/service/loyalty"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	rates, err := cfg.Loyalty.Rates()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	emitter, closeEmitter := bootstrap.NewEmitter(cfg)
	defer closeEmitter()
	notifier := notification.NewDispatcher(emitter, cfg.Notifications.PublishTimeout(), m)

	var flightCache flights.FlightCache
	bookingOpts := []booking.BookingServiceOption{booking.WithMetrics(m)}
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Search.CacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis: not reachable, searches fall through to the database: %v", err)
		}
		flightCache = redisCache
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
	}

	flightService := flights.NewFlightService(store.Flights, flightCache, flights.Options{
		FlexibleDays: cfg.Search.FlexibleDays,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	bookingService := booking.NewBookingService(store.Ledger, rates, notifier, bookingOpts...)
	loyaltyService := loyalty.NewService(store.Ledger, store.Profiles, store.Bookings, notifier, cfg.Loyalty.DefaultTier, cfg.External.APIKey)

	limiter := api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, time.Minute, 3*time.Minute)

	router := api.NewRouter(
		api.RouterConfig{JWTSigningKey: cfg.Identity.JWTSigningKey, AdminGroup: cfg.Identity.AdminGroup},
		api.NewFlightHandler(flightService),
		api.NewBookingHandler(bookingService),
		api.NewProfileHandler(loyaltyService),
		limiter,
		m,
	)

	if err := bootstrap.Run(ctx, cfg, router, reg, store.Ping); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
