package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/bootstrap"
	"github.com/Domenick1991/airline-ticketing/internal/cache"
	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/email"
	"github.com/Domenick1991/airline-ticketing/internal/metrics"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/service/accrual"
)

func main() {
	accrualOnce := flag.Bool("accrual-once", false, "run miles accrual once and exit")
	date := flag.String("date", "", "accrual date (YYYY-MM-DD), defaults to today")
	metricsAddr := flag.String("metrics-addr", ":9102", "address serving /metrics, empty to disable")
	flag.Parse()

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
	hour, minute, err := cfg.Accrual.RunAtClock()
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
	m := metrics.New(reg)

	emitter, closeEmitter := bootstrap.NewEmitter(cfg)
	defer closeEmitter()
	notifier := notification.NewDispatcher(emitter, cfg.Notifications.PublishTimeout(), m)

	job := accrual.NewJob(store.Flights, store.Bookings, store.Ledger, notifier, rates,
		accrual.WithIncludeToday(cfg.Accrual.IncludeToday), accrual.WithMetrics(m))

	var locker accrual.Locker
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Search.CacheTTL())
		defer redisCache.Close()
		locker = redisCache
	}
	scheduler := accrual.NewScheduler(job, hour, minute, locker, time.Duration(cfg.Accrual.LockTTLMinutes)*time.Minute)

	if *accrualOnce {
		today := domain.Day(time.Now())
		if *date != "" {
			today, err = time.Parse(domain.DateLayout, *date)
			if err != nil {
				log.Fatalf("invalid -date: %v", err)
			}
		}
		report, err := scheduler.RunOnce(ctx, today)
		if err != nil {
			log.Fatalf("accrual: %v", err)
		}
		log.Printf("accrual: %+v", report)
		return
	}

	var wg sync.WaitGroup

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("worker: metrics server stopped: %v", err)
			}
		}()
		defer srv.Close()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	consumer, closeConsumer := bootstrap.NewConsumer(cfg)
	defer closeConsumer()
	if consumer != nil {
		sender := email.NewSender(cfg.SMTP)
		wg.Add(1)
		go func() {
			defer wg.Done()
			bootstrap.ConsumeForever(ctx, consumer, func(ctx context.Context, payload []byte) error {
				n, err := notification.Decode(payload)
				if err != nil {
					log.Printf("mailer: dropping malformed notification: %v", err)
					return nil
				}
				if err := sender.Send(ctx, n); err != nil {
					log.Printf("mailer: %s to %s not delivered: %v", n.Type, n.Email, err)
				}
				return nil
			})
		}()
	}

	<-ctx.Done()
	log.Printf("worker: shutting down")
	wg.Wait()
}
