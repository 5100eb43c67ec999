package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

//go:embed schema/postgres.sql
var postgresSchema string

// NewPool creates a pgx pool and waits for the database to answer a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

const flightColumns = `id, from_city, to_city, flight_date, flight_code, duration, price::text, capacity, is_direct, created_at, updated_at`

func scanFlight(row scanner) (*domain.Flight, error) {
	var (
		f     domain.Flight
		price string
	)
	if err := row.Scan(&f.ID, &f.FromCity, &f.ToCity, &f.FlightDate, &f.FlightCode, &f.Duration, &price, &f.Capacity, &f.IsDirect, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := setPrice(&f, price); err != nil {
		return nil, err
	}
	return &f, nil
}

const bookingColumns = `id, reference, flight_id, user_email, passengers, payment_method, miles_spent, status, created_at, updated_at, completed_at`

func bookingDest(b *domain.Booking) []any {
	return []any{&b.ID, &b.Reference, &b.FlightID, &b.Email, &b.Passengers, &b.PaymentMethod, &b.MilesSpent, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.CompletedAt}
}

const profileColumns = `email, miles_balance, membership_tier, created_at, updated_at`

func scanProfile(row scanner) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := row.Scan(&p.Email, &p.MilesBalance, &p.MembershipTier, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
