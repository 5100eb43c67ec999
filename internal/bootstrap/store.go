package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
	"github.com/Domenick1991/airline-ticketing/internal/repository/sqlite"
)

// Store bundles the repositories of one backing database.
type Store struct {
	Ledger   repository.Ledger
	Flights  repository.FlightRepository
	Bookings repository.BookingRepository
	Profiles repository.ProfileRepository
	Ping     func(context.Context) error
	Close    func()
}

// OpenStore connects to the configured driver and applies the schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Store{
			Ledger:   db,
			Flights:  db,
			Bookings: db,
			Profiles: db,
			Ping:     db.Ping,
			Close:    func() { db.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{
			Ledger:   repository.NewLedger(pool),
			Flights:  repository.NewFlightRepository(pool),
			Bookings: repository.NewBookingRepository(pool),
			Profiles: repository.NewProfileRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
