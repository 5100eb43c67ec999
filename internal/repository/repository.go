package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

// Ledger runs read-modify-write sequences over flights, bookings and profiles
// as a single transaction. If fn returns an error the transaction is rolled back.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the set of row operations available inside a ledger transaction.
// Lock* methods hold the row until the transaction ends.
type LedgerTx interface {
	LockFlight(ctx context.Context, id int64) (*domain.Flight, error)
	LockProfile(ctx context.Context, email string) (*domain.UserProfile, error)
	DecrementCapacity(ctx context.Context, flightID int64, seats int) error
	AdjustMiles(ctx context.Context, email string, delta int64) (int64, error)
	InsertBooking(ctx context.Context, booking *domain.Booking) error
	// CompleteBooking moves a CONFIRMED booking to COMPLETED and reports
	// whether this call made the transition.
	CompleteBooking(ctx context.Context, bookingID int64, at time.Time) (bool, error)
}

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Search(ctx context.Context, query FlightQuery) ([]domain.Flight, int, error)
	// ListDueForAccrual returns flights dated before cutoff (or on it when
	// inclusive) that still hold CONFIRMED bookings.
	ListDueForAccrual(ctx context.Context, cutoff time.Time, inclusive bool) ([]domain.Flight, error)
}

type BookingRepository interface {
	ListByEmail(ctx context.Context, email string) ([]domain.BookingWithFlight, error)
	ListConfirmedByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error)
}

type ProfileRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	// CreateIfAbsent inserts a zero-balance profile unless one exists and
	// reports whether this call created it.
	CreateIfAbsent(ctx context.Context, email, tier string) (*domain.UserProfile, bool, error)
}

// FlightQuery is a normalized search filter. Empty strings and nil dates are ignored.
type FlightQuery struct {
	FromCity    string
	ToCity      string
	DateFrom    *time.Time
	DateTo      *time.Time
	MinCapacity int
	DirectOnly  bool
	Limit       int
	Offset      int
}
