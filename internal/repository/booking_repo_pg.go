package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) ListByEmail(ctx context.Context, email string) ([]domain.BookingWithFlight, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.reference, b.flight_id, b.user_email, b.passengers, b.payment_method, b.miles_spent, b.status, b.created_at, b.updated_at, b.completed_at,
			f.id, f.from_city, f.to_city, f.flight_date, f.flight_code, f.duration, f.price::text, f.capacity, f.is_direct, f.created_at, f.updated_at
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.user_email = $1
		ORDER BY b.created_at DESC, b.id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.BookingWithFlight, 0)
	for rows.Next() {
		var (
			bf    domain.BookingWithFlight
			price string
		)
		f := &bf.Flight
		dest := append(bookingDest(&bf.Booking),
			&f.ID, &f.FromCity, &f.ToCity, &f.FlightDate, &f.FlightCode, &f.Duration, &price, &f.Capacity, &f.IsDirect, &f.CreatedAt, &f.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := setPrice(f, price); err != nil {
			return nil, err
		}
		bookings = append(bookings, bf)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListConfirmedByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE flight_id=$1 AND status=$2 ORDER BY id`,
		flightID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(bookingDest(&b)...); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
