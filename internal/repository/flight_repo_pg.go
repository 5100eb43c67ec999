package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

const pgUniqueViolation = "23505"

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (from_city, to_city, flight_date, flight_code, duration, price, capacity, is_direct)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
		RETURNING id, created_at, updated_at`,
		f.FromCity, f.ToCity, f.FlightDate, f.FlightCode, f.Duration, f.Price.StringFixed(2), f.Capacity, f.IsDirect).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: flight code %s already exists", domain.ErrConflict, f.FlightCode)
		}
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
}

func (r *PGFlightRepository) Search(ctx context.Context, q FlightQuery) ([]domain.Flight, int, error) {
	where, args := buildSearchFilter(q)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM flights`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count flights: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM flights%s ORDER BY flight_date, id LIMIT $%d OFFSET $%d`,
		flightColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, 0, err
		}
		flights = append(flights, *f)
	}
	return flights, total, rows.Err()
}

func (r *PGFlightRepository) ListDueForAccrual(ctx context.Context, cutoff time.Time, inclusive bool) ([]domain.Flight, error) {
	op := "<"
	if inclusive {
		op = "<="
	}
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights f
		WHERE f.flight_date `+op+` $1
		AND EXISTS (SELECT 1 FROM bookings b WHERE b.flight_id = f.id AND b.status = $2)
		ORDER BY f.flight_date, f.id`, domain.Day(cutoff), domain.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list flights due for accrual: %w", err)
	}
	defer rows.Close()

	var flights []domain.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

// buildSearchFilter renders the WHERE clause with $n placeholders.
func buildSearchFilter(q FlightQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.FromCity != "" {
		add("lower(from_city) = lower($%d)", q.FromCity)
	}
	if q.ToCity != "" {
		add("lower(to_city) = lower($%d)", q.ToCity)
	}
	if q.DateFrom != nil {
		add("flight_date >= $%d", domain.Day(*q.DateFrom))
	}
	if q.DateTo != nil {
		add("flight_date <= $%d", domain.Day(*q.DateTo))
	}
	if q.MinCapacity > 0 {
		add("capacity >= $%d", q.MinCapacity)
	}
	if q.DirectOnly {
		conds = append(conds, "is_direct")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ FlightRepository = (*PGFlightRepository)(nil)
