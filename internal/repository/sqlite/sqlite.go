/*
Package sqlite is an embedded implementation of the ledger and repositories.

Every transaction is opened with BEGIN IMMEDIATE (_txlock=immediate), so the
write lock is taken before the first read. Two purchases on the same flight
therefore run one after the other, and the capacity check always sees the
latest committed value. Waiting writers block up to the busy timeout.

Dates are stored as YYYY-MM-DD text, timestamps as RFC 3339 text in UTC and
prices as decimal strings.
*/
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

//go:embed schema.sql
var schema string

// Fixed-width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at path and applies the schema.
// ":memory:" keeps a single connection so all callers share one database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) stamp() string {
	return s.now().Format(timeLayout)
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *Store) InTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx    *sql.Tx
	store *Store
}

func (t *ledgerTx) LockFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(t.tx.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id))
}

func (t *ledgerTx) LockProfile(ctx context.Context, email string) (*domain.UserProfile, error) {
	return scanProfile(t.tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email = ?`, email))
}

func (t *ledgerTx) DecrementCapacity(ctx context.Context, flightID int64, seats int) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE flights SET capacity = capacity - ?, updated_at = ? WHERE id = ? AND capacity >= ?`,
		seats, t.store.stamp(), flightID, seats)
	if err != nil {
		return fmt.Errorf("decrement capacity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.CapacityError{FlightID: flightID, Requested: seats}
	}
	return nil
}

func (t *ledgerTx) AdjustMiles(ctx context.Context, email string, delta int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `UPDATE user_profiles SET miles_balance = miles_balance + ?, updated_at = ? WHERE email = ?`,
		delta, t.store.stamp(), email)
	if err != nil {
		return 0, fmt.Errorf("adjust miles: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrNotFound
	}

	var balance int64
	if err := t.tx.QueryRowContext(ctx, `SELECT miles_balance FROM user_profiles WHERE email = ?`, email).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (t *ledgerTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	now := t.store.now()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO bookings (reference, flight_id, user_email, passengers, payment_method, miles_spent, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.FlightID, b.Email, b.Passengers, string(b.PaymentMethod), b.MilesSpent, string(b.Status), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (t *ledgerTx) CompleteBooking(ctx context.Context, bookingID int64, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `UPDATE bookings SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.BookingStatusCompleted), at.UTC().Format(timeLayout), t.store.stamp(), bookingID, string(domain.BookingStatusConfirmed))
	if err != nil {
		return false, fmt.Errorf("complete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete booking: %w", err)
	}
	return n == 1, nil
}

// =============================================================================
// FLIGHTS
// =============================================================================

func (s *Store) Create(ctx context.Context, f *domain.Flight) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO flights (from_city, to_city, flight_date, flight_code, duration, price, capacity, is_direct, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FromCity, f.ToCity, f.FlightDate.Format(domain.DateLayout), f.FlightCode, f.Duration, f.Price.StringFixed(2), f.Capacity, f.IsDirect,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: flight code %s already exists", domain.ErrConflict, f.FlightCode)
		}
		return fmt.Errorf("insert flight: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}
	f.FlightDate = domain.Day(f.FlightDate)
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(s.db.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id))
}

func (s *Store) Search(ctx context.Context, q repository.FlightQuery) ([]domain.Flight, int, error) {
	var (
		conds []string
		args  []any
	)
	if q.FromCity != "" {
		conds = append(conds, "lower(from_city) = lower(?)")
		args = append(args, q.FromCity)
	}
	if q.ToCity != "" {
		conds = append(conds, "lower(to_city) = lower(?)")
		args = append(args, q.ToCity)
	}
	if q.DateFrom != nil {
		conds = append(conds, "flight_date >= ?")
		args = append(args, q.DateFrom.Format(domain.DateLayout))
	}
	if q.DateTo != nil {
		conds = append(conds, "flight_date <= ?")
		args = append(args, q.DateTo.Format(domain.DateLayout))
	}
	if q.MinCapacity > 0 {
		conds = append(conds, "capacity >= ?")
		args = append(args, q.MinCapacity)
	}
	if q.DirectOnly {
		conds = append(conds, "is_direct = 1")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM flights`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count flights: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+flightColumns+` FROM flights`+where+` ORDER BY flight_date, id LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
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

func (s *Store) ListDueForAccrual(ctx context.Context, cutoff time.Time, inclusive bool) ([]domain.Flight, error) {
	op := "<"
	if inclusive {
		op = "<="
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+flightColumns+` FROM flights f
		WHERE f.flight_date `+op+` ?
		AND EXISTS (SELECT 1 FROM bookings b WHERE b.flight_id = f.id AND b.status = ?)
		ORDER BY f.flight_date, f.id`, cutoff.Format(domain.DateLayout), string(domain.BookingStatusConfirmed))
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

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *Store) ListByEmail(ctx context.Context, email string) ([]domain.BookingWithFlight, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT b.id, b.reference, b.flight_id, b.user_email, b.passengers, b.payment_method, b.miles_spent, b.status, b.created_at, b.updated_at, b.completed_at,
			f.id, f.from_city, f.to_city, f.flight_date, f.flight_code, f.duration, f.price, f.capacity, f.is_direct, f.created_at, f.updated_at
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.user_email = ?
		ORDER BY b.created_at DESC, b.id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.BookingWithFlight, 0)
	for rows.Next() {
		var (
			bf domain.BookingWithFlight
			br bookingRow
			fr flightRow
		)
		if err := rows.Scan(append(br.dest(), fr.dest()...)...); err != nil {
			return nil, err
		}
		if err := br.into(&bf.Booking); err != nil {
			return nil, err
		}
		if err := fr.into(&bf.Flight); err != nil {
			return nil, err
		}
		bookings = append(bookings, bf)
	}
	return bookings, rows.Err()
}

func (s *Store) ListConfirmedByFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE flight_id = ? AND status = ? ORDER BY id`,
		flightID, string(domain.BookingStatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var (
			b  domain.Booking
			br bookingRow
		)
		if err := rows.Scan(br.dest()...); err != nil {
			return nil, err
		}
		if err := br.into(&b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email = ?`, email))
}

func (s *Store) CreateIfAbsent(ctx context.Context, email, tier string) (*domain.UserProfile, bool, error) {
	stamp := s.stamp()
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO user_profiles (email, miles_balance, membership_tier, created_at, updated_at)
		VALUES (?, 0, ?, ?, ?)`, email, tier, stamp, stamp)
	if err != nil {
		return nil, false, fmt.Errorf("insert profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert profile: %w", err)
	}

	profile, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return profile, n == 1, nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

const flightColumns = `id, from_city, to_city, flight_date, flight_code, duration, price, capacity, is_direct, created_at, updated_at`

type flightRow struct {
	f                    domain.Flight
	date, price          string
	createdAt, updatedAt string
}

func (r *flightRow) dest() []any {
	return []any{&r.f.ID, &r.f.FromCity, &r.f.ToCity, &r.date, &r.f.FlightCode, &r.f.Duration, &r.price, &r.f.Capacity, &r.f.IsDirect, &r.createdAt, &r.updatedAt}
}

func (r *flightRow) into(f *domain.Flight) error {
	*f = r.f
	var err error
	if f.FlightDate, err = time.Parse(domain.DateLayout, r.date); err != nil {
		return fmt.Errorf("parse flight date: %w", err)
	}
	if f.Price, err = decimal.NewFromString(r.price); err != nil {
		return fmt.Errorf("parse price: %w", err)
	}
	if f.CreatedAt, err = time.Parse(timeLayout, r.createdAt); err != nil {
		return err
	}
	if f.UpdatedAt, err = time.Parse(timeLayout, r.updatedAt); err != nil {
		return err
	}
	return nil
}

func scanFlight(row scanner) (*domain.Flight, error) {
	var r flightRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var f domain.Flight
	if err := r.into(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

const bookingColumns = `id, reference, flight_id, user_email, passengers, payment_method, miles_spent, status, created_at, updated_at, completed_at`

type bookingRow struct {
	b                    domain.Booking
	method, status       string
	createdAt, updatedAt string
	completedAt          sql.NullString
}

func (r *bookingRow) dest() []any {
	return []any{&r.b.ID, &r.b.Reference, &r.b.FlightID, &r.b.Email, &r.b.Passengers, &r.method, &r.b.MilesSpent, &r.status, &r.createdAt, &r.updatedAt, &r.completedAt}
}

func (r *bookingRow) into(b *domain.Booking) error {
	*b = r.b
	b.PaymentMethod = domain.PaymentMethod(r.method)
	b.Status = domain.BookingStatus(r.status)
	var err error
	if b.CreatedAt, err = time.Parse(timeLayout, r.createdAt); err != nil {
		return err
	}
	if b.UpdatedAt, err = time.Parse(timeLayout, r.updatedAt); err != nil {
		return err
	}
	if r.completedAt.Valid {
		at, err := time.Parse(timeLayout, r.completedAt.String)
		if err != nil {
			return err
		}
		b.CompletedAt = &at
	}
	return nil
}

const profileColumns = `email, miles_balance, membership_tier, created_at, updated_at`

func scanProfile(row scanner) (*domain.UserProfile, error) {
	var (
		p                    domain.UserProfile
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.Email, &p.MilesBalance, &p.MembershipTier, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

var (
	_ repository.Ledger            = (*Store)(nil)
	_ repository.LedgerTx          = (*ledgerTx)(nil)
	_ repository.FlightRepository  = (*Store)(nil)
	_ repository.BookingRepository = (*Store)(nil)
	_ repository.ProfileRepository = (*Store)(nil)
)
