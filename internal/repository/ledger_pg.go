package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

// PGLedger runs ledger transactions at READ COMMITTED and relies on
// SELECT ... FOR UPDATE row locks to serialize writers of the same row.
type PGLedger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) Ledger {
	return &PGLedger{db: db}
}

func (l *PGLedger) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgLedgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgLedgerTx struct {
	tx pgx.Tx
}

func (t *pgLedgerTx) LockFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgLedgerTx) LockProfile(ctx context.Context, email string) (*domain.UserProfile, error) {
	return scanProfile(t.tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email=$1 FOR UPDATE`, email))
}

func (t *pgLedgerTx) DecrementCapacity(ctx context.Context, flightID int64, seats int) error {
	res, err := t.tx.Exec(ctx, `UPDATE flights SET capacity = capacity - $2, updated_at = now() WHERE id=$1 AND capacity >= $2`, flightID, seats)
	if err != nil {
		return fmt.Errorf("decrement capacity: %w", err)
	}
	if res.RowsAffected() == 0 {
		return &domain.CapacityError{FlightID: flightID, Requested: seats}
	}
	return nil
}

func (t *pgLedgerTx) AdjustMiles(ctx context.Context, email string, delta int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `UPDATE user_profiles SET miles_balance = miles_balance + $2, updated_at = now() WHERE email=$1 RETURNING miles_balance`, email, delta).
		Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("adjust miles: %w", err)
	}
	return balance, nil
}

func (t *pgLedgerTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	if err := t.tx.QueryRow(ctx, `INSERT INTO bookings (reference, flight_id, user_email, passengers, payment_method, miles_spent, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`, b.Reference, b.FlightID, b.Email, b.Passengers, b.PaymentMethod, b.MilesSpent, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (t *pgLedgerTx) CompleteBooking(ctx context.Context, bookingID int64, at time.Time) (bool, error) {
	res, err := t.tx.Exec(ctx, `UPDATE bookings SET status=$2, completed_at=$3, updated_at=now() WHERE id=$1 AND status=$4`,
		bookingID, domain.BookingStatusCompleted, at, domain.BookingStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("complete booking: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

var (
	_ Ledger   = (*PGLedger)(nil)
	_ LedgerTx = (*pgLedgerTx)(nil)
)
