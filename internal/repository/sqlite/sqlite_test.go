package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedFlight(t *testing.T, store *Store, code string, date time.Time, capacity int) *domain.Flight {
	t.Helper()
	f := &domain.Flight{
		FromCity:   "Moscow",
		ToCity:     "Kazan",
		FlightDate: date,
		FlightCode: code,
		Duration:   "1h 35m",
		Price:      decimal.RequireFromString("100.00"),
		Capacity:   capacity,
		IsDirect:   true,
	}
	require.NoError(t, store.Create(context.Background(), f))
	return f
}

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestStore_CreateAndGetFlight(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := seedFlight(t, store, "SU1234", day("2026-05-01"), 120)
	assert.NotZero(t, created.ID)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SU1234", got.FlightCode)
	assert.Equal(t, day("2026-05-01"), got.FlightDate)
	assert.True(t, decimal.RequireFromString("100").Equal(got.Price))
	assert.Equal(t, 120, got.Capacity)
	assert.True(t, got.IsDirect)

	_, err = store.GetByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CreateFlight_DuplicateCode(t *testing.T) {
	store := newTestStore(t)
	seedFlight(t, store, "SU1234", day("2026-05-01"), 10)

	err := store.Create(context.Background(), &domain.Flight{
		FromCity: "Sochi", ToCity: "Omsk", FlightDate: day("2026-05-02"), FlightCode: "SU1234",
		Duration: "4h", Price: decimal.NewFromInt(50), Capacity: 5,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedFlight(t, store, "A1", day("2026-05-01"), 10)
	seedFlight(t, store, "A2", day("2026-05-03"), 1)
	seedFlight(t, store, "A3", day("2026-05-10"), 10)

	from, to := day("2026-05-01"), day("2026-05-04")
	flights, total, err := store.Search(ctx, repository.FlightQuery{
		FromCity: "moscow", ToCity: "KAZAN", DateFrom: &from, DateTo: &to, MinCapacity: 2, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, flights, 1)
	assert.Equal(t, "A1", flights[0].FlightCode)

	flights, total, err = store.Search(ctx, repository.FlightQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, flights, 1)
	assert.Equal(t, "A3", flights[0].FlightCode)
}

func TestStore_DecrementCapacity_Guarded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := seedFlight(t, store, "B1", day("2026-05-01"), 2)

	err := store.InTx(ctx, func(tx repository.LedgerTx) error {
		return tx.DecrementCapacity(ctx, f.ID, 3)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)

	require.NoError(t, store.InTx(ctx, func(tx repository.LedgerTx) error {
		return tx.DecrementCapacity(ctx, f.ID, 2)
	}))

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Capacity)
}

func TestStore_InTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := seedFlight(t, store, "C1", day("2026-05-01"), 5)
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.DecrementCapacity(ctx, f.ID, 2); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, &domain.Booking{
			Reference: "ref-1", FlightID: f.ID, Email: "a@b.c", Passengers: 2,
			PaymentMethod: domain.PaymentCash, Status: domain.BookingStatusConfirmed,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Capacity)

	bookings, err := store.ListByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestStore_CompleteBooking_OnlyOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := seedFlight(t, store, "D1", day("2026-04-01"), 5)

	b := &domain.Booking{
		Reference: "ref-d1", FlightID: f.ID, Email: "x@y.z", Passengers: 1,
		PaymentMethod: domain.PaymentCash, Status: domain.BookingStatusConfirmed,
	}
	require.NoError(t, store.InTx(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertBooking(ctx, b)
	}))
	assert.NotZero(t, b.ID)

	due, err := store.ListDueForAccrual(ctx, day("2026-04-02"), false)
	require.NoError(t, err)
	require.Len(t, due, 1)

	due, err = store.ListDueForAccrual(ctx, day("2026-04-01"), false)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = store.ListDueForAccrual(ctx, day("2026-04-01"), true)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	at := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	for i, want := range []bool{true, false} {
		var changed bool
		require.NoError(t, store.InTx(ctx, func(tx repository.LedgerTx) error {
			changed, err = tx.CompleteBooking(ctx, b.ID, at)
			return err
		}))
		assert.Equal(t, want, changed, "run %d", i)
	}

	confirmed, err := store.ListConfirmedByFlight(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, confirmed)

	bookings, err := store.ListByEmail(ctx, "x@y.z")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, domain.BookingStatusCompleted, bookings[0].Status)
	require.NotNil(t, bookings[0].CompletedAt)
	assert.True(t, at.Equal(*bookings[0].CompletedAt))
	assert.Equal(t, "D1", bookings[0].Flight.FlightCode)
}

func TestStore_Profiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetByEmail(ctx, "m@x.io")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, created, err := store.CreateIfAbsent(ctx, "m@x.io", domain.DefaultMembershipTier)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), p.MilesBalance)
	assert.Equal(t, domain.DefaultMembershipTier, p.MembershipTier)

	_, created, err = store.CreateIfAbsent(ctx, "m@x.io", domain.DefaultMembershipTier)
	require.NoError(t, err)
	assert.False(t, created)

	var balance int64
	require.NoError(t, store.InTx(ctx, func(tx repository.LedgerTx) error {
		balance, err = tx.AdjustMiles(ctx, "m@x.io", 700)
		return err
	}))
	assert.Equal(t, int64(700), balance)

	err = store.InTx(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.AdjustMiles(ctx, "nobody@x.io", 1)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	locked, err := func() (*domain.UserProfile, error) {
		var out *domain.UserProfile
		err := store.InTx(ctx, func(tx repository.LedgerTx) error {
			var err error
			out, err = tx.LockProfile(ctx, "m@x.io")
			return err
		})
		return out, err
	}()
	require.NoError(t, err)
	assert.Equal(t, int64(700), locked.MilesBalance)
}
