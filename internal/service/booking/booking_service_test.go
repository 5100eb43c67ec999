package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

type MockLedgerTx struct {
	mock.Mock
}

func (m *MockLedgerTx) LockFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockLedgerTx) LockProfile(ctx context.Context, email string) (*domain.UserProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockLedgerTx) DecrementCapacity(ctx context.Context, flightID int64, seats int) error {
	args := m.Called(ctx, flightID, seats)
	return args.Error(0)
}

func (m *MockLedgerTx) AdjustMiles(ctx context.Context, email string, delta int64) (int64, error) {
	args := m.Called(ctx, email, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerTx) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockLedgerTx) CompleteBooking(ctx context.Context, bookingID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, bookingID, at)
	return args.Bool(0), args.Error(1)
}

// fakeLedger runs fn against the mocked transaction and reports whether it committed.
type fakeLedger struct {
	tx        *MockLedgerTx
	committed bool
}

func (l *fakeLedger) InTx(_ context.Context, fn func(tx repository.LedgerTx) error) error {
	if err := fn(l.tx); err != nil {
		return err
	}
	l.committed = true
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, email string, typ domain.NotificationType, message string) {
	m.Called(ctx, email, typ, message)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestService(t *testing.T) (*BookingService, *MockLedgerTx, *fakeLedger, *MockNotifier, *MockCache) {
	t.Helper()
	tx := &MockLedgerTx{}
	ledger := &fakeLedger{tx: tx}
	notifier := &MockNotifier{}
	cache := &MockCache{}
	service := NewBookingService(ledger, domain.DefaultMilesRates(), notifier, WithCache(cache))
	service.newReference = func() string { return "ref-1" }
	return service, tx, ledger, notifier, cache
}

func testFlight(capacity int) *domain.Flight {
	return &domain.Flight{
		ID:         1,
		FromCity:   "Istanbul",
		ToCity:     "Ankara",
		FlightDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		FlightCode: "TK100",
		Price:      decimal.NewFromInt(100),
		Capacity:   capacity,
	}
}

func TestBookingService_Purchase_Cash(t *testing.T) {
	service, tx, ledger, notifier, cache := newTestService(t)
	ctx := context.Background()

	tx.On("LockFlight", ctx, int64(1)).Return(testFlight(2), nil).Once()
	tx.On("DecrementCapacity", ctx, int64(1), 2).Return(nil).Once()
	tx.On("InsertBooking", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.Reference == "ref-1" && b.FlightID == 1 && b.Email == "user@example.com" &&
			b.Passengers == 2 && b.PaymentMethod == domain.PaymentCash && b.Status == domain.BookingStatusConfirmed
	})).Return(nil).Once()
	cache.On("InvalidateFlights", ctx).Return(nil).Once()
	notifier.On("Notify", ctx, "user@example.com", domain.NotificationBookingConfirmed, mock.AnythingOfType("string")).Once()

	booking, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "User@Example.com", Passengers: 2})

	require.NoError(t, err)
	assert.True(t, ledger.committed)
	assert.Equal(t, domain.PaymentCash, booking.PaymentMethod)
	assert.Equal(t, int64(0), booking.MilesSpent)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "LockProfile", mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestBookingService_Purchase_Miles(t *testing.T) {
	service, tx, _, notifier, cache := newTestService(t)
	ctx := context.Background()

	tx.On("LockFlight", ctx, int64(1)).Return(testFlight(5), nil).Once()
	tx.On("LockProfile", ctx, "user@example.com").Return(&domain.UserProfile{Email: "user@example.com", MilesBalance: 2500}, nil).Once()
	tx.On("AdjustMiles", ctx, "user@example.com", int64(-2000)).Return(int64(500), nil).Once()
	tx.On("DecrementCapacity", ctx, int64(1), 2).Return(nil).Once()
	tx.On("InsertBooking", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	cache.On("InvalidateFlights", ctx).Return(errors.New("redis down")).Once()
	notifier.On("Notify", ctx, "user@example.com", domain.NotificationBookingConfirmed, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "2000 miles")
	})).Once()

	booking, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "user@example.com", Passengers: 2, UseMiles: true})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMiles, booking.PaymentMethod)
	assert.Equal(t, int64(2000), booking.MilesSpent)
	tx.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestBookingService_Purchase_ValidationErrors(t *testing.T) {
	service, tx, _, notifier, _ := newTestService(t)

	testCases := []struct {
		name  string
		input PurchaseInput
		field string
	}{
		{name: "zero passengers", input: PurchaseInput{FlightID: 1, Email: "a@b.co", Passengers: 0}, field: "passengers"},
		{name: "negative passengers", input: PurchaseInput{FlightID: 1, Email: "a@b.co", Passengers: -3}, field: "passengers"},
		{name: "empty email", input: PurchaseInput{FlightID: 1, Passengers: 1}, field: "email"},
		{name: "malformed email", input: PurchaseInput{FlightID: 1, Email: "nope", Passengers: 1}, field: "email"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Purchase(context.Background(), tc.input)
			require.ErrorIs(t, err, domain.ErrValidation)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	tx.AssertNotCalled(t, "LockFlight", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Purchase_RuleViolations(t *testing.T) {
	ctx := context.Background()

	t.Run("flight not found", func(t *testing.T) {
		service, tx, ledger, notifier, _ := newTestService(t)
		tx.On("LockFlight", ctx, int64(9)).Return(nil, domain.ErrNotFound).Once()

		_, err := service.Purchase(ctx, PurchaseInput{FlightID: 9, Email: "a@b.co", Passengers: 1})

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, ledger.committed)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient capacity", func(t *testing.T) {
		service, tx, ledger, _, _ := newTestService(t)
		tx.On("LockFlight", ctx, int64(1)).Return(testFlight(1), nil).Once()

		_, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "a@b.co", Passengers: 2})

		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
		var capErr *domain.CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, 1, capErr.Available)
		assert.Equal(t, 2, capErr.Requested)
		assert.False(t, ledger.committed)
		tx.AssertNotCalled(t, "DecrementCapacity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("membership required", func(t *testing.T) {
		service, tx, ledger, _, _ := newTestService(t)
		tx.On("LockFlight", ctx, int64(1)).Return(testFlight(5), nil).Once()
		tx.On("LockProfile", ctx, "guest@b.co").Return(nil, domain.ErrNotFound).Once()

		_, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "guest@b.co", Passengers: 1, UseMiles: true})

		assert.ErrorIs(t, err, domain.ErrMembershipRequired)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, ledger.committed)
	})

	t.Run("insufficient miles", func(t *testing.T) {
		service, tx, ledger, _, _ := newTestService(t)
		tx.On("LockFlight", ctx, int64(1)).Return(testFlight(5), nil).Once()
		tx.On("LockProfile", ctx, "x@b.co").Return(&domain.UserProfile{Email: "x@b.co", MilesBalance: 500}, nil).Once()

		_, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "x@b.co", Passengers: 1, UseMiles: true})

		assert.ErrorIs(t, err, domain.ErrInsufficientMiles)
		var milesErr *domain.MilesError
		require.ErrorAs(t, err, &milesErr)
		assert.Equal(t, int64(500), milesErr.Balance)
		assert.Equal(t, int64(1000), milesErr.Required)
		assert.False(t, ledger.committed)
		tx.AssertNotCalled(t, "AdjustMiles", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_Purchase_StoreFailure(t *testing.T) {
	service, tx, ledger, notifier, cache := newTestService(t)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	tx.On("LockFlight", ctx, int64(1)).Return(testFlight(5), nil).Once()
	tx.On("DecrementCapacity", ctx, int64(1), 1).Return(nil).Once()
	tx.On("InsertBooking", ctx, mock.Anything).Return(dbErr).Once()

	_, err := service.Purchase(ctx, PurchaseInput{FlightID: 1, Email: "a@b.co", Passengers: 1})

	assert.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.ErrorIs(t, err, dbErr)
	assert.False(t, ledger.committed)
	cache.AssertNotCalled(t, "InvalidateFlights", mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
