package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/service/booking"
	"github.com/Domenick1991/airline-ticketing/internal/service/flights"
	"github.com/Domenick1991/airline-ticketing/internal/service/loyalty"
)

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) Search(ctx context.Context, input flights.SearchInput) (*domain.FlightPage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightPage), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) CreateFlight(ctx context.Context, input flights.CreateFlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Purchase(ctx context.Context, input booking.PurchaseInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockLoyaltyUseCase struct {
	mock.Mock
}

func (m *MockLoyaltyUseCase) RegisterLoyalty(ctx context.Context, email string, wantsMembership bool) (bool, error) {
	args := m.Called(ctx, email, wantsMembership)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoyaltyUseCase) CreditMiles(ctx context.Context, email string, amount int64, credential string) (*domain.UserProfile, error) {
	args := m.Called(ctx, email, amount, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockLoyaltyUseCase) GetProfile(ctx context.Context, email string) (*loyalty.ProfileView, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loyalty.ProfileView), args.Error(1)
}
