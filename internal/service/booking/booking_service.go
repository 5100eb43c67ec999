package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/metrics"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

type BookingUseCase interface {
	Purchase(ctx context.Context, input PurchaseInput) (*domain.Booking, error)
}

// Cache is the part of the search cache a purchase has to invalidate.
type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type BookingService struct {
	ledger       repository.Ledger
	rates        domain.MilesRates
	notifier     notification.Notifier
	cache        Cache
	metrics      *metrics.Metrics
	newReference func() string
}

type PurchaseInput struct {
	FlightID   int64
	Email      string
	Passengers int
	UseMiles   bool
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func NewBookingService(
	ledger repository.Ledger,
	rates domain.MilesRates,
	notifier notification.Notifier,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		ledger:       ledger,
		rates:        rates,
		notifier:     notifier,
		newReference: uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Purchase admits a booking atomically. Capacity and, for miles payments, the
// balance are checked and debited under row locks in a single transaction;
// any failure leaves the ledger untouched.
func (s *BookingService) Purchase(ctx context.Context, input PurchaseInput) (*domain.Booking, error) {
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		s.metrics.Purchase(outcome(err), 0)
		return nil, err
	}
	if input.Passengers < 1 {
		err := domain.NewValidationError("passengers", "must be at least 1")
		s.metrics.Purchase(outcome(err), 0)
		return nil, err
	}

	booking := &domain.Booking{
		Reference:     s.newReference(),
		FlightID:      input.FlightID,
		Email:         email,
		Passengers:    input.Passengers,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.BookingStatusConfirmed,
	}
	var flight *domain.Flight

	err = s.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		f, err := tx.LockFlight(ctx, input.FlightID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("flight %d: %w", input.FlightID, domain.ErrNotFound)
			}
			return err
		}
		if f.Capacity < input.Passengers {
			return &domain.CapacityError{FlightID: f.ID, Available: f.Capacity, Requested: input.Passengers}
		}

		if input.UseMiles {
			required, err := s.rates.RequiredMiles(f.Price, input.Passengers)
			if err != nil {
				return err
			}
			profile, err := tx.LockProfile(ctx, email)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("%s has no loyalty profile: %w", email, domain.ErrMembershipRequired)
				}
				return err
			}
			if profile.MilesBalance < required {
				return &domain.MilesError{Email: email, Balance: profile.MilesBalance, Required: required}
			}
			if _, err := tx.AdjustMiles(ctx, email, -required); err != nil {
				return err
			}
			booking.PaymentMethod = domain.PaymentMiles
			booking.MilesSpent = required
		}

		if err := tx.DecrementCapacity(ctx, f.ID, input.Passengers); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		flight = f
		return nil
	})
	if err != nil {
		if !domain.IsBusinessError(err) {
			err = &domain.TxError{Op: "purchase", Err: err}
		}
		s.metrics.Purchase(outcome(err), 0)
		return nil, err
	}

	s.metrics.Purchase(outcome(nil), booking.MilesSpent)
	log.Printf("booking: %s confirmed on flight %d for %s (%d pax, %s)", booking.Reference, flight.ID, email, booking.Passengers, booking.PaymentMethod)

	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			log.Printf("booking: failed to invalidate flight cache: %v", err)
		}
	}
	s.notifier.Notify(ctx, email, domain.NotificationBookingConfirmed, confirmationMessage(booking, flight))
	return booking, nil
}

func confirmationMessage(b *domain.Booking, f *domain.Flight) string {
	msg := fmt.Sprintf("Your booking %s for flight %s from %s to %s on %s is confirmed for %d passenger(s).",
		b.Reference, f.FlightCode, f.FromCity, f.ToCity, f.FlightDate.Format(domain.DateLayout), b.Passengers)
	if b.PaymentMethod == domain.PaymentMiles {
		msg += fmt.Sprintf(" %d miles were deducted from your balance.", b.MilesSpent)
	}
	return msg
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientCapacity):
		return "insufficient_capacity"
	case errors.Is(err, domain.ErrMembershipRequired):
		return "membership_required"
	case errors.Is(err, domain.ErrInsufficientMiles):
		return "insufficient_miles"
	default:
		return "failed"
	}
}

var _ BookingUseCase = (*BookingService)(nil)
