package loyalty

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

type LoyaltyUseCase interface {
	RegisterLoyalty(ctx context.Context, email string, wantsMembership bool) (bool, error)
	CreditMiles(ctx context.Context, email string, amount int64, credential string) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, email string) (*ProfileView, error)
}

// ProfileView is a profile with its bookings. Non-members get a zero balance and the guest tier.
type ProfileView struct {
	Email          string                     `json:"email"`
	MilesBalance   int64                      `json:"milesBalance"`
	MembershipTier string                     `json:"membershipType"`
	Member         bool                       `json:"member"`
	Bookings       []domain.BookingWithFlight `json:"bookings"`
}

type Service struct {
	ledger      repository.Ledger
	profiles    repository.ProfileRepository
	bookings    repository.BookingRepository
	notifier    notification.Notifier
	defaultTier string
	apiKey      string
}

func NewService(
	ledger repository.Ledger,
	profiles repository.ProfileRepository,
	bookings repository.BookingRepository,
	notifier notification.Notifier,
	defaultTier, apiKey string,
) *Service {
	if defaultTier == "" {
		defaultTier = domain.DefaultMembershipTier
	}
	return &Service{
		ledger:      ledger,
		profiles:    profiles,
		bookings:    bookings,
		notifier:    notifier,
		defaultTier: defaultTier,
		apiKey:      apiKey,
	}
}

// RegisterLoyalty creates a zero-balance profile unless one exists. Only the
// call that creates the profile reports created and sends the welcome mail.
func (s *Service) RegisterLoyalty(ctx context.Context, email string, wantsMembership bool) (bool, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	if !wantsMembership {
		return false, nil
	}

	profile, created, err := s.profiles.CreateIfAbsent(ctx, email, s.defaultTier)
	if err != nil {
		return false, &domain.TxError{Op: "register loyalty", Err: err}
	}
	if !created {
		return false, nil
	}

	log.Printf("loyalty: registered %s (%s)", email, profile.MembershipTier)
	s.notifier.Notify(ctx, email, domain.NotificationWelcome,
		fmt.Sprintf("Welcome to the loyalty program! Your %s membership is active and every flight now earns miles.", profile.MembershipTier))
	return true, nil
}

// CreditMiles adds miles on behalf of a partner system authenticated by a shared key.
func (s *Service) CreditMiles(ctx context.Context, email string, amount int64, credential string) (*domain.UserProfile, error) {
	if !s.authorized(credential) {
		return nil, fmt.Errorf("external credit: %w", domain.ErrUnauthorized)
	}
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("milesToAdd", "must be a positive integer")
	}

	var profile *domain.UserProfile
	err = s.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		p, err := tx.LockProfile(ctx, email)
		if err != nil {
			return err
		}
		balance, err := tx.AdjustMiles(ctx, email, amount)
		if err != nil {
			return err
		}
		p.MilesBalance = balance
		profile = p
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("profile %s: %w", email, domain.ErrNotFound)
		}
		return nil, &domain.TxError{Op: "credit miles", Err: err}
	}

	s.notifier.Notify(ctx, email, domain.NotificationMilesUpdated,
		fmt.Sprintf("%d miles were added to your account by a partner airline. Your balance is now %d miles.", amount, profile.MilesBalance))
	return profile, nil
}

func (s *Service) authorized(credential string) bool {
	if s.apiKey == "" || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(s.apiKey)) == 1
}

func (s *Service) GetProfile(ctx context.Context, email string) (*ProfileView, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{Email: email, MembershipTier: domain.GuestMembershipTier}
	profile, err := s.profiles.GetByEmail(ctx, email)
	switch {
	case err == nil:
		view.Member = true
		view.MilesBalance = profile.MilesBalance
		view.MembershipTier = profile.MembershipTier
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	bookings, err := s.bookings.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	view.Bookings = bookings
	return view, nil
}

var _ LoyaltyUseCase = (*Service)(nil)
