package flights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

type FlightUseCase interface {
	Search(ctx context.Context, input SearchInput) (*domain.FlightPage, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
}

type FlightCache interface {
	FlightsGeneration(ctx context.Context) (int64, error)
	GetFlightPage(ctx context.Context, generation int64, query string) (*domain.FlightPage, error)
	SetFlightPage(ctx context.Context, generation int64, query string, page *domain.FlightPage) error
	InvalidateFlights(ctx context.Context) error
}

// Options controls search defaults.
type Options struct {
	FlexibleDays int
	DefaultLimit int
	MaxLimit     int
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	opts  Options
}

type SearchInput struct {
	From       string
	To         string
	Date       string
	Flexible   bool
	DirectOnly bool
	Passengers int
	Page       int
	Limit      int
}

type CreateFlightInput struct {
	FromCity   string `json:"fromCity"`
	ToCity     string `json:"toCity"`
	FlightDate string `json:"flightDate"`
	FlightCode string `json:"flightCode"`
	Duration   string `json:"duration"`
	Price      string `json:"price"`
	Capacity   int    `json:"capacity"`
	IsDirect   *bool  `json:"isDirect"`
}

// NewFlightService accepts a nil cache; searches then always hit the repository.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, opts Options) *FlightService {
	if opts.FlexibleDays <= 0 {
		opts.FlexibleDays = 3
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &FlightService{repo: repo, cache: cache, opts: opts}
}

func (s *FlightService) Search(ctx context.Context, input SearchInput) (*domain.FlightPage, error) {
	query, page, limit, err := s.buildQuery(input)
	if err != nil {
		return nil, err
	}
	key := cacheKey(query, page)

	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		generation, err = s.cache.FlightsGeneration(ctx)
		if err != nil {
			log.Printf("flights: cache generation unavailable: %v", err)
		} else {
			cacheable = true
			if cached, err := s.cache.GetFlightPage(ctx, generation, key); err == nil && cached != nil {
				return cached, nil
			}
		}
	}

	flights, total, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	result := &domain.FlightPage{
		Flights:    flights,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}

	if cacheable {
		if err := s.cache.SetFlightPage(ctx, generation, key, result); err != nil {
			log.Printf("flights: failed to cache search page: %v", err)
		}
	}
	return result, nil
}

func (s *FlightService) buildQuery(input SearchInput) (repository.FlightQuery, int, int, error) {
	passengers := input.Passengers
	if passengers == 0 {
		passengers = 1
	}
	if passengers < 0 {
		return repository.FlightQuery{}, 0, 0, domain.NewValidationError("passengers", "must be at least 1")
	}

	page := input.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return repository.FlightQuery{}, 0, 0, domain.NewValidationError("page", "must be at least 1")
	}
	limit := input.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if limit < 0 {
		return repository.FlightQuery{}, 0, 0, domain.NewValidationError("limit", "must be positive")
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}

	query := repository.FlightQuery{
		FromCity:    strings.TrimSpace(input.From),
		ToCity:      strings.TrimSpace(input.To),
		MinCapacity: passengers,
		DirectOnly:  input.DirectOnly,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}

	if input.Date != "" {
		day, err := time.Parse(domain.DateLayout, input.Date)
		if err != nil {
			return repository.FlightQuery{}, 0, 0, domain.NewValidationError("date", "must be YYYY-MM-DD")
		}
		from, to := day, day
		if input.Flexible {
			from = day.AddDate(0, 0, -s.opts.FlexibleDays)
			to = day.AddDate(0, 0, s.opts.FlexibleDays)
		}
		query.DateFrom, query.DateTo = &from, &to
	}
	return query, page, limit, nil
}

// cacheKey is stable for equal queries regardless of input spelling.
func cacheKey(q repository.FlightQuery, page int) string {
	v := url.Values{}
	v.Set("from", strings.ToLower(q.FromCity))
	v.Set("to", strings.ToLower(q.ToCity))
	if q.DateFrom != nil {
		v.Set("date_from", q.DateFrom.Format(domain.DateLayout))
		v.Set("date_to", q.DateTo.Format(domain.DateLayout))
	}
	v.Set("min_capacity", strconv.Itoa(q.MinCapacity))
	v.Set("direct", strconv.FormatBool(q.DirectOnly))
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v.Encode()
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return flight, nil
}

func (s *FlightService) CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	flight, err := input.toFlight()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	log.Printf("flights: created %s %s -> %s on %s", flight.FlightCode, flight.FromCity, flight.ToCity, flight.FlightDate.Format(domain.DateLayout))

	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			log.Printf("flights: failed to invalidate cache: %v", err)
		}
	}
	return flight, nil
}

func (in CreateFlightInput) toFlight() (*domain.Flight, error) {
	from := strings.TrimSpace(in.FromCity)
	to := strings.TrimSpace(in.ToCity)
	code := strings.ToUpper(strings.TrimSpace(in.FlightCode))
	duration := strings.TrimSpace(in.Duration)

	switch {
	case from == "":
		return nil, domain.NewValidationError("fromCity", "is required")
	case to == "":
		return nil, domain.NewValidationError("toCity", "is required")
	case strings.EqualFold(from, to):
		return nil, domain.NewValidationError("toCity", "must differ from fromCity")
	case code == "":
		return nil, domain.NewValidationError("flightCode", "is required")
	case duration == "":
		return nil, domain.NewValidationError("duration", "is required")
	case in.Capacity < 0:
		return nil, domain.NewValidationError("capacity", "must not be negative")
	}

	day, err := time.Parse(domain.DateLayout, strings.TrimSpace(in.FlightDate))
	if err != nil {
		return nil, domain.NewValidationError("flightDate", "must be YYYY-MM-DD")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || !price.IsPositive() {
		return nil, domain.NewValidationError("price", "must be a positive decimal")
	}
	if price.GreaterThanOrEqual(domain.MaxFlightPrice) {
		return nil, domain.NewValidationError("price", "must be less than "+domain.MaxFlightPrice.String())
	}
	if !price.Equal(price.Round(2)) {
		return nil, domain.NewValidationError("price", "must have at most 2 fractional digits")
	}

	direct := true
	if in.IsDirect != nil {
		direct = *in.IsDirect
	}
	return &domain.Flight{
		FromCity:   from,
		ToCity:     to,
		FlightDate: day,
		FlightCode: code,
		Duration:   duration,
		Price:      price,
		Capacity:   in.Capacity,
		IsDirect:   direct,
	}, nil
}

var _ FlightUseCase = (*FlightService)(nil)
