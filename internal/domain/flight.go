package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for flight dates on the wire and in SQLite.
const DateLayout = "2006-01-02"

type Flight struct {
	ID         int64           `json:"id"`
	FromCity   string          `json:"fromCity"`
	ToCity     string          `json:"toCity"`
	FlightDate time.Time       `json:"flightDate"`
	FlightCode string          `json:"flightCode"`
	Duration   string          `json:"duration"`
	Price      decimal.Decimal `json:"price"`
	Capacity   int             `json:"capacity"`
	IsDirect   bool            `json:"isDirect"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FlightPage is one page of a flight search.
type FlightPage struct {
	Flights    []Flight `json:"flights"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
}
