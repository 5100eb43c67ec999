package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentMiles PaymentMethod = "MILES"
)

type Booking struct {
	ID            int64         `json:"id"`
	Reference     string        `json:"reference"`
	FlightID      int64         `json:"flightId"`
	Email         string        `json:"email"`
	Passengers    int           `json:"passengers"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	MilesSpent    int64         `json:"milesSpent"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

// BookingWithFlight is a booking joined with the flight it references.
type BookingWithFlight struct {
	Booking
	Flight Flight `json:"flight"`
}
