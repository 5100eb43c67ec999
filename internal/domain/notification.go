package domain

import "time"

type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationMilesEarned      NotificationType = "MILES_EARNED"
	NotificationMilesUpdated     NotificationType = "MILES_UPDATED"
	NotificationWelcome          NotificationType = "WELCOME_EMAIL"
)

// Notification is the envelope handed to the notification transport and
// consumed by the mail worker.
type Notification struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	OccurredAt time.Time        `json:"occurred_at"`
}
