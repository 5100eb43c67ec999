package domain

import (
	"net/mail"
	"strings"
	"time"
)

const (
	DefaultMembershipTier = "Classic"
	GuestMembershipTier   = "Guest"
)

type UserProfile struct {
	Email          string    `json:"email"`
	MilesBalance   int64     `json:"milesBalance"`
	MembershipTier string    `json:"membershipTier"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NormalizeEmail trims and lowercases an address and checks it is a bare, well-formed address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", NewValidationError("email", "is not a valid address")
	}
	return email, nil
}
