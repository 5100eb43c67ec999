package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewFlightRepository(pool))
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewProfileRepository(pool))
	assert.NotNil(t, NewLedger(pool))
}

func TestBuildSearchFilter_Empty(t *testing.T) {
	where, args := buildSearchFilter(FlightQuery{Limit: 20})
	assert.Equal(t, "", where)
	assert.Empty(t, args)
}

func TestBuildSearchFilter_AllFields(t *testing.T) {
	from := time.Date(2026, 5, 7, 15, 30, 0, 0, time.UTC)
	to := time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)

	where, args := buildSearchFilter(FlightQuery{
		FromCity:    "Istanbul",
		ToCity:      "Ankara",
		DateFrom:    &from,
		DateTo:      &to,
		MinCapacity: 2,
		DirectOnly:  true,
	})

	assert.Equal(t, " WHERE lower(from_city) = lower($1) AND lower(to_city) = lower($2) AND flight_date >= $3 AND flight_date <= $4 AND capacity >= $5 AND is_direct", where)
	assert.Equal(t, []any{
		"Istanbul",
		"Ankara",
		time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC),
		to,
		2,
	}, args)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, postgresSchema, "CHECK (capacity >= 0)")
	assert.Contains(t, postgresSchema, "CHECK (miles_balance >= 0)")
}
