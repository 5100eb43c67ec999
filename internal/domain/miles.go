package domain

import "github.com/shopspring/decimal"

// MaxFlightPrice is the exclusive upper bound of a ticket price, matching NUMERIC(10,2).
var MaxFlightPrice = decimal.NewFromInt(100_000_000)

// MilesRates holds the loyalty exchange constants. Bookings do not record the
// rate they were priced with, only the miles actually debited.
type MilesRates struct {
	// PerCurrencyUnit is how many miles buy one unit of ticket price.
	PerCurrencyUnit decimal.Decimal
	// AccrualRate is the share of the ticket price credited as miles after the flight.
	AccrualRate decimal.Decimal
}

func DefaultMilesRates() MilesRates {
	return MilesRates{
		PerCurrencyUnit: decimal.NewFromInt(10),
		AccrualRate:     decimal.RequireFromString("0.10"),
	}
}

// RequiredMiles rounds up so a fractional price is never undercharged.
func (r MilesRates) RequiredMiles(price decimal.Decimal, passengers int) (int64, error) {
	return toMiles(price.Mul(r.PerCurrencyUnit).Mul(decimal.NewFromInt(int64(passengers))).Ceil())
}

func (r MilesRates) EarnedMiles(price decimal.Decimal) (int64, error) {
	return toMiles(price.Mul(r.AccrualRate).Floor())
}

func toMiles(d decimal.Decimal) (int64, error) {
	if d.IsNegative() || !d.BigInt().IsInt64() {
		return 0, NewValidationError("price", "miles amount "+d.String()+" is out of range")
	}
	return d.IntPart(), nil
}
