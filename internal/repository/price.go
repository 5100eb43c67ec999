package repository

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

func setPrice(f *domain.Flight, raw string) error {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse price %q of flight %d: %w", raw, f.ID, err)
	}
	f.Price = price
	return nil
}
