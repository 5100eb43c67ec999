// Package accrual credits miles for flown bookings.
//
// A booking is credited in the same transaction that moves it from CONFIRMED
// to COMPLETED, and the transition only succeeds once. Re-running the job over
// the same day, or overlapping runs, therefore never credit a booking twice.
package accrual

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/metrics"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/repository"
)

type Report struct {
	Flights       int   `json:"flights"`
	Completed     int   `json:"completed"`
	Credited      int   `json:"credited"`
	Guests        int   `json:"guests"`
	Skipped       int   `json:"skipped"`
	Failed        int   `json:"failed"`
	MilesCredited int64 `json:"milesCredited"`
}

type Job struct {
	flights      repository.FlightRepository
	bookings     repository.BookingRepository
	ledger       repository.Ledger
	notifier     notification.Notifier
	rates        domain.MilesRates
	includeToday bool
	metrics      *metrics.Metrics
	now          func() time.Time
}

type JobOption func(*Job)

// WithIncludeToday makes flights dated today eligible, not only past ones.
func WithIncludeToday(include bool) JobOption {
	return func(j *Job) {
		j.includeToday = include
	}
}

func WithMetrics(m *metrics.Metrics) JobOption {
	return func(j *Job) {
		j.metrics = m
	}
}

func NewJob(
	flights repository.FlightRepository,
	bookings repository.BookingRepository,
	ledger repository.Ledger,
	notifier notification.Notifier,
	rates domain.MilesRates,
	opts ...JobOption,
) *Job {
	job := &Job{
		flights:  flights,
		bookings: bookings,
		ledger:   ledger,
		notifier: notifier,
		rates:    rates,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(job)
	}
	return job
}

// Run processes every eligible flight that still has CONFIRMED bookings,
// including flights missed by earlier runs. A failing booking is logged and
// counted; the rest of the batch continues.
func (j *Job) Run(ctx context.Context, today time.Time) (Report, error) {
	var report Report

	flights, err := j.flights.ListDueForAccrual(ctx, domain.Day(today), j.includeToday)
	if err != nil {
		return report, fmt.Errorf("list flights due for accrual: %w", err)
	}

	for i := range flights {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		flight := &flights[i]
		report.Flights++

		bookings, err := j.bookings.ListConfirmedByFlight(ctx, flight.ID)
		if err != nil {
			log.Printf("accrual: failed to list bookings of flight %d: %v", flight.ID, err)
			report.Failed++
			continue
		}
		earned, err := j.rates.EarnedMiles(flight.Price)
		if err != nil {
			log.Printf("accrual: flight %s left unprocessed: %v", flight.FlightCode, err)
			report.Failed += len(bookings)
			continue
		}

		for _, b := range bookings {
			result, err := j.completeBooking(ctx, b, earned)
			if err != nil {
				log.Printf("accrual: booking %d on flight %s failed: %v", b.ID, flight.FlightCode, err)
				report.Failed++
				j.metrics.AccrualBooking("failed")
				continue
			}
			j.metrics.AccrualBooking(string(result))

			switch result {
			case resultSkipped:
				report.Skipped++
				continue
			case resultGuest:
				log.Printf("accrual: booking %d by %s has no loyalty profile, nothing credited", b.ID, b.Email)
				report.Guests++
			case resultCredited:
				report.Credited++
				report.MilesCredited += earned
				j.notifier.Notify(ctx, b.Email, domain.NotificationMilesEarned,
					fmt.Sprintf("Thank you for flying %s from %s to %s. %d miles were added to your account.",
						flight.FlightCode, flight.FromCity, flight.ToCity, earned))
			}
			report.Completed++
		}
	}

	log.Printf("accrual: run for %s done: %+v", domain.Day(today).Format(domain.DateLayout), report)
	return report, nil
}

type bookingResult string

const (
	resultCredited bookingResult = "credited"
	resultNoMiles  bookingResult = "completed"
	resultGuest    bookingResult = "guest"
	resultSkipped  bookingResult = "skipped"
)

func (j *Job) completeBooking(ctx context.Context, b domain.Booking, earned int64) (bookingResult, error) {
	result := resultSkipped
	err := j.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		changed, err := tx.CompleteBooking(ctx, b.ID, j.now())
		if err != nil {
			return err
		}
		if !changed {
			result = resultSkipped
			return nil
		}
		if earned <= 0 {
			result = resultNoMiles
			return nil
		}

		if _, err := tx.AdjustMiles(ctx, b.Email, earned); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result = resultGuest
				return nil
			}
			return err
		}
		result = resultCredited
		return nil
	})
	if err != nil {
		return "", &domain.TxError{Op: "complete booking", Err: err}
	}
	return result, nil
}
