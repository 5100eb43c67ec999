package accrual

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

const lockName = "accrual"

// ErrLocked is returned when another worker holds the accrual lock.
var ErrLocked = errors.New("accrual already running elsewhere")

type Runner interface {
	Run(ctx context.Context, today time.Time) (Report, error)
}

// Locker is a cross-process mutex, implemented by the Redis cache.
type Locker interface {
	AcquireJobLock(ctx context.Context, job string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseJobLock(ctx context.Context, job, token string) error
}

// Scheduler runs the job once a day at a fixed local wall-clock time.
type Scheduler struct {
	job          Runner
	hour, minute int
	locker       Locker
	lockTTL      time.Duration
	now          func() time.Time
}

func NewScheduler(job Runner, hour, minute int, locker Locker, lockTTL time.Duration) *Scheduler {
	return &Scheduler{
		job:     job,
		hour:    hour,
		minute:  minute,
		locker:  locker,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// RunOnce runs the job for today under the distributed lock, if one is configured.
func (s *Scheduler) RunOnce(ctx context.Context, today time.Time) (Report, error) {
	if s.locker != nil {
		token, ok, err := s.locker.AcquireJobLock(ctx, lockName, s.lockTTL)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			return Report{}, ErrLocked
		}
		defer func() {
			if err := s.locker.ReleaseJobLock(context.WithoutCancel(ctx), lockName, token); err != nil {
				log.Printf("accrual: failed to release lock: %v", err)
			}
		}()
	}
	return s.job.Run(ctx, today)
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := nextRun(s.now(), s.hour, s.minute)
		log.Printf("accrual: next run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		today := domain.Day(s.now())
		if _, err := s.RunOnce(ctx, today); err != nil {
			if errors.Is(err, ErrLocked) {
				log.Printf("accrual: skipped, %v", err)
				continue
			}
			log.Printf("accrual: run failed: %v", err)
		}
	}
}

func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
