// Package jobs runs the scheduled booking lifecycle tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"cold-storage-marketplace/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// BookingCompleter flips confirmed bookings whose end date has passed to completed.
type BookingCompleter interface {
	CompleteEnded(ctx context.Context, asOf time.Time) (int64, error)
}

type Scheduler struct {
	sched    *cron.Cron
	bookings BookingCompleter
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

// NewScheduler registers the jobs without starting them.
func NewScheduler(cfg config.JobsConfig, bookings BookingCompleter) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("jobs.NewScheduler: location %q: %w", cfg.Location, err)
	}

	s := &Scheduler{
		sched:    cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
		bookings: bookings,
		location: loc,
		timeout:  time.Minute,
		now:      time.Now,
	}
	if _, err := s.sched.AddFunc(cfg.BookingCompletionSpec, s.CompleteEndedBookings); err != nil {
		return nil, fmt.Errorf("jobs.NewScheduler: booking completion spec %q: %w", cfg.BookingCompletionSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop waits for running jobs or until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.sched.Stop().Done():
	case <-ctx.Done():
	}
}

// CompleteEndedBookings completes every confirmed booking that ended before today
// in the scheduler's location.
func (s *Scheduler) CompleteEndedBookings() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	today := s.now().In(s.location)
	n, err := s.bookings.CompleteEnded(ctx, today)
	if err != nil {
		zap.L().Error("booking completion job failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("bookings completed", zap.Int64("count", n), zap.String("as_of", today.Format("2006-01-02")))
	}
}
