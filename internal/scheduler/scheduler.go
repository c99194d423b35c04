// Package scheduler runs the portal's background jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/bank-portal/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CardExpirer marks lapsed cards as expired
type CardExpirer interface {
	ExpireCards(ctx context.Context, now time.Time) (int, error)
}

// Scheduler wraps a cron runner with the card expiry sweep
type Scheduler struct {
	cron    *cron.Cron
	cards   CardExpirer
	log     *logrus.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// New creates a scheduler; jobs run in UTC
func New(cards CardExpirer, log *logrus.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		cards:   cards,
		log:     log,
		metrics: m,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// ScheduleCardExpiry registers the sweep on a standard five-field cron expression
func (s *Scheduler) ScheduleCardExpiry(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.SweepExpiredCards(context.Background()) }); err != nil {
		return fmt.Errorf("invalid card expiry schedule %q: %w", schedule, err)
	}
	return nil
}

// SweepExpiredCards runs one sweep and returns how many cards were expired
func (s *Scheduler) SweepExpiredCards(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	n, err := s.cards.ExpireCards(ctx, start)
	if err != nil {
		s.log.WithError(err).Error("Card expiry sweep failed")
		s.count("error", 0)
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"expired":     n,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Card expiry sweep finished")
	s.count("ok", n)
	return n, nil
}

func (s *Scheduler) count(result string, expired int) {
	if s.metrics == nil {
		return
	}
	s.metrics.CardExpirySweeps.WithLabelValues(result).Inc()
	s.metrics.CardsExpired.Add(float64(expired))
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running job finished")
	}
}
