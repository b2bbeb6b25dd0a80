package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const defaultTick = time.Minute

// Pruner deletes expired and excess audit entries.
type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration, maxCount int) (services.PruneResult, error)
}

// Expirer deletes messages whose display window has ended.
type Expirer interface {
	ExpireMessages(ctx context.Context) (int64, error)
}

// Scheduler runs audit log and message cleanup on a cron schedule.
type Scheduler struct {
	pruner     Pruner
	expirer    Expirer
	schedule   cron.Schedule
	expression string
	maxAge     time.Duration
	maxCount   int

	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	nextRun time.Time
	done    chan struct{}
	stop    sync.Once
}

// NewScheduler parses expression as a standard five-field cron spec. expirer may be nil.
func NewScheduler(pruner Pruner, expirer Expirer, expression string, maxAge time.Duration, maxCount int) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", expression, err)
	}
	return &Scheduler{
		pruner:     pruner,
		expirer:    expirer,
		schedule:   schedule,
		expression: expression,
		maxAge:     maxAge,
		maxCount:   maxCount,
		tick:       defaultTick,
		now:        time.Now,
		done:       make(chan struct{}),
	}, nil
}

// NextRun is when the next cleanup is due.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// Run checks for a due cleanup every tick until ctx ends or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.nextRun = s.schedule.Next(s.now())
	s.mu.Unlock()
	log.Info().Str("schedule", s.expression).Time("next_run", s.NextRun()).Msg("Starting log cleanup scheduler")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping log cleanup scheduler")
			return
		case <-s.done:
			log.Info().Msg("Stopping log cleanup scheduler")
			return
		case <-ticker.C:
			s.runIfDue(ctx)
		}
	}
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.stop.Do(func() { close(s.done) })
}

// runIfDue prunes when the next run time has passed, then schedules the following one.
func (s *Scheduler) runIfDue(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	due := !now.Before(s.nextRun)
	if due {
		s.nextRun = s.schedule.Next(now)
	}
	s.mu.Unlock()
	if !due {
		return
	}
	s.RunOnce(ctx)
}

// RunOnce prunes the audit log and expires ended messages immediately.
// A failure in one step does not skip the other.
func (s *Scheduler) RunOnce(ctx context.Context) {
	res, err := s.pruner.Prune(ctx, s.maxAge, s.maxCount)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled log cleanup failed")
	} else {
		log.Info().
			Int64("expired", res.Expired).
			Int64("excess", res.Excess).
			Time("next_run", s.NextRun()).
			Msg("Scheduled log cleanup finished")
	}

	if s.expirer == nil {
		return
	}
	n, err := s.expirer.ExpireMessages(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled message cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Expired messages removed")
	}
}
