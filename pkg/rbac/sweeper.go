package rbac

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/propdesk/propdesk/pkg/observability"
)

// Sweeper periodically deletes expired role assignments. Expired
// assignments are already excluded from evaluation; the sweeper only
// reclaims the rows.
type Sweeper struct {
	store    *Store
	logger   *observability.Logger
	schedule string
	cron     *cron.Cron
	metrics  *observability.Metrics
}

// NewSweeper creates a sweeper with the given cron schedule
func NewSweeper(store *Store, logger *observability.Logger, schedule string) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// SetMetrics enables sweep and reap counters
func (s *Sweeper) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Start schedules the sweep job and starts the scheduler
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.WithError(err).Error("Expired assignment sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Assignment sweeper started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep deletes all assignments whose expiry has passed
func (s *Sweeper) Sweep(ctx context.Context) error {
	deleted, err := s.store.DeleteExpiredAssignments(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ExpiredSweepsTotal.Inc()
		s.metrics.ExpiredAssignmentsReaped.Add(float64(deleted))
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("Removed expired role assignments")
	}
	return nil
}
