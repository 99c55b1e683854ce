package services

import (
	"context"
	"log/slog"
	"time"

	"eventhub/internal/clock"
	"eventhub/internal/domain"
)

// LifecycleService completes events whose date has passed. It runs on the server,
// once at startup and then on every tick.
type LifecycleService struct {
	eventRepo domain.EventRepository
	notifier  domain.NotificationService
	clock     clock.Clock
	logger    *slog.Logger
	interval  time.Duration
}

// NewLifecycleService creates a LifecycleService. notifier may be nil.
func NewLifecycleService(eventRepo domain.EventRepository, notifier domain.NotificationService, clk clock.Clock, logger *slog.Logger, interval time.Duration) *LifecycleService {
	return &LifecycleService{
		eventRepo: eventRepo,
		notifier:  notifier,
		clock:     clk,
		logger:    logger,
		interval:  interval,
	}
}

// RunOnce performs a single sweep. Failures on individual events are logged and
// reported in the summary; they are retried on the next sweep.
func (s *LifecycleService) RunOnce(ctx context.Context) (domain.LifecycleSummary, error) {
	summary := domain.LifecycleSummary{Completed: []string{}, Failed: []string{}}
	from := domain.CompletableStatuses()

	events, err := s.eventRepo.ListByStatus(ctx, from...)
	if err != nil {
		return summary, err
	}
	now := s.clock.Now()
	for _, ev := range events {
		summary.Checked++
		due, err := ev.ShouldComplete(now)
		if err != nil {
			s.logger.WarnContext(ctx, "lifecycle: skip event", "event_id", ev.ID, "date", ev.Date, "err", err)
			summary.Failed = append(summary.Failed, ev.ID)
			continue
		}
		if !due {
			continue
		}
		changed, err := s.eventRepo.UpdateStatus(ctx, ev.ID, from, domain.StatusCompleted)
		if err != nil {
			s.logger.ErrorContext(ctx, "lifecycle: complete event", "event_id", ev.ID, "err", err)
			summary.Failed = append(summary.Failed, ev.ID)
			continue
		}
		if !changed {
			// Another sweep or an organizer got there first.
			continue
		}
		summary.Completed = append(summary.Completed, ev.ID)
		ev.Status = domain.StatusCompleted
		if s.notifier != nil {
			if err := s.notifier.EventCompleted(ctx, ev); err != nil {
				s.logger.WarnContext(ctx, "lifecycle: notify organizer", "event_id", ev.ID, "err", err)
			}
		}
	}
	if len(summary.Completed) > 0 || len(summary.Failed) > 0 {
		s.logger.InfoContext(ctx, "lifecycle sweep",
			"checked", summary.Checked,
			"completed", len(summary.Completed),
			"failed", len(summary.Failed),
		)
	}
	return summary, nil
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (s *LifecycleService) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *LifecycleService) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "lifecycle sweep failed", "err", err)
	}
}
