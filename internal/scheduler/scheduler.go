package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"

	"golang.org/x/sync/errgroup"
)

// Handler resolves a mission once its termination date is reached. It must
// be a no-op for missions that are already resolved.
type Handler interface {
	Resolve(ctx context.Context, missionID int64) error
}

// Scheduler arms mission resolutions on a Queue. The missions table stays the
// source of truth: Recover and the reconcile sweep re-arm anything the queue
// lost.
type Scheduler struct {
	queue  Queue
	store  store.Store
	cfg    config.SchedulerConfig
	logger *slog.Logger
	now    func() time.Time
	wake   chan struct{}
}

func New(queue Queue, s store.Store, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	logger.Debug("Initializing mission scheduler",
		"workers", cfg.Workers,
		"poll_interval", cfg.PollInterval,
		"reconcile_interval", cfg.ReconcileInterval,
		"max_attempts", cfg.MaxAttempts)

	return &Scheduler{
		queue:  queue,
		store:  s,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		wake:   make(chan struct{}, 1),
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) Queue() Queue {
	return s.queue
}

func (s *Scheduler) Schedule(ctx context.Context, missionID int64, fireAt time.Time) error {
	if err := s.queue.Push(ctx, Entry{MissionID: missionID, FireAt: fireAt}); err != nil {
		s.logger.Error("Failed to arm mission", "mission_id", missionID, "error", err)
		return err
	}
	s.logger.Debug("Mission armed", "mission_id", missionID, "fire_at", fireAt)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *Scheduler) Cancel(ctx context.Context, missionID int64) error {
	if err := s.queue.Remove(ctx, missionID); err != nil {
		s.logger.Error("Failed to disarm mission", "mission_id", missionID, "error", err)
		return err
	}
	s.logger.Debug("Mission disarmed", "mission_id", missionID)
	return nil
}

func (s *Scheduler) pending(ctx context.Context) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		missions, err = tx.Missions().FindPending(ctx)
		return err
	})
	return missions, err
}

// Recover arms every unresolved mission with a termination date, buried ones
// included. It runs on startup before the workers.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	logger := s.logger.With("component", "scheduler", "operation", "recover")

	missions, err := s.pending(ctx)
	if err != nil {
		logger.Error("Failed to load pending missions", "error", err)
		return 0, err
	}

	for _, m := range missions {
		if err := s.queue.Push(ctx, Entry{MissionID: m.ID, FireAt: *m.TerminationDate}); err != nil {
			logger.Error("Failed to re-arm mission", "mission_id", m.ID, "error", err)
			return 0, err
		}
	}

	logger.Info("Pending missions recovered", "count", len(missions))
	return len(missions), nil
}

// Reconcile re-arms overdue unresolved missions missing from the queue,
// except missions buried after exhausting their attempts.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	logger := s.logger.With("component", "scheduler", "operation", "reconcile")

	missions, err := s.pending(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	rearmed, buried := 0, 0
	for _, m := range missions {
		if m.TerminationDate.After(now) {
			continue
		}
		queued, err := s.queue.Contains(ctx, m.ID)
		if err != nil {
			return rearmed, err
		}
		if queued {
			continue
		}
		dead, err := s.queue.Buried(ctx, m.ID)
		if err != nil {
			return rearmed, err
		}
		if dead {
			buried++
			continue
		}
		if err := s.queue.Push(ctx, Entry{MissionID: m.ID, FireAt: *m.TerminationDate}); err != nil {
			return rearmed, err
		}
		rearmed++
	}

	if rearmed > 0 {
		logger.Warn("Re-armed missions missing from the queue", "count", rearmed)
	}
	if buried > 0 {
		logger.Warn("Overdue missions left buried after failed resolutions", "count", buried)
	}
	return rearmed, nil
}

// RunDue resolves every entry due now on the calling goroutine.
func (s *Scheduler) RunDue(ctx context.Context, h Handler) (int, error) {
	fired := 0
	for {
		due, err := s.queue.PopDue(ctx, s.now(), 1)
		if err != nil {
			return fired, err
		}
		if len(due) == 0 {
			return fired, nil
		}
		s.fire(ctx, h, due[0])
		fired++
	}
}

// Run starts the worker pool and the reconcile sweep, and blocks until ctx
// is cancelled or a queue error stops a worker.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	logger := s.logger.With("component", "scheduler", "operation", "run")
	logger.Info("Mission scheduler started", "workers", s.cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			return s.work(ctx, h, worker)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Reconcile sweep failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	logger.Info("Mission scheduler stopped")
	return err
}

func (s *Scheduler) work(ctx context.Context, h Handler, worker int) error {
	logger := s.logger.With("component", "scheduler", "worker", worker)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunDue(ctx, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("Failed to poll mission queue", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, h Handler, e Entry) {
	logger := s.logger.With("component", "scheduler", "operation", "fire", "mission_id", e.MissionID, "attempt", e.Attempt)

	err := h.Resolve(ctx, e.MissionID)
	if err == nil {
		logger.Debug("Mission fired")
		return
	}

	if errors.Is(err, errors.ErrorTypeNotFound) {
		logger.Warn("Dropping entry for a missing mission", "error", err)
		return
	}
	if ctx.Err() != nil {
		logger.Warn("Mission resolution interrupted by shutdown, it will be recovered on restart", "error", err)
		return
	}

	attempt := e.Attempt + 1
	if attempt >= s.cfg.MaxAttempts {
		logger.Error("Mission resolution failed, giving up", "error", err)
		if err := s.queue.Bury(ctx, e.MissionID); err != nil {
			logger.Error("Failed to bury mission", "error", err)
		}
		return
	}

	retry := Entry{
		MissionID: e.MissionID,
		FireAt:    s.now().Add(s.cfg.RetryBackoff * time.Duration(attempt)),
		Attempt:   attempt,
	}
	if err := s.queue.Push(ctx, retry); err != nil {
		logger.Error("Failed to re-queue mission", "error", err)
		return
	}
	logger.Warn("Mission resolution failed, retrying", "error", err, "retry_at", retry.FireAt)
}
