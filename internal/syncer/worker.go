package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/helpdesk"
	"github.com/tork-crm/tork-api/internal/logger"
	"github.com/tork-crm/tork-api/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrNoWork is returned by ProcessOnce when nothing is due
	ErrNoWork = errors.New("no due sync tasks")

	// ErrDeliveryFailed wraps every failed helpdesk call recorded on a task
	ErrDeliveryFailed = errors.New("external sync failed")

	// ErrInterrupted is returned when the worker stopped during a delivery.
	// The task is released for an immediate retry.
	ErrInterrupted = errors.New("sync task interrupted")
)

// markTimeout bounds the status write that follows a delivery, which runs
// even when the worker is stopping
const markTimeout = 5 * time.Second

// ContactUpserter mirrors one contact into the helpdesk
type ContactUpserter interface {
	UpsertContact(ctx context.Context, payload helpdesk.ContactPayload) (*helpdesk.Contact, error)
}

type WorkerConfig struct {
	Interval    time.Duration
	Burst       int
	IdleDelay   time.Duration
	MaxAttempts int
	CallTimeout time.Duration
	ClaimLease  time.Duration
	Backoff     BackoffConfig
}

// WorkerConfigFromConfig builds the worker settings from the sync and helpdesk sections
func WorkerConfigFromConfig(syncCfg *config.SyncConfig, helpdeskCfg *config.HelpdeskConfig) WorkerConfig {
	return WorkerConfig{
		Interval:    syncCfg.WorkerIntervalDuration(),
		Burst:       syncCfg.Burst,
		IdleDelay:   syncCfg.IdleDelayDuration(),
		MaxAttempts: syncCfg.MaxAttempts,
		CallTimeout: helpdeskCfg.TimeoutDuration() * time.Duration(helpdeskCfg.MaxRetries+1),
		ClaimLease:  syncCfg.ClaimLeaseDuration(),
		Backoff:     BackoffFromConfig(syncCfg),
	}
}

// Worker delivers outbox rows to the helpdesk
type Worker struct {
	tasks    TaskStore
	helpdesk ContactUpserter
	cfg      WorkerConfig
	logger   *zap.Logger
	rng      *rand.Rand
	now      func() time.Time
}

func NewWorker(tasks TaskStore, client ContactUpserter, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = 800 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	// a live delivery must finish and be recorded before its lease expires
	if minLease := cfg.CallTimeout + markTimeout; cfg.ClaimLease < minLease {
		cfg.ClaimLease = 2 * minLease
	}
	return &Worker{
		tasks:    tasks,
		helpdesk: client,
		cfg:      cfg,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProcessOnce claims and delivers a single due task. It reports whether a
// task was claimed; a delivery error is returned after the task was marked.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	task, err := w.tasks.ClaimNextDue(ctx, w.now(), w.cfg.ClaimLease)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync task: %w", err)
	}
	if task == nil {
		return false, ErrNoWork
	}

	log := logger.WithSyncTask(w.logger, task.ID.String(), task.Attempts)

	callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	_, deliverErr := w.helpdesk.UpsertContact(callCtx, helpdesk.ContactPayload{
		Name:        task.Name,
		Email:       task.Email,
		PhoneNumber: task.Phone,
	})
	cancel()

	// the outcome is recorded even when ctx was canceled mid-call
	markCtx, cancelMark := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancelMark()

	if deliverErr == nil {
		metrics.RecordHelpdeskSync("done")
		if err := w.tasks.MarkDone(markCtx, task.ID, w.now()); err != nil {
			return true, fmt.Errorf("failed to mark sync task done: %w", err)
		}
		log.Debug("Contact mirrored to helpdesk")
		return true, nil
	}

	if ctx.Err() != nil {
		log.Info("Helpdesk sync interrupted, releasing task", zap.Error(deliverErr))
		if err := w.tasks.Release(markCtx, task.ID, w.now()); err != nil {
			return true, fmt.Errorf("failed to release sync task: %w", err)
		}
		return true, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	deliverErr = fmt.Errorf("%w: %w", ErrDeliveryFailed, deliverErr)

	if task.Attempts >= w.cfg.MaxAttempts || errors.Is(deliverErr, helpdesk.ErrNotConfigured) {
		metrics.RecordHelpdeskSync("dead")
		log.Error("Helpdesk sync gave up", zap.Error(deliverErr))
		if err := w.tasks.MarkDead(markCtx, task.ID, deliverErr.Error()); err != nil {
			return true, fmt.Errorf("failed to mark sync task dead: %w", err)
		}
		return true, deliverErr
	}

	next := NextRetryAt(w.now(), task.Attempts, w.cfg.Backoff, w.rng)
	metrics.RecordHelpdeskSync("retry")
	log.Warn("Helpdesk sync failed, will retry",
		zap.Time("next_retry_at", next),
		zap.String("phone", logger.MaskPhone(task.Phone)),
		zap.Error(deliverErr),
	)
	if err := w.tasks.MarkFailed(markCtx, task.ID, deliverErr.Error(), next); err != nil {
		return true, fmt.Errorf("failed to mark sync task failed: %w", err)
	}
	return true, deliverErr
}

// Run processes due tasks until ctx is canceled. A signal on wake skips the
// idle delay so fresh work is picked up right away.
func (w *Worker) Run(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("Helpdesk sync worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("burst", w.cfg.Burst),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Helpdesk sync worker stopping")
			return
		case <-wake:
		case <-ticker.C:
		}

		if w.drain(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Helpdesk sync worker stopping")
			return
		case <-wake:
		case <-time.After(w.cfg.IdleDelay):
		}
	}
}

// drain processes up to Burst tasks and reports whether any was claimed
func (w *Worker) drain(ctx context.Context) bool {
	processedAny := false
	for i := 0; i < w.cfg.Burst && ctx.Err() == nil; i++ {
		claimed, err := w.ProcessOnce(ctx)
		if claimed {
			processedAny = true
		}
		if err != nil {
			if errors.Is(err, ErrNoWork) {
				break
			}
			if !claimed {
				w.logger.Error("Helpdesk sync worker error", zap.Error(err))
				break
			}
		}
	}
	return processedAny
}
