package syncer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/logger"
	"go.uber.org/zap"
)

const enqueueTimeout = 5 * time.Second

// SyncRequest identifies the contact to mirror into the helpdesk
type SyncRequest struct {
	ContactID uuid.UUID
	Name      string
	Email     string
	Phone     string
}

// TaskStore is the outbox persistence used by the dispatcher and the worker
type TaskStore interface {
	Create(ctx context.Context, task *domain.HelpdeskSyncTask) error
	ClaimNextDue(ctx context.Context, now time.Time, lease time.Duration) (*domain.HelpdeskSyncTask, error)
	MarkDone(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id uuid.UUID, lastErr string) error
	Release(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Dispatcher turns contact changes into outbox rows and wakes the worker.
// It never blocks or fails its caller.
type Dispatcher struct {
	tasks   TaskStore
	enabled bool
	logger  *zap.Logger

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewDispatcher creates a dispatcher. With enabled false (no helpdesk access
// token) every call only logs a warning.
func NewDispatcher(tasks TaskStore, enabled bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		tasks:   tasks,
		enabled: enabled,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
}

// SyncContactAsync records the request in the background and returns at once
func (d *Dispatcher) SyncContactAsync(ctx context.Context, req SyncRequest) {
	if !d.enabled {
		d.logger.Warn("Helpdesk access token not configured, skipping contact sync",
			zap.String("contact_id", req.ContactID.String()),
		)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Panic while enqueuing helpdesk sync", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
		defer cancel()

		if err := d.enqueue(ctx, req); err != nil {
			d.logger.Warn("Failed to enqueue helpdesk sync",
				zap.String("contact_id", req.ContactID.String()),
				zap.String("phone", logger.MaskPhone(req.Phone)),
				zap.Error(err),
			)
			return
		}
		d.Kick()
	}()
}

func (d *Dispatcher) enqueue(ctx context.Context, req SyncRequest) error {
	task := &domain.HelpdeskSyncTask{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Status:      domain.SyncTaskPending,
		NextRetryAt: time.Now().UTC(),
	}
	if req.ContactID != uuid.Nil {
		id := req.ContactID
		task.ContactID = &id
	}
	return d.tasks.Create(ctx, task)
}

// Kick wakes the worker without waiting for it
func (d *Dispatcher) Kick() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled whenever new work was enqueued
func (d *Dispatcher) Wake() <-chan struct{} {
	return d.wake
}

// Wait blocks until every in-flight enqueue finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enabled reports whether requests are recorded at all
func (d *Dispatcher) Enabled() bool {
	return d.enabled
}
