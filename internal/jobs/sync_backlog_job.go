package jobs

import (
	"context"
	"time"

	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/metrics"
	"go.uber.org/zap"
)

// SyncBacklogJobName is the scheduler name of the outbound sync queue check
const SyncBacklogJobName = "helpdesk_sync_backlog"

// SyncTaskCounter reports the helpdesk sync queue by status
type SyncTaskCounter interface {
	CountByStatus(ctx context.Context) (map[domain.SyncTaskStatus]int64, error)
}

var backlogStatuses = []domain.SyncTaskStatus{
	domain.SyncTaskPending,
	domain.SyncTaskProcessing,
	domain.SyncTaskFailed,
	domain.SyncTaskDone,
	domain.SyncTaskDead,
}

// SyncBacklogJob publishes the queue size and warns about contacts the
// helpdesk never received
type SyncBacklogJob struct {
	tasks   SyncTaskCounter
	logger  *zap.Logger
	timeout time.Duration
}

func NewSyncBacklogJob(tasks SyncTaskCounter, logger *zap.Logger, timeout time.Duration) *SyncBacklogJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncBacklogJob{
		tasks:   tasks,
		logger:  logger,
		timeout: timeout,
	}
}

func (j *SyncBacklogJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	counts, err := j.tasks.CountByStatus(ctx)
	if err != nil {
		j.logger.Error("failed to count helpdesk sync tasks", zap.Error(err))
		return
	}

	for _, status := range backlogStatuses {
		metrics.SetSyncBacklog(string(status), counts[status])
	}

	if dead := counts[domain.SyncTaskDead]; dead > 0 {
		j.logger.Warn("helpdesk sync tasks exhausted their retries",
			zap.Int64("dead", dead),
			zap.Int64("pending", counts[domain.SyncTaskPending]))
	}
}

// RegisterSyncBacklogJob adds the backlog check to the scheduler
func RegisterSyncBacklogJob(scheduler *Scheduler, tasks SyncTaskCounter, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewSyncBacklogJob(tasks, logger, timeout)
	return scheduler.AddJob(SyncBacklogJobName, cronExpr, job.Run)
}
