package jobs

import (
	"context"
	"time"

	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
)

// HelpdeskImportJobName is the scheduler name of the nightly contact import
const HelpdeskImportJobName = "helpdesk_import"

// ContactImporter pulls helpdesk contacts into the CRM
type ContactImporter interface {
	ImportContacts(ctx context.Context) (*domain.ImportResult, error)
}

// HelpdeskImportJob runs the same import as the admin endpoint, unattended
type HelpdeskImportJob struct {
	importer ContactImporter
	logger   *zap.Logger
	timeout  time.Duration
}

func NewHelpdeskImportJob(importer ContactImporter, logger *zap.Logger, timeout time.Duration) *HelpdeskImportJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HelpdeskImportJob{
		importer: importer,
		logger:   logger,
		timeout:  timeout,
	}
}

// Run executes one import. Failures are logged; the next tick tries again.
func (j *HelpdeskImportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.importer.ImportContacts(ctx)
	if err != nil {
		j.logger.Error("scheduled helpdesk import failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("scheduled helpdesk import completed",
		zap.Int("imported", result.Imported),
		zap.Int("total_scanned", result.TotalScanned),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
}

// RegisterHelpdeskImportJob adds the import job to the scheduler
func RegisterHelpdeskImportJob(scheduler *Scheduler, importer ContactImporter, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewHelpdeskImportJob(importer, logger, timeout)
	return scheduler.AddJob(HelpdeskImportJobName, cronExpr, job.Run)
}
