package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncTaskRepository is the outbox of pending helpdesk contact syncs
type SyncTaskRepository struct {
	db *gorm.DB
}

func NewSyncTaskRepository(db *gorm.DB) *SyncTaskRepository {
	return &SyncTaskRepository{db: db}
}

func (r *SyncTaskRepository) Create(ctx context.Context, task *domain.HelpdeskSyncTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *SyncTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.HelpdeskSyncTask, error) {
	var task domain.HelpdeskSyncTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ClaimNextDue atomically claims one due task, marks it PROCESSING and
// increments its attempt counter. A PROCESSING task whose claim is older than
// lease is claimed again; its worker stopped before recording a result.
// Returns (nil, nil) when nothing is due.
func (r *SyncTaskRepository) ClaimNextDue(ctx context.Context, now time.Time, lease time.Duration) (*domain.HelpdeskSyncTask, error) {
	var claimed *domain.HelpdeskSyncTask
	now = now.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("(status IN ? AND next_retry_at <= ?) OR (status = ? AND claimed_at <= ?)",
			[]domain.SyncTaskStatus{domain.SyncTaskPending, domain.SyncTaskFailed}, now,
			domain.SyncTaskProcessing, now.Add(-lease),
		).
			Order("next_retry_at ASC").
			Order("created_at ASC")
		query = LockRows(query, clause.LockingStrengthUpdate, clause.LockingOptionsSkipLocked)

		var task domain.HelpdeskSyncTask
		if err := query.First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		result := tx.Model(&domain.HelpdeskSyncTask{}).
			Where("id = ? AND status = ?", task.ID, task.Status).
			Updates(map[string]interface{}{
				"status":     domain.SyncTaskProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"claimed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// claimed by another worker between select and update
			return nil
		}

		task.Status = domain.SyncTaskProcessing
		task.Attempts++
		task.ClaimedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkDone records a successful delivery
func (r *SyncTaskRepository) MarkDone(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.HelpdeskSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.SyncTaskDone,
			"processed_at": at.UTC(),
			"last_error":   "",
		}).Error
}

// MarkFailed schedules another attempt at nextRetryAt
func (r *SyncTaskRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string, nextRetryAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.HelpdeskSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.SyncTaskFailed,
			"last_error":    lastErr,
			"next_retry_at": nextRetryAt.UTC(),
		}).Error
}

// Release hands a claimed task back as PENDING without counting the attempt
func (r *SyncTaskRepository) Release(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.HelpdeskSyncTask{}).
		Where("id = ? AND status = ?", id, domain.SyncTaskProcessing).
		Updates(map[string]interface{}{
			"status":        domain.SyncTaskPending,
			"attempts":      gorm.Expr("CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END"),
			"next_retry_at": at.UTC(),
			"claimed_at":    nil,
		}).Error
}

// MarkDead stops retrying a task
func (r *SyncTaskRepository) MarkDead(ctx context.Context, id uuid.UUID, lastErr string) error {
	return r.db.WithContext(ctx).Model(&domain.HelpdeskSyncTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.SyncTaskDead,
			"last_error": lastErr,
		}).Error
}

// CountByStatus reports the outbox depth per status
func (r *SyncTaskRepository) CountByStatus(ctx context.Context) (map[domain.SyncTaskStatus]int64, error) {
	type result struct {
		Status domain.SyncTaskStatus
		Count  int64
	}
	var results []result

	err := r.db.WithContext(ctx).Model(&domain.HelpdeskSyncTask{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.SyncTaskStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}
