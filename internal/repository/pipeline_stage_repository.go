package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PipelineStageRepository struct {
	db *gorm.DB
}

func NewPipelineStageRepository(db *gorm.DB) *PipelineStageRepository {
	return &PipelineStageRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *PipelineStageRepository) WithTx(tx *gorm.DB) *PipelineStageRepository {
	return &PipelineStageRepository{db: tx}
}

func (r *PipelineStageRepository) Create(ctx context.Context, stage *domain.PipelineStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

func (r *PipelineStageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	if err := r.db.WithContext(ctx).First(&stage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// LockByID loads the stage and holds it until the transaction ends. Deals
// are only assigned to stages read through GetBySlug or GetInitial, which
// share-lock the row, so a locked stage gains no new deals.
func (r *PipelineStageRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	err := LockRows(r.db.WithContext(ctx), clause.LockingStrengthUpdate).First(&stage, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// GetBySlug share-locks the stage row for the rest of the transaction
func (r *PipelineStageRepository) GetBySlug(ctx context.Context, slug string) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	if err := LockRows(r.db.WithContext(ctx), clause.LockingStrengthShare).Where("slug = ?", slug).First(&stage).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// List returns the stages in pipeline order
func (r *PipelineStageRepository) List(ctx context.Context) ([]domain.PipelineStage, error) {
	var stages []domain.PipelineStage
	err := r.db.WithContext(ctx).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&stages).Error
	return stages, err
}

// GetInitial returns the stage with the lowest sort order, share-locked
func (r *PipelineStageRepository) GetInitial(ctx context.Context) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	err := LockRows(r.db.WithContext(ctx), clause.LockingStrengthShare).
		Order("sort_order ASC").
		Order("created_at ASC").
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// NextSortOrder returns one past the current highest sort order
func (r *PipelineStageRepository) NextSortOrder(ctx context.Context) (int, error) {
	var maxOrder sql.NullInt64
	row := r.db.WithContext(ctx).Model(&domain.PipelineStage{}).
		Select("MAX(sort_order)").
		Row()
	if err := row.Scan(&maxOrder); err != nil {
		return 0, err
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

func (r *PipelineStageRepository) Update(ctx context.Context, stage *domain.PipelineStage) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

func (r *PipelineStageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.PipelineStage{}, "id = ?", id).Error
}
