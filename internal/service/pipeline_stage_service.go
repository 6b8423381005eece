package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/mapper"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultStageColor = "#6B7280"

type PipelineStageService struct {
	stageRepo *repository.PipelineStageRepository
	dealRepo  *repository.DealRepository
	logger    *zap.Logger
	db        *gorm.DB
}

func NewPipelineStageService(
	stageRepo *repository.PipelineStageRepository,
	dealRepo *repository.DealRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *PipelineStageService {
	return &PipelineStageService{
		stageRepo: stageRepo,
		dealRepo:  dealRepo,
		logger:    logger,
		db:        db,
	}
}

func (s *PipelineStageService) List(ctx context.Context) ([]domain.PipelineStageDTO, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	dtos := make([]domain.PipelineStageDTO, len(stages))
	for i := range stages {
		dtos[i] = mapper.ToPipelineStageDTO(&stages[i])
	}
	return dtos, nil
}

// Create adds a stage. The slug is stored upper-case and must be unique;
// without an explicit order the stage goes last.
func (s *PipelineStageService) Create(ctx context.Context, req *domain.CreatePipelineStageRequest) (*domain.PipelineStageDTO, error) {
	stage := &domain.PipelineStage{
		Name:  strings.TrimSpace(req.Name),
		Slug:  NormalizeSlug(req.Slug),
		Color: req.Color,
		Type:  req.Type,
	}
	if stage.Slug == "" || stage.Name == "" {
		return nil, fmt.Errorf("%w: name and slug are required", ErrInvalidInput)
	}
	if stage.Color == "" {
		stage.Color = defaultStageColor
	}
	if stage.Type == "" {
		stage.Type = domain.StageTypeNeutral
	}

	if req.Order != nil {
		stage.SortOrder = *req.Order
	} else {
		next, err := s.stageRepo.NextSortOrder(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compute stage order: %w", err)
		}
		stage.SortOrder = next
	}

	if err := s.stageRepo.Create(ctx, stage); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: stage %s already exists", ErrConflict, stage.Slug)
		}
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	s.logger.Info("Pipeline stage created", zap.String("slug", stage.Slug))
	dto := mapper.ToPipelineStageDTO(stage)
	return &dto, nil
}

// Update changes name, color, order or type. The slug is immutable since
// deals reference it.
func (s *PipelineStageService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdatePipelineStageRequest) (*domain.PipelineStageDTO, error) {
	stage, err := s.getStage(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		stage.Name = name
	}
	if req.Color != nil {
		stage.Color = *req.Color
	}
	if req.Order != nil {
		stage.SortOrder = *req.Order
	}
	if req.Type != nil {
		if !req.Type.IsValid() {
			return nil, fmt.Errorf("%w: unknown stage type", ErrInvalidInput)
		}
		stage.Type = *req.Type
	}

	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	dto := mapper.ToPipelineStageDTO(stage)
	return &dto, nil
}

// Delete removes a stage that no deal uses. The stage row stays locked from
// the usage check to the delete, so no lead or move can land in it meanwhile.
func (s *PipelineStageService) Delete(ctx context.Context, id uuid.UUID) error {
	var slug string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage, err := s.stageRepo.WithTx(tx).LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock stage: %w", err)
		}
		slug = stage.Slug

		inUse, err := s.dealRepo.WithTx(tx).CountByStage(ctx, stage.Slug)
		if err != nil {
			return fmt.Errorf("failed to count deals in stage: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("%w: %d deals are in stage %s", ErrConflict, inUse, stage.Slug)
		}

		if err := s.stageRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Pipeline stage deleted", zap.String("slug", slug))
	return nil
}

func (s *PipelineStageService) getStage(ctx context.Context, id uuid.UUID) (*domain.PipelineStage, error) {
	stage, err := s.stageRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return stage, nil
}

// NormalizeSlug upper-cases the slug and joins words with underscores
func NormalizeSlug(slug string) string {
	return strings.Join(strings.Fields(strings.ToUpper(slug)), "_")
}
