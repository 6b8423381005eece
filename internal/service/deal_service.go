package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/mapper"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DealService struct {
	dealRepo    *repository.DealRepository
	historyRepo *repository.DealStageHistoryRepository
	stageRepo   *repository.PipelineStageRepository
	logger      *zap.Logger
	db          *gorm.DB
}

func NewDealService(
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	stageRepo *repository.PipelineStageRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *DealService {
	return &DealService{
		dealRepo:    dealRepo,
		historyRepo: historyRepo,
		stageRepo:   stageRepo,
		logger:      logger,
		db:          db,
	}
}

func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	deal, err := s.getDeal(ctx, s.dealRepo, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

func (s *DealService) List(ctx context.Context, page, pageSize int, filters *repository.DealFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)

	deals, total, err := s.dealRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = mapper.ToDealDTO(&deals[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update edits the deal fields. Stage and contact are not editable here.
func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest) (*domain.DealDTO, error) {
	deal, err := s.getDeal(ctx, s.dealRepo, id)
	if err != nil {
		return nil, err
	}

	if !req.InsuranceType.IsValid() || !req.Priority.IsValid() || !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown insurance type, priority or status", ErrInvalidInput)
	}

	deal.Title = strings.TrimSpace(req.Title)
	deal.InsuranceType = req.InsuranceType
	deal.Priority = req.Priority
	deal.Status = req.Status

	deal.Value = decimal.NullDecimal{}
	if req.Value.Valid {
		if req.Value.Decimal.IsNegative() {
			return nil, fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
		}
		deal.Value = decimal.NewNullDecimal(req.Value.Decimal.Round(2))
	}

	deal.RenewalDate = nil
	if req.RenewalDate != nil && *req.RenewalDate != "" {
		date, err := time.Parse("2006-01-02", *req.RenewalDate)
		if err != nil {
			return nil, fmt.Errorf("%w: renewalDate must be YYYY-MM-DD", ErrInvalidInput)
		}
		deal.RenewalDate = &date
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// MoveStage moves a deal to another configured stage and records the
// transition. Any stage may follow any other, including WON and LOST.
func (s *DealService) MoveStage(ctx context.Context, id uuid.UUID, req *domain.MoveDealStageRequest) (*domain.DealDTO, error) {
	target := strings.ToUpper(strings.TrimSpace(req.Stage))
	changedByID, changedByName := auth.Actor(ctx)

	var deal *domain.Deal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if deal, err = s.getDeal(ctx, s.dealRepo.WithTx(tx), id); err != nil {
			return err
		}

		if _, err := s.stageRepo.WithTx(tx).GetBySlug(ctx, target); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, target)
			}
			return fmt.Errorf("failed to load stage: %w", err)
		}

		if deal.Stage == target {
			return nil
		}

		from := deal.Stage
		if err := s.dealRepo.WithTx(tx).UpdateStage(ctx, id, target); err != nil {
			return fmt.Errorf("failed to update deal stage: %w", err)
		}
		deal.Stage = target

		return s.historyRepo.WithTx(tx).Create(ctx, &domain.DealStageHistory{
			DealID:        id,
			FromStage:     &from,
			ToStage:       target,
			ChangedByID:   changedByID,
			ChangedByName: changedByName,
			Notes:         req.Notes,
			ChangedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deal stage changed",
		zap.String("deal_id", id.String()),
		zap.String("stage", target),
		zap.String("changed_by", changedByName),
	)

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// GetStageHistory returns the transitions of a deal, newest first
func (s *DealService) GetStageHistory(ctx context.Context, id uuid.UUID) ([]domain.DealStageHistoryDTO, error) {
	if _, err := s.getDeal(ctx, s.dealRepo, id); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByDealID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}

	dtos := make([]domain.DealStageHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToDealStageHistoryDTO(&history[i])
	}
	return dtos, nil
}

func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.dealRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil
}

func (s *DealService) getDeal(ctx context.Context, repo *repository.DealRepository, id uuid.UUID) (*domain.Deal, error) {
	deal, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return deal, nil
}
