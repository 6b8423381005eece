package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/mapper"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContactService struct {
	contactRepo *repository.ContactRepository
	dealRepo    *repository.DealRepository
	logger      *zap.Logger
}

func NewContactService(
	contactRepo *repository.ContactRepository,
	dealRepo *repository.DealRepository,
	logger *zap.Logger,
) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		dealRepo:    dealRepo,
		logger:      logger,
	}
}

func (s *ContactService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContactDTO, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	counts, err := s.dealRepo.CountByContacts(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}

	dto := mapper.ToContactDTO(contact, counts[id])
	return &dto, nil
}

func (s *ContactService) List(ctx context.Context, page, pageSize int, filters *repository.ContactFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)

	contacts, total, err := s.contactRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	ids := make([]uuid.UUID, len(contacts))
	for i := range contacts {
		ids[i] = contacts[i].ID
	}
	counts, err := s.dealRepo.CountByContacts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}

	dtos := make([]domain.ContactDTO, len(contacts))
	for i := range contacts {
		dtos[i] = mapper.ToContactDTO(&contacts[i], counts[contacts[i].ID])
	}

	return paginated(dtos, total, page, pageSize), nil
}

// Delete removes the contact together with its deals
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.contactRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	actorID, actorName := auth.Actor(ctx)
	s.logger.Info("Contact deleted",
		zap.String("contact_id", id.String()),
		zap.String("deleted_by_id", actorID),
		zap.String("deleted_by", actorName),
	)
	return nil
}

// paginated wraps a page of DTOs with its totals
func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
