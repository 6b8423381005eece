package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/gorm"
)

// DealFilters contains optional filters for the deal list
type DealFilters struct {
	Stage         *string
	Status        *domain.DealStatus
	InsuranceType *domain.InsuranceType
	Priority      *domain.DealPriority
	ContactID     *uuid.UUID
}

var dealSortFields = map[string]string{
	"title":       "title",
	"value":       "value",
	"stage":       "stage",
	"renewalDate": "renewal_date",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *DealRepository) WithTx(tx *gorm.DB) *DealRepository {
	return &DealRepository{db: tx}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

// GetByID loads a deal with its contact
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Contact").
		First(&deal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Update saves the editable deal columns. Stage and contact are changed
// through UpdateStage only.
func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Model(deal).
		Select("title", "value", "insurance_type", "priority", "status", "renewal_date", "updated_at").
		Updates(deal).Error
}

// UpdateStage moves a deal to another stage
func (r *DealRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	return r.db.WithContext(ctx).Model(&domain.Deal{}).
		Where("id = ?", id).
		Update("stage", stage).Error
}

// Delete removes a deal and its stage history
func (r *DealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", id).Delete(&domain.DealStageHistory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Deal{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns a filtered page of deals with their contacts
func (r *DealRepository) List(ctx context.Context, page, pageSize int, filters *DealFilters, sort SortConfig) ([]domain.Deal, int64, error) {
	var deals []domain.Deal
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Deal{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Preload("Contact").Order(BuildOrderClause(sort, dealSortFields, "created_at")), page, pageSize).
		Find(&deals).Error

	return deals, total, err
}

// ListByContact returns every deal of a contact, newest first
func (r *DealRepository) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at DESC").
		Find(&deals).Error
	return deals, err
}

// CountByStage returns how many deals sit in a stage
func (r *DealRepository) CountByStage(ctx context.Context, stage string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Where("stage = ?", stage).
		Count(&count).Error
	return count, err
}

// CountByContacts returns the number of deals for each of the given contacts
func (r *DealRepository) CountByContacts(ctx context.Context, contactIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(contactIDs))
	if len(contactIDs) == 0 {
		return counts, nil
	}

	type result struct {
		ContactID uuid.UUID
		Count     int
	}
	var results []result

	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Select("contact_id, COUNT(*) as count").
		Where("contact_id IN ?", contactIDs).
		Group("contact_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		counts[res.ContactID] = res.Count
	}
	return counts, nil
}

func (r *DealRepository) applyFilters(query *gorm.DB, filters *DealFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.InsuranceType != nil {
		query = query.Where("insurance_type = ?", *filters.InsuranceType)
	}
	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}
	if filters.ContactID != nil {
		query = query.Where("contact_id = ?", *filters.ContactID)
	}
	return query
}
