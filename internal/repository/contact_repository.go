package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/gorm"
)

// ContactFilters narrows the contact list
type ContactFilters struct {
	Search string
}

var contactSortFields = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *ContactRepository) WithTx(tx *gorm.DB) *ContactRepository {
	return &ContactRepository{db: tx}
}

// Create inserts the contact inside a savepoint, so a unique violation
// (returned as gorm.ErrDuplicatedKey) leaves an enclosing transaction usable.
func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(contact).Error
	})
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByPhone finds a contact by exact phone match
func (r *ContactRepository) GetByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByEmail finds a contact by exact email match
func (r *ContactRepository) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Update writes the given columns inside a savepoint. Backfilling a key that
// another contact already owns yields gorm.ErrDuplicatedKey.
func (r *ContactRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&domain.Contact{}).Where("id = ?", id).Updates(updates).Error
	})
}

func (r *ContactRepository) List(ctx context.Context, page, pageSize int, filters *ContactFilters, sort SortConfig) ([]domain.Contact, int64, error) {
	var contacts []domain.Contact
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Contact{})
	if filters != nil && filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where(
			"LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Order(BuildOrderClause(sort, contactSortFields, "created_at")), page, pageSize).
		Find(&contacts).Error

	return contacts, total, err
}

// Delete removes the contact with its deals and their stage history.
// Returns gorm.ErrRecordNotFound when the contact does not exist.
func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dealIDs := tx.Model(&domain.Deal{}).Select("id").Where("contact_id = ?", id)
		if err := tx.Where("deal_id IN (?)", dealIDs).Delete(&domain.DealStageHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contact_id = ?", id).Delete(&domain.Deal{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&domain.Contact{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Count returns the number of stored contacts
func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Contact{}).Count(&total).Error
	return total, err
}
