package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks a user up by case-insensitive email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user or applies mutate to the stored row. mutate runs
// against the existing record so callers decide which fields are refreshed.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User, mutate func(existing *domain.User)) (*domain.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	existing, err := r.GetByEmail(ctx, user.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		createErr := r.db.WithContext(ctx).Create(user).Error
		if createErr == nil {
			return user, nil
		}
		if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return nil, createErr
		}
		// lost a concurrent first login; update the winner instead
		existing, err = r.GetByEmail(ctx, user.Email)
	}
	if err != nil {
		return nil, err
	}

	mutate(existing)
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}
