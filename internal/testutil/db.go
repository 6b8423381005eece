package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/database"
	"github.com/tork-crm/tork-api/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var phoneSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with the full schema
// and the default pipeline stages
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultStages(db))
	return db
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}

// UniquePhone returns a phone number no other call in this process returned
func UniquePhone() string {
	return fmt.Sprintf("55119%08d", phoneSeq.Add(1))
}

// CreateTestContact inserts a contact; empty phone or email are stored as NULL
func CreateTestContact(t *testing.T, db *gorm.DB, name, phone, email string) *domain.Contact {
	t.Helper()

	contact := &domain.Contact{Name: name, Type: domain.ContactTypeIndividual}
	if phone != "" {
		contact.Phone = StrPtr(phone)
	}
	if email != "" {
		contact.Email = StrPtr(email)
	}
	require.NoError(t, db.Omit(clause.Associations).Create(contact).Error)
	return contact
}

// CreateTestDeal inserts a deal in the given stage for the contact
func CreateTestDeal(t *testing.T, db *gorm.DB, contact *domain.Contact, title, stage string) *domain.Deal {
	t.Helper()

	deal := &domain.Deal{
		Title:         title,
		ContactID:     contact.ID,
		Stage:         stage,
		InsuranceType: domain.InsuranceTypeAuto,
		Priority:      domain.DealPriorityHigh,
		InsuranceData: "{}",
		Status:        domain.DealStatusActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(deal).Error)
	return deal
}

// CountRows returns the number of rows of the model's table
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// UserContext returns a context carrying an authenticated broker
func UserContext(name string, role domain.UserRole) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: uuid.New(),
		Name:   name,
		Email:  name + "@example.com",
		Role:   role,
	})
}
