package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when none was set, so inserts behave the same on
// Postgres and SQLite.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ContactType distinguishes individuals from organizations
type ContactType string

const (
	ContactTypeIndividual   ContactType = "PF"
	ContactTypeOrganization ContactType = "PJ"
)

// IsValid checks if the ContactType is a valid enum value
func (ct ContactType) IsValid() bool {
	switch ct {
	case ContactTypeIndividual, ContactTypeOrganization:
		return true
	}
	return false
}

// Contact is the unit of deduplication. Phone is the preferred unique key,
// email the secondary one; at least one of them is always set.
type Contact struct {
	BaseModel
	Name  string      `gorm:"type:varchar(200);not null;index"`
	Phone *string     `gorm:"type:varchar(50);uniqueIndex"`
	Email *string     `gorm:"type:varchar(255);uniqueIndex"`
	Type  ContactType `gorm:"type:varchar(10);not null;default:'PF'"`
	Deals []Deal      `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
}

// PhoneValue returns the phone or an empty string
func (c *Contact) PhoneValue() string {
	if c.Phone == nil {
		return ""
	}
	return *c.Phone
}

// EmailValue returns the email or an empty string
func (c *Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// InsuranceType is the insurance category of a deal
type InsuranceType string

const (
	InsuranceTypeAuto       InsuranceType = "AUTO"
	InsuranceTypeHealth     InsuranceType = "SAUDE"
	InsuranceTypeLife       InsuranceType = "VIDA"
	InsuranceTypeConsortium InsuranceType = "CONSORCIO"
	InsuranceTypeBusiness   InsuranceType = "EMPRESARIAL"
	InsuranceTypeOther      InsuranceType = "OUTROS"
)

// IsValid checks if the InsuranceType is a valid enum value
func (it InsuranceType) IsValid() bool {
	switch it {
	case InsuranceTypeAuto, InsuranceTypeHealth, InsuranceTypeLife,
		InsuranceTypeConsortium, InsuranceTypeBusiness, InsuranceTypeOther:
		return true
	}
	return false
}

// DealPriority represents how urgently a deal should be worked
type DealPriority string

const (
	DealPriorityLow    DealPriority = "LOW"
	DealPriorityMedium DealPriority = "MEDIUM"
	DealPriorityHigh   DealPriority = "HIGH"
)

// IsValid checks if the DealPriority is a valid enum value
func (p DealPriority) IsValid() bool {
	switch p {
	case DealPriorityLow, DealPriorityMedium, DealPriorityHigh:
		return true
	}
	return false
}

// DealStatus is the lifecycle status of a deal
type DealStatus string

const (
	DealStatusActive   DealStatus = "ACTIVE"
	DealStatusInactive DealStatus = "INACTIVE"
)

// IsValid checks if the DealStatus is a valid enum value
func (s DealStatus) IsValid() bool {
	return s == DealStatusActive || s == DealStatusInactive
}

// Deal is an insurance opportunity owned by exactly one contact.
// Stage holds the slug of a configured PipelineStage.
type Deal struct {
	BaseModel
	Title         string              `gorm:"type:varchar(255);not null"`
	ContactID     uuid.UUID           `gorm:"type:uuid;not null;index;column:contact_id"`
	Contact       *Contact            `gorm:"foreignKey:ContactID"`
	Value         decimal.NullDecimal `gorm:"type:decimal(15,2)"`
	Stage         string              `gorm:"type:varchar(50);not null;index"`
	InsuranceType InsuranceType       `gorm:"type:varchar(30);not null;default:'OUTROS';column:insurance_type;index"`
	Priority      DealPriority        `gorm:"type:varchar(20);not null;default:'HIGH'"`
	InsuranceData string              `gorm:"type:jsonb;not null;default:'{}';column:insurance_data"`
	RenewalDate   *time.Time          `gorm:"type:date;column:renewal_date"`
	Status        DealStatus          `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
}

// StageType is the semantic meaning of a pipeline stage
type StageType string

const (
	StageTypeNeutral StageType = "NEUTRAL"
	StageTypeWon     StageType = "WON"
	StageTypeLost    StageType = "LOST"
)

// IsValid checks if the StageType is a valid enum value
func (st StageType) IsValid() bool {
	switch st {
	case StageTypeNeutral, StageTypeWon, StageTypeLost:
		return true
	}
	return false
}

// PipelineStage is one configurable step of the sales funnel
type PipelineStage struct {
	BaseModel
	Name      string    `gorm:"type:varchar(100);not null"`
	Slug      string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Color     string    `gorm:"type:varchar(20);not null;default:'#6B7280'"`
	SortOrder int       `gorm:"not null;default:0;column:sort_order;index"`
	Type      StageType `gorm:"type:varchar(20);not null;default:'NEUTRAL'"`
}

// DealStageHistory tracks stage changes for audit purposes
type DealStageHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	DealID        uuid.UUID `gorm:"type:uuid;not null;index;column:deal_id"`
	Deal          *Deal     `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	FromStage     *string   `gorm:"type:varchar(50);column:from_stage"`
	ToStage       string    `gorm:"type:varchar(50);not null;column:to_stage"`
	ChangedByID   string    `gorm:"type:varchar(100);not null;column:changed_by_id"`
	ChangedByName string    `gorm:"type:varchar(200);column:changed_by_name"`
	Notes         string    `gorm:"type:text"`
	ChangedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

// BeforeCreate assigns an ID when none was set
func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// UserRole is the CRM role of an authenticated user
type UserRole string

const (
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleBroker UserRole = "BROKER"
)

// User is a local mirror of a helpdesk agent. Credentials live in the helpdesk.
type User struct {
	BaseModel
	Email       string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Role        UserRole   `gorm:"type:varchar(20);not null;default:'BROKER'"`
	HelpdeskID  *int64     `gorm:"column:helpdesk_id"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

// SyncTaskStatus is the delivery state of an outbound helpdesk sync
type SyncTaskStatus string

const (
	SyncTaskPending    SyncTaskStatus = "PENDING"
	SyncTaskProcessing SyncTaskStatus = "PROCESSING"
	SyncTaskDone       SyncTaskStatus = "DONE"
	SyncTaskFailed     SyncTaskStatus = "FAILED"
	SyncTaskDead       SyncTaskStatus = "DEAD"
)

// HelpdeskSyncTask is an outbox row mirroring one contact into the helpdesk
type HelpdeskSyncTask struct {
	BaseModel
	ContactID   *uuid.UUID     `gorm:"type:uuid;index;column:contact_id"`
	Name        string         `gorm:"type:varchar(200);not null"`
	Email       string         `gorm:"type:varchar(255)"`
	Phone       string         `gorm:"type:varchar(50)"`
	Status      SyncTaskStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Attempts    int            `gorm:"not null;default:0"`
	NextRetryAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;column:next_retry_at;index"`
	LastError   string         `gorm:"type:text;column:last_error"`
	ClaimedAt   *time.Time     `gorm:"column:claimed_at"`
	ProcessedAt *time.Time     `gorm:"column:processed_at"`
}
