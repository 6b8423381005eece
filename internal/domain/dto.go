package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadRequest is the body accepted by the inbound lead webhook. Field names
// follow the contract published to the lead-capture forms.
type LeadRequest struct {
	Nome          string          `json:"nome" validate:"max=200"`
	Telefone      string          `json:"telefone" validate:"max=50"`
	Email         string          `json:"email,omitempty"`
	TipoSeguro    string          `json:"tipo_seguro,omitempty" validate:"max=30"`
	Resumo        *string         `json:"resumo,omitempty" validate:"omitempty,max=255"`
	DadosExtras   json.RawMessage `json:"dados_extras,omitempty" swaggertype:"object"`
	ValorEstimado json.RawMessage `json:"valor_estimado,omitempty" swaggertype:"string"`
}

// LeadResponse is returned after a lead was committed
type LeadResponse struct {
	Success   bool      `json:"success"`
	DealID    uuid.UUID `json:"dealId"`
	ContactID uuid.UUID `json:"contactId"`
	Message   string    `json:"message"`
}

// SuccessResponse is the minimal acknowledgement body
type SuccessResponse struct {
	Success bool `json:"success"`
}

// MessageResponse acknowledges a webhook that was accepted but not acted on
type MessageResponse struct {
	Message string `json:"message"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ContactDTO struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone,omitempty"`
	Email     string      `json:"email,omitempty"`
	Type      ContactType `json:"type"`
	DealCount int         `json:"dealCount"`
	CreatedAt string      `json:"createdAt"` // ISO 8601
	UpdatedAt string      `json:"updatedAt"` // ISO 8601
}

// ContactSummaryDTO is the contact projection embedded in deal cards
type ContactSummaryDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type DealDTO struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	ContactID     uuid.UUID          `json:"contactId"`
	Contact       *ContactSummaryDTO `json:"contact,omitempty"`
	Value         *float64           `json:"value"`
	Stage         string             `json:"stage"`
	InsuranceType InsuranceType      `json:"insuranceType"`
	Priority      DealPriority       `json:"priority"`
	InsuranceData json.RawMessage    `json:"insuranceData" swaggertype:"object"`
	RenewalDate   *string            `json:"renewalDate,omitempty"` // YYYY-MM-DD
	Status        DealStatus         `json:"status"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}

type DealStageHistoryDTO struct {
	ID            uuid.UUID `json:"id"`
	DealID        uuid.UUID `json:"dealId"`
	FromStage     *string   `json:"fromStage,omitempty"`
	ToStage       string    `json:"toStage"`
	ChangedByID   string    `json:"changedById"`
	ChangedByName string    `json:"changedByName,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ChangedAt     string    `json:"changedAt"`
}

type PipelineStageDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
	Color string    `json:"color"`
	Order int       `json:"order"`
	Type  StageType `json:"type"`
}

type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  UserRole  `json:"role"`
}

// PaginatedResponse wraps list endpoints
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

// UpdateDealRequest decodes value straight into a decimal so amounts keep
// their exact cents. A missing or null value clears it.
type UpdateDealRequest struct {
	Title         string              `json:"title" validate:"required,max=255"`
	Value         decimal.NullDecimal `json:"value" swaggertype:"number"`
	InsuranceType InsuranceType       `json:"insuranceType" validate:"required,oneof=AUTO SAUDE VIDA CONSORCIO EMPRESARIAL OUTROS"`
	Priority      DealPriority        `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	Status        DealStatus          `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
	RenewalDate   *string             `json:"renewalDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type MoveDealStageRequest struct {
	Stage string `json:"stage" validate:"required,max=50"`
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}

type CreatePipelineStageRequest struct {
	Name  string    `json:"name" validate:"required,max=100"`
	Slug  string    `json:"slug" validate:"required,max=50"`
	Color string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Order *int      `json:"order,omitempty" validate:"omitempty,gte=0"`
	Type  StageType `json:"type,omitempty" validate:"omitempty,oneof=NEUTRAL WON LOST"`
}

type UpdatePipelineStageRequest struct {
	Name  *string    `json:"name,omitempty" validate:"omitempty,max=100"`
	Color *string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Order *int       `json:"order,omitempty" validate:"omitempty,gte=0"`
	Type  *StageType `json:"type,omitempty" validate:"omitempty,oneof=NEUTRAL WON LOST"`
}

// LoginRequest accepts either "username" (the login form field) or "email"
type LoginRequest struct {
	Username string `json:"username,omitempty" validate:"required_without=Email,max=255"`
	Email    string `json:"email,omitempty" validate:"required_without=Username,max=255"`
	Password string `json:"password" validate:"required"`
}

// Login returns the e-mail the caller authenticated with
func (r LoginRequest) Login() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      UserDTO `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterResponse struct {
	Success bool    `json:"success"`
	User    UserDTO `json:"user"`
}

// HelpdeskWebhookRequest is the event envelope posted by the helpdesk
type HelpdeskWebhookRequest struct {
	Event string                 `json:"event"`
	Data  HelpdeskWebhookContact `json:"data"`
}

type HelpdeskWebhookContact struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Identifier  string `json:"identifier,omitempty"`
}

// ImportResult summarises a helpdesk bulk import run
type ImportResult struct {
	Success      bool   `json:"success"`
	Imported     int    `json:"imported"`
	TotalScanned int    `json:"total_scanned"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Message      string `json:"message"`
}
