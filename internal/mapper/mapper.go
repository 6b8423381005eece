package mapper

import (
	"encoding/json"

	"github.com/tork-crm/tork-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// ToContactDTO converts Contact to ContactDTO
func ToContactDTO(contact *domain.Contact, dealCount int) domain.ContactDTO {
	return domain.ContactDTO{
		ID:        contact.ID,
		Name:      contact.Name,
		Phone:     contact.PhoneValue(),
		Email:     contact.EmailValue(),
		Type:      contact.Type,
		DealCount: dealCount,
		CreatedAt: contact.CreatedAt.Format(timestampLayout),
		UpdatedAt: contact.UpdatedAt.Format(timestampLayout),
	}
}

// ToDealDTO converts Deal to DealDTO. The contact summary is included when
// the Contact association was preloaded.
func ToDealDTO(deal *domain.Deal) domain.DealDTO {
	dto := domain.DealDTO{
		ID:            deal.ID,
		Title:         deal.Title,
		ContactID:     deal.ContactID,
		Stage:         deal.Stage,
		InsuranceType: deal.InsuranceType,
		Priority:      deal.Priority,
		InsuranceData: json.RawMessage("{}"),
		Status:        deal.Status,
		CreatedAt:     deal.CreatedAt.Format(timestampLayout),
		UpdatedAt:     deal.UpdatedAt.Format(timestampLayout),
	}

	if deal.Value.Valid {
		v := deal.Value.Decimal.InexactFloat64()
		dto.Value = &v
	}

	if deal.InsuranceData != "" && json.Valid([]byte(deal.InsuranceData)) {
		dto.InsuranceData = json.RawMessage(deal.InsuranceData)
	}

	if deal.RenewalDate != nil {
		d := deal.RenewalDate.Format(dateLayout)
		dto.RenewalDate = &d
	}

	if deal.Contact != nil {
		dto.Contact = &domain.ContactSummaryDTO{
			Name:  deal.Contact.Name,
			Phone: deal.Contact.PhoneValue(),
			Email: deal.Contact.EmailValue(),
		}
	}

	return dto
}

// ToDealStageHistoryDTO converts DealStageHistory to DealStageHistoryDTO
func ToDealStageHistoryDTO(h *domain.DealStageHistory) domain.DealStageHistoryDTO {
	return domain.DealStageHistoryDTO{
		ID:            h.ID,
		DealID:        h.DealID,
		FromStage:     h.FromStage,
		ToStage:       h.ToStage,
		ChangedByID:   h.ChangedByID,
		ChangedByName: h.ChangedByName,
		Notes:         h.Notes,
		ChangedAt:     h.ChangedAt.Format(timestampLayout),
	}
}

// ToPipelineStageDTO converts PipelineStage to PipelineStageDTO
func ToPipelineStageDTO(stage *domain.PipelineStage) domain.PipelineStageDTO {
	return domain.PipelineStageDTO{
		ID:    stage.ID,
		Name:  stage.Name,
		Slug:  stage.Slug,
		Color: stage.Color,
		Order: stage.SortOrder,
		Type:  stage.Type,
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
