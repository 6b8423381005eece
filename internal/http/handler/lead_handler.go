package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/service"
	"go.uber.org/zap"
)

const (
	msgLeadProcessed  = "Lead processado com sucesso no Tork CRM"
	msgPhoneRequired  = "Telefone é obrigatório para deduplicação"
	msgLeadFailed     = "Erro interno ao processar lead"
	msgInvalidPayload = "Payload inválido"
)

// LeadHandler serves the public lead webhook used by capture forms
type LeadHandler struct {
	leadService    *service.LeadService
	contactService *service.ContactService
	logger         *zap.Logger
}

func NewLeadHandler(leadService *service.LeadService, contactService *service.ContactService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService:    leadService,
		contactService: contactService,
		logger:         logger,
	}
}

// IngestLead godoc
// @Summary Ingest a lead
// @Description Resolves the contact by phone (then e-mail) and opens a deal in the initial stage
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body domain.LeadRequest true "Lead"
// @Success 200 {object} domain.LeadResponse
// @Failure 400 {object} domain.WebhookError
// @Failure 500 {object} domain.WebhookError
// @Security ApiKeyAuth
// @Router /api/leads [post]
func (h *LeadHandler) IngestLead(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWebhookError(w, http.StatusBadRequest, msgInvalidPayload, "")
		return
	}

	var req domain.LeadRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondWebhookError(w, http.StatusBadRequest, msgInvalidPayload, "malformed JSON")
		return
	}
	if strings.TrimSpace(req.Telefone) == "" {
		respondWebhookError(w, http.StatusBadRequest, msgPhoneRequired, "")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWebhookError(w, http.StatusBadRequest, msgInvalidPayload, err.Error())
		return
	}

	result, err := h.leadService.IngestLead(r.Context(), service.LeadInputFromRequest(&req, raw))
	if err != nil {
		if errors.Is(err, service.ErrMissingPhone) {
			respondWebhookError(w, http.StatusBadRequest, msgPhoneRequired, "")
			return
		}
		h.logger.Error("failed to ingest lead", zap.Error(err))
		respondWebhookError(w, http.StatusInternalServerError, msgLeadFailed, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, domain.LeadResponse{
		Success:   true,
		DealID:    result.DealID,
		ContactID: result.ContactID,
		Message:   msgLeadProcessed,
	})
}

// DeleteLead godoc
// @Summary Delete a lead's contact
// @Description Deletes the contact with all of its deals
// @Tags Leads
// @Produce json
// @Param id query string true "Contact ID"
// @Success 200 {object} domain.SuccessResponse
// @Failure 400 {object} domain.WebhookError
// @Failure 404 {object} domain.WebhookError
// @Failure 500 {object} domain.WebhookError
// @Security ApiKeyAuth
// @Router /api/leads [delete]
func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimSpace(r.URL.Query().Get("id"))
	if rawID == "" {
		respondWebhookError(w, http.StatusBadRequest, "ID required", "")
		return
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		respondWebhookError(w, http.StatusBadRequest, "Invalid ID", "")
		return
	}

	if err := h.contactService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWebhookError(w, http.StatusNotFound, "Contact not found", "")
			return
		}
		h.logger.Error("failed to delete contact", zap.String("contact_id", id.String()), zap.Error(err))
		respondWebhookError(w, http.StatusInternalServerError, "Failed to delete contact", "")
		return
	}

	respondJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
}
