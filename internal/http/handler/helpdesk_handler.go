package handler

import (
	"net/http"

	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/service"
	"go.uber.org/zap"
)

var webhookMessages = map[service.WebhookOutcome]string{
	service.WebhookIgnored:       "Event ignored",
	service.WebhookNoIdentifiers: "Ignore: No identifiers",
	service.WebhookPhoneRequired: "Skipped: Phone required for CRM",
}

// HelpdeskHandler receives helpdesk contact events and runs contact imports
type HelpdeskHandler struct {
	webhookService *service.HelpdeskWebhookService
	importService  *service.ImportService
	logger         *zap.Logger
}

func NewHelpdeskHandler(webhookService *service.HelpdeskWebhookService, importService *service.ImportService, logger *zap.Logger) *HelpdeskHandler {
	return &HelpdeskHandler{
		webhookService: webhookService,
		importService:  importService,
		logger:         logger,
	}
}

// Webhook godoc
// @Summary Helpdesk contact webhook
// @Description Applies contact_created and contact_updated events to the CRM. Other events are acknowledged and ignored.
// @Tags Helpdesk
// @Accept json
// @Produce json
// @Param request body domain.HelpdeskWebhookRequest true "Helpdesk event"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.WebhookError
// @Failure 500 {object} domain.WebhookError
// @Security ApiKeyAuth
// @Router /api/webhooks/helpdesk [post]
func (h *HelpdeskHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req domain.HelpdeskWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWebhookError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	outcome, err := h.webhookService.HandleEvent(r.Context(), &req)
	if err != nil {
		h.logger.Error("helpdesk webhook failed", zap.String("event", req.Event), zap.Error(err))
		respondWebhookError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	if msg, ok := webhookMessages[outcome]; ok {
		respondJSON(w, http.StatusOK, domain.MessageResponse{Message: msg})
		return
	}
	respondJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
}

// Import godoc
// @Summary Import helpdesk contacts
// @Description Pages through every helpdesk contact and creates the ones the CRM does not know. Contacts without phone are skipped.
// @Tags Helpdesk
// @Produce json
// @Success 200 {object} domain.ImportResult
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/integrations/helpdesk/import [post]
func (h *HelpdeskHandler) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.importService.ImportContacts(r.Context())
	if err != nil {
		h.logger.Error("helpdesk import failed", zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Helpdesk import failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
