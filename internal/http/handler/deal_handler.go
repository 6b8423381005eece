package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/service"
	"go.uber.org/zap"
)

// DealHandler serves the broker pipeline board
type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// List godoc
// @Summary List deals
// @Description Get paginated deals, newest first unless sorted otherwise
// @Tags Deals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param stage query string false "Stage slug"
// @Param status query string false "Status" Enums(ACTIVE, INACTIVE)
// @Param insuranceType query string false "Insurance type" Enums(AUTO, SAUDE, VIDA, CONSORCIO, EMPRESARIAL, OUTROS)
// @Param priority query string false "Priority" Enums(LOW, MEDIUM, HIGH)
// @Param contactId query string false "Contact ID"
// @Param sortBy query string false "Sort field" Enums(title, value, stage, renewalDate, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &repository.DealFilters{}

	if stage := strings.TrimSpace(q.Get("stage")); stage != "" {
		stage = strings.ToUpper(stage)
		filters.Stage = &stage
	}
	if status := q.Get("status"); status != "" {
		s := domain.DealStatus(strings.ToUpper(status))
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status: must be ACTIVE or INACTIVE")
			return
		}
		filters.Status = &s
	}
	if insuranceType := q.Get("insuranceType"); insuranceType != "" {
		it := domain.InsuranceType(strings.ToUpper(insuranceType))
		if !it.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid insuranceType")
			return
		}
		filters.InsuranceType = &it
	}
	if priority := q.Get("priority"); priority != "" {
		p := domain.DealPriority(strings.ToUpper(priority))
		if !p.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid priority: must be LOW, MEDIUM or HIGH")
			return
		}
		filters.Priority = &p
	}
	if contactID := q.Get("contactId"); contactID != "" {
		id, err := uuid.Parse(contactID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid contactId: must be a valid UUID")
			return
		}
		filters.ContactID = &id
	}

	page, pageSize := parsePagination(r)
	result, err := h.dealService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list deals")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get deal
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals/{id} [get]
func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID: must be a valid UUID")
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// Update godoc
// @Summary Update deal
// @Description Edit title, value, priority, insurance type, status and renewal date. The stage is changed through /stage.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Deal fields"
// @Success 200 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID: must be a valid UUID")
		return
	}

	var req domain.UpdateDealRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// MoveStage godoc
// @Summary Move deal to another stage
// @Description Any configured stage may be targeted, including won and lost stages. The move is recorded in the stage history.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.MoveDealStageRequest true "Target stage"
// @Success 200 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals/{id}/stage [patch]
func (h *DealHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID: must be a valid UUID")
		return
	}

	var req domain.MoveDealStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	deal, err := h.dealService.MoveStage(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "move deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// GetStageHistory godoc
// @Summary Deal stage history
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {array} domain.DealStageHistoryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals/{id}/history [get]
func (h *DealHandler) GetStageHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID: must be a valid UUID")
		return
	}

	history, err := h.dealService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get stage history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Delete godoc
// @Summary Delete deal
// @Tags Deals
// @Param id path string true "Deal ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID: must be a valid UUID")
		return
	}

	if err := h.dealService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete deal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
