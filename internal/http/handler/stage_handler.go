package handler

import (
	"net/http"

	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/service"
	"go.uber.org/zap"
)

// StageHandler manages the configurable pipeline stages
type StageHandler struct {
	stageService *service.PipelineStageService
	logger       *zap.Logger
}

func NewStageHandler(stageService *service.PipelineStageService, logger *zap.Logger) *StageHandler {
	return &StageHandler{
		stageService: stageService,
		logger:       logger,
	}
}

// List godoc
// @Summary List pipeline stages
// @Description Stages ordered by board position
// @Tags Pipeline
// @Produce json
// @Success 200 {array} domain.PipelineStageDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/crm/stages [get]
func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	stages, err := h.stageService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list stages")
		return
	}
	respondJSON(w, http.StatusOK, stages)
}

// Create godoc
// @Summary Create pipeline stage
// @Description Slugs are upper-cased and must be unique. Without an order the stage goes last.
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body domain.CreatePipelineStageRequest true "Stage"
// @Success 201 {object} domain.PipelineStageDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/crm/stages [post]
func (h *StageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePipelineStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	stage, err := h.stageService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create stage")
		return
	}

	w.Header().Set("Location", "/api/v1/crm/stages/"+stage.ID.String())
	respondJSON(w, http.StatusCreated, stage)
}

// Update godoc
// @Summary Update pipeline stage
// @Description The slug is immutable since deals reference it
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path string true "Stage ID"
// @Param request body domain.UpdatePipelineStageRequest true "Fields to change"
// @Success 200 {object} domain.PipelineStageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/crm/stages/{id} [patch]
func (h *StageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stage ID: must be a valid UUID")
		return
	}

	var req domain.UpdatePipelineStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	stage, err := h.stageService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update stage")
		return
	}

	respondJSON(w, http.StatusOK, stage)
}

// Delete godoc
// @Summary Delete pipeline stage
// @Description Refused with 409 while any deal sits in the stage
// @Tags Pipeline
// @Param id path string true "Stage ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/crm/stages/{id} [delete]
func (h *StageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid stage ID: must be a valid UUID")
		return
	}

	if err := h.stageService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete stage")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
