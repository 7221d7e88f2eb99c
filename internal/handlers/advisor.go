// internal/handlers/advisor.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

// AdvisorHandler leaves the completion deadline to AdvisorService, which
// applies LLM_TIMEOUT_SECONDS.
type AdvisorHandler struct {
	advisorService *services.AdvisorService
}

func NewAdvisorHandler(advisorService *services.AdvisorService) *AdvisorHandler {
	return &AdvisorHandler{
		advisorService: advisorService,
	}
}

// POST /ai/crop-recommendation
func (h *AdvisorHandler) CropRecommendation(c *gin.Context) {
	var req services.CropRecommendationRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.advisorService.CropRecommendation(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /ai/planting-advice
func (h *AdvisorHandler) PlantingAdvice(c *gin.Context) {
	var req services.PlantingAdviceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.advisorService.PlantingAdvice(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /ai/pest-diagnosis
func (h *AdvisorHandler) PestDiagnosis(c *gin.Context) {
	var req services.PestDiagnosisRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.advisorService.PestDiagnosis(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}
