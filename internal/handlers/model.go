package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kramikkk/vitalink-ai/internal/services"
)

type ModelHandler struct {
	trainingService  services.TrainingService
	inferenceService services.InferenceService
}

func NewModelHandler(trainingService services.TrainingService, inferenceService services.InferenceService) *ModelHandler {
	return &ModelHandler{
		trainingService:  trainingService,
		inferenceService: inferenceService,
	}
}

// Train retrains from the full stored metric corpus. It blocks for the
// duration of the fit, which is acceptable at this corpus size.
func (h *ModelHandler) Train(c *gin.Context) {
	report, err := h.trainingService.Train(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, report)
}

func (h *ModelHandler) Status(c *gin.Context) {
	status, err := h.inferenceService.Status(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, status)
}
