package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

type AlertHandler struct {
	alertService services.AlertService
}

func NewAlertHandler(alertService services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

func (h *AlertHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	h.respondList(c, rd.UserID)
}

func (h *AlertHandler) ListForStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.respondList(c, studentID)
}

func (h *AlertHandler) respondList(c *gin.Context, userID uuid.UUID) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		limit = parsed
	}
	alerts, err := h.alertService.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, alerts)
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.alertService.MarkRead(c.Request.Context(), alertID, rd.UserID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Alert marked as read"})
}

func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	count, err := h.alertService.MarkAllRead(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "All alerts marked as read", "updated": count})
}
