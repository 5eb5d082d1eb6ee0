package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

type MetricHandler struct {
	metricsService services.MetricsService
}

func NewMetricHandler(metricsService services.MetricsService) *MetricHandler {
	return &MetricHandler{metricsService: metricsService}
}

func (h *MetricHandler) Latest(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	h.respondLatest(c, rd.UserID)
}

func (h *MetricHandler) History(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	h.respondHistory(c, rd.UserID)
}

// LatestForStudent serves the admin dashboard. Router gates it on role.
func (h *MetricHandler) LatestForStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.respondLatest(c, studentID)
}

func (h *MetricHandler) HistoryForStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.respondHistory(c, studentID)
}

func (h *MetricHandler) respondLatest(c *gin.Context, userID uuid.UUID) {
	metrics, err := h.metricsService.Latest(c.Request.Context(), userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, metrics)
}

func (h *MetricHandler) respondHistory(c *gin.Context, userID uuid.UUID) {
	start, err := parseTimeQuery(c, "start_time")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	end, err := parseTimeQuery(c, "end_time")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	metrics, err := h.metricsService.History(c.Request.Context(), userID, start, end, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, metrics)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
