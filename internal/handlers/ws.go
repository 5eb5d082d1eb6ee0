package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

// SensorStreamHandler is the persistent ingest path for wristbands. One
// connection carries many readings; every reading gets an on-channel reply so
// the device can render the stress level without a second round trip.
type SensorStreamHandler struct {
	log              *logger.Logger
	ingestionService services.IngestionService
	upgrader         websocket.Upgrader
}

func NewSensorStreamHandler(log *logger.Logger, ingestionService services.IngestionService) *SensorStreamHandler {
	return &SensorStreamHandler{
		log:              log.With("handler", "SensorStreamHandler"),
		ingestionService: ingestionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Wristbands do not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// streamIngestTimeout bounds one reading's trip through scoring, persistence
// and alerting.
const streamIngestTimeout = 30 * time.Second

type sensorFrame struct {
	DeviceID        string  `json:"device_id"`
	HeartRate       float64 `json:"heart_rate"`
	MotionIntensity float64 `json:"motion_intensity"`
}

type sensorReply struct {
	Status            string  `json:"status"`
	MetricID          string  `json:"metric_id,omitempty"`
	Prediction        string  `json:"prediction,omitempty"`
	StressLevel       int     `json:"stress_level"`
	AnomalyScore      float64 `json:"anomaly_score"`
	ConfidenceAnomaly float64 `json:"confidence_anomaly"`
	Message           string  `json:"message,omitempty"`
}

func (h *SensorStreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	h.log.Info("Sensor stream connected", "remote", conn.RemoteAddr())

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.log.Warn("Sensor stream closed unexpectedly", "remote", conn.RemoteAddr(), "error", err)
			} else {
				h.log.Info("Sensor stream disconnected", "remote", conn.RemoteAddr())
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame sensorFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			// Malformed JSON on an open connection: answer and keep reading.
			if writeErr := conn.WriteJSON(sensorReply{Status: "error", Message: "Invalid JSON format"}); writeErr != nil {
				h.log.Warn("Sensor stream write failed", "error", writeErr)
				return
			}
			continue
		}

		// Each reading runs on its own context: a disconnect mid-processing
		// must not cancel alert evaluation for a metric that already
		// persisted.
		msgCtx, cancel := context.WithTimeout(context.Background(), streamIngestTimeout)
		result, err := h.ingestionService.Ingest(msgCtx, frame.DeviceID, frame.HeartRate, frame.MotionIntensity, time.Now())
		cancel()
		if err != nil {
			if writeErr := conn.WriteJSON(sensorReply{Status: "error", Message: streamErrorMessage(err)}); writeErr != nil {
				h.log.Warn("Sensor stream write failed", "error", writeErr)
				return
			}
			continue
		}

		reply := sensorReply{
			Status:            "success",
			MetricID:          result.MetricID.String(),
			Prediction:        string(result.Scored.Prediction),
			StressLevel:       result.Scored.StressLevel(),
			AnomalyScore:      result.Scored.AnomalyScore,
			ConfidenceAnomaly: result.Scored.ConfidenceAnomaly,
		}
		if err := conn.WriteJSON(reply); err != nil {
			h.log.Warn("Sensor stream write failed", "error", err)
			return
		}
	}
}

// Ingest is the request/response twin of Stream for wristbands that cannot
// hold a websocket open. The reply shape matches the stream reply so device
// firmware can share one parser.
func (h *SensorStreamHandler) Ingest(c *gin.Context) {
	var frame sensorFrame
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, sensorReply{Status: "error", Message: "Invalid JSON format"})
		return
	}

	result, err := h.ingestionService.Ingest(c.Request.Context(), frame.DeviceID, frame.HeartRate, frame.MotionIntensity, time.Now())
	if err != nil {
		c.JSON(ingestErrorStatus(err), sensorReply{Status: "error", Message: streamErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, sensorReply{
		Status:            "success",
		MetricID:          result.MetricID.String(),
		Prediction:        string(result.Scored.Prediction),
		StressLevel:       result.Scored.StressLevel(),
		AnomalyScore:      result.Scored.AnomalyScore,
		ConfidenceAnomaly: result.Scored.ConfidenceAnomaly,
	})
}

func ingestErrorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrDeviceNotFound), errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDeviceNotPaired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// streamErrorMessage keeps internal error chains off the wire.
func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrDeviceNotFound), errors.Is(err, apperr.ErrNotFound):
		return "Device not found"
	case errors.Is(err, apperr.ErrDeviceNotPaired):
		return "Device not paired"
	default:
		return "Failed to process reading"
	}
}
