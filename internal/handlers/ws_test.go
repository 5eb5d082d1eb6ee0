package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/services"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

func newStreamFixture(t *testing.T) (*SensorStreamHandler, services.DeviceService, *gorm.DB, *types.User) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.Device{},
		&types.Metric{},
		&types.Alert{},
		&types.ModelArtifact{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log := logger.NewNop()
	cfg := &config.Config{
		HeartRateMin:              20,
		HeartRateMax:              255,
		CalNormalScore:            0.2,
		CalAnomalyScore:           -0.1,
		AnomalyConfidenceHigh:     60,
		AnomalyConfidenceCritical: 80,
		HeartRateHigh:             100,
		HeartRateCritical:         120,
		MotionHigh:                80,
		AlertDedupWindow:          5 * time.Minute,
	}

	deviceRepo := repos.NewDeviceRepo(db, log)
	metricRepo := repos.NewMetricRepo(db, log)
	alertRepo := repos.NewAlertRepo(db, log)
	artifactRepo := repos.NewModelArtifactRepo(db, log)
	inference := services.NewInferenceService(db, log, artifactRepo, cfg)
	alerts := services.NewAlertService(db, log, alertRepo, nil, cfg)
	devices := services.NewDeviceService(db, log, deviceRepo)
	ingestion := services.NewIngestionService(db, log, deviceRepo, metricRepo, inference, alerts)

	user := &types.User{
		FullName: "Stream Student",
		Username: "stream@test.local",
		Email:    "stream@test.local",
		Password: "hashed",
		Role:     types.RoleStudent,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	return NewSensorStreamHandler(log, ingestion), devices, db, user
}

func pairTestDevice(t *testing.T, devices services.DeviceService, user *types.User, deviceID, code string) {
	t.Helper()
	if _, _, err := devices.RegisterForPairing(context.Background(), deviceID, code); err != nil {
		t.Fatalf("RegisterForPairing: %v", err)
	}
	if _, err := devices.ClaimPairing(context.Background(), code, user.ID); err != nil {
		t.Fatalf("ClaimPairing: %v", err)
	}
}

func TestStream_ProcessesFramesIndependently(t *testing.T) {
	h, devices, db, user := newStreamFixture(t)
	pairTestDevice(t, devices, user, "ESP32-WS", "654321")

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws/sensors", h.Stream)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/sensors", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	// Malformed JSON is answered on-channel and the connection survives.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply sensorReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Status != "error" || reply.Message != "Invalid JSON format" {
		t.Fatalf("unexpected reply to malformed frame: %+v", reply)
	}

	// An unknown device is rejected; later frames still process.
	if err := conn.WriteJSON(sensorFrame{DeviceID: "ghost", HeartRate: 80, MotionIntensity: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Status != "error" || reply.Message != "Device not found" {
		t.Fatalf("unexpected reply for unknown device: %+v", reply)
	}

	// A paired device gets a scored acknowledgment and a persisted metric.
	if err := conn.WriteJSON(sensorFrame{DeviceID: "ESP32-WS", HeartRate: 82, MotionIntensity: 20}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Status != "success" {
		t.Fatalf("expected success, got %+v", reply)
	}
	if reply.Prediction != string(types.PredictionNormal) {
		t.Fatalf("untrained model must serve NORMAL, got %+v", reply)
	}
	if reply.MetricID == "" {
		t.Fatalf("success reply missing metric id: %+v", reply)
	}
	var count int64
	if err := db.Model(&types.Metric{}).Count(&count).Error; err != nil {
		t.Fatalf("count metrics: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted metric, found %d", count)
	}
}

func TestIngest_OneShotSharesStreamSemantics(t *testing.T) {
	h, devices, db, user := newStreamFixture(t)
	pairTestDevice(t, devices, user, "ESP32-HTTP", "111222")

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/devices/readings", h.Ingest)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/devices/readings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w := post(`{"device_id":"ghost","heart_rate":80,"motion_intensity":10}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown device: expected 404, got %d", w.Code)
	}

	w = post(`{"device_id":"ESP32-HTTP","heart_rate":82,"motion_intensity":20}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reply sensorReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Status != "success" || reply.MetricID == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	var count int64
	if err := db.Model(&types.Metric{}).Count(&count).Error; err != nil {
		t.Fatalf("count metrics: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted metric, found %d", count)
	}
}
