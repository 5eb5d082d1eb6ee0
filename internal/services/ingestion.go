package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// IngestionService is the single path a raw reading takes to become a
// persisted, scored, alert-evaluated metric. Both transports (HTTP and the
// websocket stream) call this and nothing else, so their semantics cannot
// drift apart.
type IngestionService interface {
	Ingest(ctx context.Context, deviceID string, heartRate, motionIntensity float64, arrivedAt time.Time) (*IngestResult, error)
}

type IngestResult struct {
	MetricID      uuid.UUID           `json:"metric_id"`
	UserID        uuid.UUID           `json:"-"`
	Scored        types.ScoredReading `json:"-"`
	AlertsCreated int                 `json:"-"`
}

type ingestionService struct {
	db         *gorm.DB
	log        *logger.Logger
	deviceRepo repos.DeviceRepo
	metricRepo repos.MetricRepo
	inference  InferenceService
	alerts     AlertService
}

func NewIngestionService(
	db *gorm.DB,
	log *logger.Logger,
	deviceRepo repos.DeviceRepo,
	metricRepo repos.MetricRepo,
	inference InferenceService,
	alerts AlertService,
) IngestionService {
	return &ingestionService{
		db:         db,
		log:        log.With("service", "IngestionService"),
		deviceRepo: deviceRepo,
		metricRepo: metricRepo,
		inference:  inference,
		alerts:     alerts,
	}
}

func (ig *ingestionService) Ingest(ctx context.Context, deviceID string, heartRate, motionIntensity float64, arrivedAt time.Time) (*IngestResult, error) {
	device, err := ig.deviceRepo.GetByDeviceID(ctx, nil, deviceID, false)
	if err != nil {
		return nil, err
	}

	// A reading from an unpaired device has no owner; it is rejected rather
	// than guessed at.
	switch device.State {
	case types.StatePaired:
		if device.UserID == nil {
			return nil, fmt.Errorf("%w: paired device %s has no owner", apperr.ErrInvalidState, deviceID)
		}
	case types.StateUnpaired, types.StatePendingPairing:
		return nil, apperr.ErrDeviceNotPaired
	default:
		return nil, fmt.Errorf("%w: device %s in unknown state %q", apperr.ErrInvalidState, deviceID, device.State)
	}
	userID := *device.UserID

	scored := ig.inference.Predict(ctx, heartRate, motionIntensity)
	if scored.Degraded {
		ig.log.Debug("Reading scored with NORMAL default",
			"device_id", deviceID,
			"reason", scored.DegradedReason,
		)
	}

	metric := &types.Metric{
		UserID:            userID,
		HeartRate:         heartRate,
		MotionIntensity:   motionIntensity,
		Prediction:        scored.Prediction,
		AnomalyScore:      scored.AnomalyScore,
		ConfidenceNormal:  scored.ConfidenceNormal,
		ConfidenceAnomaly: scored.ConfidenceAnomaly,
		Timestamp:         arrivedAt,
	}
	if err := ig.metricRepo.Create(ctx, nil, metric); err != nil {
		// Metric durability comes first: a reading we cannot persist is a
		// failed ingest, and alerting never runs on unpersisted data.
		return nil, fmt.Errorf("persist metric: %w", err)
	}

	// Best effort from here on: the metric is durable, alert evaluation
	// failures are logged inside the alert engine and never fail the ingest.
	created := ig.alerts.Evaluate(ctx, userID, scored, arrivedAt)

	return &IngestResult{
		MetricID:      metric.ID,
		UserID:        userID,
		Scored:        scored,
		AlertsCreated: len(created),
	}, nil
}
