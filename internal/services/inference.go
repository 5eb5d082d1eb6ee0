package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/ml"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// InferenceService scores readings. Predict never fails: when the model is
// missing, corrupt, or the sensor was not in contact, it returns the fixed
// NORMAL default with the reason recorded on the reading.
type InferenceService interface {
	Predict(ctx context.Context, heartRate, motionIntensity float64) types.ScoredReading
	// InvalidateCache drops the cached (scaler, forest) pair so the next
	// Predict reloads from storage. Called around retraining.
	InvalidateCache()
	Status(ctx context.Context) (*ModelStatus, error)
}

type ModelStatus struct {
	Trained     bool       `json:"trained"`
	Generation  int64      `json:"generation,omitempty"`
	SampleCount int        `json:"sample_count,omitempty"`
	TrainedAt   *time.Time `json:"trained_at,omitempty"`
}

// modelPair is the unit the cache holds and swaps. The scaler and forest in
// a pair always come from the same stored generation; the pair pointer is
// replaced whole, never mutated field by field.
type modelPair struct {
	scaler     *ml.Scaler
	forest     *ml.Forest
	generation int64
}

type inferenceService struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo repos.ModelArtifactRepo
	cfg          *config.Config

	mu     sync.RWMutex
	cached *modelPair
}

func NewInferenceService(db *gorm.DB, log *logger.Logger, artifactRepo repos.ModelArtifactRepo, cfg *config.Config) InferenceService {
	return &inferenceService{
		db:           db,
		log:          log.With("service", "InferenceService"),
		artifactRepo: artifactRepo,
		cfg:          cfg,
	}
}

func (is *inferenceService) Predict(ctx context.Context, heartRate, motionIntensity float64) types.ScoredReading {
	// Heart rate outside the sensor's valid range means the wristband is not
	// in contact; scoring it would only manufacture anomalies.
	if heartRate < is.cfg.HeartRateMin || heartRate > is.cfg.HeartRateMax {
		return is.defaultReading(heartRate, motionIntensity, types.DegradedSensorDropout)
	}

	pair, err := is.loadPair(ctx)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrModelUnavailable):
			return is.defaultReading(heartRate, motionIntensity, types.DegradedModelUntrained)
		default:
			is.log.Warn("Model load failed, serving NORMAL default", "error", err)
			return is.defaultReading(heartRate, motionIntensity, types.DegradedModelCorrupt)
		}
	}

	point, err := pair.scaler.Transform([]float64{heartRate, motionIntensity})
	if err != nil {
		is.log.Warn("Scaler transform failed, serving NORMAL default", "error", err)
		return is.defaultReading(heartRate, motionIntensity, types.DegradedModelCorrupt)
	}

	score, err := pair.forest.DecisionFunction(point)
	if err != nil {
		is.log.Warn("Model evaluation failed, serving NORMAL default", "error", err)
		return is.defaultReading(heartRate, motionIntensity, types.DegradedModelCorrupt)
	}
	outlier, err := pair.forest.Predict(point)
	if err != nil {
		is.log.Warn("Model evaluation failed, serving NORMAL default", "error", err)
		return is.defaultReading(heartRate, motionIntensity, types.DegradedModelCorrupt)
	}

	prediction := types.PredictionNormal
	if outlier {
		prediction = types.PredictionAnomaly
	}

	confidenceAnomaly := is.calibrate(score)
	confidenceNormal := 100 - confidenceAnomaly

	return types.ScoredReading{
		HeartRate:         heartRate,
		MotionIntensity:   motionIntensity,
		Prediction:        prediction,
		AnomalyScore:      round(score, 4),
		ConfidenceNormal:  round(confidenceNormal, 2),
		ConfidenceAnomaly: round(confidenceAnomaly, 2),
	}
}

// calibrate maps the raw decision score onto the 0-100 anomaly-confidence
// scale: CalNormalScore maps to 0, CalAnomalyScore to 100, linear in
// between, clamped.
func (is *inferenceService) calibrate(score float64) float64 {
	span := is.cfg.CalNormalScore - is.cfg.CalAnomalyScore
	c := (is.cfg.CalNormalScore - score) / span * 100
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func (is *inferenceService) defaultReading(heartRate, motionIntensity float64, reason types.DegradedReason) types.ScoredReading {
	return types.ScoredReading{
		HeartRate:         heartRate,
		MotionIntensity:   motionIntensity,
		Prediction:        types.PredictionNormal,
		AnomalyScore:      0.0,
		ConfidenceNormal:  100.0,
		ConfidenceAnomaly: 0.0,
		Degraded:          true,
		DegradedReason:    reason,
	}
}

// loadPair returns the cached pair, loading the newest stored generation
// under the write lock when the cache is empty. Concurrent predicts during a
// retrain observe either the old pair or the new one, never a mix, because a
// pair is a single pointer and both artifacts come from one row.
func (is *inferenceService) loadPair(ctx context.Context) (*modelPair, error) {
	is.mu.RLock()
	pair := is.cached
	is.mu.RUnlock()
	if pair != nil {
		return pair, nil
	}

	is.mu.Lock()
	defer is.mu.Unlock()
	if is.cached != nil {
		return is.cached, nil
	}

	artifact, err := is.artifactRepo.Latest(ctx, nil)
	if err != nil {
		return nil, err
	}
	scaler, forest, err := decodeArtifactPair(artifact)
	if err != nil {
		return nil, err
	}

	is.cached = &modelPair{scaler: scaler, forest: forest, generation: artifact.Generation}
	is.log.Info("Model pair loaded", "generation", artifact.Generation)
	return is.cached, nil
}

func (is *inferenceService) InvalidateCache() {
	is.mu.Lock()
	is.cached = nil
	is.mu.Unlock()
}

func (is *inferenceService) Status(ctx context.Context) (*ModelStatus, error) {
	artifact, err := is.artifactRepo.Latest(ctx, nil)
	if errors.Is(err, apperr.ErrModelUnavailable) {
		return &ModelStatus{Trained: false}, nil
	}
	if err != nil {
		return nil, err
	}
	trainedAt := artifact.TrainedAt
	return &ModelStatus{
		Trained:     true,
		Generation:  artifact.Generation,
		SampleCount: artifact.SampleCount,
		TrainedAt:   &trainedAt,
	}, nil
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
