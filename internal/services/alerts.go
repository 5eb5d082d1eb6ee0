package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/kramikkk/vitalink-ai/internal/clients/redis"
	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// AlertService turns scored readings into persisted, deduplicated alerts and
// serves the alert read API.
type AlertService interface {
	// Evaluate runs every alert rule against one reading. Rules fire
	// independently; a failure creating one alert never blocks the others.
	// Returns the alerts actually created.
	Evaluate(ctx context.Context, userID uuid.UUID, scored types.ScoredReading, now time.Time) []*types.Alert
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Alert, error)
	MarkRead(ctx context.Context, alertID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type alertService struct {
	db        *gorm.DB
	log       *logger.Logger
	alertRepo repos.AlertRepo
	dedupGate redisclient.DedupGate // nil when redis is not configured
	cfg       *config.Config
}

func NewAlertService(db *gorm.DB, log *logger.Logger, alertRepo repos.AlertRepo, dedupGate redisclient.DedupGate, cfg *config.Config) AlertService {
	return &alertService{
		db:        db,
		log:       log.With("service", "AlertService"),
		alertRepo: alertRepo,
		dedupGate: dedupGate,
		cfg:       cfg,
	}
}

func (as *alertService) Evaluate(ctx context.Context, userID uuid.UUID, scored types.ScoredReading, now time.Time) []*types.Alert {
	candidates := as.buildCandidates(userID, scored)

	var created []*types.Alert
	for _, candidate := range candidates {
		ok, err := as.createDeduped(ctx, candidate, now)
		if err != nil {
			// Isolated per rule: log and keep evaluating the rest.
			as.log.Error("Alert creation failed",
				"user_id", userID,
				"alert_type", candidate.AlertType,
				"error", err,
			)
			continue
		}
		if ok {
			created = append(created, candidate)
		}
	}
	return created
}

// buildCandidates applies the three independent rules. All may fire for a
// single reading.
func (as *alertService) buildCandidates(userID uuid.UUID, scored types.ScoredReading) []*types.Alert {
	var candidates []*types.Alert

	if scored.Prediction == types.PredictionAnomaly && scored.ConfidenceAnomaly >= as.cfg.AnomalyConfidenceHigh {
		severity := types.SeverityHigh
		if scored.ConfidenceAnomaly >= as.cfg.AnomalyConfidenceCritical {
			severity = types.SeverityCritical
		}
		candidates = append(candidates, &types.Alert{
			UserID:          userID,
			AlertType:       types.AlertAIAnomaly,
			Severity:        severity,
			Title:           "Abnormal Pattern Detected",
			Message:         "AI detected abnormal health pattern. Early signs of stress or fatigue may be present.",
			HeartRate:       scored.HeartRate,
			MotionIntensity: scored.MotionIntensity,
			StressLevel:     scored.ConfidenceAnomaly,
			AnomalyScore:    scored.AnomalyScore,
		})
	}

	if scored.HeartRate > as.cfg.HeartRateHigh {
		severity := types.SeverityHigh
		if scored.HeartRate > as.cfg.HeartRateCritical {
			severity = types.SeverityCritical
		}
		candidates = append(candidates, &types.Alert{
			UserID:          userID,
			AlertType:       types.AlertHighHeartRate,
			Severity:        severity,
			Title:           "Elevated Heart Rate",
			Message:         "Your heart rate is elevated. Monitor your condition and rest if necessary.",
			HeartRate:       scored.HeartRate,
			MotionIntensity: scored.MotionIntensity,
			StressLevel:     scored.ConfidenceAnomaly,
			AnomalyScore:    scored.AnomalyScore,
		})
	}

	if scored.MotionIntensity > as.cfg.MotionHigh {
		candidates = append(candidates, &types.Alert{
			UserID:          userID,
			AlertType:       types.AlertHighActivity,
			Severity:        types.SeverityHigh,
			Title:           "High Activity Detected",
			Message:         "Your activity level is very high. Take breaks to avoid overexertion.",
			HeartRate:       scored.HeartRate,
			MotionIntensity: scored.MotionIntensity,
			StressLevel:     scored.ConfidenceAnomaly,
			AnomalyScore:    scored.AnomalyScore,
		})
	}

	return candidates
}

// createDeduped persists one alert unless another of the same (user, type)
// already exists inside the trailing dedup window. When redis is configured
// a SETNX gate short-circuits duplicates before the database is touched; the
// database window check still runs inside the transaction, so the gate is an
// optimization, not the source of truth.
func (as *alertService) createDeduped(ctx context.Context, alert *types.Alert, now time.Time) (bool, error) {
	gateKey := fmt.Sprintf("alert_dedup:%s:%s", alert.UserID, alert.AlertType)
	gateHeld := false
	if as.dedupGate != nil {
		ok, err := as.dedupGate.Acquire(ctx, gateKey, as.cfg.AlertDedupWindow)
		if err != nil {
			// Redis being down never disables alerting; fall through to the
			// database check.
			as.log.Warn("Dedup gate unavailable, falling back to database check", "error", err)
		} else if !ok {
			return false, nil
		} else {
			gateHeld = true
		}
	}

	suppressed := false
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes the window check with concurrent evaluations of the
		// same (user, type); there may be no alert row to lock yet.
		if err := as.alertRepo.LockDedupWindow(ctx, tx, alert.UserID, alert.AlertType); err != nil {
			return err
		}
		cutoff := now.Add(-as.cfg.AlertDedupWindow)
		exists, err := as.alertRepo.ExistsSince(ctx, tx, alert.UserID, alert.AlertType, cutoff)
		if err != nil {
			return err
		}
		if exists {
			suppressed = true
			return nil
		}
		alert.CreatedAt = now
		return as.alertRepo.Create(ctx, tx, alert)
	})
	if err != nil {
		if gateHeld {
			// Nothing was created; reopen the gate so the next reading can
			// retry inside the same window.
			as.releaseGate(ctx, gateKey)
		}
		return false, err
	}
	if suppressed && gateHeld {
		// The database window is authoritative and its clock starts at the
		// original alert; a gate key acquired just now would keep suppressing
		// past that window.
		as.releaseGate(ctx, gateKey)
	}
	return !suppressed, nil
}

func (as *alertService) releaseGate(ctx context.Context, gateKey string) {
	if err := as.dedupGate.Release(ctx, gateKey); err != nil {
		as.log.Warn("Failed to release dedup gate", "key", gateKey, "error", err)
	}
}

func (as *alertService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	return as.alertRepo.ListByUser(ctx, nil, userID, limit)
}

func (as *alertService) MarkRead(ctx context.Context, alertID, userID uuid.UUID) error {
	if _, err := as.alertRepo.GetByID(ctx, nil, alertID, userID); err != nil {
		return err
	}
	return as.alertRepo.MarkRead(ctx, nil, alertID, userID, time.Now())
}

func (as *alertService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return as.alertRepo.MarkAllRead(ctx, nil, userID, time.Now())
}
