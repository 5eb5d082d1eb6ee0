package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type MetricRepo interface {
	Create(ctx context.Context, tx *gorm.DB, metric *types.Metric) error
	Latest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Metric, error)
	History(ctx context.Context, tx *gorm.DB, userID uuid.UUID, start, end *time.Time, limit int) ([]*types.Metric, error)
	// AllReadings returns every stored (heart_rate, motion_intensity) pair.
	// Feeds training corpus extraction.
	AllReadings(ctx context.Context, tx *gorm.DB) ([][2]float64, error)
}

type metricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricRepo(db *gorm.DB, baseLog *logger.Logger) MetricRepo {
	return &metricRepo{db: db, log: baseLog.With("repo", "MetricRepo")}
}

func (mr *metricRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return mr.db
}

func (mr *metricRepo) Create(ctx context.Context, tx *gorm.DB, metric *types.Metric) error {
	return mr.conn(tx).WithContext(ctx).Create(metric).Error
}

func (mr *metricRepo) Latest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Metric, error) {
	var results []*types.Metric
	if err := mr.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *metricRepo) History(ctx context.Context, tx *gorm.DB, userID uuid.UUID, start, end *time.Time, limit int) ([]*types.Metric, error) {
	q := mr.conn(tx).WithContext(ctx).Where("user_id = ?", userID)
	if start != nil {
		q = q.Where("timestamp >= ?", *start)
	}
	if end != nil {
		q = q.Where("timestamp <= ?", *end)
	}

	var results []*types.Metric
	if start == nil && end == nil {
		// No range: the most recent rows, returned in ascending order for
		// chart rendering.
		if err := q.Order("timestamp desc").Limit(limit).Find(&results).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
		return results, nil
	}

	if err := q.Order("timestamp asc").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *metricRepo) AllReadings(ctx context.Context, tx *gorm.DB) ([][2]float64, error) {
	var rows []struct {
		HeartRate       float64
		MotionIntensity float64
	}
	// Stable corpus order keeps training deterministic for a fixed seed.
	if err := mr.conn(tx).WithContext(ctx).
		Model(&types.Metric{}).
		Select("heart_rate", "motion_intensity").
		Order("timestamp asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		out[i] = [2]float64{r.HeartRate, r.MotionIntensity}
	}
	return out, nil
}
