package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// MetricsService serves the dashboard read API over persisted metrics.
type MetricsService interface {
	Latest(ctx context.Context, userID uuid.UUID) ([]*types.Metric, error)
	History(ctx context.Context, userID uuid.UUID, start, end *time.Time, limit int) ([]*types.Metric, error)
}

const (
	latestMetricCount   = 3
	defaultHistoryLimit = 1000
)

type metricsService struct {
	db         *gorm.DB
	log        *logger.Logger
	metricRepo repos.MetricRepo
}

func NewMetricsService(db *gorm.DB, log *logger.Logger, metricRepo repos.MetricRepo) MetricsService {
	return &metricsService{
		db:         db,
		log:        log.With("service", "MetricsService"),
		metricRepo: metricRepo,
	}
}

func (ms *metricsService) Latest(ctx context.Context, userID uuid.UUID) ([]*types.Metric, error) {
	return ms.metricRepo.Latest(ctx, nil, userID, latestMetricCount)
}

func (ms *metricsService) History(ctx context.Context, userID uuid.UUID, start, end *time.Time, limit int) ([]*types.Metric, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	return ms.metricRepo.History(ctx, nil, userID, start, end, limit)
}
