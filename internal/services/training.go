package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/ml"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

// TrainingService fits a new (scaler, forest) generation from the stored
// metrics and persists both artifacts as one unit.
type TrainingService interface {
	Train(ctx context.Context) (*TrainingReport, error)
}

type TrainingReport struct {
	Samples    int       `json:"training_samples"`
	Discarded  int       `json:"discarded_samples"`
	Generation int64     `json:"generation"`
	TrainedAt  time.Time `json:"trained_at"`
}

type trainingService struct {
	db           *gorm.DB
	log          *logger.Logger
	metricRepo   repos.MetricRepo
	artifactRepo repos.ModelArtifactRepo
	inference    InferenceService
	cfg          *config.Config
}

func NewTrainingService(
	db *gorm.DB,
	log *logger.Logger,
	metricRepo repos.MetricRepo,
	artifactRepo repos.ModelArtifactRepo,
	inference InferenceService,
	cfg *config.Config,
) TrainingService {
	return &trainingService{
		db:           db,
		log:          log.With("service", "TrainingService"),
		metricRepo:   metricRepo,
		artifactRepo: artifactRepo,
		inference:    inference,
		cfg:          cfg,
	}
}

func (ts *trainingService) Train(ctx context.Context) (*TrainingReport, error) {
	readings, err := ts.metricRepo.AllReadings(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load training corpus: %w", err)
	}

	rows := make([][]float64, 0, len(readings))
	for _, r := range readings {
		hr, mi := r[0], r[1]
		if hr < ts.cfg.HeartRateMin || hr > ts.cfg.HeartRateMax {
			continue
		}
		if mi < ts.cfg.MotionMin || mi > ts.cfg.MotionMax {
			continue
		}
		rows = append(rows, []float64{hr, mi})
	}
	discarded := len(readings) - len(rows)

	if len(rows) < ts.cfg.MinTrainingSamples {
		return nil, fmt.Errorf("%w: %d valid rows, need at least %d", apperr.ErrInsufficientData, len(rows), ts.cfg.MinTrainingSamples)
	}

	scaler, err := ml.FitScaler(rows)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(rows)
	if err != nil {
		return nil, fmt.Errorf("scale corpus: %w", err)
	}

	forest, err := ml.TrainForest(scaled, ml.ForestConfig{
		NumTrees:      ts.cfg.NumEstimators,
		SubsampleSize: ts.cfg.SubsampleSize,
		Contamination: ts.cfg.Contamination,
		RandomSeed:    ts.cfg.RandomSeed,
	})
	if err != nil {
		return nil, fmt.Errorf("train forest: %w", err)
	}

	scalerBlob, err := encodeArtifact(scaler)
	if err != nil {
		return nil, fmt.Errorf("encode scaler: %w", err)
	}
	forestBlob, err := encodeArtifact(forest)
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}

	// Drop the serving cache before the write so no request keeps serving a
	// pair we are about to supersede mid-transaction.
	ts.inference.InvalidateCache()

	var report *TrainingReport
	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gen, err := ts.artifactRepo.NextGeneration(ctx, tx)
		if err != nil {
			return fmt.Errorf("next generation: %w", err)
		}
		artifact := &types.ModelArtifact{
			Generation:  gen,
			ScalerBlob:  scalerBlob,
			ForestBlob:  forestBlob,
			SampleCount: len(rows),
			TrainedAt:   time.Now(),
		}
		if err := ts.artifactRepo.Create(ctx, tx, artifact); err != nil {
			return fmt.Errorf("persist artifacts: %w", err)
		}
		report = &TrainingReport{
			Samples:    len(rows),
			Discarded:  discarded,
			Generation: gen,
			TrainedAt:  artifact.TrainedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// And again after commit, in case a request repopulated it from the old
	// generation while the transaction was open.
	ts.inference.InvalidateCache()

	ts.log.Info("Model trained",
		"generation", report.Generation,
		"samples", report.Samples,
		"discarded", report.Discarded,
	)
	return report, nil
}
