package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type ModelArtifactRepo interface {
	// Latest returns the newest generation, or apperr.ErrModelUnavailable when
	// no model has ever been trained.
	Latest(ctx context.Context, tx *gorm.DB) (*types.ModelArtifact, error)
	Create(ctx context.Context, tx *gorm.DB, artifact *types.ModelArtifact) error
	// NextGeneration reads the highest stored generation and returns the one
	// after it. Call inside the same transaction as Create.
	NextGeneration(ctx context.Context, tx *gorm.DB) (int64, error)
}

type modelArtifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ModelArtifactRepo {
	return &modelArtifactRepo{db: db, log: baseLog.With("repo", "ModelArtifactRepo")}
}

func (mr *modelArtifactRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return mr.db
}

func (mr *modelArtifactRepo) Latest(ctx context.Context, tx *gorm.DB) (*types.ModelArtifact, error) {
	var artifact types.ModelArtifact
	err := mr.conn(tx).WithContext(ctx).
		Order("generation desc").
		First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrModelUnavailable
	}
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (mr *modelArtifactRepo) Create(ctx context.Context, tx *gorm.DB, artifact *types.ModelArtifact) error {
	return mr.conn(tx).WithContext(ctx).Create(artifact).Error
}

func (mr *modelArtifactRepo) NextGeneration(ctx context.Context, tx *gorm.DB) (int64, error) {
	var max *int64
	if err := mr.conn(tx).WithContext(ctx).
		Model(&types.ModelArtifact{}).
		Select("max(generation)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}
