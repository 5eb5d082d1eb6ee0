package types

import (
	"time"

	"github.com/google/uuid"
)

// ModelArtifact holds one trained (scaler, forest) pair. Both blobs live in a
// single row so a generation is staged atomically: either both artifacts are
// visible or neither is. Generation increases monotonically; the newest row
// is the serving pair.
type ModelArtifact struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Generation  int64     `gorm:"uniqueIndex;not null;column:generation" json:"generation"`
	ScalerBlob  []byte    `gorm:"not null;column:scaler_blob" json:"-"`
	ForestBlob  []byte    `gorm:"not null;column:forest_blob" json:"-"`
	SampleCount int       `gorm:"not null;column:sample_count" json:"sample_count"`
	TrainedAt   time.Time `gorm:"not null;column:trained_at" json:"trained_at"`
}

func (ModelArtifact) TableName() string {
	return "model_artifacts"
}
