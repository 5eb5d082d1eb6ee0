package types

import (
	"time"

	"github.com/google/uuid"
)

// Metric is one persisted, scored sensor reading. Immutable once written.
type Metric struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User               *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	HeartRate          float64    `gorm:"not null;column:heart_rate" json:"heart_rate"`
	MotionIntensity    float64    `gorm:"not null;column:motion_intensity" json:"motion_intensity"`
	Prediction         Prediction `gorm:"not null;column:prediction" json:"prediction"`
	AnomalyScore       float64    `gorm:"not null;column:anomaly_score" json:"anomaly_score"`
	ConfidenceNormal   float64    `gorm:"not null;column:confidence_normal" json:"confidence_normal"`
	ConfidenceAnomaly  float64    `gorm:"not null;column:confidence_anomaly" json:"confidence_anomaly"`
	Timestamp          time.Time  `gorm:"index;not null;column:timestamp" json:"timestamp"`
}

func (Metric) TableName() string {
	return "metrics"
}
