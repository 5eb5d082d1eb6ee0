package types

import (
	"time"

	"github.com/google/uuid"
)

// Alert is created by the alert engine and mutated only by mark-read.
// At most one alert of a given (user, type) exists per trailing dedup window.
type Alert struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID     `gorm:"type:uuid;not null;index:idx_alert_dedup" json:"user_id"`
	User            *User         `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	AlertType       AlertType     `gorm:"not null;index:idx_alert_dedup;column:alert_type" json:"alert_type"`
	Severity        AlertSeverity `gorm:"not null;column:severity" json:"severity"`
	Title           string        `gorm:"not null;column:title" json:"title"`
	Message         string        `gorm:"not null;column:message" json:"message"`
	HeartRate       float64       `gorm:"column:heart_rate" json:"heart_rate"`
	MotionIntensity float64       `gorm:"column:motion_intensity" json:"motion_intensity"`
	StressLevel     float64       `gorm:"column:stress_level" json:"stress_level"`
	AnomalyScore    float64       `gorm:"column:anomaly_score" json:"anomaly_score"`
	IsRead          bool          `gorm:"not null;default:false;column:is_read" json:"is_read"`
	CreatedAt       time.Time     `gorm:"not null;index:idx_alert_dedup" json:"created_at"`
	ReadAt          *time.Time    `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}
