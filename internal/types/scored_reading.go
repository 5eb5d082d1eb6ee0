package types

// DegradedReason says why inference fell back to the normal default instead
// of running the model.
type DegradedReason string

const (
	DegradedNone           DegradedReason = ""
	DegradedSensorDropout  DegradedReason = "sensor_dropout"
	DegradedModelUntrained DegradedReason = "model_untrained"
	DegradedModelCorrupt   DegradedReason = "model_corrupt"
)

// ScoredReading is the outcome of scoring one reading. ConfidenceNormal and
// ConfidenceAnomaly always sum to 100 (within rounding). Degraded readings
// carry the fixed NORMAL default and the reason the model was bypassed.
type ScoredReading struct {
	HeartRate         float64        `json:"heart_rate"`
	MotionIntensity   float64        `json:"motion_intensity"`
	Prediction        Prediction     `json:"prediction"`
	AnomalyScore      float64        `json:"anomaly_score"`
	ConfidenceNormal  float64        `json:"confidence_normal"`
	ConfidenceAnomaly float64        `json:"confidence_anomaly"`
	Degraded          bool           `json:"-"`
	DegradedReason    DegradedReason `json:"-"`
}

// StressLevel is the dashboard's restatement of ConfidenceAnomaly.
func (s ScoredReading) StressLevel() int {
	return int(s.ConfidenceAnomaly)
}
