package config

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/kramikkk/vitalink-ai/internal/logger"
)

// Config carries every tunable the service reads from the environment.
// The anomaly-model calibration points and the alert policy values default to
// the numbers the model was tuned against; they are configuration, not law.
type Config struct {
	Env      string
	HTTPAddr string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RedisAddr string

	// Model training
	MinTrainingSamples int
	NumEstimators      int
	SubsampleSize      int
	Contamination      float64
	RandomSeed         int64

	// Score calibration: raw decision scores are mapped affinely so that
	// CalNormalScore -> 0% anomaly confidence and CalAnomalyScore -> 100%.
	CalNormalScore  float64
	CalAnomalyScore float64

	// Sensor validity
	HeartRateMin float64
	HeartRateMax float64
	MotionMin    float64
	MotionMax    float64

	// Alert policy
	AnomalyConfidenceHigh     float64
	AnomalyConfidenceCritical float64
	HeartRateHigh             float64
	HeartRateCritical         float64
	MotionHigh                float64
	AlertDedupWindow          time.Duration
}

func Load(log *logger.Logger) *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Env:      GetEnv("APP_ENV", "development", log),
		HTTPAddr: GetEnv("HTTP_ADDR", ":8080", log),

		JWTSecretKey:    GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second,
		RefreshTokenTTL: time.Duration(GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)) * time.Second,

		RedisAddr: GetEnv("REDIS_ADDR", "", log),

		MinTrainingSamples: GetEnvAsInt("MIN_TRAINING_SAMPLES", 10, log),
		NumEstimators:      GetEnvAsInt("MODEL_ESTIMATORS", 200, log),
		SubsampleSize:      GetEnvAsInt("MODEL_SUBSAMPLE", 256, log),
		Contamination:      GetEnvAsFloat("MODEL_CONTAMINATION", 0.01, log),
		RandomSeed:         int64(GetEnvAsInt("MODEL_RANDOM_SEED", 42, log)),

		CalNormalScore:  GetEnvAsFloat("SCORE_CAL_NORMAL", 0.2, log),
		CalAnomalyScore: GetEnvAsFloat("SCORE_CAL_ANOMALY", -0.1, log),

		HeartRateMin: GetEnvAsFloat("HEART_RATE_MIN", 20, log),
		HeartRateMax: GetEnvAsFloat("HEART_RATE_MAX", 255, log),
		MotionMin:    GetEnvAsFloat("MOTION_MIN", 0, log),
		MotionMax:    GetEnvAsFloat("MOTION_MAX", 100, log),

		AnomalyConfidenceHigh:     GetEnvAsFloat("ALERT_ANOMALY_CONFIDENCE_HIGH", 60, log),
		AnomalyConfidenceCritical: GetEnvAsFloat("ALERT_ANOMALY_CONFIDENCE_CRITICAL", 80, log),
		HeartRateHigh:             GetEnvAsFloat("ALERT_HEART_RATE_HIGH", 100, log),
		HeartRateCritical:         GetEnvAsFloat("ALERT_HEART_RATE_CRITICAL", 120, log),
		MotionHigh:                GetEnvAsFloat("ALERT_MOTION_HIGH", 80, log),
		AlertDedupWindow:          time.Duration(GetEnvAsInt("ALERT_DEDUP_WINDOW_SECONDS", 300, log)) * time.Second,
	}
}
