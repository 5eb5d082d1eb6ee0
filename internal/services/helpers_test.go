package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test so parallel tests never share
	// state; cache=shared keeps it alive across pooled connections.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Device{},
		&types.Metric{},
		&types.Alert{},
		&types.ModelArtifact{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:    "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,

		MinTrainingSamples: 10,
		NumEstimators:      50,
		SubsampleSize:      64,
		Contamination:      0.01,
		RandomSeed:         42,

		CalNormalScore:  0.2,
		CalAnomalyScore: -0.1,

		HeartRateMin: 20,
		HeartRateMax: 255,
		MotionMin:    0,
		MotionMax:    100,

		AnomalyConfidenceHigh:     60,
		AnomalyConfidenceCritical: 80,
		HeartRateHigh:             100,
		HeartRateCritical:         120,
		MotionHigh:                80,
		AlertDedupWindow:          5 * time.Minute,
	}
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *types.User {
	t.Helper()
	user := &types.User{
		FullName: "Test Student",
		Username: email,
		Email:    email,
		Password: "hashed",
		Role:     types.RoleStudent,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// seedNormalMetrics inserts a believable resting corpus: heart rate around
// 70-90, motion around 10-40.
func seedNormalMetrics(t *testing.T, db *gorm.DB, user *types.User, n int) {
	t.Helper()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		m := &types.Metric{
			UserID:          user.ID,
			HeartRate:       70 + float64(i%20),
			MotionIntensity: 10 + float64(i%30),
			Prediction:      types.PredictionNormal,
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed metric: %v", err)
		}
	}
}
