package services

import (
	"context"
	"testing"
	"time"

	"github.com/kramikkk/vitalink-ai/internal/repos"
)

func TestLatest_ReturnsNewestThree(t *testing.T) {
	db := openTestDB(t)
	log := testLogger()
	svc := NewMetricsService(db, log, repos.NewMetricRepo(db, log))
	user := createTestUser(t, db, "latest@test.local")
	seedNormalMetrics(t, db, user, 10)

	metrics, err := svc.Latest(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(metrics))
	}
	for i := 1; i < len(metrics); i++ {
		if metrics[i].Timestamp.After(metrics[i-1].Timestamp) {
			t.Fatalf("latest metrics must be newest first")
		}
	}
}

func TestHistory_TimeRangeAndLimit(t *testing.T) {
	db := openTestDB(t)
	log := testLogger()
	svc := NewMetricsService(db, log, repos.NewMetricRepo(db, log))
	user := createTestUser(t, db, "history@test.local")
	seedNormalMetrics(t, db, user, 30)

	all, err := svc.History(context.Background(), user.ID, nil, nil, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 30 {
		t.Fatalf("expected full history, got %d", len(all))
	}

	capped, err := svc.History(context.Background(), user.ID, nil, nil, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(capped) != 5 {
		t.Fatalf("expected 5 metrics, got %d", len(capped))
	}

	// A window that excludes the newest ten minutes.
	end := time.Now().Add(-10 * time.Minute)
	windowed, err := svc.History(context.Background(), user.ID, nil, &end, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, m := range windowed {
		if m.Timestamp.After(end) {
			t.Fatalf("metric %v outside requested window", m.Timestamp)
		}
	}
	if len(windowed) == 0 || len(windowed) >= len(all) {
		t.Fatalf("window should trim some rows: %d of %d", len(windowed), len(all))
	}
}

func TestHistory_IsolatedPerUser(t *testing.T) {
	db := openTestDB(t)
	log := testLogger()
	svc := NewMetricsService(db, log, repos.NewMetricRepo(db, log))
	a := createTestUser(t, db, "a@test.local")
	b := createTestUser(t, db, "b@test.local")
	seedNormalMetrics(t, db, a, 5)
	seedNormalMetrics(t, db, b, 7)

	metrics, err := svc.History(context.Background(), a.ID, nil, nil, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(metrics) != 5 {
		t.Fatalf("expected 5 metrics for user a, got %d", len(metrics))
	}
	for _, m := range metrics {
		if m.UserID != a.ID {
			t.Fatalf("leaked metric from another user")
		}
	}
}
