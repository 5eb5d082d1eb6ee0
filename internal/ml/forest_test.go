package ml

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
)

// clusteredRows builds a tight two-feature cluster the forest should treat as
// normal.
func clusteredRows(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{rng.NormFloat64() * 0.5, rng.NormFloat64() * 0.5}
	}
	return rows
}

func TestTrainForest_SeparatesOutliers(t *testing.T) {
	rows := clusteredRows(400, 1)
	f, err := TrainForest(rows, DefaultForestConfig())
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}

	inlierScore, err := f.DecisionFunction([]float64{0, 0})
	if err != nil {
		t.Fatalf("DecisionFunction: %v", err)
	}
	outlierScore, err := f.DecisionFunction([]float64{8, 8})
	if err != nil {
		t.Fatalf("DecisionFunction: %v", err)
	}
	if outlierScore >= inlierScore {
		t.Fatalf("outlier should score below inlier: outlier=%v inlier=%v", outlierScore, inlierScore)
	}

	isOutlier, err := f.Predict([]float64{8, 8})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !isOutlier {
		t.Fatalf("point far from the cluster should predict outlier")
	}
	isOutlier, err = f.Predict([]float64{0, 0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if isOutlier {
		t.Fatalf("cluster center should predict inlier")
	}
}

func TestTrainForest_DeterministicForSeed(t *testing.T) {
	rows := clusteredRows(200, 2)
	cfg := DefaultForestConfig()

	f1, err := TrainForest(rows, cfg)
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}
	f2, err := TrainForest(rows, cfg)
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}

	points := [][]float64{{0, 0}, {1, -1}, {5, 5}, {-3, 2}}
	for _, p := range points {
		s1, _ := f1.DecisionFunction(p)
		s2, _ := f2.DecisionFunction(p)
		if s1 != s2 {
			t.Fatalf("same seed must give identical scores at %v: %v vs %v", p, s1, s2)
		}
	}
}

func TestTrainForest_OffsetTracksContamination(t *testing.T) {
	rows := clusteredRows(500, 3)
	cfg := DefaultForestConfig()
	cfg.Contamination = 0.1
	f, err := TrainForest(rows, cfg)
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}

	// Roughly Contamination of the training rows should fall below zero.
	below := 0
	for _, row := range rows {
		d, err := f.DecisionFunction(row)
		if err != nil {
			t.Fatalf("DecisionFunction: %v", err)
		}
		if d < 0 {
			below++
		}
	}
	frac := float64(below) / float64(len(rows))
	if math.Abs(frac-cfg.Contamination) > 0.05 {
		t.Fatalf("outlier fraction %v too far from contamination %v", frac, cfg.Contamination)
	}
}

func TestTrainForest_RejectsBadConfig(t *testing.T) {
	rows := clusteredRows(50, 4)

	cfg := DefaultForestConfig()
	cfg.Contamination = 0
	if _, err := TrainForest(rows, cfg); err == nil {
		t.Fatalf("expected error for contamination 0")
	}
	cfg.Contamination = 0.6
	if _, err := TrainForest(rows, cfg); err == nil {
		t.Fatalf("expected error for contamination 0.6")
	}
	cfg = DefaultForestConfig()
	cfg.NumTrees = 0
	if _, err := TrainForest(rows, cfg); err == nil {
		t.Fatalf("expected error for zero trees")
	}
	if _, err := TrainForest(nil, DefaultForestConfig()); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestForest_JSONRoundTripPreservesScores(t *testing.T) {
	rows := clusteredRows(200, 5)
	f, err := TrainForest(rows, DefaultForestConfig())
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}

	blob, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Forest
	if err := json.Unmarshal(blob, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	points := [][]float64{{0, 0}, {4, -4}, {2, 2}}
	for _, p := range points {
		want, _ := f.DecisionFunction(p)
		got, err := restored.DecisionFunction(p)
		if err != nil {
			t.Fatalf("restored DecisionFunction: %v", err)
		}
		if want != got {
			t.Fatalf("scores diverged after round trip at %v: %v vs %v", p, want, got)
		}
	}
}

func TestDecisionFunction_RejectsDimensionMismatch(t *testing.T) {
	rows := clusteredRows(50, 6)
	f, err := TrainForest(rows, DefaultForestConfig())
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}
	if _, err := f.DecisionFunction([]float64{1}); err == nil {
		t.Fatalf("expected error on dimension mismatch")
	}
	if _, err := f.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatalf("expected error on dimension mismatch")
	}
}

func TestAvgPathLength_KnownValues(t *testing.T) {
	if got := avgPathLength(0); got != 0 {
		t.Fatalf("c(0) = %v, want 0", got)
	}
	if got := avgPathLength(1); got != 0 {
		t.Fatalf("c(1) = %v, want 0", got)
	}
	if got := avgPathLength(2); got != 1 {
		t.Fatalf("c(2) = %v, want 1", got)
	}
	// c(256) from the closed form.
	want := 2*(math.Log(255)+eulerGamma) - 2*255.0/256.0
	if math.Abs(avgPathLength(256)-want) > 1e-12 {
		t.Fatalf("c(256) = %v, want %v", avgPathLength(256), want)
	}
}
