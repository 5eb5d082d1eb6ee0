package ml

import (
	"fmt"
	"math"
)

// Scaler standardizes features to zero mean and unit variance using
// statistics fitted once on the training corpus. Immutable after fit.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-feature mean and population standard deviation.
// A zero-variance feature scales by 1 so constant columns pass through.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: empty input")
	}
	dims := len(rows[0])
	if dims == 0 {
		return nil, fmt.Errorf("fit scaler: zero-width rows")
	}

	means := make([]float64, dims)
	for _, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("fit scaler: ragged input, want %d features got %d", dims, len(row))
		}
		for j, v := range row {
			means[j] += v
		}
	}
	n := float64(len(rows))
	for j := range means {
		means[j] /= n
	}

	stds := make([]float64, dims)
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	return &Scaler{Means: means, Stds: stds}, nil
}

// Dims reports the number of features the scaler was fitted on.
func (s *Scaler) Dims() int {
	return len(s.Means)
}

// Transform standardizes a single point. The input is not mutated.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Means) {
		return nil, fmt.Errorf("scaler transform: want %d features got %d", len(s.Means), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}

// TransformAll standardizes every row.
func (s *Scaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
