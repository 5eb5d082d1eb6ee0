// Package ml implements the anomaly model: a standard scaler plus an
// isolation forest. Points that separate from the corpus in few random
// splits score as anomalous. The decision function matches the usual
// convention: positive means inlier, negative means outlier, with the
// zero line placed at the contamination quantile of the training scores.
package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649015329

// ForestConfig are the training knobs. Contamination is the fraction of
// training rows treated as expected outliers; the corpus is assumed mostly
// normal, so it stays small.
type ForestConfig struct {
	NumTrees      int     `json:"num_trees"`
	SubsampleSize int     `json:"subsample_size"`
	Contamination float64 `json:"contamination"`
	RandomSeed    int64   `json:"random_seed"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:      200,
		SubsampleSize: 256,
		Contamination: 0.01,
		RandomSeed:    42,
	}
}

// treeNode is one node of an isolation tree in flattened form. Left == -1
// marks a leaf; Size is the number of training points that reached it.
type treeNode struct {
	Feature int     `json:"f"`
	Split   float64 `json:"s"`
	Left    int     `json:"l"`
	Right   int     `json:"r"`
	Size    int     `json:"n"`
}

type isolationTree struct {
	Nodes []treeNode `json:"nodes"`
}

// Forest is a fitted isolation forest. Immutable after training.
type Forest struct {
	Config ForestConfig    `json:"config"`
	Dims   int             `json:"dims"`
	Trees  []isolationTree `json:"trees"`
	// Offset places the decision boundary at the contamination quantile of
	// the training scores. DecisionFunction(x) = -score(x) - Offset.
	Offset float64 `json:"offset"`
}

// TrainForest fits an isolation forest on standardized rows.
func TrainForest(rows [][]float64, cfg ForestConfig) (*Forest, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("train forest: empty input")
	}
	dims := len(rows[0])
	for _, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("train forest: ragged input")
		}
	}
	if cfg.NumTrees <= 0 || cfg.SubsampleSize <= 0 {
		return nil, fmt.Errorf("train forest: non-positive tree or subsample count")
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		return nil, fmt.Errorf("train forest: contamination %v out of (0, 0.5)", cfg.Contamination)
	}

	sample := cfg.SubsampleSize
	if sample > len(rows) {
		sample = len(rows)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	f := &Forest{
		Config: cfg,
		Dims:   dims,
		Trees:  make([]isolationTree, cfg.NumTrees),
	}
	f.Config.SubsampleSize = sample

	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	for t := range f.Trees {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		sub := make([]int, sample)
		copy(sub, indices[:sample])

		b := &treeBuilder{rows: rows, rng: rng, heightLimit: heightLimit}
		b.grow(sub, 0)
		f.Trees[t] = isolationTree{Nodes: b.nodes}
	}

	// Place the zero line so that about Contamination of the training rows
	// fall below it.
	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = -f.anomalyScore(row)
	}
	sort.Float64s(scores)
	f.Offset = quantile(scores, cfg.Contamination)

	return f, nil
}

type treeBuilder struct {
	rows        [][]float64
	rng         *rand.Rand
	heightLimit int
	nodes       []treeNode
}

// grow builds the subtree over the given sample indices and returns its
// node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	node := treeNode{Feature: -1, Left: -1, Right: -1, Size: len(idx)}

	if depth >= b.heightLimit || len(idx) <= 1 {
		b.nodes = append(b.nodes, node)
		return len(b.nodes) - 1
	}

	dims := len(b.rows[idx[0]])
	feature := b.rng.Intn(dims)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := b.rows[i][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// All points identical on the chosen feature; treat as external.
		b.nodes = append(b.nodes, node)
		return len(b.nodes) - 1
	}

	split := lo + b.rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range idx {
		if b.rows[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	node.Split = split
	b.nodes = append(b.nodes, node)
	pos := len(b.nodes) - 1
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos].Left = l
	b.nodes[pos].Right = r
	return pos
}

// pathLength walks one tree and returns the adjusted path length for x.
func (t *isolationTree) pathLength(x []float64) float64 {
	depth := 0.0
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return depth + avgPathLength(n.Size)
		}
		if x[n.Feature] < n.Split {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// anomalyScore is the classic s(x) in (0, 1]: near 1 for anomalies, around
// 0.5 and below for inliers.
func (f *Forest) anomalyScore(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].pathLength(x)
	}
	mean := sum / float64(len(f.Trees))
	return math.Pow(2, -mean/avgPathLength(f.Config.SubsampleSize))
}

// DecisionFunction returns the signed score for a standardized point:
// positive for inliers, negative for outliers.
func (f *Forest) DecisionFunction(x []float64) (float64, error) {
	if len(x) != f.Dims {
		return 0, fmt.Errorf("forest decision: want %d features got %d", f.Dims, len(x))
	}
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("forest decision: no trees")
	}
	return -f.anomalyScore(x) - f.Offset, nil
}

// Predict reports the binary vote: true means outlier.
func (f *Forest) Predict(x []float64) (bool, error) {
	d, err := f.DecisionFunction(x)
	if err != nil {
		return false, err
	}
	return d < 0, nil
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search in a tree of n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// quantile performs linear interpolation over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
