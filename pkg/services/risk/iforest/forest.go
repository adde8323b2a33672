// Package iforest implements an isolation forest outlier estimator. Scores and
// the contamination-based threshold follow the usual definition: shorter
// average isolation paths mean more anomalous samples.
package iforest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649015329

type Config struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		Trees:         100,
		MaxSamples:    256,
		Contamination: 0.2,
		Seed:          42,
	}
}

func (c Config) validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("max samples must be positive, got %d", c.MaxSamples)
	}
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", c.Contamination)
	}
	return nil
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	size      int
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Forest is a fitted isolation forest.
type Forest struct {
	trees      []*node
	sampleSize int
	// Offset is the score at the contamination percentile of the training set.
	Offset float64
}

// Fit grows the forest over X and calibrates the decision threshold.
func Fit(X [][]float64, cfg Config) (*Forest, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.New("cannot fit on an empty matrix")
	}
	width := len(X[0])
	if width == 0 {
		return nil, errors.New("cannot fit on zero features")
	}
	for i, row := range X {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	sampleSize := min(cfg.MaxSamples, len(X))
	maxDepth := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	f := &Forest{
		trees:      make([]*node, 0, cfg.Trees),
		sampleSize: sampleSize,
	}
	for range cfg.Trees {
		idx := rng.Perm(len(X))[:sampleSize]
		rows := make([][]float64, sampleSize)
		for i, j := range idx {
			rows[i] = X[j]
		}
		f.trees = append(f.trees, grow(rows, 0, maxDepth, rng))
	}

	scores := make([]float64, len(X))
	for i, row := range X {
		scores[i] = f.ScoreSample(row)
	}
	f.Offset = percentile(scores, 100*cfg.Contamination)
	return f, nil
}

func grow(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	// only features that still vary inside this node can split it
	width := len(rows[0])
	var candidates []int
	lows := make([]float64, width)
	highs := make([]float64, width)
	for feat := 0; feat < width; feat++ {
		lo, hi := rows[0][feat], rows[0][feat]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[feat])
			hi = math.Max(hi, r[feat])
		}
		lows[feat], highs[feat] = lo, hi
		if hi > lo {
			candidates = append(candidates, feat)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feat := candidates[rng.Intn(len(candidates))]
	threshold := lows[feat] + rng.Float64()*(highs[feat]-lows[feat])

	var left, right [][]float64
	for _, r := range rows {
		if r[feat] < threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(rows)}
	}

	return &node{
		feature:   feat,
		threshold: threshold,
		left:      grow(left, depth+1, maxDepth, rng),
		right:     grow(right, depth+1, maxDepth, rng),
		size:      len(rows),
	}
}

func pathLength(n *node, x []float64) float64 {
	depth := 0.0
	for !n.leaf() {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + averagePathLength(n.size)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// ScoreSample returns the negated anomaly score in [-1, 0]; lower is more
// anomalous.
func (f *Forest) ScoreSample(x []float64) float64 {
	total := 0.0
	for _, t := range f.trees {
		total += pathLength(t, x)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		return -0.5
	}
	return -math.Pow(2, -mean/norm)
}

// Decision is negative for outliers and positive for inliers.
func (f *Forest) Decision(x []float64) float64 {
	return f.ScoreSample(x) - f.Offset
}

// Predict returns -1 for an outlier and 1 for an inlier.
func (f *Forest) Predict(x []float64) int {
	if f.Decision(x) < 0 {
		return -1
	}
	return 1
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
