package ensemble

import (
	"math"
	"sort"
)

// GradientBoostedScorer is the boosted variant: shallow regression trees fit
// stagewise to the gradient of the log-loss, with Newton-step leaf values.
// Prediction is sigmoid(F0 + shrinkage · Σ trees).
type GradientBoostedScorer struct {
	NumRounds int              `json:"numRounds"` // Defaults to 100
	Shrinkage float64          `json:"shrinkage"` // Defaults to 0.1
	MaxDepth  int              `json:"maxDepth"`  // Defaults to 3
	MinLeaf   int              `json:"minLeaf"`   // Defaults to 2
	InitScore float64          `json:"initScore"` // Base-rate log-odds
	Trees     []RegressionTree `json:"trees"`
	IsFitted  bool             `json:"isFitted"`
}

// NewGradientBoostedScorer returns a booster with the default schedule.
func NewGradientBoostedScorer() *GradientBoostedScorer {
	return &GradientBoostedScorer{NumRounds: 100, Shrinkage: 0.1, MaxDepth: 3, MinLeaf: 2}
}

func (s *GradientBoostedScorer) Name() string { return "gradient_boosting" }

func (s *GradientBoostedScorer) params() (rounds int, shrinkage float64, maxDepth, minLeaf int) {
	rounds, shrinkage, maxDepth, minLeaf = s.NumRounds, s.Shrinkage, s.MaxDepth, s.MinLeaf
	if rounds <= 0 {
		rounds = 100
	}
	if shrinkage <= 0 {
		shrinkage = 0.1
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if minLeaf <= 0 {
		minLeaf = 2
	}
	return
}

// Fit runs stagewise boosting on the log-loss.
func (s *GradientBoostedScorer) Fit(X [][]float64, y []int) error {
	if err := checkMatrix(X, y); err != nil {
		return err
	}
	rounds, shrinkage, maxDepth, minLeaf := s.params()

	// Initial score: log-odds of the base rate, clamped away from ±inf on
	// single-class training sets
	pos := 0
	for _, label := range y {
		pos += label
	}
	base := (float64(pos) + 0.5) / (float64(len(y)) + 1.0)
	s.InitScore = math.Log(base / (1 - base))

	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = s.InitScore
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	s.Trees = make([]RegressionTree, 0, rounds)
	residuals := make([]float64, len(X))
	hessians := make([]float64, len(X))

	for round := 0; round < rounds; round++ {
		for i := range X {
			p := sigmoid(scores[i])
			residuals[i] = float64(y[i]) - p
			hessians[i] = p * (1 - p)
		}

		tree := growRegressionTree(X, residuals, hessians, idx, maxDepth, minLeaf)
		s.Trees = append(s.Trees, tree)

		for i, row := range X {
			scores[i] += shrinkage * tree.Predict(row)
		}
	}

	s.IsFitted = true
	return nil
}

// PredictProba accumulates the staged scores per row.
func (s *GradientBoostedScorer) PredictProba(X [][]float64) ([]float64, error) {
	if !s.IsFitted || len(s.Trees) == 0 {
		return nil, &ModelUnavailableError{Model: s.Name(), Err: ErrNotFitted}
	}
	if err := checkMatrix(X, nil); err != nil {
		return nil, err
	}

	_, shrinkage, _, _ := s.params()
	out := make([]float64, len(X))
	for i, row := range X {
		score := s.InitScore
		for t := range s.Trees {
			score += shrinkage * s.Trees[t].Predict(row)
		}
		out[i] = sigmoid(score)
	}
	return out, nil
}

// RegressionTree fits squared-error splits on the boosting residuals; leaf
// values are the Newton step Σgrad / Σhess.
type RegressionTreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	IsLeaf    bool    `json:"isLeaf"`
}

type RegressionTree struct {
	Nodes []RegressionTreeNode `json:"nodes"`
}

func growRegressionTree(X [][]float64, grad, hess []float64, idx []int, maxDepth, minLeaf int) RegressionTree {
	t := RegressionTree{}
	t.build(X, grad, hess, idx, 0, maxDepth, minLeaf)
	return t
}

func (t *RegressionTree) build(X [][]float64, grad, hess []float64, idx []int, depth, maxDepth, minLeaf int) int {
	node := RegressionTreeNode{Left: -1, Right: -1, Value: newtonLeaf(grad, hess, idx)}
	nodeID := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= maxDepth || len(idx) < 2*minLeaf {
		t.Nodes[nodeID].IsLeaf = true
		return nodeID
	}

	feature, threshold, ok := bestVarianceSplit(X, grad, idx)
	if !ok {
		t.Nodes[nodeID].IsLeaf = true
		return nodeID
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < minLeaf || len(right) < minLeaf {
		t.Nodes[nodeID].IsLeaf = true
		return nodeID
	}

	t.Nodes[nodeID].Feature = feature
	t.Nodes[nodeID].Threshold = threshold
	t.Nodes[nodeID].Left = t.build(X, grad, hess, left, depth+1, maxDepth, minLeaf)
	t.Nodes[nodeID].Right = t.build(X, grad, hess, right, depth+1, maxDepth, minLeaf)
	return nodeID
}

// bestVarianceSplit minimizes the summed squared error of the residuals in
// the two children, equivalent to maximizing variance reduction.
func bestVarianceSplit(X [][]float64, grad []float64, idx []int) (int, float64, bool) {
	dim := len(X[0])
	bestSSE := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0
	found := false

	values := make([]float64, 0, len(idx))
	for f := 0; f < dim; f++ {
		values = values[:0]
		for _, i := range idx {
			values = append(values, X[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			var nL, nR float64
			var sumL, sumR, sqL, sqR float64
			for _, i := range idx {
				if X[i][f] <= threshold {
					nL++
					sumL += grad[i]
					sqL += grad[i] * grad[i]
				} else {
					nR++
					sumR += grad[i]
					sqR += grad[i] * grad[i]
				}
			}
			if nL == 0 || nR == 0 {
				continue
			}
			sse := (sqL - sumL*sumL/nL) + (sqR - sumR*sumR/nR)
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = f
				bestThreshold = threshold
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func newtonLeaf(grad, hess []float64, idx []int) float64 {
	var g, h float64
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	if h < 1e-12 {
		return 0
	}
	return g / h
}

// Predict walks a single row to its leaf value.
func (t *RegressionTree) Predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	node := 0
	for !t.Nodes[node].IsLeaf {
		if row[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Value
}
