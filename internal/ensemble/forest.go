package ensemble

import (
	"math"
	"math/rand"
)

// RandomForestScorer is the tree-ensemble variant: bagged CART trees with
// per-split feature subsampling. The seed fixes the bootstrap and the
// subsampling, so training is reproducible.
type RandomForestScorer struct {
	NumTrees int    `json:"numTrees"` // Defaults to 100
	MaxDepth int    `json:"maxDepth"` // Defaults to 8
	MinLeaf  int    `json:"minLeaf"`  // Defaults to 2
	Seed     int64  `json:"seed"`
	Trees    []Tree `json:"trees"`
	IsFitted bool   `json:"isFitted"`
}

// NewRandomForestScorer returns a forest with the default shape.
func NewRandomForestScorer(seed int64) *RandomForestScorer {
	return &RandomForestScorer{NumTrees: 100, MaxDepth: 8, MinLeaf: 2, Seed: seed}
}

func (s *RandomForestScorer) Name() string { return "random_forest" }

func (s *RandomForestScorer) params() (numTrees, maxDepth, minLeaf int) {
	numTrees, maxDepth, minLeaf = s.NumTrees, s.MaxDepth, s.MinLeaf
	if numTrees <= 0 {
		numTrees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 8
	}
	if minLeaf <= 0 {
		minLeaf = 2
	}
	return numTrees, maxDepth, minLeaf
}

// Fit grows NumTrees trees, each on a bootstrap sample of the rows with
// sqrt(d)/d of the features examined per split.
func (s *RandomForestScorer) Fit(X [][]float64, y []int) error {
	if err := checkMatrix(X, y); err != nil {
		return err
	}
	numTrees, maxDepth, minLeaf := s.params()

	rng := rand.New(rand.NewSource(s.Seed))
	dim := len(X[0])
	featureFrac := math.Sqrt(float64(dim)) / float64(dim)

	s.Trees = make([]Tree, 0, numTrees)
	p := treeParams{maxDepth: maxDepth, minLeaf: minLeaf, featureFrac: featureFrac}

	for t := 0; t < numTrees; t++ {
		// Bootstrap sample, same size as the training set
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		s.Trees = append(s.Trees, growTree(X, y, idx, p, rng))
	}

	s.IsFitted = true
	return nil
}

// PredictProba averages the leaf probabilities across all trees.
func (s *RandomForestScorer) PredictProba(X [][]float64) ([]float64, error) {
	if !s.IsFitted || len(s.Trees) == 0 {
		return nil, &ModelUnavailableError{Model: s.Name(), Err: ErrNotFitted}
	}
	if err := checkMatrix(X, nil); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for t := range s.Trees {
			sum += s.Trees[t].PredictProba(row)
		}
		out[i] = sum / float64(len(s.Trees))
	}
	return out, nil
}
