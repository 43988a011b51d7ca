package ensemble

import (
	"math/rand"
	"sort"
)

// Classification tree used by the forest variant. Nodes live in a flat
// arena so a fitted tree serializes directly; Left/Right are arena indices,
// -1 on leaves.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Prob      float64 `json:"prob"` // Positive-class fraction at this node
	IsLeaf    bool    `json:"isLeaf"`
}

type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// treeParams bound the recursive split search.
type treeParams struct {
	maxDepth    int
	minLeaf     int
	featureFrac float64 // Fraction of features examined per split (forest mtry)
}

// growTree builds a CART tree over the row subset `idx` using Gini impurity.
// rng drives per-split feature subsampling; pass featureFrac=1 for a
// deterministic full-feature tree.
func growTree(X [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) Tree {
	t := Tree{}
	t.build(X, y, idx, 0, p, rng)
	return t
}

func (t *Tree) build(X [][]float64, y []int, idx []int, depth int, p treeParams, rng *rand.Rand) int {
	node := TreeNode{Left: -1, Right: -1, Prob: positiveFraction(y, idx)}
	nodeID := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf || isPure(y, idx) {
		t.Nodes[nodeID].IsLeaf = true
		return nodeID
	}

	feature, threshold, ok := bestGiniSplit(X, y, idx, p, rng)
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
	if len(left) < p.minLeaf || len(right) < p.minLeaf {
		t.Nodes[nodeID].IsLeaf = true
		return nodeID
	}

	t.Nodes[nodeID].Feature = feature
	t.Nodes[nodeID].Threshold = threshold
	t.Nodes[nodeID].Left = t.build(X, y, left, depth+1, p, rng)
	t.Nodes[nodeID].Right = t.build(X, y, right, depth+1, p, rng)
	return nodeID
}

// bestGiniSplit scans candidate features for the threshold minimizing the
// weighted Gini impurity of the two children. Candidate thresholds are
// midpoints between consecutive distinct sorted values.
func bestGiniSplit(X [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) (int, float64, bool) {
	dim := len(X[0])
	features := candidateFeatures(dim, p.featureFrac, rng)

	bestGini := 1.0
	bestFeature, bestThreshold := -1, 0.0
	found := false

	values := make([]float64, 0, len(idx))
	for _, f := range features {
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

			var nL, posL, nR, posR int
			for _, i := range idx {
				if X[i][f] <= threshold {
					nL++
					posL += y[i]
				} else {
					nR++
					posR += y[i]
				}
			}
			gini := weightedGini(nL, posL, nR, posR)
			if gini < bestGini {
				bestGini = gini
				bestFeature = f
				bestThreshold = threshold
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func candidateFeatures(dim int, frac float64, rng *rand.Rand) []int {
	if frac >= 1 || rng == nil {
		all := make([]int, dim)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := int(float64(dim) * frac)
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(dim)
	return perm[:k]
}

func weightedGini(nL, posL, nR, posR int) float64 {
	total := float64(nL + nR)
	return (float64(nL)*giniOf(nL, posL) + float64(nR)*giniOf(nR, posR)) / total
}

func giniOf(n, pos int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func positiveFraction(y []int, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	return float64(pos) / float64(len(idx))
}

func isPure(y []int, idx []int) bool {
	if len(idx) == 0 {
		return true
	}
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

// PredictProba walks a single row to its leaf probability.
func (t *Tree) PredictProba(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0.5
	}
	node := 0
	for !t.Nodes[node].IsLeaf {
		if row[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Prob
}
