package ensemble

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// separableData builds a two-cluster dataset: genuine rows around the origin,
// fraudulent rows shifted well away, with mild seeded noise.
func separableData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		label := i % 2
		shift := 0.0
		if label == 1 {
			shift = 4.0
		}
		X[i] = []float64{
			shift + rng.NormFloat64()*0.5,
			shift + rng.NormFloat64()*0.5,
			rng.NormFloat64() * 0.5,
		}
		y[i] = label
	}
	return X, y
}

func TestScorersLearnSeparation(t *testing.T) {
	X, y := separableData(120, 7)

	scorers := []Scorer{
		NewRandomForestScorer(7),
		NewGradientBoostedScorer(),
		NewLogisticScorer(),
		NewSequenceScorer(7),
	}

	for _, s := range scorers {
		if err := s.Fit(X, y); err != nil {
			t.Fatalf("Fitting %s failed: %v", s.Name(), err)
		}
		probs, err := s.PredictProba(X)
		if err != nil {
			t.Fatalf("Predicting with %s failed: %v", s.Name(), err)
		}

		correct := 0
		for i, p := range probs {
			if p < 0 || p > 1 {
				t.Errorf("%s produced out-of-range probability %v", s.Name(), p)
			}
			pred := 0
			if p > 0.5 {
				pred = 1
			}
			if pred == y[i] {
				correct++
			}
		}
		acc := float64(correct) / float64(len(y))
		if acc < 0.9 {
			t.Errorf("Expected %s to separate the clusters (accuracy >= 0.9). Got: %v", s.Name(), acc)
		}
	}
}

func TestPredictBeforeFit(t *testing.T) {
	X := [][]float64{{1, 2, 3}}

	scorers := []Scorer{
		NewRandomForestScorer(1),
		NewGradientBoostedScorer(),
		NewLogisticScorer(),
		NewSequenceScorer(1),
	}
	for _, s := range scorers {
		if _, err := s.PredictProba(X); !errors.Is(err, ErrNotFitted) {
			t.Errorf("Expected ErrNotFitted from unfitted %s. Got: %v", s.Name(), err)
		}
	}
}

func TestEnsembleFitAndScore(t *testing.T) {
	X, y := separableData(120, 11)

	e := New(11)
	reports, err := e.Fit(X, y, 11)
	if err != nil {
		t.Fatalf("Ensemble fit failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("Expected 3 validation reports. Got: %d", len(reports))
	}
	for _, r := range reports {
		if r.Accuracy < 0.8 {
			t.Errorf("Expected held-out accuracy >= 0.8 for %s. Got: %v", r.Model, r.Accuracy)
		}
		if r.Support == 0 {
			t.Errorf("Expected nonzero validation support for %s", r.Model)
		}
	}

	result, err := e.Score([]float64{4.1, 3.9, 0.1})
	if err != nil {
		t.Fatalf("Scoring failed: %v", err)
	}
	if !result.IsFraud {
		t.Errorf("Expected a fraud-cluster row to score above 0.5. Got: %v", result.Fused)
	}
	if len(result.PerModel) != 3 {
		t.Errorf("Expected per-model probabilities from all 3 scorers. Got: %d", len(result.PerModel))
	}
	if len(result.Degraded) != 0 {
		t.Errorf("Expected no degraded scorers. Got: %v", result.Degraded)
	}

	// Fused value must be the mean of the per-model probabilities
	sum := 0.0
	for _, p := range result.PerModel {
		sum += p
	}
	if math.Abs(result.Fused-sum/3) > 1e-12 {
		t.Errorf("Expected fused = mean of per-model. Got fused %v, mean %v", result.Fused, sum/3)
	}
}

func TestEnsembleReproducibility(t *testing.T) {
	X, y := separableData(80, 23)

	a := New(23)
	b := New(23)
	if _, err := a.Fit(X, y, 23); err != nil {
		t.Fatalf("First fit failed: %v", err)
	}
	if _, err := b.Fit(X, y, 23); err != nil {
		t.Fatalf("Second fit failed: %v", err)
	}

	ra, err := a.Score(X[0])
	if err != nil {
		t.Fatalf("Scoring failed: %v", err)
	}
	rb, err := b.Score(X[0])
	if err != nil {
		t.Fatalf("Scoring failed: %v", err)
	}
	if ra.Fused != rb.Fused {
		t.Errorf("Expected identical fused scores for identical seeds. Got: %v vs %v", ra.Fused, rb.Fused)
	}
}

// brokenScorer always fails prediction, standing in for a model whose
// artifact could not be loaded.
type brokenScorer struct{}

func (brokenScorer) Name() string                 { return "broken_model" }
func (brokenScorer) Fit([][]float64, []int) error { return nil }
func (brokenScorer) PredictProba([][]float64) ([]float64, error) {
	return nil, &ModelUnavailableError{Model: "broken_model", Err: ErrNotFitted}
}

// fixedScorer answers a constant probability.
type fixedScorer struct {
	name string
	p    float64
}

func (f fixedScorer) Name() string                 { return f.name }
func (f fixedScorer) Fit([][]float64, []int) error { return nil }
func (f fixedScorer) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = f.p
	}
	return out, nil
}

func TestEnsembleDegradation(t *testing.T) {
	e := &Ensemble{
		Scorers: []Scorer{
			fixedScorer{name: "model_a", p: 0.9},
			fixedScorer{name: "model_b", p: 0.7},
			brokenScorer{},
		},
		ClassificationThreshold: 0.5,
	}

	result, err := e.Score([]float64{1, 2})
	if err != nil {
		t.Fatalf("Expected degraded scoring to succeed. Got: %v", err)
	}

	// The broken scorer must be excluded, not averaged in as zero:
	// (0.9 + 0.7) / 2, never (0.9 + 0.7 + 0) / 3.
	if math.Abs(result.Fused-0.8) > 1e-12 {
		t.Errorf("Expected fused score 0.8 over the 2 available scorers. Got: %v", result.Fused)
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != "broken_model" {
		t.Errorf("Expected broken_model in the degraded list. Got: %v", result.Degraded)
	}
	if _, ok := result.PerModel["broken_model"]; ok {
		t.Errorf("Expected no per-model entry for the broken scorer")
	}
}

func TestEnsembleAllScorersUnavailable(t *testing.T) {
	e := &Ensemble{Scorers: []Scorer{brokenScorer{}, brokenScorer{}}}
	if _, err := e.ScoreBatch([][]float64{{1}}); err == nil {
		t.Errorf("Expected an error when every scorer is unavailable")
	}
}

func TestTrainValSplit(t *testing.T) {
	train, val := TrainValSplit(10, 0.2, 42)
	if len(train) != 8 || len(val) != 2 {
		t.Errorf("Expected 8/2 split. Got: %d/%d", len(train), len(val))
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), val...) {
		if seen[i] {
			t.Errorf("Index %d appears in both partitions", i)
		}
		seen[i] = true
	}
	if len(seen) != 10 {
		t.Errorf("Expected every index assigned exactly once. Got: %d", len(seen))
	}

	// Tiny inputs still keep at least one row per side
	train, val = TrainValSplit(2, 0.2, 1)
	if len(train) != 1 || len(val) != 1 {
		t.Errorf("Expected 1/1 split for n=2. Got: %d/%d", len(train), len(val))
	}

	// Same seed, same partition
	a, _ := TrainValSplit(10, 0.2, 7)
	b, _ := TrainValSplit(10, 0.2, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Expected deterministic split for identical seeds")
			break
		}
	}
}

func TestClassificationReport(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.2, 0.4, 0.6, 0.1}
	y := []int{1, 1, 0, 0, 0, 1}

	r := ClassificationReport("test_model", probs, y, 0.5)
	// Predictions: 1 1 0 0 1 0 → class 1: tp=2 fp=1 fn=1; class 0: tp=2 fp=1 fn=1
	if math.Abs(r.Accuracy-4.0/6.0) > 1e-12 {
		t.Errorf("Expected accuracy 4/6. Got: %v", r.Accuracy)
	}
	pos := r.Classes["1"]
	if math.Abs(pos.Precision-2.0/3.0) > 1e-12 {
		t.Errorf("Expected class-1 precision 2/3. Got: %v", pos.Precision)
	}
	if math.Abs(pos.Recall-2.0/3.0) > 1e-12 {
		t.Errorf("Expected class-1 recall 2/3. Got: %v", pos.Recall)
	}
	if pos.Support != 3 {
		t.Errorf("Expected class-1 support 3. Got: %d", pos.Support)
	}

	// Degenerate case: no predicted positives must not produce NaN
	r = ClassificationReport("test_model", []float64{0.1, 0.2}, []int{1, 0}, 0.5)
	if math.IsNaN(r.Classes["1"].Precision) || math.IsNaN(r.Classes["1"].F1) {
		t.Errorf("Expected zero, not NaN, for a class with no predicted positives")
	}
}
