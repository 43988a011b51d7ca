package ensemble

import "fmt"

// LogisticScorer is the linear-family variant: L2-regularized logistic
// regression trained by full-batch gradient descent. Deterministic for a
// given dataset and configuration.
type LogisticScorer struct {
	LearningRate float64   `json:"learningRate"` // Defaults to 0.1
	Epochs       int       `json:"epochs"`       // Defaults to 500
	L2           float64   `json:"l2"`           // Defaults to 1e-4
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	IsFitted     bool      `json:"isFitted"`
}

// NewLogisticScorer returns a scorer with the default training schedule.
func NewLogisticScorer() *LogisticScorer {
	return &LogisticScorer{LearningRate: 0.1, Epochs: 500, L2: 1e-4}
}

func (s *LogisticScorer) Name() string { return "logistic_regression" }

func (s *LogisticScorer) defaults() (lr float64, epochs int, l2 float64) {
	lr, epochs, l2 = s.LearningRate, s.Epochs, s.L2
	if lr <= 0 {
		lr = 0.1
	}
	if epochs <= 0 {
		epochs = 500
	}
	if l2 < 0 {
		l2 = 0
	}
	return lr, epochs, l2
}

// Fit runs full-batch gradient descent on the binary cross-entropy loss.
func (s *LogisticScorer) Fit(X [][]float64, y []int) error {
	if err := checkMatrix(X, y); err != nil {
		return err
	}
	lr, epochs, l2 := s.defaults()

	dim := len(X[0])
	n := float64(len(X))
	s.Weights = make([]float64, dim)
	s.Bias = 0

	gradW := make([]float64, dim)
	for epoch := 0; epoch < epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0

		for i, row := range X {
			z := s.Bias
			for j, v := range row {
				z += s.Weights[j] * v
			}
			err := sigmoid(z) - float64(y[i])
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}

		for j := range s.Weights {
			s.Weights[j] -= lr * (gradW[j]/n + l2*s.Weights[j])
		}
		s.Bias -= lr * gradB / n
	}

	s.IsFitted = true
	return nil
}

// PredictProba returns sigmoid(w·x + b) per row.
func (s *LogisticScorer) PredictProba(X [][]float64) ([]float64, error) {
	if !s.IsFitted {
		return nil, &ModelUnavailableError{Model: s.Name(), Err: ErrNotFitted}
	}
	if err := checkMatrix(X, nil); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Weights) {
			return nil, fmt.Errorf("row width %d does not match fitted width %d", len(row), len(s.Weights))
		}
		z := s.Bias
		for j, v := range row {
			z += s.Weights[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}
