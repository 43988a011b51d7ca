package ensemble

import (
	"math"
	"math/rand"
)

// SequenceScorer is the optional fourth variant: a compact recurrent network
// trained on binary cross-entropy. Each input row is consumed as an ordered
// sequence of scalar steps (the per-account history window laid out by the
// assembler); the hidden state is tanh-activated and the scalar output is
// sigmoid-activated, so it plugs into the same predict-probability contract
// as the classical scorers.
//
// Input contract: fixed-width rows; width must match between Fit and
// PredictProba. Output: one probability in (0,1) per row.
type SequenceScorer struct {
	HiddenDim    int     `json:"hiddenDim"`    // Defaults to 8
	Epochs       int     `json:"epochs"`       // Defaults to 50
	LearningRate float64 `json:"learningRate"` // Defaults to 0.02
	Seed         int64   `json:"seed"`

	// Fitted parameters
	Wx       []float64   `json:"wx"` // Input→hidden, per hidden unit
	Wh       [][]float64 `json:"wh"` // Hidden→hidden
	Bh       []float64   `json:"bh"`
	Wo       []float64   `json:"wo"` // Hidden→output
	Bo       float64     `json:"bo"`
	IsFitted bool        `json:"isFitted"`
}

// NewSequenceScorer returns a scorer with the default topology.
func NewSequenceScorer(seed int64) *SequenceScorer {
	return &SequenceScorer{HiddenDim: 8, Epochs: 50, LearningRate: 0.02, Seed: seed}
}

func (s *SequenceScorer) Name() string { return "sequence_model" }

func (s *SequenceScorer) params() (hidden, epochs int, lr float64) {
	hidden, epochs, lr = s.HiddenDim, s.Epochs, s.LearningRate
	if hidden <= 0 {
		hidden = 8
	}
	if epochs <= 0 {
		epochs = 50
	}
	if lr <= 0 {
		lr = 0.02
	}
	return hidden, epochs, lr
}

// Fit trains by stochastic gradient descent with full backpropagation
// through time over each row's steps. The seed fixes the weight
// initialization and the per-epoch sample order.
func (s *SequenceScorer) Fit(X [][]float64, y []int) error {
	if err := checkMatrix(X, y); err != nil {
		return err
	}
	hidden, epochs, lr := s.params()

	rng := rand.New(rand.NewSource(s.Seed))
	scale := 1.0 / math.Sqrt(float64(hidden))

	s.Wx = make([]float64, hidden)
	s.Bh = make([]float64, hidden)
	s.Wo = make([]float64, hidden)
	s.Wh = make([][]float64, hidden)
	for i := 0; i < hidden; i++ {
		s.Wx[i] = rng.NormFloat64() * scale
		s.Wo[i] = rng.NormFloat64() * scale
		s.Wh[i] = make([]float64, hidden)
		for j := 0; j < hidden; j++ {
			s.Wh[i][j] = rng.NormFloat64() * scale
		}
	}
	s.Bo = 0

	hs := make([][]float64, 0)    // h_0..h_T for the current sample
	dh := make([]float64, hidden) // dL/dh_t
	da := make([]float64, hidden) // dL/d preactivation
	dhPrev := make([]float64, hidden)

	for epoch := 0; epoch < epochs; epoch++ {
		order := rng.Perm(len(X))
		for _, i := range order {
			row := X[i]
			target := float64(y[i])

			// Forward, keeping every hidden state for BPTT
			hs = hs[:0]
			h := make([]float64, hidden)
			hs = append(hs, h)
			for _, x := range row {
				next := make([]float64, hidden)
				for u := 0; u < hidden; u++ {
					a := s.Wx[u]*x + s.Bh[u]
					for v := 0; v < hidden; v++ {
						a += s.Wh[u][v] * h[v]
					}
					next[u] = math.Tanh(a)
				}
				h = next
				hs = append(hs, h)
			}

			z := s.Bo
			for u := 0; u < hidden; u++ {
				z += s.Wo[u] * h[u]
			}
			p := sigmoid(z)

			// Backward: dL/dz for BCE + sigmoid is (p - y)
			dz := p - target
			for u := 0; u < hidden; u++ {
				dh[u] = dz * s.Wo[u]
				s.Wo[u] -= lr * dz * h[u]
			}
			s.Bo -= lr * dz

			for t := len(row); t >= 1; t-- {
				ht := hs[t]
				hPrev := hs[t-1]
				x := row[t-1]
				for u := 0; u < hidden; u++ {
					da[u] = dh[u] * (1 - ht[u]*ht[u])
				}
				for u := 0; u < hidden; u++ {
					dhPrev[u] = 0
				}
				for u := 0; u < hidden; u++ {
					s.Wx[u] -= lr * da[u] * x
					s.Bh[u] -= lr * da[u]
					for v := 0; v < hidden; v++ {
						dhPrev[v] += s.Wh[u][v] * da[u]
						s.Wh[u][v] -= lr * da[u] * hPrev[v]
					}
				}
				copy(dh, dhPrev)
			}
		}
	}

	s.IsFitted = true
	return nil
}

// PredictProba runs the forward pass per row.
func (s *SequenceScorer) PredictProba(X [][]float64) ([]float64, error) {
	if !s.IsFitted || len(s.Wx) == 0 {
		return nil, &ModelUnavailableError{Model: s.Name(), Err: ErrNotFitted}
	}
	if err := checkMatrix(X, nil); err != nil {
		return nil, err
	}

	hidden := len(s.Wx)
	out := make([]float64, len(X))
	h := make([]float64, hidden)
	next := make([]float64, hidden)

	for i, row := range X {
		for u := range h {
			h[u] = 0
		}
		for _, x := range row {
			for u := 0; u < hidden; u++ {
				a := s.Wx[u]*x + s.Bh[u]
				for v := 0; v < hidden; v++ {
					a += s.Wh[u][v] * h[v]
				}
				next[u] = math.Tanh(a)
			}
			copy(h, next)
		}
		z := s.Bo
		for u := 0; u < hidden; u++ {
			z += s.Wo[u] * h[u]
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}
