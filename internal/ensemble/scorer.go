package ensemble

import (
	"errors"
	"fmt"
	"math"
)

// Scorer is the capability contract every classifier in the ensemble
// implements: fit on a labeled matrix, then emit the positive-class
// probability per row. The fusion step iterates a fixed variant set behind
// this interface, never a dynamically-typed list.
type Scorer interface {
	Name() string
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) ([]float64, error)
}

// ErrNotFitted is returned when prediction is requested from a scorer whose
// parameters have not been fitted or loaded.
var ErrNotFitted = errors.New("scorer is not fitted")

// ModelUnavailableError marks a configured scorer whose artifact failed to
// load or whose prediction failed. The ensemble degrades gracefully by
// excluding the scorer from the fusion average rather than failing the call.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %s unavailable: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

func sigmoid(z float64) float64 {
	// Clamp to keep exp finite; beyond ±30 the output saturates anyway
	if z > 30 {
		return 1
	}
	if z < -30 {
		return 0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func checkMatrix(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("empty training matrix")
	}
	if y != nil && len(y) != len(X) {
		return fmt.Errorf("label count %d does not match row count %d", len(y), len(X))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("ragged matrix: row %d has width %d, expected %d", i, len(row), width)
		}
	}
	return nil
}
