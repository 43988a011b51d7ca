package features

import "math"

// StandardScaler applies z-score standardization with per-column mean/std
// fitted once at training time. The fitted parameters are a versioned,
// persisted artifact; inference applies them as-is and never refits.
type StandardScaler struct {
	Columns []string  `json:"columns"` // Schema the scaler was fitted against
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
	Fitted  bool      `json:"fitted"`
}

// Fit computes per-column mean and std over the training matrix.
// Constant columns get std 1 so transforming them is the identity shift
// rather than a division by zero.
func (s *StandardScaler) Fit(matrix [][]float64, columns []string) error {
	if len(matrix) == 0 {
		return validationErr("matrix", "cannot fit scaler on an empty matrix")
	}
	cols := len(columns)
	for i, row := range matrix {
		if len(row) != cols {
			return validationErr("matrix", "row %d has %d values, schema has %d columns", i, len(row), cols)
		}
	}

	s.Columns = append([]string(nil), columns...)
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	n := float64(len(matrix))
	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range matrix {
			sum += row[j]
		}
		s.Means[j] = sum / n

		varianceSum := 0.0
		for _, row := range matrix {
			diff := row[j] - s.Means[j]
			varianceSum += diff * diff
		}
		std := math.Sqrt(varianceSum / n)
		if std == 0 {
			std = 1
		}
		s.Stds[j] = std
	}

	s.Fitted = true
	return nil
}

// Transform standardizes one row in place-safe fashion (returns a new slice).
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, validationErr("scaler", "transform called before fit")
	}
	if len(row) != len(s.Columns) {
		return nil, validationErr("scaler", "row has %d values, fitted schema has %d columns", len(row), len(s.Columns))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}

// InverseTransform recovers raw values from a standardized row.
func (s *StandardScaler) InverseTransform(row []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, validationErr("scaler", "inverse transform called before fit")
	}
	if len(row) != len(s.Columns) {
		return nil, validationErr("scaler", "row has %d values, fitted schema has %d columns", len(row), len(s.Columns))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v*s.Stds[j] + s.Means[j]
	}
	return out, nil
}
