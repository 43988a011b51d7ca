package models

// FeatureRecord maps feature names to numeric values for one scoring unit
// (an account id or a transaction id, depending on the extractor).
// Every record produced by one extractor run carries the identical name set;
// missing inputs yield an explicit zero, never an absent key, so the
// assembler can align records into a matrix.
type FeatureRecord map[string]float64

// FeatureVector is one ordered row of the assembled feature matrix.
// Column order is fixed by the schema fitted at training time.
type FeatureVector struct {
	Key    string    `json:"key"` // Transaction id this row scores
	Values []float64 `json:"values"`
}

// EnsembleResult is the immutable output of one scoring call.
type EnsembleResult struct {
	PerModel map[string]float64 `json:"perModel"`           // Positive-class probability per scorer
	Fused    float64            `json:"fused"`              // Unweighted mean over available scorers
	IsFraud  bool               `json:"isFraud"`            // Fused > classification threshold (0.5 default)
	Degraded []string           `json:"degraded,omitempty"` // Scorers excluded from the average
}

// RiskDecision is the operational verdict derived from the fused probability.
// The alerting threshold is deliberately decoupled from the ensemble's own
// classification cutoff.
type RiskDecision struct {
	RiskScore      float64 `json:"riskScore"` // Fused probability on a 0-100 scale
	IsSuspicious   bool    `json:"isSuspicious"`
	Recommendation string  `json:"recommendation"`
}

// ValidationReport holds per-class precision/recall/F1 for one trained scorer,
// computed on the held-out split. Observational only; never drives control flow.
type ValidationReport struct {
	Model    string                  `json:"model"`
	Classes  map[string]ClassMetrics `json:"classes"` // Keyed "0" / "1"
	Accuracy float64                 `json:"accuracy"`
	Support  int                     `json:"support"` // Held-out rows evaluated
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}
