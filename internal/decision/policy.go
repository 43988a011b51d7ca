// Package decision converts a fused fraud probability into the operational
// verdict surfaced to analysts: a 0-100 risk score, a suspicion flag, and a
// recommendation string.
package decision

import "github.com/chainsift/fraudscore-engine/pkg/models"

// DefaultAlertThreshold is the risk-score bar for flagging a transaction.
// It is deliberately stricter than the ensemble's own 0.5 classification
// cutoff: a transaction can classify as fraud yet stay below the alerting
// bar, and the two knobs are tuned independently.
const DefaultAlertThreshold = 70.0

const (
	// RecommendInvestigate is returned for transactions above the alert bar.
	RecommendInvestigate = "Further investigation required"
	// RecommendNormal is returned for everything else.
	RecommendNormal = "Transaction appears normal"
)

// Policy maps fused probabilities onto risk decisions.
type Policy struct {
	AlertThreshold float64
}

// NewPolicy returns the default policy.
func NewPolicy() *Policy {
	return &Policy{AlertThreshold: DefaultAlertThreshold}
}

// Decide scales the fused probability onto 0-100 and applies the alert bar.
// The comparison is strictly greater-than: a score exactly at the threshold
// is not flagged.
func (p *Policy) Decide(fusedProbability float64) models.RiskDecision {
	threshold := p.AlertThreshold
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}

	score := fusedProbability * 100
	d := models.RiskDecision{RiskScore: score}
	if score > threshold {
		d.IsSuspicious = true
		d.Recommendation = RecommendInvestigate
	} else {
		d.Recommendation = RecommendNormal
	}
	return d
}
