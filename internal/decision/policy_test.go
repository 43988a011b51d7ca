package decision

import (
	"math"
	"testing"
)

func TestDecide(t *testing.T) {
	p := NewPolicy()

	tests := []struct {
		name           string
		probability    float64
		wantScore      float64
		wantSuspicious bool
		wantRec        string
	}{
		{"HighProbability", 0.8, 80, true, RecommendInvestigate},
		{"ModerateProbability", 0.5, 50, false, RecommendNormal},
		{"ExactlyAtThreshold", 0.7, 70, false, RecommendNormal},
		{"JustAboveThreshold", 0.701, 70.1, true, RecommendInvestigate},
		{"Zero", 0.0, 0, false, RecommendNormal},
		{"Certain", 1.0, 100, true, RecommendInvestigate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.probability)
			if math.Abs(d.RiskScore-tt.wantScore) > 1e-9 {
				t.Errorf("Expected risk score %v. Got: %v", tt.wantScore, d.RiskScore)
			}
			if d.IsSuspicious != tt.wantSuspicious {
				t.Errorf("Expected suspicious=%v at probability %v. Got: %v", tt.wantSuspicious, tt.probability, d.IsSuspicious)
			}
			if d.Recommendation != tt.wantRec {
				t.Errorf("Expected recommendation %q. Got: %q", tt.wantRec, d.Recommendation)
			}
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	p := NewPolicy()
	prev := -1.0
	for prob := 0.0; prob <= 1.0; prob += 0.05 {
		d := p.Decide(prob)
		if d.RiskScore < prev {
			t.Errorf("Expected risk score to be monotonic in probability. Got %v after %v", d.RiskScore, prev)
		}
		prev = d.RiskScore
	}
}

func TestDecideCustomThreshold(t *testing.T) {
	p := &Policy{AlertThreshold: 50}
	if d := p.Decide(0.6); !d.IsSuspicious {
		t.Errorf("Expected 60 to be suspicious with a 50 threshold")
	}

	// Zero threshold falls back to the default
	p = &Policy{}
	if d := p.Decide(0.6); d.IsSuspicious {
		t.Errorf("Expected 60 to be below the default 70 threshold")
	}
}
