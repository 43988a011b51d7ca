package features

import (
	"math"
	"testing"
	"time"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

func tx(id, sender, receiver string, amount float64, at int64) models.Transaction {
	return models.Transaction{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Unix(at, 0).UTC(),
		Label:     models.LabelUnknown,
	}
}

func TestExtractBehavioral_EmptyLedger(t *testing.T) {
	records := ExtractBehavioral(nil, BehavioralConfig{})

	if len(records) != 0 {
		t.Errorf("Expected no records for empty ledger. Got: %d", len(records))
	}
}

func TestExtractBehavioral_AbnormalScenario(t *testing.T) {
	// A sends 100, 50, 9000; only the 9000 transfer clears the global
	// 95th-percentile amount
	ledger := models.Ledger{
		tx("t1", "A", "B", 100, 0),
		tx("t2", "A", "C", 50, 1),
		tx("t3", "A", "B", 9000, 2),
	}

	records := ExtractBehavioral(ledger, BehavioralConfig{})
	rec, ok := records["A"]
	if !ok {
		t.Fatalf("Expected a record for sender A")
	}

	if rec[FeatTxCount] != 3 {
		t.Errorf("Expected transaction_count=3. Got: %f", rec[FeatTxCount])
	}
	if rec[FeatAbnormalCount] != 1 {
		t.Errorf("Expected abnormal_transaction_count=1. Got: %f", rec[FeatAbnormalCount])
	}
	if math.Abs(rec[FeatAbnormalPercent]-1.0/3.0) > 1e-9 {
		t.Errorf("Expected abnormal_transaction_percentage≈0.333. Got: %f", rec[FeatAbnormalPercent])
	}
	if math.Abs(rec[FeatTotalAmount]-9150) > 1e-9 {
		t.Errorf("Expected total_transaction_amount=9150. Got: %f", rec[FeatTotalAmount])
	}
	if math.Abs(rec[FeatAvgTxSize]-3050) > 1e-9 {
		t.Errorf("Expected avg_transaction_size=3050. Got: %f", rec[FeatAvgTxSize])
	}
}

func TestExtractBehavioral_SingleTransactionAccount(t *testing.T) {
	ledger := models.Ledger{tx("t1", "A", "B", 10, 0)}

	rec := ExtractBehavioral(ledger, BehavioralConfig{})["A"]

	if rec[FeatAvgTimeBetween] != 0 || rec[FeatStdTimeBetween] != 0 {
		t.Errorf("Expected zero time-gap stats for single-tx account. Got: avg=%f std=%f",
			rec[FeatAvgTimeBetween], rec[FeatStdTimeBetween])
	}
	if math.IsNaN(rec[FeatAvgTxSize]) {
		t.Errorf("Expected no NaN propagation, got NaN avg_transaction_size")
	}
}

func TestExtractBehavioral_TimeGaps(t *testing.T) {
	// Gaps of 60s and 120s → mean 90
	ledger := models.Ledger{
		tx("t1", "A", "B", 10, 0),
		tx("t2", "A", "B", 10, 60),
		tx("t3", "A", "B", 10, 180),
	}

	rec := ExtractBehavioral(ledger, BehavioralConfig{})["A"]

	if math.Abs(rec[FeatAvgTimeBetween]-90) > 1e-9 {
		t.Errorf("Expected avg gap 90s. Got: %f", rec[FeatAvgTimeBetween])
	}
	if rec[FeatStdTimeBetween] <= 0 {
		t.Errorf("Expected positive std for unequal gaps. Got: %f", rec[FeatStdTimeBetween])
	}
}

func TestExtractBehavioral_FrozenThreshold(t *testing.T) {
	frozen := 500.0
	ledger := models.Ledger{
		tx("t1", "A", "B", 100, 0),
		tx("t2", "A", "C", 600, 1),
	}

	rec := ExtractBehavioral(ledger, BehavioralConfig{FrozenAbnormalThreshold: &frozen})["A"]

	if rec[FeatAbnormalCount] != 1 {
		t.Errorf("Expected 1 abnormal tx above the pinned 500 cutoff. Got: %f", rec[FeatAbnormalCount])
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"Empty", nil, 0.95, 0},
		{"Single", []float64{7}, 0.95, 7},
		{"Median", []float64{1, 2, 3}, 0.5, 2},
		{"Interpolated", []float64{0, 10}, 0.25, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantile(tt.values, tt.q)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Quantile() = %v, want %v", got, tt.expected)
			}
		})
	}
}
