package generator

import (
	"testing"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumTransactions = 500

	a := New(cfg).Generate()
	b := New(cfg).Generate()

	if len(a) != 500 || len(b) != 500 {
		t.Fatalf("Expected 500 transactions. Got: %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Amount != b[i].Amount {
			t.Fatalf("Expected identical ledgers for identical seeds, diverged at row %d", i)
		}
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumTransactions = 1000
	cfg.FraudRate = 0.1

	ledger := New(cfg).Generate()

	fraud := 0
	for i, tx := range ledger {
		if tx.Sender == tx.Receiver {
			t.Errorf("Self-transfer generated at row %d", i)
		}
		if tx.Amount <= 0 || tx.Fee < 0 {
			t.Errorf("Invalid amount/fee at row %d: %v / %v", i, tx.Amount, tx.Fee)
		}
		if i > 0 && ledger[i].Timestamp.Before(ledger[i-1].Timestamp) {
			t.Errorf("Ledger not sorted by timestamp at row %d", i)
		}
		switch tx.Label {
		case models.LabelFraud:
			fraud++
		case models.LabelGenuine:
		default:
			t.Errorf("Unexpected label %d at row %d", tx.Label, i)
		}
	}
	if fraud != 100 {
		t.Errorf("Expected 100 fraudulent transactions at a 0.1 rate. Got: %d", fraud)
	}

	seen := make(map[string]bool, len(ledger))
	for _, tx := range ledger {
		if seen[tx.ID] {
			t.Errorf("Duplicate transaction id %s", tx.ID)
		}
		seen[tx.ID] = true
	}
}
