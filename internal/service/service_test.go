package service

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// labeledLedger builds a deterministic snapshot where fraudulent transfers
// are large, fast-repeating amounts and genuine ones are small and spaced
// out, so the models have a learnable boundary.
func labeledLedger(n int, seed int64) models.Ledger {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	ledger := make(models.Ledger, 0, n)
	for i := 0; i < n; i++ {
		label := models.LabelGenuine
		amount := 20 + rng.Float64()*30
		gap := time.Duration(1+rng.Intn(48)) * time.Hour
		if i%3 == 0 {
			label = models.LabelFraud
			amount = 5000 + rng.Float64()*2000
			gap = time.Duration(1+rng.Intn(5)) * time.Minute
		}
		base = base.Add(gap)
		ledger = append(ledger, models.Transaction{
			ID:        fmt.Sprintf("tx-%03d", i),
			Sender:    fmt.Sprintf("acct-%d", i%7),
			Receiver:  fmt.Sprintf("acct-%d", (i+3)%7),
			Amount:    amount,
			Fee:       amount * 0.001,
			Timestamp: base,
			Label:     label,
		})
	}
	return ledger
}

func TestTrainAndAnalyze(t *testing.T) {
	cfg := Config{
		ArtifactPath:   filepath.Join(t.TempDir(), "models", "bundle.json"),
		Seed:           42,
		RollingWindows: []int{5, 10},
	}
	ledger := labeledLedger(90, 42)

	trainer := NewTrainer(cfg)
	summary, bundle, err := trainer.Train(context.Background(), ledger)
	if err != nil {
		t.Fatalf("Training failed: %v", err)
	}
	if summary.Rows != 90 {
		t.Errorf("Expected 90 labeled rows. Got: %d", summary.Rows)
	}
	if len(summary.Reports) != 3 {
		t.Errorf("Expected 3 validation reports. Got: %d", len(summary.Reports))
	}
	if bundle.Forest == nil || bundle.Boosted == nil || bundle.Logistic == nil {
		t.Fatalf("Expected all three fitted models in the bundle")
	}

	trained, total, running := trainer.Progress()
	if trained != total || total != 3 {
		t.Errorf("Expected progress 3/3 after completion. Got: %d/%d", trained, total)
	}
	if running {
		t.Errorf("Expected trainer idle after completion")
	}

	detector := New(cfg)
	if detector.Ready() {
		t.Errorf("Expected detector not ready before Load")
	}
	if err := detector.Load(); err != nil {
		t.Fatalf("Loading artifacts failed: %v", err)
	}
	if !detector.Ready() {
		t.Errorf("Expected detector ready after Load")
	}

	assessments, err := detector.Analyze(ledger)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}
	if len(assessments) != len(ledger) {
		t.Fatalf("Expected one assessment per transaction. Got: %d", len(assessments))
	}

	flaggedFraud, flaggedGenuine := 0, 0
	for i, a := range assessments {
		if a.Result.Fused < 0 || a.Result.Fused > 1 {
			t.Errorf("Fused probability out of range: %v", a.Result.Fused)
		}
		if a.Decision.RiskScore != a.Result.Fused*100 {
			t.Errorf("Expected risk score = fused*100. Got: %v vs %v", a.Decision.RiskScore, a.Result.Fused*100)
		}
		if a.Result.IsFraud {
			if ledger[i].Label == models.LabelFraud {
				flaggedFraud++
			} else {
				flaggedGenuine++
			}
		}
	}
	if flaggedFraud <= flaggedGenuine {
		t.Errorf("Expected fraud rows flagged more often than genuine ones. Got: %d vs %d", flaggedFraud, flaggedGenuine)
	}
}

func TestAnalyzeOne(t *testing.T) {
	cfg := Config{Seed: 7, RollingWindows: []int{5}}
	ledger := labeledLedger(60, 7)

	trainer := NewTrainer(cfg)
	_, bundle, err := trainer.Train(context.Background(), ledger)
	if err != nil {
		t.Fatalf("Training failed: %v", err)
	}

	detector := New(cfg)
	detector.Adopt(bundle)

	a, err := detector.AnalyzeOne(ledger, "tx-000")
	if err != nil {
		t.Fatalf("Single analysis failed: %v", err)
	}
	if a.TransactionID != "tx-000" {
		t.Errorf("Expected assessment for tx-000. Got: %s", a.TransactionID)
	}

	if _, err := detector.AnalyzeOne(ledger, "no-such-tx"); err == nil {
		t.Errorf("Expected an error for an unknown transaction id")
	}
}

func TestTrainCancellation(t *testing.T) {
	cfg := Config{Seed: 3, RollingWindows: []int{5}}
	ledger := labeledLedger(40, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := NewTrainer(cfg)
	if _, _, err := trainer.Train(ctx, ledger); err == nil {
		t.Errorf("Expected a cancelled context to abort training")
	}
}

func TestTrainRequiresLabels(t *testing.T) {
	ledger := labeledLedger(10, 1)
	for i := range ledger {
		ledger[i].Label = models.LabelUnknown
	}

	trainer := NewTrainer(Config{Seed: 1})
	if _, _, err := trainer.Train(context.Background(), ledger); err == nil {
		t.Errorf("Expected an error when no transaction carries a label")
	}
}

func TestBundleRoundTrip(t *testing.T) {
	cfg := Config{Seed: 5, RollingWindows: []int{5}}
	ledger := labeledLedger(60, 5)

	trainer := NewTrainer(cfg)
	_, bundle, err := trainer.Train(context.Background(), ledger)
	if err != nil {
		t.Fatalf("Training failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := bundle.Save(path); err != nil {
		t.Fatalf("Saving bundle failed: %v", err)
	}

	loaded, err := LoadBundle(path)
	if err != nil {
		t.Fatalf("Loading bundle failed: %v", err)
	}

	da := New(cfg)
	da.Adopt(bundle)
	db := New(cfg)
	db.Adopt(loaded)

	ra, err := da.Analyze(ledger)
	if err != nil {
		t.Fatalf("Analysis with in-memory bundle failed: %v", err)
	}
	rb, err := db.Analyze(ledger)
	if err != nil {
		t.Fatalf("Analysis with reloaded bundle failed: %v", err)
	}
	for i := range ra {
		if ra[i].Result.Fused != rb[i].Result.Fused {
			t.Errorf("Expected identical scores from saved and reloaded models at row %d. Got: %v vs %v",
				i, ra[i].Result.Fused, rb[i].Result.Fused)
		}
	}
}

func TestLoadMissingBundle(t *testing.T) {
	detector := New(Config{ArtifactPath: filepath.Join(t.TempDir(), "absent.json")})
	if err := detector.Load(); err == nil {
		t.Errorf("Expected an error loading a missing artifact file")
	}
}

func TestSaveRejectsUnfittedBundle(t *testing.T) {
	b := &Bundle{}
	if err := b.Save(filepath.Join(t.TempDir(), "bundle.json")); err == nil {
		t.Errorf("Expected save to refuse a bundle without a fitted assembler")
	}
}
