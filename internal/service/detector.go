// Package service wires feature extraction, ensemble scoring and the decision
// policy into the fraud detector used by the API layer, plus the batch
// trainer that produces the persisted model artifacts.
package service

import (
	"fmt"
	"log"
	"sync"

	"github.com/chainsift/fraudscore-engine/internal/decision"
	"github.com/chainsift/fraudscore-engine/internal/ensemble"
	"github.com/chainsift/fraudscore-engine/internal/features"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Config controls detector construction and artifact location.
type Config struct {
	ArtifactPath            string
	Seed                    int64
	UseSequenceModel        bool
	FreezeAbnormalThreshold bool
	AlertThreshold          float64
	RollingWindows          []int
}

// Assessment pairs one analyzed transaction with its score and verdict.
type Assessment struct {
	TransactionID string                `json:"transactionId"`
	Result        models.EnsembleResult `json:"result"`
	Decision      models.RiskDecision   `json:"decision"`
}

// FraudDetector scores ledger snapshots against the fitted artifact bundle.
// Construction is two-phase: New wires configuration only; Load reads the
// fitted artifacts and makes the detector ready to score. Scoring before a
// successful Load (or Adopt after training) fails with ErrNotFitted via the
// ensemble.
type FraudDetector struct {
	cfg Config

	mu        sync.RWMutex
	assembler *features.Assembler
	scorers   *ensemble.Ensemble
	policy    *decision.Policy
}

// New builds an unloaded detector from configuration.
func New(cfg Config) *FraudDetector {
	policy := decision.NewPolicy()
	if cfg.AlertThreshold > 0 {
		policy.AlertThreshold = cfg.AlertThreshold
	}
	return &FraudDetector{
		cfg:       cfg,
		assembler: features.NewAssembler(assemblerConfig(cfg)),
		scorers:   newEnsemble(cfg),
		policy:    policy,
	}
}

func assemblerConfig(cfg Config) features.AssemblerConfig {
	ac := features.AssemblerConfig{
		FreezeAbnormalThreshold: cfg.FreezeAbnormalThreshold,
	}
	if len(cfg.RollingWindows) > 0 {
		ac.Temporal.Windows = cfg.RollingWindows
	}
	return ac
}

func newEnsemble(cfg Config) *ensemble.Ensemble {
	if cfg.UseSequenceModel {
		return ensemble.NewWithSequence(cfg.Seed)
	}
	return ensemble.New(cfg.Seed)
}

// Load reads the artifact bundle from the configured path. A bundle missing
// individual scorer sections loads anyway with a warning; the missing models
// degrade out of the fusion at score time. A bundle without a fitted
// assembler is unusable and fails the load.
func (d *FraudDetector) Load() error {
	bundle, err := LoadBundle(d.cfg.ArtifactPath)
	if err != nil {
		return fmt.Errorf("loading detector artifacts: %w", err)
	}
	d.Adopt(bundle)
	return nil
}

// Adopt swaps in a freshly trained or loaded bundle. Safe against concurrent
// scoring.
func (d *FraudDetector) Adopt(bundle *Bundle) {
	scorers := make([]ensemble.Scorer, 0, 4)
	if bundle.Forest != nil {
		scorers = append(scorers, bundle.Forest)
	} else {
		log.Printf("Warning: artifact bundle has no random forest; scoring will degrade")
		scorers = append(scorers, ensemble.NewRandomForestScorer(d.cfg.Seed))
	}
	if bundle.Boosted != nil {
		scorers = append(scorers, bundle.Boosted)
	} else {
		log.Printf("Warning: artifact bundle has no gradient boosting model; scoring will degrade")
		scorers = append(scorers, ensemble.NewGradientBoostedScorer())
	}
	if bundle.Logistic != nil {
		scorers = append(scorers, bundle.Logistic)
	} else {
		log.Printf("Warning: artifact bundle has no logistic model; scoring will degrade")
		scorers = append(scorers, ensemble.NewLogisticScorer())
	}
	if d.cfg.UseSequenceModel {
		if bundle.Sequence != nil {
			scorers = append(scorers, bundle.Sequence)
		} else {
			log.Printf("Warning: artifact bundle has no sequence model; scoring will degrade")
			scorers = append(scorers, ensemble.NewSequenceScorer(d.cfg.Seed))
		}
	}

	e := newEnsemble(d.cfg)
	e.Scorers = scorers

	d.mu.Lock()
	d.assembler = bundle.Assembler
	d.scorers = e
	d.mu.Unlock()
}

// Ready reports whether a fitted assembler is in place.
func (d *FraudDetector) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.assembler.Scaler.Fitted
}

// ExtractFeatures returns the normalized feature vectors for a snapshot.
func (d *FraudDetector) ExtractFeatures(ledger models.Ledger) ([]models.FeatureVector, error) {
	d.mu.RLock()
	assembler := d.assembler
	d.mu.RUnlock()
	return assembler.Vectors(ledger)
}

// Decide applies the alerting policy to a fused probability.
func (d *FraudDetector) Decide(fused float64) models.RiskDecision {
	return d.policy.Decide(fused)
}

// Analyze extracts, scores and decides every transaction in the snapshot.
// Feature extraction always runs over the whole snapshot: behavioral and
// graph signals of one transaction depend on its neighbors.
func (d *FraudDetector) Analyze(ledger models.Ledger) ([]Assessment, error) {
	d.mu.RLock()
	assembler := d.assembler
	scorers := d.scorers
	d.mu.RUnlock()

	vectors, err := assembler.Vectors(ledger)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}

	X := make([][]float64, len(vectors))
	for i, v := range vectors {
		X[i] = v.Values
	}
	results, err := scorers.ScoreBatch(X)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	out := make([]Assessment, len(results))
	for i, r := range results {
		out[i] = Assessment{
			TransactionID: vectors[i].Key,
			Result:        r,
			Decision:      d.policy.Decide(r.Fused),
		}
	}
	return out, nil
}

// AnalyzeOne scores a single transaction against the context of a snapshot
// that includes it.
func (d *FraudDetector) AnalyzeOne(ledger models.Ledger, txID string) (Assessment, error) {
	assessments, err := d.Analyze(ledger)
	if err != nil {
		return Assessment{}, err
	}
	for _, a := range assessments {
		if a.TransactionID == txID {
			return a, nil
		}
	}
	return Assessment{}, fmt.Errorf("transaction %s not present in the analyzed snapshot", txID)
}
