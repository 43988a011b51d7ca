package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/chainsift/fraudscore-engine/internal/ensemble"
	"github.com/chainsift/fraudscore-engine/internal/features"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// TrainingSummary is returned by a completed training run.
type TrainingSummary struct {
	Rows           int                       `json:"rows"`           // Labeled rows used
	SkippedUnknown int                       `json:"skippedUnknown"` // Rows dropped for Label == unknown
	Duration       time.Duration             `json:"duration"`
	Reports        []models.ValidationReport `json:"reports"`
	ArtifactPath   string                    `json:"artifactPath,omitempty"`
	FeatureColumns int                       `json:"featureColumns"`
}

// ModelTrainer fits the assembler and the full scorer set over a labeled
// ledger snapshot and persists the resulting bundle. Progress is exposed via
// atomic counters so an API handler can poll a run in flight.
type ModelTrainer struct {
	cfg Config

	modelsTotal   atomic.Int64
	modelsTrained atomic.Int64
	running       atomic.Bool
}

// NewTrainer builds a trainer sharing the detector's configuration.
func NewTrainer(cfg Config) *ModelTrainer {
	return &ModelTrainer{cfg: cfg}
}

// Progress reports trained/total model counts for the current or last run.
func (t *ModelTrainer) Progress() (trained, total int64, running bool) {
	return t.modelsTrained.Load(), t.modelsTotal.Load(), t.running.Load()
}

// Train fits on the labeled subset of the snapshot, validates on a seeded
// held-out split, writes the artifact bundle, and returns the summary.
// Cancellation is honored between model fits; a cancelled run persists
// nothing.
func (t *ModelTrainer) Train(ctx context.Context, ledger models.Ledger) (*TrainingSummary, *Bundle, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, nil, fmt.Errorf("a training run is already in progress")
	}
	defer t.running.Store(false)

	start := time.Now()
	labeled, skipped := splitLabeled(ledger)
	if len(labeled) == 0 {
		return nil, nil, fmt.Errorf("no labeled transactions to train on (%d unlabeled skipped)", skipped)
	}

	assembler := features.NewAssembler(assemblerConfig(t.cfg))
	if err := assembler.Fit(ledger); err != nil {
		return nil, nil, fmt.Errorf("fitting feature assembler: %w", err)
	}

	// Features come from the full snapshot so behavioral and graph context
	// includes unlabeled neighbors; only labeled rows enter the fit.
	vectors, err := assembler.Vectors(ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("building training vectors: %w", err)
	}
	byID := make(map[string][]float64, len(vectors))
	for _, v := range vectors {
		byID[v.Key] = v.Values
	}

	X := make([][]float64, 0, len(labeled))
	y := make([]int, 0, len(labeled))
	for _, tx := range labeled {
		row, ok := byID[tx.ID]
		if !ok {
			continue
		}
		X = append(X, row)
		y = append(y, int(tx.Label))
	}

	e := newEnsemble(t.cfg)
	t.modelsTotal.Store(int64(len(e.Scorers)))
	t.modelsTrained.Store(0)

	log.Printf("Training %d models on %d labeled rows (%d columns)", len(e.Scorers), len(X), len(assembler.Schema))
	reports, err := e.FitContext(ctx, X, y, t.cfg.Seed, func(name string) {
		n := t.modelsTrained.Add(1)
		log.Printf("Trained %s (%d/%d)", name, n, t.modelsTotal.Load())
	})
	if err != nil {
		return nil, nil, err
	}

	bundle := &Bundle{Assembler: assembler}
	for _, s := range e.Scorers {
		switch m := s.(type) {
		case *ensemble.RandomForestScorer:
			bundle.Forest = m
		case *ensemble.GradientBoostedScorer:
			bundle.Boosted = m
		case *ensemble.LogisticScorer:
			bundle.Logistic = m
		case *ensemble.SequenceScorer:
			bundle.Sequence = m
		}
	}

	summary := &TrainingSummary{
		Rows:           len(X),
		SkippedUnknown: skipped,
		Duration:       time.Since(start),
		Reports:        reports,
		FeatureColumns: len(assembler.Schema),
	}

	if t.cfg.ArtifactPath != "" {
		if err := bundle.Save(t.cfg.ArtifactPath); err != nil {
			return nil, nil, err
		}
		summary.ArtifactPath = t.cfg.ArtifactPath
	}
	return summary, bundle, nil
}

func splitLabeled(ledger models.Ledger) (labeled models.Ledger, skipped int) {
	for _, tx := range ledger {
		if tx.Label == models.LabelUnknown {
			skipped++
			continue
		}
		labeled = append(labeled, tx)
	}
	return labeled, skipped
}
