// Package ensemble fuses a fixed set of independently trained classifiers
// into one fraud probability per transaction.
//
// Fusion is an unweighted mean over the scorers that answered. A scorer that
// cannot answer (unfitted, artifact failed to load, prediction error) is
// excluded from the average and reported in the result's Degraded list; the
// call fails only when every scorer is unavailable. The classification cutoff
// is fixed at fit time and applies to the fused probability, never to the
// per-model ones.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// DefaultClassificationThreshold is the fused-probability cutoff for the
// binary fraud flag. Operational alerting applies its own, higher bar
// downstream.
const DefaultClassificationThreshold = 0.5

// defaultValFrac is the held-out share used for the validation reports.
const defaultValFrac = 0.2

// Ensemble owns the scorer set and the fusion policy.
type Ensemble struct {
	Scorers                 []Scorer
	ClassificationThreshold float64
}

// New builds the standard three-model ensemble. The seed feeds every
// stochastic scorer so two ensembles built with the same seed and fitted on
// the same matrix produce identical probabilities.
func New(seed int64) *Ensemble {
	return &Ensemble{
		Scorers: []Scorer{
			NewRandomForestScorer(seed),
			NewGradientBoostedScorer(),
			NewLogisticScorer(),
		},
		ClassificationThreshold: DefaultClassificationThreshold,
	}
}

// NewWithSequence adds the recurrent scorer to the standard set.
func NewWithSequence(seed int64) *Ensemble {
	e := New(seed)
	e.Scorers = append(e.Scorers, NewSequenceScorer(seed))
	return e
}

// Fit trains every scorer on a shared seeded train/validation split and
// returns one classification report per scorer, computed on the held-out
// rows. A scorer that fails to fit aborts training: a partially trained
// ensemble is never persisted.
func (e *Ensemble) Fit(X [][]float64, y []int, seed int64) ([]models.ValidationReport, error) {
	return e.FitContext(context.Background(), X, y, seed, nil)
}

// FitContext is Fit with cancellation checked between model fits, and an
// optional callback invoked after each scorer finishes training.
func (e *Ensemble) FitContext(ctx context.Context, X [][]float64, y []int, seed int64, onFitted func(name string)) ([]models.ValidationReport, error) {
	if err := checkMatrix(X, y); err != nil {
		return nil, err
	}
	if len(e.Scorers) == 0 {
		return nil, errors.New("ensemble has no scorers configured")
	}

	trainIdx, valIdx := TrainValSplit(len(X), defaultValFrac, seed)
	trainX, trainY := gather(X, y, trainIdx)
	valX, valY := gather(X, y, valIdx)

	reports := make([]models.ValidationReport, 0, len(e.Scorers))
	for _, s := range e.Scorers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training cancelled before %s: %w", s.Name(), err)
		}
		if err := s.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fitting %s: %w", s.Name(), err)
		}
		if onFitted != nil {
			onFitted(s.Name())
		}
		if len(valX) == 0 {
			continue
		}
		probs, err := s.PredictProba(valX)
		if err != nil {
			return nil, fmt.Errorf("validating %s: %w", s.Name(), err)
		}
		reports = append(reports, ClassificationReport(s.Name(), probs, valY, e.threshold()))
	}
	return reports, nil
}

// Score fuses the scorers' probabilities for a single row.
func (e *Ensemble) Score(row []float64) (models.EnsembleResult, error) {
	results, err := e.ScoreBatch([][]float64{row})
	if err != nil {
		return models.EnsembleResult{}, err
	}
	return results[0], nil
}

// ScoreBatch scores every row, excluding any scorer that fails from the
// fused average for the whole batch. It errors only when no scorer at all
// produced probabilities.
func (e *Ensemble) ScoreBatch(X [][]float64) ([]models.EnsembleResult, error) {
	if err := checkMatrix(X, nil); err != nil {
		return nil, err
	}

	type answered struct {
		name  string
		probs []float64
	}
	var (
		available []answered
		degraded  []string
	)
	for _, s := range e.Scorers {
		probs, err := s.PredictProba(X)
		if err != nil {
			log.Printf("Warning: scorer %s excluded from fusion: %v", s.Name(), err)
			degraded = append(degraded, s.Name())
			continue
		}
		available = append(available, answered{name: s.Name(), probs: probs})
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("all %d scorers unavailable", len(e.Scorers))
	}

	results := make([]models.EnsembleResult, len(X))
	for i := range X {
		perModel := make(map[string]float64, len(available))
		sum := 0.0
		for _, a := range available {
			perModel[a.name] = a.probs[i]
			sum += a.probs[i]
		}
		fused := sum / float64(len(available))
		results[i] = models.EnsembleResult{
			PerModel: perModel,
			Fused:    fused,
			IsFraud:  fused > e.threshold(),
			Degraded: degraded,
		}
	}
	return results, nil
}

func (e *Ensemble) threshold() float64 {
	if e.ClassificationThreshold > 0 {
		return e.ClassificationThreshold
	}
	return DefaultClassificationThreshold
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}
