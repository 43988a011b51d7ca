package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chainsift/fraudscore-engine/internal/ensemble"
	"github.com/chainsift/fraudscore-engine/internal/features"
)

// Bundle is the persisted training artifact: the fitted assembler (schema,
// scaler, frozen thresholds) plus every fitted scorer's parameters. A bundle
// is written atomically and whole; partially trained state is never saved.
type Bundle struct {
	SavedAt   time.Time                       `json:"savedAt"`
	Assembler *features.Assembler             `json:"assembler"`
	Forest    *ensemble.RandomForestScorer    `json:"randomForest,omitempty"`
	Boosted   *ensemble.GradientBoostedScorer `json:"gradientBoosting,omitempty"`
	Logistic  *ensemble.LogisticScorer        `json:"logisticRegression,omitempty"`
	Sequence  *ensemble.SequenceScorer        `json:"sequenceModel,omitempty"`
}

// Save writes the bundle as JSON via a temp file and rename, so a crashed
// write never leaves a truncated artifact behind.
func (b *Bundle) Save(path string) error {
	if b.Assembler == nil || !b.Assembler.Scaler.Fitted {
		return fmt.Errorf("refusing to save bundle without a fitted assembler")
	}
	b.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing bundle: %w", err)
	}
	return nil
}

// LoadBundle reads a previously saved bundle. Schema version drift is an
// error: an artifact from an older feature layout must be retrained, not
// silently reinterpreted.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if b.Assembler == nil || !b.Assembler.Scaler.Fitted {
		return nil, fmt.Errorf("bundle at %s has no fitted assembler", path)
	}
	if b.Assembler.SchemaVersion != features.CurrentSchemaVersion {
		return nil, fmt.Errorf("bundle schema version %d does not match current %d; retrain required",
			b.Assembler.SchemaVersion, features.CurrentSchemaVersion)
	}
	return &b, nil
}
