package features

import (
	"math"

	"github.com/chainsift/fraudscore-engine/internal/graph"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Feature Assembler
//
// Merges the behavioral, temporal and graph FeatureRecords plus the raw
// numeric fields into one ordered FeatureVector per transaction, then applies
// the fitted z-score standardization. Column order is fixed by the schema
// built at fit time; the same schema and the same zero-default policy apply
// at training and at inference, so the two paths cannot skew apart.
//
// The three extractors are mutually independent pure functions of the
// snapshot; the assembler is the only place their outputs meet.

// CurrentSchemaVersion identifies the feature schema layout. Bump when
// columns are added, removed or reordered.
const CurrentSchemaVersion = 1

// Raw ledger columns consumed directly.
const (
	FeatAmount = "amount"
	FeatFee    = "fee"
)

// AssemblerConfig carries the extractor tuning knobs.
type AssemblerConfig struct {
	Behavioral BehavioralConfig `json:"behavioral"`
	Temporal   TemporalConfig   `json:"temporal"`

	// FreezeAbnormalThreshold pins the behavioral abnormal-amount cutoff to
	// the value observed at fit time instead of recomputing it per pass.
	FreezeAbnormalThreshold bool `json:"freezeAbnormalThreshold"`
}

// Assembler builds and normalizes the feature matrix. Fit it once on a
// training snapshot; the fitted state (schema + scaler) is the persisted
// artifact inference must reuse.
type Assembler struct {
	Config        AssemblerConfig `json:"config"`
	Schema        []string        `json:"schema"`
	SchemaVersion int             `json:"schemaVersion"`
	Scaler        StandardScaler  `json:"scaler"`
}

// NewAssembler returns a configuration-only assembler. Call Fit before
// requesting normalized vectors.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	a := &Assembler{Config: cfg, SchemaVersion: CurrentSchemaVersion}
	a.Schema = a.buildSchema()
	return a
}

// buildSchema emits the canonical column order: raw fields, temporal,
// behavioral, then graph blocks.
func (a *Assembler) buildSchema() []string {
	cols := []string{
		FeatAmount, FeatFee,
		FeatHour, FeatDayOfWeek, FeatIsWeekend,
		FeatTimeSinceLast, FeatHasPriorTx,
	}
	for _, w := range a.Config.Temporal.windows() {
		cols = append(cols, RollingMeanCol(w), RollingStdCol(w))
	}
	cols = append(cols,
		FeatTxCount, FeatTotalAmount, FeatAvgTxSize,
		FeatAvgTimeBetween, FeatStdTimeBetween,
		FeatAbnormalCount, FeatAbnormalPercent,
		FeatDegreeCentrality, FeatBetweennessCentrality, FeatClusteringCoefficient,
		FeatEdgeBetweenness, FeatJaccardCoefficient,
	)
	return cols
}

// ValidateLedger fails fast on malformed or missing required fields.
func ValidateLedger(ledger models.Ledger) error {
	for i, tx := range ledger {
		switch {
		case tx.ID == "":
			return validationErr("id", "transaction %d has empty id", i)
		case tx.Sender == "":
			return validationErr("sender", "transaction %s has empty sender", tx.ID)
		case tx.Receiver == "":
			return validationErr("receiver", "transaction %s has empty receiver", tx.ID)
		case tx.Timestamp.IsZero():
			return validationErr("timestamp", "transaction %s has zero timestamp", tx.ID)
		case math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) || tx.Amount < 0:
			return validationErr("amount", "transaction %s has invalid amount %v", tx.ID, tx.Amount)
		case math.IsNaN(tx.Fee) || math.IsInf(tx.Fee, 0) || tx.Fee < 0:
			return validationErr("fee", "transaction %s has invalid fee %v", tx.ID, tx.Fee)
		}
	}
	return nil
}

// BuildRows runs the three extractors over the snapshot and merges their
// records into raw (unnormalized) rows in schema order, one per transaction,
// returned alongside the transaction ids. Missing feature values default to
// 0 — identically at fit and at score time.
func (a *Assembler) BuildRows(ledger models.Ledger) ([][]float64, []string, error) {
	if err := ValidateLedger(ledger); err != nil {
		return nil, nil, err
	}

	behavioralCfg := a.Config.Behavioral
	if a.Config.FreezeAbnormalThreshold && a.Scaler.Fitted && behavioralCfg.FrozenAbnormalThreshold == nil {
		return nil, nil, validationErr("config", "frozen abnormal threshold requested but no fitted value stored")
	}

	behavioral := ExtractBehavioral(ledger, behavioralCfg)
	temporal := ExtractTemporal(ledger, a.Config.Temporal)
	nodes := ExtractGraphNodes(ledger)
	edges := ExtractGraphEdges(ledger)

	rows := make([][]float64, 0, len(ledger))
	keys := make([]string, 0, len(ledger))

	for _, tx := range ledger {
		merged := models.FeatureRecord{
			FeatAmount: tx.Amount,
			FeatFee:    tx.Fee,
		}
		for name, v := range temporal[tx.ID] {
			merged[name] = v
		}
		for name, v := range behavioral[tx.Sender] {
			merged[name] = v
		}
		for name, v := range nodes[tx.Sender] {
			merged[name] = v
		}
		edge := normalizedEdge(tx.Sender, tx.Receiver)
		for name, v := range edges[edge] {
			merged[name] = v
		}

		row := make([]float64, len(a.Schema))
		for j, col := range a.Schema {
			row[j] = merged[col] // Absent keys read as the zero default
		}
		rows = append(rows, row)
		keys = append(keys, tx.ID)
	}

	return rows, keys, nil
}

func normalizedEdge(a, b string) graph.Edge {
	if a > b {
		a, b = b, a
	}
	return graph.Edge{A: a, B: b}
}

// Fit builds the raw matrix from a training snapshot and fits the scaler.
// When FreezeAbnormalThreshold is set the per-pass 95th-percentile cutoff
// observed here is pinned for all later passes.
func (a *Assembler) Fit(ledger models.Ledger) error {
	if len(ledger) == 0 {
		return validationErr("ledger", "cannot fit on an empty ledger")
	}

	if a.Config.FreezeAbnormalThreshold {
		threshold := AbnormalThreshold(ledger, a.Config.Behavioral)
		a.Config.Behavioral.FrozenAbnormalThreshold = &threshold
	}

	rows, _, err := a.BuildRows(ledger)
	if err != nil {
		return err
	}
	return a.Scaler.Fit(rows, a.Schema)
}

// Vectors returns the normalized feature vectors for a snapshot, in ledger
// order. The assembler must have been fitted (or loaded from a fitted
// artifact) first.
func (a *Assembler) Vectors(ledger models.Ledger) ([]models.FeatureVector, error) {
	if !a.Scaler.Fitted {
		return nil, validationErr("scaler", "vectors requested before fit")
	}

	rows, keys, err := a.BuildRows(ledger)
	if err != nil {
		return nil, err
	}

	out := make([]models.FeatureVector, len(rows))
	for i, row := range rows {
		scaled, err := a.Scaler.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = models.FeatureVector{Key: keys[i], Values: scaled}
	}
	return out, nil
}
