package features

import (
	"math"
	"sort"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Behavioral Feature Extraction
//
// Per-sender aggregates over the full ledger snapshot:
//
//   1. Frequency: transaction count, total and average amount sent
//   2. Rhythm: mean/std of time gaps between consecutive transactions
//   3. Anomaly rate: count/fraction of amounts above the global
//      95th-percentile threshold
//
// Pure function of the snapshot — no retained state, no mutation. Accounts
// with a single transaction have zero time-gap statistics; an extraction
// never emits NaN.

// Behavioral feature column names. The name set is fixed per run so the
// assembler can align records into a matrix.
const (
	FeatTxCount         = "transaction_count"
	FeatTotalAmount     = "total_transaction_amount"
	FeatAvgTxSize       = "avg_transaction_size"
	FeatAvgTimeBetween  = "avg_time_between_transactions"
	FeatStdTimeBetween  = "std_time_between_transactions"
	FeatAbnormalCount   = "abnormal_transaction_count"
	FeatAbnormalPercent = "abnormal_transaction_percentage"
)

// BehavioralConfig tunes the abnormal-amount threshold.
type BehavioralConfig struct {
	// AbnormalQuantile is the global amount quantile above which a
	// transaction counts as abnormal. Defaults to 0.95.
	AbnormalQuantile float64

	// FrozenAbnormalThreshold, when set, pins the abnormal-amount cutoff to a
	// training-time value instead of recomputing the quantile per pass. This
	// avoids train/inference skew on drifting ledgers.
	FrozenAbnormalThreshold *float64
}

func (c BehavioralConfig) quantile() float64 {
	if c.AbnormalQuantile <= 0 || c.AbnormalQuantile >= 1 {
		return 0.95
	}
	return c.AbnormalQuantile
}

// ExtractBehavioral produces one FeatureRecord per distinct sender account.
// An empty ledger yields an empty map.
func ExtractBehavioral(ledger models.Ledger, cfg BehavioralConfig) map[string]models.FeatureRecord {
	out := make(map[string]models.FeatureRecord)
	if len(ledger) == 0 {
		return out
	}

	threshold := AbnormalThreshold(ledger, cfg)

	for sender, txs := range ledger.BySenderTimeSorted() {
		count := float64(len(txs))

		total := 0.0
		abnormal := 0.0
		for _, tx := range txs {
			total += tx.Amount
			if tx.Amount > threshold {
				abnormal++
			}
		}

		avgSize := 0.0
		if count > 0 {
			avgSize = total / count
		}

		avgGap, stdGap := timeGapStats(txs)

		out[sender] = models.FeatureRecord{
			FeatTxCount:         count,
			FeatTotalAmount:     total,
			FeatAvgTxSize:       avgSize,
			FeatAvgTimeBetween:  avgGap,
			FeatStdTimeBetween:  stdGap,
			FeatAbnormalCount:   abnormal,
			FeatAbnormalPercent: abnormal / count,
		}
	}

	return out
}

// AbnormalThreshold resolves the abnormal-amount cutoff for a snapshot:
// the frozen training-time value when pinned, otherwise the global quantile
// of all amounts recomputed for this pass.
func AbnormalThreshold(ledger models.Ledger, cfg BehavioralConfig) float64 {
	if cfg.FrozenAbnormalThreshold != nil {
		return *cfg.FrozenAbnormalThreshold
	}
	amounts := make([]float64, len(ledger))
	for i, tx := range ledger {
		amounts[i] = tx.Amount
	}
	return Quantile(amounts, cfg.quantile())
}

// Quantile computes the q-quantile of values with linear interpolation
// between order statistics. Empty input resolves to 0.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// timeGapStats computes the mean and standard deviation of consecutive
// time differences within one account's time-sorted transactions.
// Fewer than 2 transactions → both stats are 0, never NaN.
func timeGapStats(txs []models.Transaction) (mean, std float64) {
	if len(txs) < 2 {
		return 0, 0
	}

	gaps := make([]float64, len(txs)-1)
	sum := 0.0
	for i := 1; i < len(txs); i++ {
		gaps[i-1] = txs[i].Timestamp.Sub(txs[i-1].Timestamp).Seconds()
		sum += gaps[i-1]
	}
	mean = sum / float64(len(gaps))

	if len(gaps) < 2 {
		return mean, 0
	}
	varianceSum := 0.0
	for _, g := range gaps {
		diff := g - mean
		varianceSum += diff * diff
	}
	// Sample standard deviation (n-1 denominator)
	std = math.Sqrt(varianceSum / float64(len(gaps)-1))
	return mean, std
}
