package features

import (
	"fmt"
	"math"
	"time"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// Temporal Feature Extraction
//
// Per-transaction time-derived features:
//
//   1. Calendar position: hour-of-day, day-of-week, weekend flag
//   2. Rolling amount statistics over trailing windows of W transactions
//      by the same sender, for each configured window size
//   3. Recency: seconds since the sender's previous transaction, with an
//      explicit has_prior flag instead of a silent NaN for first transactions
//
// Ordering inside each sender partition is timestamp ascending with ties
// broken by ingestion order, so results are deterministic for any snapshot.

// Temporal feature column names independent of window size.
const (
	FeatHour          = "hour"
	FeatDayOfWeek     = "day_of_week"
	FeatIsWeekend     = "is_weekend"
	FeatTimeSinceLast = "time_since_last_tx"
	FeatHasPriorTx    = "has_prior_tx"
)

// RollingMeanCol and RollingStdCol name the per-window rolling columns.
func RollingMeanCol(window int) string { return fmt.Sprintf("amount_rolling_mean_%d", window) }
func RollingStdCol(window int) string  { return fmt.Sprintf("amount_rolling_std_%d", window) }

// TemporalConfig selects the trailing window sizes.
type TemporalConfig struct {
	Windows []int // Defaults to {10, 50, 100}
}

func (c TemporalConfig) windows() []int {
	if len(c.Windows) == 0 {
		return []int{10, 50, 100}
	}
	return c.Windows
}

// ExtractTemporal produces one FeatureRecord per transaction, keyed by
// transaction id. An empty ledger yields an empty map.
func ExtractTemporal(ledger models.Ledger, cfg TemporalConfig) map[string]models.FeatureRecord {
	out := make(map[string]models.FeatureRecord, len(ledger))
	windows := cfg.windows()

	for _, txs := range ledger.BySenderTimeSorted() {
		for i, tx := range txs {
			rec := models.FeatureRecord{
				FeatHour:      float64(tx.Timestamp.UTC().Hour()),
				FeatDayOfWeek: float64(dayOfWeekMondayZero(tx.Timestamp.UTC())),
				FeatIsWeekend: 0,
			}
			if isWeekend(tx.Timestamp.UTC()) {
				rec[FeatIsWeekend] = 1
			}

			// Recency relative to the same sender's previous transaction.
			// First transaction: has_prior=0 and gap pinned to 0, never NaN.
			if i == 0 {
				rec[FeatHasPriorTx] = 0
				rec[FeatTimeSinceLast] = 0
			} else {
				rec[FeatHasPriorTx] = 1
				rec[FeatTimeSinceLast] = tx.Timestamp.Sub(txs[i-1].Timestamp).Seconds()
			}

			// Trailing windows include the current transaction and up to W-1
			// preceding ones from the same sender.
			for _, w := range windows {
				lo := i - w + 1
				if lo < 0 {
					lo = 0
				}
				mean, std := amountStats(txs[lo : i+1])
				rec[RollingMeanCol(w)] = mean
				rec[RollingStdCol(w)] = std
			}

			out[tx.ID] = rec
		}
	}

	return out
}

// dayOfWeekMondayZero maps time.Weekday to the 0=Monday .. 6=Sunday scale.
func dayOfWeekMondayZero(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// amountStats computes mean and sample std of amounts in a window slice.
// Windows with a single observation have std 0.
func amountStats(txs []models.Transaction) (mean, std float64) {
	n := float64(len(txs))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, tx := range txs {
		sum += tx.Amount
	}
	mean = sum / n

	if len(txs) < 2 {
		return mean, 0
	}
	varianceSum := 0.0
	for _, tx := range txs {
		diff := tx.Amount - mean
		varianceSum += diff * diff
	}
	std = math.Sqrt(varianceSum / (n - 1))
	return mean, std
}
