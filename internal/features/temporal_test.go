package features

import (
	"math"
	"testing"
	"time"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

func TestExtractTemporal_CalendarFeatures(t *testing.T) {
	// 2024-01-06 was a Saturday; 15:30 UTC
	at := time.Date(2024, 1, 6, 15, 30, 0, 0, time.UTC)
	ledger := models.Ledger{{
		ID: "t1", Sender: "A", Receiver: "B", Amount: 10, Timestamp: at,
	}}

	rec := ExtractTemporal(ledger, TemporalConfig{})["t1"]

	if rec[FeatHour] != 15 {
		t.Errorf("Expected hour=15. Got: %f", rec[FeatHour])
	}
	if rec[FeatDayOfWeek] != 5 {
		t.Errorf("Expected day_of_week=5 for Saturday (Monday=0). Got: %f", rec[FeatDayOfWeek])
	}
	if rec[FeatIsWeekend] != 1 {
		t.Errorf("Expected is_weekend=1 for Saturday. Got: %f", rec[FeatIsWeekend])
	}
}

func TestExtractTemporal_FirstTransactionMarker(t *testing.T) {
	ledger := models.Ledger{
		tx("t1", "A", "B", 10, 0),
		tx("t2", "A", "B", 20, 300),
	}

	records := ExtractTemporal(ledger, TemporalConfig{})

	first := records["t1"]
	if first[FeatHasPriorTx] != 0 || first[FeatTimeSinceLast] != 0 {
		t.Errorf("Expected explicit no-prior marker for first tx. Got: has_prior=%f gap=%f",
			first[FeatHasPriorTx], first[FeatTimeSinceLast])
	}

	second := records["t2"]
	if second[FeatHasPriorTx] != 1 {
		t.Errorf("Expected has_prior_tx=1 for second tx. Got: %f", second[FeatHasPriorTx])
	}
	if math.Abs(second[FeatTimeSinceLast]-300) > 1e-9 {
		t.Errorf("Expected 300s since previous tx. Got: %f", second[FeatTimeSinceLast])
	}
}

func TestExtractTemporal_RollingWindow(t *testing.T) {
	// Amounts 10, 20, 30 for one sender; window of 2 trails the sender's
	// own history
	ledger := models.Ledger{
		tx("t1", "A", "B", 10, 0),
		tx("t2", "A", "B", 20, 1),
		tx("t3", "A", "B", 30, 2),
	}

	records := ExtractTemporal(ledger, TemporalConfig{Windows: []int{2}})

	if m := records["t1"][RollingMeanCol(2)]; math.Abs(m-10) > 1e-9 {
		t.Errorf("Expected rolling mean 10 for first tx. Got: %f", m)
	}
	if m := records["t2"][RollingMeanCol(2)]; math.Abs(m-15) > 1e-9 {
		t.Errorf("Expected rolling mean 15 over {10,20}. Got: %f", m)
	}
	if m := records["t3"][RollingMeanCol(2)]; math.Abs(m-25) > 1e-9 {
		t.Errorf("Expected rolling mean 25 over {20,30}. Got: %f", m)
	}
	if s := records["t1"][RollingStdCol(2)]; s != 0 {
		t.Errorf("Expected rolling std 0 for a single observation. Got: %f", s)
	}
}

func TestExtractTemporal_WindowIsPerSender(t *testing.T) {
	// B's transaction must not leak into A's rolling window
	ledger := models.Ledger{
		tx("t1", "A", "X", 10, 0),
		tx("t2", "B", "X", 1000, 1),
		tx("t3", "A", "X", 20, 2),
	}

	records := ExtractTemporal(ledger, TemporalConfig{Windows: []int{10}})

	if m := records["t3"][RollingMeanCol(10)]; math.Abs(m-15) > 1e-9 {
		t.Errorf("Expected sender-partitioned rolling mean 15. Got: %f", m)
	}
}

func TestExtractTemporal_TimestampTiesStable(t *testing.T) {
	// Equal timestamps: ingestion order decides the partition order
	ledger := models.Ledger{
		tx("t1", "A", "B", 10, 100),
		tx("t2", "A", "B", 20, 100),
	}

	records := ExtractTemporal(ledger, TemporalConfig{})

	if records["t1"][FeatHasPriorTx] != 0 {
		t.Errorf("Expected first-ingested tx to remain first on timestamp tie")
	}
	if records["t2"][FeatHasPriorTx] != 1 {
		t.Errorf("Expected second-ingested tx to see a prior on timestamp tie")
	}
}
