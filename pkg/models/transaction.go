package models

import (
	"sort"
	"time"
)

// Label is the tri-state fraud annotation on an ingested transaction.
type Label int

const (
	LabelUnknown Label = -1
	LabelGenuine Label = 0
	LabelFraud   Label = 1
)

// Transaction is a normalized peer-to-peer value-transfer record.
// Immutable once ingested; every extractor consumes it read-only.
type Transaction struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Amount    float64   `json:"amount"` // Non-negative, native units
	Timestamp time.Time `json:"timestamp"`
	Fee       float64   `json:"fee"`   // Non-negative
	Label     Label     `json:"label"` // -1 unknown / 0 genuine / 1 fraud
}

// Ledger is the full ordered collection of transactions processed in one
// pipeline run. Slice order is ingestion order; that order is the tie-breaker
// for every time-sorted view, which keeps extraction deterministic.
type Ledger []Transaction

// Senders returns the distinct sender account ids in first-seen order.
// Accounts have no stored identity; they exist only as aggregation keys.
func (l Ledger) Senders() []string {
	seen := make(map[string]bool, len(l))
	var out []string
	for _, tx := range l {
		if !seen[tx.Sender] {
			seen[tx.Sender] = true
			out = append(out, tx.Sender)
		}
	}
	return out
}

// BySenderTimeSorted partitions the ledger by sender and sorts each partition
// by timestamp ascending, ties broken by ingestion order (stable sort).
func (l Ledger) BySenderTimeSorted() map[string][]Transaction {
	parts := make(map[string][]Transaction)
	for _, tx := range l {
		parts[tx.Sender] = append(parts[tx.Sender], tx)
	}
	for sender, txs := range parts {
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		})
		parts[sender] = txs
	}
	return parts
}
