// Package generator produces synthetic labeled ledgers for training and
// benchmarking without access to chain data. Fraudulent traffic is modeled
// as small rings of accounts moving large amounts in rapid bursts; genuine
// traffic is low-value and spread out in time.
package generator

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

type Config struct {
	NumAccounts     int
	NumTransactions int
	FraudRate       float64 // Share of transactions that are fraudulent
	RingSize        int     // Accounts per fraud ring
	Seed            int64
	Start           time.Time
	Span            time.Duration // Period the genuine traffic spreads over
}

func DefaultConfig() Config {
	return Config{
		NumAccounts:     200,
		NumTransactions: 5000,
		FraudRate:       0.05,
		RingSize:        5,
		Seed:            42,
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Span:            90 * 24 * time.Hour,
	}
}

type Generator struct {
	cfg Config
	rng *rand.Rand
}

func New(cfg Config) *Generator {
	if cfg.NumAccounts < 2 {
		cfg.NumAccounts = 2
	}
	if cfg.RingSize < 2 {
		cfg.RingSize = 2
	}
	if cfg.Span <= 0 {
		cfg.Span = 90 * 24 * time.Hour
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Generate builds a labeled ledger sorted by timestamp. Transaction ids are
// deterministic for a given seed.
func (g *Generator) Generate() models.Ledger {
	accounts := make([]string, g.cfg.NumAccounts)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("acct-%04d", i)
	}

	nFraud := int(float64(g.cfg.NumTransactions) * g.cfg.FraudRate)
	nGenuine := g.cfg.NumTransactions - nFraud

	ledger := make(models.Ledger, 0, g.cfg.NumTransactions)
	ledger = append(ledger, g.genuineTraffic(accounts, nGenuine)...)
	ledger = append(ledger, g.fraudBursts(accounts, nFraud)...)

	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Timestamp.Before(ledger[j].Timestamp)
	})
	return ledger
}

func (g *Generator) genuineTraffic(accounts []string, n int) models.Ledger {
	out := make(models.Ledger, 0, n)
	for i := 0; i < n; i++ {
		from := accounts[g.rng.Intn(len(accounts))]
		to := accounts[g.rng.Intn(len(accounts))]
		for to == from {
			to = accounts[g.rng.Intn(len(accounts))]
		}

		amount := 10 + g.rng.ExpFloat64()*80
		at := g.cfg.Start.Add(time.Duration(g.rng.Float64() * float64(g.cfg.Span)))
		out = append(out, models.Transaction{
			ID:        g.txID(),
			Sender:    from,
			Receiver:  to,
			Amount:    amount,
			Fee:       amount * 0.001,
			Timestamp: at,
			Label:     models.LabelGenuine,
		})
	}
	return out
}

// fraudBursts emits rapid high-value transfers cycling inside small rings of
// accounts, the layering pattern the graph and temporal extractors are built
// to surface.
func (g *Generator) fraudBursts(accounts []string, n int) models.Ledger {
	out := make(models.Ledger, 0, n)
	for len(out) < n {
		ring := g.pickRing(accounts)
		burstLen := 3 + g.rng.Intn(8)
		at := g.cfg.Start.Add(time.Duration(g.rng.Float64() * float64(g.cfg.Span)))

		for b := 0; b < burstLen && len(out) < n; b++ {
			from := ring[b%len(ring)]
			to := ring[(b+1)%len(ring)]
			amount := 3000 + g.rng.Float64()*7000
			at = at.Add(time.Duration(30+g.rng.Intn(300)) * time.Second)

			out = append(out, models.Transaction{
				ID:        g.txID(),
				Sender:    from,
				Receiver:  to,
				Amount:    amount,
				Fee:       amount * 0.002,
				Timestamp: at,
				Label:     models.LabelFraud,
			})
		}
	}
	return out
}

func (g *Generator) pickRing(accounts []string) []string {
	ring := make([]string, 0, g.cfg.RingSize)
	seen := make(map[int]bool, g.cfg.RingSize)
	for len(ring) < g.cfg.RingSize {
		i := g.rng.Intn(len(accounts))
		if seen[i] {
			continue
		}
		seen[i] = true
		ring = append(ring, accounts[i])
	}
	return ring
}

func (g *Generator) txID() string {
	// uuid seeded from our rng keeps ids reproducible per seed
	var b [16]byte
	g.rng.Read(b[:])
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WriteLedger serializes the ledger as JSON into dir/transactions.json.
func WriteLedger(ledger models.Ledger, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, "transactions.json")

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
