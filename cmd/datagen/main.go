package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chainsift/fraudscore-engine/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		accounts     = flag.Int("accounts", cfg.NumAccounts, "number of accounts to generate")
		transactions = flag.Int("transactions", cfg.NumTransactions, "number of transactions to generate")
		fraudRate    = flag.Float64("fraud-rate", cfg.FraudRate, "share of transactions that are fraudulent")
		ringSize     = flag.Int("ring-size", cfg.RingSize, "accounts per fraud ring")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write transactions.json")
		writeStdout  = flag.Bool("stdout", false, "write the ledger to stdout instead of a file")
	)
	flag.Parse()

	cfg.NumAccounts = *accounts
	cfg.NumTransactions = *transactions
	cfg.FraudRate = clampProbability(*fraudRate)
	cfg.RingSize = *ringSize
	cfg.Seed = *seed

	ledger := generator.New(cfg).Generate()

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(ledger); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write ledger to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteLedger(ledger, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write ledger: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "Generated %d transactions into %s\n", len(ledger), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
