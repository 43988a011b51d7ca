// Package chain normalizes confirmed Bitcoin transactions into ledger
// records for the scoring pipeline. It is a thin collaborator: everything
// chain-specific (prevout resolution, unit conversion, address extraction)
// stays here and never leaks into the feature extractors.
package chain

import (
	"fmt"
	"log"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/chainsift/fraudscore-engine/pkg/models"
)

type Config struct {
	Host string
	User string
	Pass string
}

type Client struct {
	RPC    *rpcclient.Client
	Config Config
}

// NewClient connects to a Bitcoin Core node and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true, // Bitcoin Core only supports HTTP POST mode
		DisableTLS:   true, // Assuming local node without TLS for this setup
	}

	log.Printf("Connecting to Bitcoin RPC at %s...", cfg.Host)
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	blockCount, err := client.GetBlockCount()
	if err != nil {
		client.Shutdown()
		return nil, err
	}
	log.Printf("Connected to Bitcoin Node. Current Block Height: %d", blockCount)

	return &Client{RPC: client, Config: cfg}, nil
}

func (c *Client) Shutdown() {
	c.RPC.Shutdown()
}

func (c *Client) GetBlockCount() (int64, error) {
	return c.RPC.GetBlockCount()
}

// ValidateAddress checks that a watch address parses for mainnet before it
// is accepted into an ingestion filter.
func ValidateAddress(addr string) error {
	if _, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err != nil {
		return fmt.Errorf("invalid address %s: %v", addr, err)
	}
	return nil
}

// IngestBlockRange fetches every transaction in [fromHeight, toHeight] and
// normalizes it into ledger records. Coinbase transactions are skipped: they
// have no sender. One chain transaction with multiple outputs becomes one
// ledger record per non-change output, sharing the txid with an output
// suffix.
func (c *Client) IngestBlockRange(fromHeight, toHeight int64) (models.Ledger, error) {
	if fromHeight > toHeight {
		return nil, fmt.Errorf("invalid block range %d-%d", fromHeight, toHeight)
	}

	ledger := make(models.Ledger, 0)
	for height := fromHeight; height <= toHeight; height++ {
		hash, err := c.RPC.GetBlockHash(height)
		if err != nil {
			return nil, fmt.Errorf("fetching block hash at height %d: %v", height, err)
		}
		block, err := c.RPC.GetBlockVerboseTx(hash)
		if err != nil {
			return nil, fmt.Errorf("fetching block %s: %v", hash, err)
		}

		blockTime := time.Unix(block.Time, 0).UTC()
		for i := range block.Tx {
			records, err := c.normalizeTx(&block.Tx[i], blockTime)
			if err != nil {
				log.Printf("Warning: skipping tx %s: %v", block.Tx[i].Txid, err)
				continue
			}
			ledger = append(ledger, records...)
		}
		log.Printf("Ingested block %d (%d ledger records so far)", height, len(ledger))
	}
	return ledger, nil
}

// normalizeTx resolves the prevouts of a raw transaction and flattens it
// into sender→receiver ledger records. The first resolvable input address
// stands in for the sender; the fee is split evenly across the records so
// totals stay consistent.
func (c *Client) normalizeTx(raw *btcjson.TxRawResult, blockTime time.Time) (models.Ledger, error) {
	sender, totalIn, err := c.resolveInputs(raw)
	if err != nil {
		return nil, err
	}
	if sender == "" {
		return nil, fmt.Errorf("no resolvable input address")
	}

	type out struct {
		addr  string
		value float64
	}
	outs := make([]out, 0, len(raw.Vout))
	totalOut := 0.0
	for _, vout := range raw.Vout {
		totalOut += vout.Value
		addr := firstAddress(vout.ScriptPubKey)
		if addr == "" || addr == sender {
			continue // Unspendable or change back to the sender
		}
		outs = append(outs, out{addr: addr, value: vout.Value})
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("no external outputs")
	}

	fee := totalIn - totalOut
	if fee < 0 {
		fee = 0
	}
	feeShare := fee / float64(len(outs))

	ledger := make(models.Ledger, 0, len(outs))
	for i, o := range outs {
		amount, err := btcutil.NewAmount(o.value)
		if err != nil {
			return nil, fmt.Errorf("converting output value %v: %v", o.value, err)
		}
		feeAmount, err := btcutil.NewAmount(feeShare)
		if err != nil {
			return nil, fmt.Errorf("converting fee share %v: %v", feeShare, err)
		}
		ledger = append(ledger, models.Transaction{
			ID:        fmt.Sprintf("%s:%d", raw.Txid, i),
			Sender:    sender,
			Receiver:  o.addr,
			Amount:    amount.ToBTC(),
			Fee:       feeAmount.ToBTC(),
			Timestamp: blockTime,
			Label:     models.LabelUnknown,
		})
	}
	return ledger, nil
}

// resolveInputs fetches each input's previous transaction to recover the
// spent value and the spending address. GetRawTransactionVerbose does not
// return input values directly (vin just has txid/vout), so prevouts must
// be fetched.
func (c *Client) resolveInputs(raw *btcjson.TxRawResult) (sender string, totalIn float64, err error) {
	for _, vin := range raw.Vin {
		if vin.Txid == "" {
			return "", 0, fmt.Errorf("coinbase transaction")
		}

		prevHash, err := chainhash.NewHashFromStr(vin.Txid)
		if err != nil {
			return "", 0, fmt.Errorf("invalid prevout txid %s: %v", vin.Txid, err)
		}
		prevTx, err := c.RPC.GetRawTransactionVerbose(prevHash)
		if err != nil {
			return "", 0, fmt.Errorf("fetching prevout %s: %v", vin.Txid, err)
		}
		if int(vin.Vout) >= len(prevTx.Vout) {
			continue
		}
		prevOut := prevTx.Vout[vin.Vout]
		totalIn += prevOut.Value
		if sender == "" {
			sender = firstAddress(prevOut.ScriptPubKey)
		}
	}
	return sender, totalIn, nil
}

func firstAddress(spk btcjson.ScriptPubKeyResult) string {
	if spk.Address != "" {
		return spk.Address
	}
	if len(spk.Addresses) > 0 {
		return spk.Addresses[0]
	}
	return ""
}
