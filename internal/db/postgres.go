package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainsift/fraudscore-engine/internal/service"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

// schemaSQL is compiled into the binary at build time so schema init works
// inside the runtime image without shipping the .sql file alongside it.
//
//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for Fraud Scoring Engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Fraud scoring schema initialized")
	return nil
}

// SaveTransactions batch-upserts ledger records inside one transaction so a
// partially written batch never surfaces to readers.
func (s *PostgresStore) SaveTransactions(ctx context.Context, txs models.Ledger) error {
	if len(txs) == 0 {
		return nil
	}

	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	insertSQL := `
		INSERT INTO transactions (tx_id, sender, receiver, amount, fee, occurred_at, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_id) DO UPDATE
		SET label = EXCLUDED.label;
	`
	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(insertSQL, t.ID, t.Sender, t.Receiver, t.Amount, t.Fee, t.Timestamp, int(t.Label))
	}
	results := dbtx.SendBatch(ctx, batch)
	for range txs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert transaction: %v", err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	return dbtx.Commit(ctx)
}

// LoadLedger reads the full ledger in ingestion order. The scoring pipeline
// works over whole snapshots, so there is no incremental variant.
func (s *PostgresStore) LoadLedger(ctx context.Context) (models.Ledger, error) {
	sql := `
		SELECT tx_id, sender, receiver, amount, fee, occurred_at, label
		FROM transactions
		ORDER BY ingested_at, tx_id;
	`
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := make(models.Ledger, 0)
	for rows.Next() {
		var t models.Transaction
		var label int
		if err := rows.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.Fee, &t.Timestamp, &label); err != nil {
			return nil, err
		}
		t.Label = models.Label(label)
		ledger = append(ledger, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ledger, nil
}

// SaveRiskAssessment persists the score and verdict for ANY analyzed
// transaction, not only flagged ones, enabling entity-level review later.
func (s *PostgresStore) SaveRiskAssessment(ctx context.Context, a service.Assessment) error {
	perModel, err := json.Marshal(a.Result.PerModel)
	if err != nil {
		return fmt.Errorf("encoding per-model scores: %v", err)
	}
	degraded := a.Result.Degraded
	if degraded == nil {
		degraded = []string{}
	}

	sql := `
		INSERT INTO risk_assessments
			(tx_id, risk_score, fused_prob, is_suspicious, recommendation, per_model, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			fused_prob = EXCLUDED.fused_prob,
			is_suspicious = EXCLUDED.is_suspicious,
			recommendation = EXCLUDED.recommendation,
			per_model = EXCLUDED.per_model,
			degraded = EXCLUDED.degraded,
			analyzed_at = NOW();
	`
	_, err = s.pool.Exec(ctx, sql, a.TransactionID, a.Decision.RiskScore, a.Result.Fused,
		a.Decision.IsSuspicious, a.Decision.Recommendation, perModel, degraded)
	return err
}

// AssessmentRow is one persisted risk assessment joined with its transaction.
type AssessmentRow struct {
	TxID           string    `json:"txId"`
	Sender         string    `json:"sender"`
	Receiver       string    `json:"receiver"`
	Amount         float64   `json:"amount"`
	RiskScore      float64   `json:"riskScore"`
	IsSuspicious   bool      `json:"isSuspicious"`
	Recommendation string    `json:"recommendation"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
}

// GetRiskAssessments pages through persisted assessments, most recent first,
// optionally restricted to suspicious ones.
func (s *PostgresStore) GetRiskAssessments(ctx context.Context, page, limit int, suspiciousOnly bool) ([]AssessmentRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	where := ""
	if suspiciousOnly {
		where = "WHERE r.is_suspicious"
	}

	var totalCount int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM risk_assessments r %s`, where)
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT r.tx_id, t.sender, t.receiver, t.amount,
		       r.risk_score, r.is_suspicious, r.recommendation, r.analyzed_at
		FROM risk_assessments r
		JOIN transactions t ON t.tx_id = r.tx_id
		%s
		ORDER BY r.analyzed_at DESC
		LIMIT $1 OFFSET $2
	`, where)
	rows, err := s.pool.Query(ctx, dataSQL, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assessments := make([]AssessmentRow, 0)
	for rows.Next() {
		var r AssessmentRow
		if err := rows.Scan(&r.TxID, &r.Sender, &r.Receiver, &r.Amount,
			&r.RiskScore, &r.IsSuspicious, &r.Recommendation, &r.AnalyzedAt); err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, r)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return assessments, totalCount, nil
}

// GetTransactions pages through the stored ledger, newest first.
func (s *PostgresStore) GetTransactions(ctx context.Context, page, limit int) ([]models.Transaction, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	sql := `
		SELECT tx_id, sender, receiver, amount, fee, occurred_at, label
		FROM transactions
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		var label int
		if err := rows.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.Fee, &t.Timestamp, &label); err != nil {
			return nil, 0, err
		}
		t.Label = models.Label(label)
		txs = append(txs, t)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return txs, totalCount, nil
}

// SaveTrainingRun records a completed training run for audit.
func (s *PostgresStore) SaveTrainingRun(ctx context.Context, summary *service.TrainingSummary) error {
	reports, err := json.Marshal(summary.Reports)
	if err != nil {
		return fmt.Errorf("encoding validation reports: %v", err)
	}

	sql := `
		INSERT INTO training_runs (rows_used, feature_columns, artifact_path, reports)
		VALUES ($1, $2, $3, $4);
	`
	_, err = s.pool.Exec(ctx, sql, summary.Rows, summary.FeatureColumns, summary.ArtifactPath, reports)
	return err
}

// GetPool exposes the connection pool for subsystems needing raw access.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
