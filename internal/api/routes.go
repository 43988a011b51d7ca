package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chainsift/fraudscore-engine/internal/chain"
	"github.com/chainsift/fraudscore-engine/internal/db"
	"github.com/chainsift/fraudscore-engine/internal/service"
	"github.com/chainsift/fraudscore-engine/pkg/models"
)

type APIHandler struct {
	dbStore     *db.PostgresStore
	chainClient *chain.Client
	detector    *service.FraudDetector
	trainer     *service.ModelTrainer
	wsHub       *Hub

	// In-memory snapshot used when no database is configured, so the
	// engine stays usable for local scoring and training.
	mu        sync.Mutex
	memLedger models.Ledger
}

func SetupRouter(dbStore *db.PostgresStore, chainClient *chain.Client, detector *service.FraudDetector,
	trainer *service.ModelTrainer, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:     dbStore,
		chainClient: chainClient,
		detector:    detector,
		trainer:     trainer,
		wsHub:       wsHub,
	}

	limiter := NewRateLimiter(120, 30)

	api := r.Group("/api/v1")
	api.Use(limiter.Middleware())
	{
		api.POST("/analyze", handler.handleAnalyze)
		api.POST("/analyze/batch", handler.handleAnalyzeBatch)
		api.POST("/train", handler.handleTrain)
		api.GET("/train/progress", handler.handleTrainProgress)
		api.GET("/transactions", handler.handleGetTransactions)
		api.POST("/transactions", handler.handleAddTransactions)
		api.GET("/assessments", handler.handleGetAssessments)
		api.POST("/ingest/blocks", handler.handleIngestBlocks)
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)
	}

	return r
}

// TransactionRequest mirrors models.Transaction with an optional label so
// an absent field means unknown, not genuine.
type TransactionRequest struct {
	ID        string    `json:"id" binding:"required"`
	Sender    string    `json:"sender" binding:"required"`
	Receiver  string    `json:"receiver" binding:"required"`
	Amount    float64   `json:"amount"`
	Fee       float64   `json:"fee"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Label     *int      `json:"label"`
}

func (t TransactionRequest) toModel() models.Transaction {
	label := models.LabelUnknown
	if t.Label != nil {
		label = models.Label(*t.Label)
	}
	return models.Transaction{
		ID:        t.ID,
		Sender:    t.Sender,
		Receiver:  t.Receiver,
		Amount:    t.Amount,
		Fee:       t.Fee,
		Timestamp: t.Timestamp,
		Label:     label,
	}
}

// snapshot returns the full ledger the pipeline scores against.
func (h *APIHandler) snapshot(ctx context.Context) (models.Ledger, error) {
	if h.dbStore != nil {
		return h.dbStore.LoadLedger(ctx)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(models.Ledger, len(h.memLedger))
	copy(out, h.memLedger)
	return out, nil
}

func (h *APIHandler) store(ctx context.Context, txs models.Ledger) error {
	if h.dbStore != nil {
		return h.dbStore.SaveTransactions(ctx, txs)
	}
	h.mu.Lock()
	h.memLedger = append(h.memLedger, txs...)
	h.mu.Unlock()
	return nil
}

func (h *APIHandler) handleAnalyze(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction payload", "details": err.Error()})
		return
	}
	tx := req.toModel()

	if !h.detector.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No trained models loaded. Train or load artifacts first."})
		return
	}

	ledger, err := h.snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger", "details": err.Error()})
		return
	}
	if err := h.store(c.Request.Context(), models.Ledger{tx}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist transaction", "details": err.Error()})
		return
	}
	ledger = append(ledger, tx)

	assessment, err := h.detector.AnalyzeOne(ledger, tx.ID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Analysis failed", "details": err.Error()})
		return
	}

	h.persistAndAlert(c.Request.Context(), assessment)
	c.JSON(http.StatusOK, assessment)
}

func (h *APIHandler) handleAnalyzeBatch(c *gin.Context) {
	var reqs []TransactionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch payload", "details": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty batch"})
		return
	}

	if !h.detector.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No trained models loaded. Train or load artifacts first."})
		return
	}

	incoming := make(models.Ledger, 0, len(reqs))
	submitted := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		tx := r.toModel()
		incoming = append(incoming, tx)
		submitted[tx.ID] = true
	}

	ledger, err := h.snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger", "details": err.Error()})
		return
	}
	if err := h.store(c.Request.Context(), incoming); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist batch", "details": err.Error()})
		return
	}
	ledger = append(ledger, incoming...)

	all, err := h.detector.Analyze(ledger)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Analysis failed", "details": err.Error()})
		return
	}

	assessments := make([]service.Assessment, 0, len(incoming))
	for _, a := range all {
		if submitted[a.TransactionID] {
			assessments = append(assessments, a)
			h.persistAndAlert(c.Request.Context(), a)
		}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(assessments), "assessments": assessments})
}

func (h *APIHandler) persistAndAlert(ctx context.Context, a service.Assessment) {
	if h.dbStore != nil {
		// Scoring already succeeded; log the persistence problem instead of
		// failing the response.
		if err := h.dbStore.SaveRiskAssessment(ctx, a); err != nil {
			log.Printf("Warning: failed to save risk assessment for %s: %v", a.TransactionID, err)
		}
	}
	if h.wsHub != nil && a.Decision.IsSuspicious {
		h.wsHub.BroadcastAlert(a)
	}
}

func (h *APIHandler) handleTrain(c *gin.Context) {
	ledger, err := h.snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ledger", "details": err.Error()})
		return
	}
	if len(ledger) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No transactions available to train on"})
		return
	}

	summary, bundle, err := h.trainer.Train(c.Request.Context(), ledger)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Training failed", "details": err.Error()})
		return
	}

	h.detector.Adopt(bundle)

	if h.dbStore != nil {
		if err := h.dbStore.SaveTrainingRun(c.Request.Context(), summary); err != nil {
			log.Printf("Warning: failed to record training run: %v", err)
		}
	}
	c.JSON(http.StatusOK, summary)
}

func (h *APIHandler) handleTrainProgress(c *gin.Context) {
	trained, total, running := h.trainer.Progress()
	c.JSON(http.StatusOK, gin.H{
		"running":       running,
		"modelsTrained": trained,
		"modelsTotal":   total,
	})
}

func (h *APIHandler) handleGetTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if h.dbStore == nil {
		h.mu.Lock()
		total := len(h.memLedger)
		txs := pageSlice(h.memLedger, page, limit)
		h.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": total, "page": page})
		return
	}

	txs, total, err := h.dbStore.GetTransactions(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query transactions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": total, "page": page})
}

func pageSlice(l models.Ledger, page, limit int) models.Ledger {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * limit
	if lo >= len(l) {
		return models.Ledger{}
	}
	hi := lo + limit
	if hi > len(l) {
		hi = len(l)
	}
	out := make(models.Ledger, hi-lo)
	copy(out, l[lo:hi])
	return out
}

func (h *APIHandler) handleAddTransactions(c *gin.Context) {
	var reqs []TransactionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transactions payload", "details": err.Error()})
		return
	}

	txs := make(models.Ledger, 0, len(reqs))
	for _, r := range reqs {
		txs = append(txs, r.toModel())
	}
	if err := h.store(c.Request.Context(), txs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist transactions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ingested": len(txs)})
}

func (h *APIHandler) handleGetAssessments(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assessment history requires a database"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	suspiciousOnly := c.DefaultQuery("suspicious", "false") == "true"

	rows, total, err := h.dbStore.GetRiskAssessments(c.Request.Context(), page, limit, suspiciousOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query assessments", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": rows, "total": total, "page": page})
}

type ingestBlocksRequest struct {
	FromHeight int64 `json:"fromHeight" binding:"required"`
	ToHeight   int64 `json:"toHeight" binding:"required"`
}

func (h *APIHandler) handleIngestBlocks(c *gin.Context) {
	if h.chainClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bitcoin RPC not configured"})
		return
	}

	var req ingestBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block range payload", "details": err.Error()})
		return
	}

	ledger, err := h.chainClient.IngestBlockRange(req.FromHeight, req.ToHeight)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Block ingestion failed", "details": err.Error()})
		return
	}
	if err := h.store(c.Request.Context(), ledger); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist ingested transactions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": len(ledger), "fromHeight": req.FromHeight, "toHeight": req.ToHeight})
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	status := gin.H{
		"status":         "ok",
		"modelsLoaded":   h.detector.Ready(),
		"database":       h.dbStore != nil,
		"chainConnected": h.chainClient != nil,
	}
	c.JSON(http.StatusOK, status)
}
