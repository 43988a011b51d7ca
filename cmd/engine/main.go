package main

import (
	"log"

	"github.com/chainsift/fraudscore-engine/internal/api"
	"github.com/chainsift/fraudscore-engine/internal/chain"
	"github.com/chainsift/fraudscore-engine/internal/config"
	"github.com/chainsift/fraudscore-engine/internal/db"
	"github.com/chainsift/fraudscore-engine/internal/service"
)

func main() {
	log.Println("Starting ChainSift Fraud Scoring Engine...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	var dbConn *db.PostgresStore
	if cfg.DB.DSN != "" {
		dbConn, err = db.Connect(cfg.DB.DSN)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing with an in-memory ledger. Error: %v", err)
			dbConn = nil
		} else {
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set, running with an in-memory ledger")
	}

	var chainClient *chain.Client
	if cfg.Chain.Enabled() {
		chainClient, err = chain.NewClient(chain.Config{
			Host: cfg.Chain.Host,
			User: cfg.Chain.User,
			Pass: cfg.Chain.Pass,
		})
		if err != nil {
			log.Printf("Warning: Failed to connect to Bitcoin RPC: %v", err)
			chainClient = nil
		} else {
			defer chainClient.Shutdown()
		}
	}

	svcCfg := service.Config{
		ArtifactPath:            cfg.ArtifactPath,
		Seed:                    cfg.Scoring.Seed,
		UseSequenceModel:        cfg.Scoring.UseSequenceModel,
		FreezeAbnormalThreshold: cfg.Scoring.FreezeAbnormalThreshold,
		AlertThreshold:          cfg.Scoring.AlertThreshold,
		RollingWindows:          cfg.Scoring.RollingWindows,
	}

	// Two-phase init: construct from config, then load fitted artifacts.
	// A missing bundle is fine; scoring stays unavailable until /train runs.
	detector := service.New(svcCfg)
	if err := detector.Load(); err != nil {
		log.Printf("Warning: no usable model artifacts at %s: %v. Train via POST /api/v1/train.", cfg.ArtifactPath, err)
	} else {
		log.Printf("Model artifacts loaded from %s", cfg.ArtifactPath)
	}
	trainer := service.NewTrainer(svcCfg)

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(dbConn, chainClient, detector, trainer, wsHub)

	log.Printf("Engine running on :%s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
