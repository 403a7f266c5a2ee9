package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/unclebandit/leadsweeper-backend/internal/config"
	"github.com/unclebandit/leadsweeper-backend/internal/db"
	"github.com/unclebandit/leadsweeper-backend/internal/events"
	"github.com/unclebandit/leadsweeper-backend/internal/pipeline"
	"github.com/unclebandit/leadsweeper-backend/internal/ratelimit"
	"github.com/unclebandit/leadsweeper-backend/internal/repository"
	"github.com/unclebandit/leadsweeper-backend/internal/smartlead"
)

func main() {
	log.Println("Starting lead sweeper...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimitCalls, cfg.RateLimitPeriod)
	client := smartlead.NewClient(cfg.BaseURL, cfg.APIKey, limiter)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	var audit repository.DeletionRecorder
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to DB:", err)
		}
		defer conn.Close()
		audit = &repository.DeletionAuditRepository{DB: conn}
	}

	sweep := &pipeline.Pipeline{
		API:          client,
		Events:       publisher,
		Audit:        audit,
		GracePeriod:  cfg.GracePeriod,
		MaxCampaigns: cfg.MaxCampaignsPerRun,
		QueueSize:    cfg.QueueSize,
		DryRun:       cfg.DryRun,
	}

	// Ctrl+C stops both workers cooperatively; in-flight calls finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := sweep.Run(ctx)
	if err != nil {
		log.Println("⚠️ Sweep interrupted:", err)
	}

	log.Printf("All tasks completed: %d of %d evaluated leads deleted", report.LeadsDeleted, report.LeadsEvaluated)
}
