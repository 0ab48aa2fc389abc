package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/leadflow-ai/leadflow/cmd/mainconfig"
	"github.com/leadflow-ai/leadflow/internal/ai"
	appconfig "github.com/leadflow-ai/leadflow/internal/config"
	"github.com/leadflow-ai/leadflow/internal/conversation"
	"github.com/leadflow-ai/leadflow/internal/leads"
	"github.com/leadflow-ai/leadflow/internal/messaging"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).WithComponent("worker")

	if cfg.UseMemoryQueue {
		logger.Error("the worker binary consumes SQS; with USE_MEMORY_QUEUE the API process runs its own workers")
		os.Exit(1)
	}
	if cfg.InboundQueueURL == "" {
		logger.Error("INBOUND_QUEUE_URL is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	leadsRepo := leads.NewPostgresRepository(pool)
	store := conversation.NewPostgresStore(pool)

	llm, err := ai.NewClient(ai.Config{
		APIKey:       cfg.DeepSeekAPIKey,
		BaseURL:      cfg.DeepSeekBaseURL,
		Model:        cfg.DeepSeekModel,
		SystemPrompt: cfg.SystemPrompt,
		MaxHistory:   cfg.MaxHistoryLength,
		MaxTokens:    cfg.MaxTokens,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize chat client", "error", err)
		os.Exit(1)
	}

	orchestrator := conversation.NewOrchestrator(leadsRepo, store, store, llm, logger)

	whatsappSender := messaging.NewWhatsAppSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAPIVersion, logger)
	twilioSender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	messenger := messaging.NewChannelMessenger(whatsappSender, twilioSender)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)

	worker := conversation.NewWorker(orchestrator, queue, messenger, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	logger.Info("worker started", "queue_url", cfg.InboundQueueURL, "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down worker...")
	cancel()
	<-done
	logger.Info("worker stopped")
}
