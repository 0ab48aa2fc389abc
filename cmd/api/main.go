package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadflow-ai/leadflow/cmd/mainconfig"
	"github.com/leadflow-ai/leadflow/internal/ai"
	"github.com/leadflow-ai/leadflow/internal/api/router"
	appconfig "github.com/leadflow-ai/leadflow/internal/config"
	"github.com/leadflow-ai/leadflow/internal/conversation"
	"github.com/leadflow-ai/leadflow/internal/leads"
	"github.com/leadflow-ai/leadflow/internal/messaging"
	"github.com/leadflow-ai/leadflow/internal/observability/metrics"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
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

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	// Senders validate their own credentials at send time, so construct both.
	whatsappSender := messaging.NewWhatsAppSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAPIVersion, logger)
	twilioSender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	messenger := messaging.NewChannelMessenger(whatsappSender, twilioSender)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workersDone := make(chan struct{})

	var publisher *conversation.Publisher
	if cfg.UseMemoryQueue {
		memQueue := conversation.NewMemoryQueue(256)
		publisher = conversation.NewPublisher(memQueue, logger)
		worker := conversation.NewWorker(orchestrator, memQueue, messenger, logger,
			conversation.WithWorkerCount(cfg.WorkerCount),
			conversation.WithPipelineMetrics(pipelineMetrics),
		)
		go func() {
			defer close(workersDone)
			worker.Run(workerCtx)
		}()
		logger.Info("using in-memory queue", "workers", cfg.WorkerCount)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
		publisher = conversation.NewPublisher(queue, logger)
		close(workersDone)
		logger.Info("using SQS inbound queue", "queue_url", cfg.InboundQueueURL)
	}

	messagingHandler := messaging.NewHandler(
		cfg.WhatsAppVerifyToken,
		cfg.TwilioAuthToken,
		publisher,
		orchestrator,
		whatsappSender,
		pipelineMetrics,
		logger,
	)
	conversationHandler := conversation.NewHandler(leadsRepo, store, store, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		MessagingHandler:    messagingHandler,
		ConversationHandler: conversationHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Drain in-process workers after the HTTP surface stops accepting.
	stopWorkers()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Error("worker shutdown timed out")
	}

	logger.Info("server stopped")
}
