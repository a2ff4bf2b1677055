package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cold-storage-marketplace/internal/config"
	"cold-storage-marketplace/internal/logger"
	"cold-storage-marketplace/internal/workers"
	"cold-storage-marketplace/pkg/email"
	"cold-storage-marketplace/pkg/events"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flush, err := logger.Init(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	templateManager, err := email.NewTemplateManager()
	if err != nil {
		zap.L().Fatal("failed to parse email templates", zap.Error(err))
	}
	emailer, err := email.NewSender(ctx, email.Options{
		Driver:           cfg.Email.Driver,
		Region:           cfg.AWS.Region,
		From:             cfg.Email.From,
		FromName:         cfg.Email.FromName,
		ConfigurationSet: cfg.Email.ConfigurationSet,
	})
	if err != nil {
		zap.L().Fatal("failed to create email sender", zap.Error(err))
	}

	consumer, err := events.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Prefetch)
	if err != nil {
		zap.L().Fatal("unable to connect to rabbitmq", zap.Error(err))
	}
	defer consumer.Close()
	consumer.MaxRetries = cfg.RabbitMQ.MaxRetries
	consumer.RetryDelay = cfg.RabbitMQ.RetryDelay

	worker := workers.NewReceiptWorker(consumer, emailer, templateManager, cfg.RabbitMQ.ReceiptQueue)
	if err := worker.Start(ctx); err != nil {
		zap.L().Error("receipt worker stopped", zap.Error(err))
		return
	}
	zap.L().Info("receipt worker stopped gracefully")
}
