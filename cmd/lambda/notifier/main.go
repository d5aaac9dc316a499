package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/ec-order-payments/internal/config"
	"github.com/example/ec-order-payments/internal/email"
	"github.com/example/ec-order-payments/internal/infrastructure/kafka"
	"github.com/example/ec-order-payments/internal/logger"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/rs/zerolog"
)

var (
	notificationHandler *notification.Handler
	log                 zerolog.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	root := logger.New(cfg.LogLevel, cfg.LogFormat)
	log = logger.Component(root, "lambda-notifier")
	if cfg.AdminEmail == "" {
		log.Fatal().Msg("ADMIN_EMAIL is required")
	}

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	notificationHandler = notification.NewHandler(emailSvc, cfg.AdminEmail, logger.Component(root, "mail"))

	log.Info().Str("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).Msg("initialized")
}

// handler consumes a batch from the MSK event source mapping. Emails are
// best effort, so failures are logged and the batch is never retried.
func handler(ctx context.Context, event events.KafkaEvent) error {
	messages, decodeErrs := kafka.BatchFromLambdaEvent(event)
	for _, err := range decodeErrs {
		log.Error().Err(err).Msg("skipping undecodable record")
	}

	failed := 0
	for _, msg := range messages {
		if err := notificationHandler.HandleMessage(ctx, msg); err != nil {
			failed++
			log.Error().Err(err).Str("key", string(msg.Key)).Msg("failed to process notification")
		}
	}

	log.Info().
		Int("processed", len(messages)-failed).
		Int("failed", failed+len(decodeErrs)).
		Msg("batch done")
	return nil
}

func main() {
	lambda.Start(handler)
}
