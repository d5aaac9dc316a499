package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/example/ec-order-payments/internal/config"
	"github.com/example/ec-order-payments/internal/email"
	"github.com/example/ec-order-payments/internal/infrastructure/kafka"
	"github.com/example/ec-order-payments/internal/logger"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/sourcegraph/conc/pool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	root := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component(root, "notifier")
	if err := cfg.ValidateNotifier(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Strs("brokers", cfg.Brokers()).
		Str("topic", cfg.KafkaNotificationTopic).
		Str("group", cfg.KafkaConsumerGroup).
		Str("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).
		Msg("email notification service starting")

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, cfg.AdminEmail, logger.Component(root, "mail"))

	consumer := kafka.NewConsumer(cfg.Brokers(), cfg.KafkaNotificationTopic, cfg.KafkaConsumerGroup, logger.Component(root, "consumer"))
	defer consumer.Close()

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		err := consumer.Consume(ctx, handler.HandleMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err := p.Wait(); err != nil {
		log.Error().Err(err).Msg("consumer stopped with error")
	}
	log.Info().Msg("shutting down")
}
