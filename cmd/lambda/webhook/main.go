package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/ec-order-payments/internal/config"
	"github.com/example/ec-order-payments/internal/domain/payment"
	"github.com/example/ec-order-payments/internal/domain/refund"
	"github.com/example/ec-order-payments/internal/infrastructure/kafka"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/infrastructure/stripe"
	"github.com/example/ec-order-payments/internal/logger"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/example/ec-order-payments/internal/webhook"
	"github.com/redis/go-redis/v9"
)

var router *webhook.Router

// init runs once per cold start; connections are reused across invocations
func init() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	root := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component(root, "lambda-webhook")
	if err := cfg.ValidateWebhook(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	db, err := store.ConnectWithRetry(ctx, cfg.DatabaseURL, cfg.DBMaxWait)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	st := store.NewPostgresStore(db)

	// No SSE clients live here; notifications leave through Redis and Kafka
	sinks := notification.Multi{notification.NewLogSink(logger.Component(root, "notifications"))}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sinks = append(sinks, notification.NewRedisSink(rdb, cfg.RedisChannel, 2*time.Second, logger.Component(root, "redis")))
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, cfg.KafkaNotificationTopic)
		sinks = append(sinks, notification.NewKafkaSink(producer, 2*time.Second, logger.Component(root, "kafka")))
	}

	client := stripe.NewClient(cfg.StripeSecretKey, cfg.ProcessorTimeout, logger.Component(root, "stripe"))
	payments := payment.NewManager(st, client, sinks, cfg.PaymentCurrency, logger.Component(root, "payments"))
	refunds := refund.NewManager(st, client, sinks, logger.Component(root, "refunds"))
	router = webhook.NewRouter(stripe.NewVerifier(cfg.StripeWebhookSecret), payments, refunds, logger.Component(root, "webhook"))

	log.Info().Msg("initialized")
}

func main() {
	lambda.Start(router.HandleAPIGateway)
}
