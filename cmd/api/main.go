package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ec-order-payments/internal/api"
	"github.com/example/ec-order-payments/internal/auth"
	"github.com/example/ec-order-payments/internal/config"
	"github.com/example/ec-order-payments/internal/domain/inventory"
	"github.com/example/ec-order-payments/internal/domain/order"
	"github.com/example/ec-order-payments/internal/domain/payment"
	"github.com/example/ec-order-payments/internal/domain/product"
	"github.com/example/ec-order-payments/internal/domain/refund"
	"github.com/example/ec-order-payments/internal/infrastructure/kafka"
	"github.com/example/ec-order-payments/internal/infrastructure/store"
	"github.com/example/ec-order-payments/internal/infrastructure/stripe"
	"github.com/example/ec-order-payments/internal/logger"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/example/ec-order-payments/internal/webhook"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	root := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component(root, "api")
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, root); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
	log.Info().Msg("api stopped")
}

func run(ctx context.Context, cfg *config.Config, root zerolog.Logger) error {
	log := logger.Component(root, "api")

	// Initialize PostgreSQL connection
	db, err := store.ConnectWithRetry(ctx, cfg.DatabaseURL, cfg.DBMaxWait)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		return err
	}
	log.Info().Msg("connected to PostgreSQL, migrations applied")
	st := store.NewPostgresStore(db)

	// Notification fan-out: the in-process hub feeds SSE streams. With Redis
	// configured, every replica publishes there and relays back into its hub.
	hub := notification.NewHub(notification.DefaultSubscriberBuffer, logger.Component(root, "hub"))
	sinks := notification.Multi{notification.NewLogSink(logger.Component(root, "notifications"))}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		sinks = append(sinks, notification.NewRedisSink(rdb, cfg.RedisChannel, 2*time.Second, logger.Component(root, "redis")))
		log.Info().Str("addr", cfg.RedisAddr).Str("channel", cfg.RedisChannel).Msg("notifications fan out through Redis")
	} else {
		sinks = append(sinks, hub)
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, cfg.KafkaNotificationTopic)
		defer producer.Close()
		sinks = append(sinks, notification.NewKafkaSink(producer, 5*time.Second, logger.Component(root, "kafka")))
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaNotificationTopic).Msg("notifications published to Kafka")
	}

	// Payment processor
	stripeClient := stripe.NewClient(cfg.StripeSecretKey, cfg.ProcessorTimeout, logger.Component(root, "stripe"))
	verifier := stripe.NewVerifier(cfg.StripeWebhookSecret)

	// Initialize domain services
	products := product.NewService(st, logger.Component(root, "products"))
	orders := order.NewService(st, inventory.NewLedger(), sinks, logger.Component(root, "orders"))
	payments := payment.NewManager(st, stripeClient, sinks, cfg.PaymentCurrency, logger.Component(root, "payments"))
	refunds := refund.NewManager(st, stripeClient, sinks, logger.Component(root, "refunds"))

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL)
	webhookRouter := webhook.NewRouter(verifier, payments, refunds, logger.Component(root, "webhook"))

	handlers := api.NewHandlers(products, orders, payments, refunds, hub, st, root)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handlers, webhookRouter, jwtService, root),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,

		// Request contexts end with the process so event streams let Shutdown finish
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if rdb != nil {
		p.Go(func(ctx context.Context) error {
			err := notification.RelayRedis(ctx, rdb, cfg.RedisChannel, hub, logger.Component(root, "relay"))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return p.Wait()
}
