package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/delivery"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/identity"
	"storefront/internal/inflight"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := repository.NewProvider(pool, logger)

	if len(cfg.CouponImportFiles) > 0 {
		if err := importCoupons(ctx, cfg, store.Coupons, logger); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	cartStorage, err := newCartStorage(cfg.Cart, redisClient)
	if err != nil {
		return err
	}

	var guard inflight.Guard = inflight.NewMemoryGuard()
	if redisClient != nil {
		guard = inflight.NewRedisGuard(redisClient, "storefront:")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Brokers != "" {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("publishing order events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close order event publisher")
		}
	}()

	reconciler := pricing.NewReconciler(store.Products, cfg.Checkout.PriceTimeout, logger)
	coupons := coupon.NewEngine(store.Coupons, logger)
	locations := delivery.NewResolver(store.Locations, logger)
	accounts := identity.NewResolver(store.Accounts, cfg.Checkout.IdentityMaxAttempts, logger)

	cartService := service.NewCartService(cartStorage, reconciler, coupons, locations, logger)
	orderService := service.NewOrderService(store.Orders, coupons, locations, publisher, logger)
	checkoutService := service.NewCheckoutService(
		cartService, reconciler, coupons, locations, accounts, orderService, guard,
		service.CheckoutConfig{CommitTimeout: cfg.Checkout.CommitTimeout, GuardTTL: cfg.Checkout.GuardTTL},
		logger,
	)

	mux := router.New(router.Handlers{
		Cart:     handler.NewCartHandler(cartService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Orders:   handler.NewOrderHandler(orderService, accounts, logger),
		Delivery: handler.NewDeliveryHandler(locations, logger),
	}, router.Options{
		APIKey:        cfg.Auth.APIKey,
		SessionSecret: cfg.Auth.SessionSecret,
		CheckoutRate:  cfg.Checkout.RateLimit,
		CheckoutBurst: cfg.Checkout.RateBurst,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Checkout.CommitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", cfg.Server.Address()).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
		return nil
	})

	return g.Wait()
}

// importCoupons loads the configured coupon files, from S3 when enabled with a
// local fallback, and upserts them.
func importCoupons(ctx context.Context, cfg *config.Config, writer coupon.Writer, logger zerolog.Logger) error {
	fileLoader := coupon.NewFileLoader(logger)
	loader := fileLoader

	if cfg.S3.Enabled {
		s3Loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, true, logger)
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	n, err := coupon.NewImporter(loader, writer, logger).Import(ctx, cfg.CouponImportFiles)
	if err != nil {
		return fmt.Errorf("failed to import coupons: %w", err)
	}

	logger.Info().Int("coupons", n).Strs("files", cfg.CouponImportFiles).Msg("coupon catalogue imported")
	return nil
}

func newCartStorage(cfg config.CartConfig, redisClient *redis.Client) (cart.Storage, error) {
	switch cfg.Backend {
	case "redis":
		if redisClient == nil {
			return nil, errors.New("cart backend redis requires REDIS_ADDR")
		}
		return cart.NewRedisStorage(redisClient, cfg.TTL, 2*time.Second), nil
	case "file":
		storage, err := cart.NewFileStorage(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cart directory: %w", err)
		}
		return storage, nil
	default:
		return cart.NewMemoryStorage(), nil
	}
}
