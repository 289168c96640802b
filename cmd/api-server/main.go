// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ristorino-api/internal/api"
	"ristorino-api/internal/auth"
	"ristorino-api/internal/clicks"
	"ristorino-api/internal/common/config"
	"ristorino-api/internal/common/database"
	commonhttp "ristorino-api/internal/common/http"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/common/observability"
	"ristorino-api/internal/notify"
	"ristorino-api/internal/promo"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting api server...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("ristorino-api")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis, optional ---
	var redisClient *database.RedisClient
	if cfg.Cache.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, promotions served uncached", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init Elasticsearch audit sink, optional ---
	var auditor notify.GapAuditor = notify.NoOpGapAuditor{}
	if cfg.Database.Elasticsearch.GetURL() != "" {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = es.Ping()
		}
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, gap audit disabled", zap.Error(err))
		} else {
			auditor = notify.NewElasticGapAuditor(es, cfg.Database.Elasticsearch.AuditIndex, log)
			zapLog.Info("Elasticsearch audit sink ready")
		}
	}

	// --- Wire domain services ---
	clickStore := clicks.NewStore(pg, log)

	promoRepo := promo.NewRepository(pg, log)

	minter := auth.NewMinter(cfg.Notification.JWTSecret, time.Duration(cfg.Notification.JWTTTLSeconds)*time.Second)

	notifier := notify.NewNotifier(
		clickStore,
		minter,
		commonhttp.NewClient(config.GetDuration(cfg.Notification.HTTPTimeout)),
		cfg.Notification.DestinationURL,
		config.GetDuration(cfg.Notification.HTTPTimeout),
		auditor,
		obs,
		log,
	)

	var server *api.Server
	if redisClient != nil {
		cached := promo.NewCachedRepository(promoRepo, redisClient, time.Duration(cfg.Cache.PromotionsTTL)*time.Second, log)
		server = api.NewServer(cfg.Server, cached, promoRepo, clickStore, notifier, log)
	} else {
		server = api.NewServer(cfg.Server, promoRepo, promoRepo, clickStore, notifier, log)
	}

	if err := server.Run(ctx); err != nil {
		zapLog.Fatal("http server failed", zap.Error(err))
	}

	zapLog.Info("api server stopped")
}
