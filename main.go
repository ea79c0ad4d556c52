package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/agentstats"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/api"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/config"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/content"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/engagement"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/feed"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/handler"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/httpserver"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/metrics"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/middleware"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/storage"

	_ "github.com/lib/pq"
)

// Connection check timeouts at startup.
const (
	dbPingTimeout    = 5 * time.Second
	redisPingTimeout = 5 * time.Second
	healthTimeout    = 2 * time.Second
)

// rollupSchedule folds yesterday's per-day agent counters into totals
// shortly after midnight UTC.
const rollupSchedule = "10 0 * * *"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	store, err := content.Load(cfg.Site.ContentDir)
	if err != nil {
		log.Error("Failed to load content", logger.Error(err))
		return 1
	}
	log.Info("Content loaded",
		logger.String("dir", cfg.Site.ContentDir),
		logger.Int("items", store.Len()),
	)

	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	redisClient := connectRedis(cfg, log)
	defer func() { _ = redisClient.Close() }()

	return runServer(cfg, log, store, db, redisClient)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// connectDatabase opens and verifies the event archive connection.
func connectDatabase(cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)

	return db, nil
}

// connectRedis creates the Redis client for counters and agent stats.
// The configured timeout bounds dials and every operation, so a hung
// Redis surfaces as Unavailable instead of a stalled request.
// An unreachable Redis at startup only degrades bookmark counters, so it
// logs a warning instead of failing; requests get a clean 503 until it
// comes back.
func connectRedis(cfg *config.Config, log logger.Logger) *redis.Client {
	client := redis.NewClient(newRedisOptions(&cfg.Redis))

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable at startup, counters degraded",
			logger.String("address", cfg.Redis.Address),
			logger.Error(err),
		)
		return client
	}

	log.Info("Redis connected", logger.String("address", cfg.Redis.Address))
	return client
}

// newRedisOptions maps the Redis config onto client options.
func newRedisOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
}

// runServer builds all dependencies and runs the HTTP server until shutdown.
func runServer(
	cfg *config.Config,
	log logger.Logger,
	store *content.Store,
	db *sql.DB,
	redisClient *redis.Client,
) int {
	m := metrics.New()

	counter := engagement.NewRedisCounter(redisClient, cfg.Redis.KeyPrefix, log)
	tracker := agentstats.NewTracker(redisClient, cfg.Redis.KeyPrefix, cfg.Admin.StatsRetentionDays, log)

	builder := feed.NewBuilder(feed.Options{
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		SiteURL:     cfg.Site.URL,
		Language:    cfg.Site.Language,
		Author:      cfg.Site.Author,
		Limit:       cfg.Feed.DefaultLimit,
	}, log)

	// Event archive: buffered writes, batch flushed to PostgreSQL.
	buf := storage.NewBuffer(cfg.Archive.BufferSize)
	archive := storage.NewArchive(db, buf, log, cfg.Archive.FlushInterval, cfg.Archive.FlushThreshold).
		WithFlushHook(func(count int) {
			m.EventsFlushed.Add(float64(count))
		})
	archive.Start()
	defer archive.Stop()

	// Daily rollup of per-day agent counters into totals.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(rollupSchedule, func() {
		if err := tracker.Rollup(context.Background()); err != nil {
			log.Error("Agent stats rollup failed", logger.Error(err))
		}
	}); err != nil {
		log.Error("Failed to schedule agent stats rollup", logger.Error(err))
		return 1
	}
	scheduler.Start()
	defer scheduler.Stop()

	deps := api.RouteDeps{
		Feeds:           handler.NewFeedHandler(builder, store, m, log, cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit),
		Bookmarks:       handler.NewBookmarkHandler(counter, buf, m, log),
		Admin:           handler.NewAdminHandler(tracker, counter, store, log),
		AgentDetect:     middleware.AgentDetect(tracker, m, log),
		Metrics:         m,
		AdminSecret:     cfg.Admin.JWTSecret,
		MaxWritesPerMin: cfg.RateLimit.MaxWritesPerMinute,
		RateLimitWindow: cfg.RateLimit.Window,
	}

	checks := map[string]httpserver.HealthChecker{
		"database": httpserver.DatabaseHealthChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
			defer cancel()
			return db.PingContext(ctx)
		}),
		"redis": httpserver.RedisHealthChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		}),
	}

	server := api.NewServer(cfg, log, deps, checks)

	log.Info("Site API starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("site", cfg.Site.URL),
	)

	if err := server.Run(context.Background()); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Site API exited cleanly")
	return 0
}
