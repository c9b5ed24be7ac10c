package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"ticketing/api/routes"
	"ticketing/internal/notifications"
	"ticketing/internal/reporting"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/middleware"
	"ticketing/pkg/logger"
	"ticketing/pkg/ratelimit"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load environment variables
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	appLogger = logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.SetDefault(appLogger)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:      cfg.RateLimit.Enabled,
			Window:       cfg.RateLimit.WindowDuration,
			DefaultLimit: cfg.RateLimit.DefaultRequests,
			Limits: map[ratelimit.Bucket]int{
				ratelimit.BucketBrowse:    cfg.RateLimit.BrowseRequests,
				ratelimit.BucketInventory: cfg.RateLimit.InventoryRequests,
				ratelimit.BucketCheckout:  cfg.RateLimit.CheckoutRequests,
				ratelimit.BucketAccount:   cfg.RateLimit.AccountRequests,
				ratelimit.BucketReports:   cfg.RateLimit.ReportRequests,
				ratelimit.BucketHealth:    cfg.RateLimit.HealthRequests,
			},
			WhitelistedIPs: cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Notification publisher (kafka, rabbitmq or log)
	publisher, err := notifications.NewPublisher(cfg)
	if err != nil {
		appLogger.Error("Failed to initialize notification publisher, falling back to log delivery",
			slog.String("broker", cfg.Notifications.Broker),
			slog.Any("error", err))
		publisher = notifications.NewLogPublisher(appLogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing notification publisher", slog.Any("error", err))
		}
	}()

	appRouter := routes.NewRouter(cfg, db, publisher)

	// Background jobs need Redis
	var jobs *jobRunner
	if cfg.Jobs.Enabled && db.Redis != nil {
		jobs = newJobRunner(cfg)
		appRouter.SetEnqueuer(jobs.client)
	}

	// Setup router with rate limiter
	router := setupRouter(appRouter, rateLimiter)

	if jobs != nil {
		if err := jobs.start(appRouter.ReportingService(), cfg.Jobs.UtilizationCron); err != nil {
			appLogger.Error("Failed to start background jobs", slog.Any("error", err))
		}
		defer jobs.stop()
	}

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.String("store", cfg.Store.Driver),
			slog.Bool("jobs", jobs != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Correlation id first so the request log and every handler log share it
	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}

// jobRunner owns the asynq client, worker and scheduler
type jobRunner struct {
	redisOpt    asynq.RedisClientOpt
	concurrency int
	client      *asynq.Client
	server      *asynq.Server
	scheduler   *asynq.Scheduler
}

func newJobRunner(cfg *config.Config) *jobRunner {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	return &jobRunner{
		redisOpt:    redisOpt,
		concurrency: cfg.Jobs.Concurrency,
		client:      asynq.NewClient(redisOpt),
	}
}

func (j *jobRunner) start(reports reporting.Service, utilizationCron string) error {
	appLogger := logger.GetDefault()

	j.server = asynq.NewServer(j.redisOpt, asynq.Config{
		Concurrency: j.concurrency,
		Queues: map[string]int{
			reporting.QueueReports: 1,
		},
		Logger: newAsynqLogger(appLogger),
	})

	mux := asynq.NewServeMux()
	reporting.RegisterHandlers(mux, reporting.NewTaskHandler(reports))
	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("asynq server: %w", err)
	}

	j.scheduler = asynq.NewScheduler(j.redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(appLogger),
	})
	entryID, err := reporting.RegisterSchedule(j.scheduler, utilizationCron)
	if err != nil {
		return err
	}
	if err := j.scheduler.Start(); err != nil {
		return fmt.Errorf("asynq scheduler: %w", err)
	}

	appLogger.Info("Background jobs started",
		slog.Int("concurrency", j.concurrency),
		slog.String("utilization_cron", utilizationCron),
		slog.String("entry_id", entryID))
	return nil
}

func (j *jobRunner) stop() {
	if j.scheduler != nil {
		j.scheduler.Shutdown()
	}
	if j.server != nil {
		j.server.Shutdown()
	}
	if err := j.client.Close(); err != nil {
		logger.GetDefault().Error("Error closing job client", slog.Any("error", err))
	}
}

// asynqLogger routes asynq's internal logging through the application logger
type asynqLogger struct {
	l *slog.Logger
}

func newAsynqLogger(l *logger.Logger) *asynqLogger {
	return &asynqLogger{l: l.Logger.With(slog.String("component", "asynq"))}
}

func (a *asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a *asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a *asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a *asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a *asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
