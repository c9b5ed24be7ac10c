package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ticketing/internal/shared/config"
	"ticketing/pkg/logger"
)

const connectTimeout = 5 * time.Second

// DB holds the backing connections. PostgreSQL is nil under the memory store
// driver; Redis is nil when that driver runs without a reachable Redis.
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
}

// InitDB connects the stores the configured driver needs and applies migrations.
// Redis is mandatory alongside Postgres and best effort otherwise.
func InitDB(cfg *config.Config) (*DB, error) {
	db := &DB{}

	if !cfg.UsesMemoryStore() {
		pg, err := openPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := Migrate(pg); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		db.PostgreSQL = pg
	}

	rdb, err := openRedis(cfg)
	switch {
	case err == nil:
		db.Redis = rdb
	case cfg.UsesMemoryStore():
		logger.GetDefault().Warn("Redis unavailable, running without cache and jobs",
			slog.String("error", err.Error()))
	default:
		_ = db.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	return db, nil
}

func openPostgres(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.New(slogWriter{logger.GetDefault().With(slog.String("component", "gorm"))}, gormlogger.Config{
			SlowThreshold:             cfg.Database.SlowQuery,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.GetDefault().Info("PostgreSQL connected",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
		slog.Int("max_open_conns", cfg.Database.MaxOpenConns))
	return db, nil
}

func openRedis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.PoolSize / 4,
		DialTimeout:  connectTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Redis.Addr, err)
	}

	logger.GetDefault().Info("Redis connected", slog.String("addr", cfg.Redis.Addr))
	return rdb, nil
}

// slogWriter adapts gorm's printf-style logger to the application logger.
type slogWriter struct {
	l *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.l.Info(fmt.Sprintf(format, args...))
}

// Close releases every open connection.
func (db *DB) Close() error {
	var errs []error

	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close postgres: %w", err))
			}
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Component states reported by Status.
const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDisabled = "disabled"
)

// Status pings each backing store and reports its state by name.
func (db *DB) Status(ctx context.Context) map[string]string {
	status := map[string]string{
		"postgres": StatusDisabled,
		"redis":    StatusDisabled,
	}

	if db.PostgreSQL != nil {
		status["postgres"] = StatusUp
		if err := db.pingPostgres(ctx); err != nil {
			status["postgres"] = StatusDown
		}
	}
	if db.Redis != nil {
		status["redis"] = StatusUp
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = StatusDown
		}
	}
	return status
}

// HealthCheck fails when any configured store is unreachable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var errs []error
	if db.PostgreSQL != nil {
		if err := db.pingPostgres(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (db *DB) pingPostgres(ctx context.Context) error {
	sqlDB, err := db.PostgreSQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetRedisClient returns the Redis client
func (db *DB) GetRedisClient() *redis.Client {
	return db.Redis
}

// GetPostgreSQL returns the PostgreSQL GORM instance
func (db *DB) GetPostgreSQL() *gorm.DB {
	return db.PostgreSQL
}
