package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/example/engprogress/internal/config"
	"github.com/example/engprogress/internal/database"
	"github.com/example/engprogress/internal/logger"
	"github.com/example/engprogress/internal/progress"
	"github.com/example/engprogress/internal/redislock"
)

// app holds everything a command needs; close releases it
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *sqlx.DB
	store *database.SQLStore
	orch  *progress.Orchestrator
	rdb   *goredis.Client
}

// loadConfig reads the environment and applies the persistent flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBType = "sqlite"
		cfg.DBPath = p
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.LogMode = m
	}
	return cfg, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(ctx, cfg.DBType, cfg.DSN())
	if err != nil {
		log.Sync()
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}
	a.store = database.NewSQLStore(db, log)

	opts := []progress.Option{
		progress.WithLogger(log),
		progress.WithPolicy(cfg.Policy),
		progress.WithFailureSink(a.store),
		progress.WithTransient(database.IsTransient),
		progress.WithCommitTimeout(cfg.CommitTimeout),
	}
	if cfg.RedisAddr != "" {
		rdb, err := redislock.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			a.close()
			return nil, err
		}
		a.rdb = rdb
		opts = append(opts, progress.WithLocker(redislock.New(rdb, log, 0)))
		log.Info("Using redis user lock", "addr", cfg.RedisAddr)
	}
	a.orch = progress.New(a.store, opts...)

	log.Info("Connected to database", "type", cfg.DBType)
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Error closing database", "error", err)
		}
	}
	a.log.Sync()
}
