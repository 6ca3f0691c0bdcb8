package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/sprintstory/internal/announce"
	"github.com/playperu/sprintstory/internal/config"
	"github.com/playperu/sprintstory/internal/database"
	"github.com/playperu/sprintstory/internal/handler/health"
	"github.com/playperu/sprintstory/internal/migrations"
	"github.com/playperu/sprintstory/internal/server"
	"github.com/playperu/sprintstory/internal/store"
	"github.com/playperu/sprintstory/internal/story"
	"github.com/playperu/sprintstory/internal/tokens"
)

func serve(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg.LogLevel)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Script ---
	catalog, err := loadCatalog(cfg.ScriptPath)
	if err != nil {
		return err
	}
	st := store.New(db)
	if err := st.SyncTaskDefinitions(ctx, story.TaskDefinitions(catalog)); err != nil {
		return fmt.Errorf("syncing task definitions: %w", err)
	}
	logger.Info("script loaded", "version", catalog.Version(), "chapters", len(catalog.Chapters()))

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, st, time.Now()); err != nil {
			return fmt.Errorf("seeding demo cohort: %w", err)
		}
	}

	renderer := tokens.NewRenderer(tokens.ParseLocale(cfg.StoryLocale))
	broker := server.NewBroker()
	engine := story.New(logger, catalog, st, st,
		story.WithNotifier(broker),
		story.WithRenderer(renderer),
	)

	deps := server.Deps{
		Story:        engine,
		Directory:    st,
		Broker:       broker,
		Renderer:     renderer,
		AdminKeyHash: cfg.AdminKeyHash,
	}
	checks := map[string]health.Checker{
		"sqlite": dbChecker{db},
		"redis":  nil,
	}

	// --- Redis ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		deps.Announcer = announce.NewPublisher(rdb)
		checks["redis"] = redisChecker{rdb}
		logger.Info("connected to redis")
	} else {
		logger.Warn("REDIS_URL not set, announcements are disabled")
	}
	deps.Health = health.NewHandler(logger, checks).Routes()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, deps)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	if rdb != nil {
		g.Go(func() error {
			return announce.Relay(gctx, logger, rdb, broker)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
