package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"
	"github.com/vadimbarashkov/shortlink/internal/auth"
	"github.com/vadimbarashkov/shortlink/internal/cache"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database/postgres"
	"github.com/vadimbarashkov/shortlink/internal/queue"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/internal/worker"
	"golang.org/x/sync/errgroup"

	api "github.com/vadimbarashkov/shortlink/internal/api/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Env)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return err
	}

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	urlRepo := postgres.NewURLRepository(db)
	clickRepo := postgres.NewClickRepository(db)
	userRepo := postgres.NewUserRepository(db)

	urlCache := cache.NewURLCache(rdb)
	clickQueue := queue.NewClickQueue(rdb)

	urlSvc := service.NewURLService(
		urlRepo,
		clickRepo,
		urlCache,
		clickQueue,
		logger.Logger,
		cfg.Slug.Length,
		cfg.Slug.MaxAttempts,
		cfg.Redis.CacheTTL,
	)

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authSvc := auth.NewAuthService(userRepo, tokens)

	var geo worker.GeoResolver
	if cfg.Worker.GeoIPDBPath != "" {
		resolver, err := worker.NewGeoIPResolver(cfg.Worker.GeoIPDBPath)
		if err != nil {
			logger.Warn("geoip database unavailable, clicks will lack geo data", slog.Any("err", err))
		} else {
			defer resolver.Close()
			geo = resolver
		}
	}

	clickWorker := worker.NewClickWorker(clickQueue, clickRepo, geo, logger.Logger)
	sweeper := worker.NewSweeper(urlRepo, urlCache, logger.Logger, cfg.Worker.SweepInterval, cfg.Worker.SweepLockTTL)

	r := api.NewRouter(logger, urlSvc, authSvc, api.RouterOptions{
		BaseURL:           cfg.BaseURL,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		DB:                db,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))

		var err error
		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	g.Go(func() error {
		return clickWorker.Run(ctx)
	})

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	return g.Wait()
}

func setupLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	switch env {
	case config.EnvStage:
		opts = httplog.Options{
			JSON:     true,
			LogLevel: slog.LevelDebug,
		}
	case config.EnvProd:
		opts = httplog.Options{
			JSON:     true,
			LogLevel: slog.LevelInfo,
		}
	}

	return httplog.NewLogger("shortlink", opts)
}
