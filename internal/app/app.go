// Package app wires the process-wide resources together: the Postgres pool
// and the Redis client are created once at startup, injected into every
// component, and torn down at termination.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ilyakochetov/shortener/internal/cache"
	"github.com/ilyakochetov/shortener/internal/config"
	dbpostgres "github.com/ilyakochetov/shortener/internal/database/postgres"
	"github.com/ilyakochetov/shortener/internal/service"
	"github.com/ilyakochetov/shortener/pkg/postgres"

	myhttp "github.com/ilyakochetov/shortener/internal/api/http"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer redisClient.Close()

	logger := httplog.NewLogger("shortener", httplog.Options{
		JSON:    cfg.Env == config.EnvProd,
		Concise: cfg.Env != config.EnvProd,
	})

	urlCache := cache.New(redisClient, cfg.Cache.DefaultTTL, logger.Logger)
	urlRepo := dbpostgres.NewURLRepository(db)
	tracker := service.NewClickTracker(urlRepo, urlCache, cfg.Cache.FlushThreshold, logger.Logger)
	urlSvc := service.NewURLService(urlRepo, urlCache, tracker, cfg.ShortCodeLength)

	r := myhttp.NewRouter(logger, urlSvc, cfg.BaseURL, cfg.ShortCodeLength)

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
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		// Let in-flight click accounting finish before the clients close.
		tracker.Wait()

		return nil
	})

	return g.Wait()
}
