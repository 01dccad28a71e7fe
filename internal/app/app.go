// Package app wires configuration, storage, the event log, use cases and the
// HTTP server together and runs them until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	delivery "github.com/vadimbarashkov/url-shortener-demo/internal/adapter/delivery/http"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/repository/records"
	"github.com/vadimbarashkov/url-shortener-demo/internal/config"
	"github.com/vadimbarashkov/url-shortener-demo/internal/eventlog"
	"github.com/vadimbarashkov/url-shortener-demo/internal/usecase"
	"golang.org/x/sync/errgroup"
)

// NewLogger builds the process logger: JSON in prod, concise text otherwise.
func NewLogger(cfg *config.Config) *httplog.Logger {
	prod := cfg.Env == config.EnvProd

	return httplog.NewLogger("url-shortener", httplog.Options{
		JSON:           prod,
		LogLevel:       cfg.SlogLevel(),
		Concise:        !prod,
		RequestHeaders: prod,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

// NewHandler builds the router and its dependencies over storage.
func NewHandler(ctx context.Context, cfg *config.Config, logger *httplog.Logger, storage keyValueStorage) (http.Handler, error) {
	const op = "app.NewHandler"

	events := eventlog.New(storage, logger.Logger, eventlog.WithCapacity(cfg.EventLog.Capacity))
	events.Load(ctx)

	store := records.New(storage, events.Source("record-store"))
	store.Load(ctx)

	submission := usecase.NewSubmissionUseCase(store, events.Source("submission"))
	redirect := usecase.NewRedirectUseCase(
		store,
		events.Source("redirect"),
		usecase.WithCountdown(cfg.Redirect.Countdown),
		usecase.WithTick(cfg.Redirect.Tick),
	)
	stats := usecase.NewStatsUseCase(store, events.Source("stats"))

	var opts []delivery.RouterOption
	if cfg.RateLimit != "" {
		l, err := delivery.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts = append(opts, delivery.WithShortenLimiter(l))
	}

	events.Source("app").Info(ctx, "application started",
		"storage", cfg.Storage.Type,
		"records", len(store.All()),
		"countdown", cfg.Redirect.Countdown,
	)

	return delivery.NewRouter(logger, submission, redirect, stats, events, opts...), nil
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg)

	storage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("%s: failed to open storage: %w", op, err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("op", op), slog.Any("err", err))
		}
	}()

	handler, err := NewHandler(ctx, cfg, logger, storage)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        handler,
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

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

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

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
