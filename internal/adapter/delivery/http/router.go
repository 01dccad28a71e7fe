// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, decoding submissions, following short links, and
// formatting responses.
package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimiter builds an in-process limiter from a formatted rate such as
// "10-S" or "100-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	const op = "http.NewRateLimiter"

	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse rate %q: %w", op, formatted, err)
	}

	return limiter.New(limitermemory.NewStore(), rate), nil
}

type routerOptions struct {
	shortenLimiter *limiter.Limiter
	docsPath       string
}

type RouterOption func(*routerOptions)

// WithShortenLimiter rate limits batch submissions.
func WithShortenLimiter(l *limiter.Limiter) RouterOption {
	return func(o *routerOptions) {
		o.shortenLimiter = l
	}
}

// WithDocsPath sets the file served as the OpenAPI document.
func WithDocsPath(path string) RouterOption {
	return func(o *routerOptions) {
		o.docsPath = path
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener.
func NewRouter(
	logger *httplog.Logger,
	submission submissionUseCase,
	redirect redirectUseCase,
	stats statsUseCase,
	events eventLog,
	opts ...RouterOption,
) *chi.Mux {
	options := routerOptions{
		docsPath: "./docs/swagger.yml",
	}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(redirectHome)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, options.docsPath)
	})

	urls := newURLHandler(submission, stats)
	logs := newLogHandler(events)

	r.Get("/", urls.index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Group(func(r chi.Router) {
			if options.shortenLimiter != nil {
				r.Use(limiterhttp.NewMiddleware(
					options.shortenLimiter,
					limiterhttp.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
						render.Status(r, http.StatusTooManyRequests)
						render.JSON(w, r, tooManyRequestsResponse)
					}),
				).Handler)
			}

			r.Post("/shorten", urls.shortenURLs)
		})

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", urls.listURLs)
			r.Delete("/", urls.clearURLs)
			r.Get("/{shortCode}/clicks", urls.getClicks)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", logs.listLogs)
			r.Delete("/", logs.clearLogs)
		})
	})

	r.Get("/{shortCode}", newRedirectHandler(redirect).follow)

	return r
}
