package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/memory"
	"github.com/vadimbarashkov/url-shortener-demo/internal/config"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

type AppTestSuite struct {
	suite.Suite
	cfg     *config.Config
	logger  *httplog.Logger
	storage *memory.Storage
	e       *httpexpect.Expect
}

func (suite *AppTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *AppTestSuite) SetupSubTest() {
	cfg, err := config.Load("")
	suite.Require().NoError(err)

	cfg.Redirect.Countdown = 0
	suite.cfg = cfg
	suite.storage = memory.New()
	suite.e = suite.serve()
}

func (suite *AppTestSuite) serve() *httpexpect.Expect {
	handler, err := NewHandler(context.Background(), suite.cfg, suite.logger, suite.storage)
	suite.Require().NoError(err)

	server := httptest.NewServer(handler)
	suite.T().Cleanup(server.Close)

	return httpexpect.Default(suite.T(), server.URL)
}

func (suite *AppTestSuite) TestShortenAndFollow() {
	suite.Run("click is recorded and the client redirected", func() {
		resp := suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"urls": []map[string]any{
				{"originalUrl": "https://example.com/landing", "customShortCode": "landing", "validityMinutes": 5},
				{"originalUrl": "https://example.com/other"},
			}}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		urls := resp.Value("urls").Array()
		urls.Length().IsEqual(2)
		urls.Value(0).Object().HasValue("shortCode", "landing")
		urls.Value(1).Object().HasValue("validityMinutes", entity.DefaultValidityMinutes)

		suite.e.GET("/landing").
			WithHeader("User-Agent", "e2e-agent").
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/landing")

		clicks := suite.e.GET("/api/v1/urls/landing/clicks").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("clicks").Array()

		clicks.Length().IsEqual(1)
		clicks.Value(0).Object().HasValue("userAgent", "e2e-agent")

		stats := suite.e.GET("/api/v1/urls").
			WithQuery("sort", "clicks").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		stats.Value("totals").Object().
			HasValue("records", 2).
			HasValue("active", 2).
			HasValue("clicks", 1)
		stats.Value("records").Array().Value(0).Object().HasValue("shortCode", "landing")
	})

	suite.Run("duplicate custom code is rejected", func() {
		suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"urls": []map[string]any{{"originalUrl": "https://example.com", "customShortCode": "taken"}}}).
			Expect().
			Status(http.StatusCreated)

		suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"urls": []map[string]any{{"originalUrl": "https://example.com", "customShortCode": "taken"}}}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			Value("errors").Array().Value(0).Object().
			HasValue("field", "customShortCode").
			HasValue("message", "short code already in use")
	})

	suite.Run("unknown code", func() {
		suite.e.GET("/missing").
			Expect().
			Status(http.StatusNotFound)

		warns := suite.e.GET("/api/v1/logs").
			WithQuery("source", "redirect").
			WithQuery("level", "warn").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("events").Array()

		warns.Length().IsEqual(1)
		warns.Value(0).Object().HasValue("message", "short code not found")
	})
}

func (suite *AppTestSuite) TestRestart() {
	suite.Run("records and logs survive a restart", func() {
		suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"urls": []map[string]any{{"originalUrl": "https://example.com", "customShortCode": "keep"}}}).
			Expect().
			Status(http.StatusCreated)

		restarted := suite.serve()

		restarted.GET("/api/v1/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("records").Array().Value(0).Object().
			HasValue("shortCode", "keep")

		restarted.GET("/api/v1/logs").
			WithQuery("source", "submission").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("events").Array().NotEmpty()
	})

	suite.Run("clear all", func() {
		suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]any{"urls": []map[string]any{{"originalUrl": "https://example.com"}}}).
			Expect().
			Status(http.StatusCreated)

		suite.e.DELETE("/api/v1/urls").Expect().Status(http.StatusNoContent)

		suite.serve().GET("/api/v1/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("records").Array().IsEmpty()
	})
}

func TestApp(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func TestNewHandler_InvalidRateLimit(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.RateLimit = "fast"

	_, err = NewHandler(context.Background(), cfg, httplog.NewLogger("", httplog.Options{Writer: io.Discard}), memory.New())
	assert.Error(t, err)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := openStorage(ctx, config.Storage{Type: config.StorageMemory, Memory: config.Memory{CapacityBytes: 16}})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		assert.ErrorIs(t, s.Set(ctx, "key", "a value longer than sixteen bytes"), entity.ErrQuotaExceeded)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.db")

		s, err := openStorage(ctx, config.Storage{Type: config.StorageSQLite, SQLite: config.SQLite{Path: path}})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		require.NoError(t, s.Set(ctx, "key", "value"))

		got, err := s.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := openStorage(ctx, config.Storage{Type: "redis"})
		assert.Error(t, err)
	})
}

func TestNewPostgresStorage(t *testing.T) {
	ctx := context.Background()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { db.Close() })

	s := newPostgresStorage(db, config.Postgres{MaxValueBytes: 8})

	assert.ErrorIs(t, s.Set(ctx, "key", "more than eight bytes"), entity.ErrQuotaExceeded)

	mock.ExpectExec(`INSERT INTO kv_entries`).
		WithArgs("key", "short").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.Set(ctx, "key", "short"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProd, LogLevel: "warn"}

	logger := NewLogger(cfg)

	require.NotNil(t, logger)
	assert.True(t, logger.Options.JSON)
	assert.False(t, logger.Options.Concise)
}
