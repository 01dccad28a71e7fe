package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/usecase"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type submissionUseCase interface {
	Submit(ctx context.Context, reqs []entity.CreateRequest) ([]entity.Record, error)
}

type statsUseCase interface {
	Summary(filter usecase.SummaryFilter) (usecase.Summary, error)
	Clicks(code string) ([]entity.ClickEvent, error)
	ClearAll(ctx context.Context)
}

type urlHandler struct {
	submission submissionUseCase
	stats      statsUseCase
}

func newURLHandler(submission submissionUseCase, stats statsUseCase) *urlHandler {
	return &urlHandler{
		submission: submission,
		stats:      stats,
	}
}

func (h *urlHandler) index(w http.ResponseWriter, r *http.Request) {
	sum, err := h.stats.Summary(usecase.SummaryFilter{})
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, indexResponse{
		Service: "url-shortener",
		Links: []link{
			{Rel: "shorten", Href: "/api/v1/shorten"},
			{Rel: "statistics", Href: "/api/v1/urls"},
			{Rel: "logs", Href: "/api/v1/logs"},
			{Rel: "docs", Href: "/swagger/index.html"},
		},
		Summary: sum,
	})
}

func (h *urlHandler) shortenURLs(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	reqs := make([]entity.CreateRequest, 0, len(req.URLs))
	for _, item := range req.URLs {
		reqs = append(reqs, item.toCreateRequest())
	}

	records, err := h.submission.Submit(r.Context(), reqs)
	if err != nil {
		var verr *usecase.ValidationError

		switch {
		case errors.As(err, &verr):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, validationErrorResponse(verr.Errors))
		case errors.Is(err, entity.ErrInvalidBatchSize):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidBatchSizeResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	resp := shortenResponse{
		Status: statusSuccess,
		URLs:   make([]recordResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.URLs = append(resp.URLs, toRecordResponse(r, rec))
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

func (h *urlHandler) listURLs(w http.ResponseWriter, r *http.Request) {
	filter := usecase.SummaryFilter{
		Status: usecase.RecordStatus(r.URL.Query().Get("status")),
		Sort:   usecase.SortOrder(r.URL.Query().Get("sort")),
	}

	sum, err := h.stats.Summary(filter)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidFilter) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidFilterResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, statsResponse{Status: statusSuccess, Summary: sum})
}

func (h *urlHandler) getClicks(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	clicks, err := h.stats.Clicks(shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, clicksResponse{
		Status:    statusSuccess,
		ShortCode: shortCode,
		Clicks:    clicks,
	})
}

func (h *urlHandler) clearURLs(w http.ResponseWriter, r *http.Request) {
	h.stats.ClearAll(r.Context())

	w.WriteHeader(http.StatusNoContent)
}
