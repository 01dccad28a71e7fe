package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/eventlog"
)

type eventLog interface {
	Entries(f eventlog.Filter) []entity.LogEvent
	Clear(ctx context.Context)
}

type logHandler struct {
	log eventLog
}

func newLogHandler(log eventLog) *logHandler {
	return &logHandler{log: log}
}

func (h *logHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := eventlog.Filter{
		Level:  entity.LogLevel(q.Get("level")),
		Source: q.Get("source"),
	}

	if filter.Level != "" && !filter.Level.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidFilterResponse)
		return
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidFilterResponse)
			return
		}
		filter.Limit = limit
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, logsResponse{
		Status: statusSuccess,
		Events: h.log.Entries(filter),
	})
}

func (h *logHandler) clearLogs(w http.ResponseWriter, r *http.Request) {
	h.log.Clear(r.Context())

	w.WriteHeader(http.StatusNoContent)
}
