package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/usecase"
)

type redirectUseCase interface {
	Resolve(ctx context.Context, code string, requester usecase.Requester, handoff usecase.Handoff) (usecase.RedirectState, error)
}

type redirectHandler struct {
	useCase redirectUseCase
}

func newRedirectHandler(useCase redirectUseCase) *redirectHandler {
	return &redirectHandler{useCase: useCase}
}

// follow resolves the short code for the lifetime of the request. The client
// receives the redirect once the countdown has elapsed.
func (h *redirectHandler) follow(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	requester := usecase.Requester{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	var target string
	handoff := usecase.HandoffFunc(func(url string) {
		target = url
	})

	state, err := h.useCase.Resolve(r.Context(), shortCode, requester, handoff)
	httplog.LogEntrySetField(r.Context(), "redirect_state", slog.StringValue(string(state)))

	if err != nil {
		switch {
		case errors.Is(err, entity.ErrURLNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
		case errors.Is(err, entity.ErrURLExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, urlExpiredResponse)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, redirectInterruptedResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// redirectHome sends every unmatched path back to the index.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}
