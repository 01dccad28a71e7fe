package http

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/usecase"
)

const (
	statusError   = "error"
	statusSuccess = "success"
)

// shortenRequest is the body of a batch submission.
type shortenRequest struct {
	URLs []shortenItem `json:"urls"`
}

// shortenItem is one URL of a batch submission. ValidityMinutes is kept as a
// number literal: integral values such as 30.0 or 1e3 are accepted, anything
// else reaches the range check as 0.
type shortenItem struct {
	OriginalURL     string      `json:"originalUrl"`
	CustomShortCode string      `json:"customShortCode"`
	ValidityMinutes json.Number `json:"validityMinutes"`
}

func (i shortenItem) toCreateRequest() entity.CreateRequest {
	minutes := entity.DefaultValidityMinutes
	if i.ValidityMinutes != "" {
		f, err := i.ValidityMinutes.Float64()
		if err != nil || math.Trunc(f) != f || f < entity.MinValidityMinutes || f > entity.MaxValidityMinutes {
			f = 0
		}
		minutes = int(f)
	}

	return entity.CreateRequest{
		OriginalURL:     i.OriginalURL,
		CustomShortCode: i.CustomShortCode,
		ValidityMinutes: minutes,
	}
}

// recordResponse represents a shortened URL in responses.
type recordResponse struct {
	ID              string    `json:"id"`
	ShortCode       string    `json:"shortCode"`
	ShortURL        string    `json:"shortUrl"`
	OriginalURL     string    `json:"originalUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	ValidityMinutes int       `json:"validityMinutes"`
}

func toRecordResponse(r *http.Request, rec entity.Record) recordResponse {
	return recordResponse{
		ID:              rec.ID,
		ShortCode:       rec.ShortCode,
		ShortURL:        baseURL(r) + "/" + rec.ShortCode,
		OriginalURL:     rec.OriginalURL,
		CreatedAt:       rec.CreatedAt,
		ExpiresAt:       rec.ExpiresAt,
		ValidityMinutes: rec.ValidityMinutes,
	}
}

type shortenResponse struct {
	Status string           `json:"status"`
	URLs   []recordResponse `json:"urls"`
}

type statsResponse struct {
	Status string `json:"status"`
	usecase.Summary
}

type clicksResponse struct {
	Status    string              `json:"status"`
	ShortCode string              `json:"shortCode"`
	Clicks    []entity.ClickEvent `json:"clicks"`
}

type logsResponse struct {
	Status string            `json:"status"`
	Events []entity.LogEvent `json:"events"`
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type indexResponse struct {
	Service string `json:"service"`
	Links   []link `json:"links"`
	usecase.Summary
}

var homeLink = link{Rel: "home", Href: "/"}

// validationError represents an individual validation error.
type validationError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
	Links   []link            `json:"links,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidBatchSizeResponse = errorResponse{
		Status:  statusError,
		Message: "batch must contain between 1 and 5 urls",
	}

	invalidFilterResponse = errorResponse{
		Status:  statusError,
		Message: "invalid filter",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "short link not found",
		Links:   []link{homeLink},
	}

	urlExpiredResponse = errorResponse{
		Status:  statusError,
		Message: "short link has expired",
		Links:   []link{homeLink},
	}

	redirectInterruptedResponse = errorResponse{
		Status:  statusError,
		Message: "redirect interrupted",
		Links:   []link{homeLink},
	}

	tooManyRequestsResponse = errorResponse{
		Status:  statusError,
		Message: "too many requests",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// validationErrorResponse constructs an errorResponse for a rejected batch,
// ordered by request index and field name.
func validationErrorResponse(errs entity.BatchErrors) errorResponse {
	var validationErrs []validationError

	for i, fields := range errs {
		for field, msg := range fields {
			validationErrs = append(validationErrs, validationError{
				Index:   i,
				Field:   field,
				Message: msg,
			})
		}
	}

	sort.Slice(validationErrs, func(a, b int) bool {
		if validationErrs[a].Index != validationErrs[b].Index {
			return validationErrs[a].Index < validationErrs[b].Index
		}
		return validationErrs[a].Field < validationErrs[b].Field
	})

	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  validationErrs,
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
