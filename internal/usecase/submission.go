package usecase

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/identifier"
)

// Field names reported in entity.BatchErrors.
const (
	FieldOriginalURL     = "originalUrl"
	FieldCustomShortCode = "customShortCode"
	FieldValidityMinutes = "validityMinutes"
)

// Messages reported in entity.BatchErrors.
const (
	MsgURLRequired       = "original URL is required"
	MsgURLInvalid        = "invalid URL format"
	MsgShortCodeInvalid  = "short code must be 3-20 alphanumeric characters"
	MsgShortCodeTaken    = "short code already in use"
	MsgShortCodeBatchDup = "duplicate short code in batch"
	MsgValidityRange     = "validity must be between 1 and 43200 minutes"
)

// ValidationError carries the per-request field errors of a rejected batch.
type ValidationError struct {
	Errors entity.BatchErrors
}

func (e *ValidationError) Error() string {
	idx := make([]int, 0, len(e.Errors))
	for i := range e.Errors {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		fields := make([]string, 0, len(e.Errors[i]))
		for f := range e.Errors[i] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts = append(parts, fmt.Sprintf("#%d: %s", i, strings.Join(fields, ",")))
	}

	return fmt.Sprintf("%s: %s", entity.ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return entity.ErrValidation
}

type SubmissionUseCase struct {
	store        recordStore
	log          eventLog
	validate     *validator.Validate
	generateCode func() string
}

type SubmissionOption func(*SubmissionUseCase)

// WithCodeGenerator replaces the generator used for requests without a custom code.
func WithCodeGenerator(gen func() string) SubmissionOption {
	return func(uc *SubmissionUseCase) {
		uc.generateCode = gen
	}
}

func NewSubmissionUseCase(store recordStore, log eventLog, opts ...SubmissionOption) *SubmissionUseCase {
	uc := &SubmissionUseCase{
		store:        store,
		log:          log,
		validate:     newValidate(),
		generateCode: identifier.GenerateShortCode,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func newValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = validate.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		return identifier.ValidateURL(fl.Field().String())
	})
	_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return identifier.ValidateShortCode(fl.Field().String())
	})

	return validate
}

func messageFor(e validator.FieldError) string {
	switch e.Field() {
	case FieldOriginalURL:
		if e.Tag() == "required" {
			return MsgURLRequired
		}
		return MsgURLInvalid
	case FieldCustomShortCode:
		return MsgShortCodeInvalid
	case FieldValidityMinutes:
		return MsgValidityRange
	default:
		return "invalid value"
	}
}

// Validate checks every request of the batch and the batch as a whole.
// It returns entity.ErrInvalidBatchSize for empty or oversized batches and
// otherwise the field errors keyed by request index.
func (uc *SubmissionUseCase) Validate(reqs []entity.CreateRequest) (entity.BatchErrors, error) {
	const op = "usecase.SubmissionUseCase.Validate"

	if len(reqs) == 0 || len(reqs) > entity.MaxBatchSize {
		return nil, fmt.Errorf("%s: got %d requests, want 1-%d: %w", op, len(reqs), entity.MaxBatchSize, entity.ErrInvalidBatchSize)
	}

	errs := make(entity.BatchErrors)
	existing := uc.store.All()

	for i, req := range reqs {
		if err := uc.validate.Struct(req); err != nil {
			fieldErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			for _, fe := range fieldErrs {
				errs.Add(i, fe.Field(), messageFor(fe))
			}
		}

		code := req.CustomShortCode
		if code != "" && identifier.ValidateShortCode(code) && !identifier.IsShortCodeUnique(code, existing) {
			errs.Add(i, FieldCustomShortCode, MsgShortCodeTaken)
		}
	}

	seen := make(map[string][]int, len(reqs))
	for i, req := range reqs {
		if req.CustomShortCode != "" {
			seen[req.CustomShortCode] = append(seen[req.CustomShortCode], i)
		}
	}
	for _, idx := range seen {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			errs.Add(i, FieldCustomShortCode, MsgShortCodeBatchDup)
		}
	}

	return errs, nil
}

// Submit validates the batch and, when no request has an error, creates one
// record per request. A rejected batch returns *ValidationError and creates
// nothing. Generated codes are not checked against existing records.
func (uc *SubmissionUseCase) Submit(ctx context.Context, reqs []entity.CreateRequest) ([]entity.Record, error) {
	const op = "usecase.SubmissionUseCase.Submit"

	errs, err := uc.Validate(reqs)
	if err != nil {
		uc.log.Warn(ctx, "submission rejected", "err", err)
		return nil, err
	}

	if !errs.Empty() {
		uc.log.Warn(ctx, "submission failed validation", "requests", len(reqs), "invalid", len(errs))
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{Errors: errs})
	}

	now := uc.store.Now()

	created := make([]entity.Record, 0, len(reqs))
	for _, req := range reqs {
		code := req.CustomShortCode
		if code == "" {
			code = uc.generateCode()
		}

		rec := entity.Record{
			ID:              identifier.NewID(),
			OriginalURL:     req.OriginalURL,
			ShortCode:       code,
			CreatedAt:       now,
			ExpiresAt:       entity.ExpiryFor(now, req.ValidityMinutes),
			ValidityMinutes: req.ValidityMinutes,
			Clicks:          []entity.ClickEvent{},
			IsActive:        true,
		}

		uc.store.AddRecord(ctx, rec)
		created = append(created, rec)
	}

	uc.log.Info(ctx, "submission committed", "records", len(created))

	return created, nil
}
