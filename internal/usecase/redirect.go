package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/identifier"
)

// RedirectState is the phase of a redirect attempt.
type RedirectState string

const (
	StateResolving   RedirectState = "resolving"
	StateNotFound    RedirectState = "not_found"
	StateExpired     RedirectState = "expired"
	StateRedirecting RedirectState = "redirecting"
	StateCompleted   RedirectState = "completed"
)

// Terminal reports whether no further transition can happen from s.
func (s RedirectState) Terminal() bool {
	return s == StateNotFound || s == StateExpired || s == StateCompleted
}

const (
	DefaultCountdown = 3
	DefaultTick      = time.Second
)

// Requester describes the client following a short link.
type Requester struct {
	UserAgent string
	Referrer  string
}

// Handoff receives the destination once the countdown reaches zero.
type Handoff interface {
	Navigate(url string)
}

// HandoffFunc adapts a function to Handoff.
type HandoffFunc func(url string)

func (f HandoffFunc) Navigate(url string) {
	f(url)
}

// Ticker is the tick source of the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type RedirectUseCase struct {
	store     recordStore
	log       eventLog
	countdown int
	tick      time.Duration
	newTicker func(time.Duration) Ticker
	ipFunc    func() string
	locFunc   func() string
}

type RedirectOption func(*RedirectUseCase)

// WithCountdown sets the number of ticks before the hand-off.
// Negative values are treated as zero.
func WithCountdown(n int) RedirectOption {
	return func(uc *RedirectUseCase) {
		uc.countdown = max(n, 0)
	}
}

func WithTick(d time.Duration) RedirectOption {
	return func(uc *RedirectUseCase) {
		if d > 0 {
			uc.tick = d
		}
	}
}

// WithTicker replaces the tick source.
func WithTicker(newTicker func(time.Duration) Ticker) RedirectOption {
	return func(uc *RedirectUseCase) {
		uc.newTicker = newTicker
	}
}

// WithClickSimulation replaces the simulated IP and location generators.
func WithClickSimulation(ip, location func() string) RedirectOption {
	return func(uc *RedirectUseCase) {
		uc.ipFunc = ip
		uc.locFunc = location
	}
}

func NewRedirectUseCase(store recordStore, log eventLog, opts ...RedirectOption) *RedirectUseCase {
	uc := &RedirectUseCase{
		store:     store,
		log:       log,
		countdown: DefaultCountdown,
		tick:      DefaultTick,
		newTicker: newTimeTicker,
		ipFunc:    identifier.SimulatedIP,
		locFunc:   identifier.CoarseLocation,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Countdown returns the configured number of ticks before the hand-off.
func (uc *RedirectUseCase) Countdown() int {
	return uc.countdown
}

// NewAttempt creates a redirect attempt for code in the resolving state.
func (uc *RedirectUseCase) NewAttempt(code string, requester Requester) *Attempt {
	return &Attempt{
		uc:        uc,
		code:      code,
		requester: requester,
		state:     StateResolving,
	}
}

// Resolve runs a fresh attempt for code and returns its final state.
func (uc *RedirectUseCase) Resolve(ctx context.Context, code string, requester Requester, handoff Handoff) (RedirectState, error) {
	attempt := uc.NewAttempt(code, requester)
	err := attempt.Run(ctx, handoff)
	return attempt.State(), err
}

// Attempt is one resolution of a short code. It is run at most once.
type Attempt struct {
	uc        *RedirectUseCase
	code      string
	requester Requester

	mu        sync.Mutex
	started   bool
	state     RedirectState
	record    entity.Record
	found     bool
	remaining int
	observers []func(remaining int)
}

func (a *Attempt) State() RedirectState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Record returns the resolved record. ok is false until a record was found.
func (a *Attempt) Record() (rec entity.Record, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record, a.found
}

// Remaining returns the seconds left in the countdown.
func (a *Attempt) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// OnTick registers f to be called with the remaining count whenever the
// countdown starts or advances.
func (a *Attempt) OnTick(f func(remaining int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, f)
}

// Run resolves the short code, records a click and counts down before
// handing the original URL to handoff. It returns entity.ErrURLNotFound or
// entity.ErrURLExpired for terminal failures, and the wrapped context error
// when ctx is done before the countdown finishes.
func (a *Attempt) Run(ctx context.Context, handoff Handoff) error {
	const op = "usecase.Attempt.Run"

	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("%s: %w", op, entity.ErrAttemptStarted)
	}
	a.started = true
	a.mu.Unlock()

	uc := a.uc
	uc.log.Debug(ctx, "resolving short code", "shortCode", a.code)

	if a.code == "" {
		a.setState(StateNotFound)
		uc.log.Warn(ctx, "empty short code")
		return fmt.Errorf("%s: empty short code: %w", op, entity.ErrURLNotFound)
	}

	rec, ok := uc.store.FindActiveRecordByCode(a.code)
	if !ok {
		a.setState(StateNotFound)
		uc.log.Warn(ctx, "short code not found", "shortCode", a.code)
		return fmt.Errorf("%s: %s: %w", op, a.code, entity.ErrURLNotFound)
	}

	if uc.store.IsExpired(rec) {
		a.setRecord(rec)
		a.setState(StateExpired)
		uc.log.Warn(ctx, "short link expired", "shortCode", a.code, "expiresAt", rec.ExpiresAt)
		return fmt.Errorf("%s: %s: %w", op, a.code, entity.ErrURLExpired)
	}

	click := entity.ClickEvent{
		ID:        identifier.NewID(),
		Timestamp: uc.store.Now(),
		UserAgent: a.requester.UserAgent,
		Referrer:  a.requester.Referrer,
		IP:        uc.ipFunc(),
		Location:  uc.locFunc(),
	}
	uc.store.AddClick(ctx, rec.ShortCode, click)
	rec.Clicks = append(rec.Clicks, click)

	a.setRecord(rec)
	a.mu.Lock()
	a.state = StateRedirecting
	a.remaining = uc.countdown
	a.mu.Unlock()

	uc.log.Info(ctx, "click recorded, redirecting", "shortCode", a.code, "countdown", uc.countdown)
	a.notify(uc.countdown)

	if uc.countdown > 0 {
		ticker := uc.newTicker(uc.tick)
		defer ticker.Stop()

		for remaining := uc.countdown; remaining > 0; {
			select {
			case <-ctx.Done():
				uc.log.Warn(ctx, "redirect cancelled", "shortCode", a.code, "remaining", remaining)
				return fmt.Errorf("%s: countdown interrupted: %w", op, ctx.Err())
			case <-ticker.C():
				remaining--
				a.mu.Lock()
				a.remaining = remaining
				a.mu.Unlock()
				a.notify(remaining)
			}
		}
	}

	handoff.Navigate(rec.OriginalURL)
	a.setState(StateCompleted)
	uc.log.Info(ctx, "redirect completed", "shortCode", a.code)

	return nil
}

func (a *Attempt) setState(s RedirectState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *Attempt) setRecord(rec entity.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record = rec
	a.found = true
}

func (a *Attempt) notify(remaining int) {
	a.mu.Lock()
	observers := append([]func(int){}, a.observers...)
	a.mu.Unlock()

	for _, f := range observers {
		f(remaining)
	}
}
