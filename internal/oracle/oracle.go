// Package oracle wraps text-generation backends behind two calls, CompleteText
// and CompleteJSON. Callers treat any returned error as "no answer" and apply
// their own fallback; nothing here panics or retries indefinitely.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/resilience"
)

var (
	ErrNoBackend      = errors.New("oracle: no backend configured")
	ErrEmptyResponse  = errors.New("oracle: empty response")
	ErrInvalidResult  = errors.New("oracle: invalid result")
	errAllUnavailable = errors.New("oracle: all backends failed")
)

// Profile selects a model class per task.
type Profile string

const (
	Detection  Profile = "detection"
	Generation Profile = "generation"
	Extraction Profile = "extraction"
	Decision   Profile = "decision"
)

var Profiles = []Profile{Detection, Generation, Extraction, Decision}

// Request is what a backend receives.
type Request struct {
	Profile     Profile
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Backend is one completion provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Result is a structured response that can check its own shape.
type Result interface {
	Validate() error
}

type entry struct {
	backend Backend
	breaker *resilience.Breaker
}

// Adapter tries backends in order, skipping any whose breaker is open.
type Adapter struct {
	entries   []entry
	timeout   time.Duration
	maxTokens int
	metrics   *observe.Metrics
	logger    *slog.Logger
}

type Option func(*Adapter)

// WithTimeout bounds each call across all backends. Default 20s.
func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.timeout = d } }

// WithMaxTokens sets the completion budget. Default 2048.
func WithMaxTokens(n int) Option { return func(a *Adapter) { a.maxTokens = n } }

func WithMetrics(m *observe.Metrics) Option { return func(a *Adapter) { a.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(a *Adapter) { a.logger = l } }

func New(backends []Backend, opts ...Option) *Adapter {
	a := &Adapter{
		timeout:   20 * time.Second,
		maxTokens: 2048,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		a.entries = append(a.entries, entry{
			backend: b,
			breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "oracle/" + b.Name()}),
		})
	}
	return a
}

// Configured reports whether any backend is available.
func (a *Adapter) Configured() bool {
	return a != nil && len(a.entries) > 0
}

// CompleteText returns trimmed free text.
func (a *Adapter) CompleteText(ctx context.Context, profile Profile, prompt string, temperature float64) (string, error) {
	var out string
	err := a.do(ctx, Request{Profile: profile, Prompt: prompt, Temperature: temperature}, func(raw string) error {
		text := strings.TrimSpace(raw)
		if text == "" {
			return ErrEmptyResponse
		}
		out = text
		return nil
	})
	return out, err
}

// CompleteJSON decodes the response into out and validates it. A response
// that is not a well-formed object of the expected shape is a failure.
func (a *Adapter) CompleteJSON(ctx context.Context, profile Profile, prompt string, temperature float64, out Result) error {
	return a.do(ctx, Request{Profile: profile, Prompt: prompt, Temperature: temperature, JSON: true}, func(raw string) error {
		return DecodeResult(raw, out)
	})
}

func (a *Adapter) do(ctx context.Context, req Request, accept func(raw string) error) error {
	if !a.Configured() {
		return ErrNoBackend
	}
	req.MaxTokens = a.maxTokens

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var errs []error
	for _, e := range a.entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		var raw string
		err := e.breaker.Execute(func() error {
			var callErr error
			raw, callErr = e.backend.Complete(ctx, req)
			return callErr
		})
		if err == nil {
			err = accept(raw)
		}

		status := "ok"
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			status = "circuit_open"
		case errors.Is(err, ErrInvalidResult), errors.Is(err, ErrEmptyResponse):
			status = "invalid"
		case err != nil:
			status = "error"
		}
		a.metrics.RecordOracleRequest(ctx, e.backend.Name(), string(req.Profile), status, time.Since(start))

		if err == nil {
			return nil
		}
		a.logger.Warn("oracle call failed",
			"backend", e.backend.Name(),
			"profile", req.Profile,
			"status", status,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", e.backend.Name(), err))
	}
	return errors.Join(append([]error{errAllUnavailable}, errs...)...)
}
