package advisory

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/neexbeast/skycast/internal/sanitize"
	"github.com/neexbeast/skycast/internal/weather"
)

// DefaultTimeout bounds a single advisory request.
const DefaultTimeout = 12 * time.Second

// TimeoutMessage is reported when the advisory request outlives its deadline.
const TimeoutMessage = "AI Connection timed out. Please try again."

// completer is the interface satisfied by Client.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one advisory request. HTML is always displayable;
// Err is set when the advisory could not be produced.
type Result struct {
	HTML string
	Text string
	Err  error
}

// Failed reports whether the advisory could not be produced.
func (r Result) Failed() bool { return r.Err != nil }

// Service turns weather conditions into a sanitized advisory fragment.
type Service struct {
	client  completer
	timeout time.Duration
	log     *slog.Logger
}

// NewService constructs a Service with the 12-second request bound.
func NewService(client completer, log *slog.Logger) *Service {
	return &Service{client: client, timeout: DefaultTimeout, log: log}
}

// NewServiceWithTimeout constructs a Service with a custom request bound (used in tests).
func NewServiceWithTimeout(client completer, timeout time.Duration, log *slog.Logger) *Service {
	return &Service{client: client, timeout: timeout, log: log}
}

// Generate requests an advisory for cur and aqi. It always returns; failures
// are rendered as an inline notice in Result.HTML with Result.Err set.
func (s *Service) Generate(ctx context.Context, cur *weather.Current, aqi int) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Complete(ctx, BuildPrompt(cur, aqi))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = TimeoutMessage
			err = &TimeoutError{cause: err}
		}
		s.log.Error("advisory request failed", "city", cur.City, "err", err)
		return Result{HTML: failureFragment(msg), Text: "AI Insights currently unavailable: " + msg, Err: err}
	}

	clean := sanitize.Advisory(raw)
	return Result{HTML: clean, Text: sanitize.PlainText(clean)}
}

// TimeoutError marks an advisory request cut off by its deadline.
type TimeoutError struct {
	cause error
}

func (e *TimeoutError) Error() string { return TimeoutMessage }

func (e *TimeoutError) Unwrap() error { return e.cause }

func failureFragment(msg string) string {
	return `<div class="p-3 bg-danger bg-opacity-25 border border-danger rounded text-white">` +
		`<i class="bi bi-exclamation-triangle-fill text-warning"></i> AI Insights currently unavailable: ` +
		html.EscapeString(msg) +
		`</div>`
}
