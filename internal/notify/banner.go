package notify

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDismissAfter is how long a reported error stays visible.
const DefaultDismissAfter = 6 * time.Second

const alertPrefix = "System Alert: "

// State is a point-in-time view of the banner region.
type State struct {
	Visible bool      `json:"visible"`
	Message string    `json:"message,omitempty"`
	Text    string    `json:"text,omitempty"`
	ShownAt time.Time `json:"shown_at,omitempty"`
}

// Stopper is the part of *time.Timer the banner needs.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Option configures a Banner.
type Option func(*Banner)

// WithDismissAfter overrides the auto-hide delay.
func WithDismissAfter(d time.Duration) Option {
	return func(b *Banner) { b.dismissAfter = d }
}

// WithAfterFunc replaces the timer source (used in tests).
func WithAfterFunc(fn AfterFunc) Option {
	return func(b *Banner) { b.afterFunc = fn }
}

// WithClock replaces the time source used for ShownAt.
func WithClock(now func() time.Time) Option {
	return func(b *Banner) { b.now = now }
}

// Banner is a transient, auto-dismissing error notification region.
// Reports are not queued: a new report replaces the message and restarts the window.
type Banner struct {
	mu           sync.Mutex
	state        State
	generation   uint64
	pending      Stopper
	dismissAfter time.Duration
	afterFunc    AfterFunc
	now          func() time.Time
	log          *slog.Logger
}

// NewBanner constructs a hidden Banner.
func NewBanner(log *slog.Logger, opts ...Option) *Banner {
	b := &Banner{
		dismissAfter: DefaultDismissAfter,
		afterFunc:    realAfterFunc,
		now:          time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Show makes message visible immediately and schedules it to hide.
func (b *Banner) Show(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		b.pending.Stop()
	}

	b.generation++
	gen := b.generation
	b.state = State{
		Visible: true,
		Message: message,
		Text:    alertPrefix + message,
		ShownAt: b.now(),
	}
	b.pending = b.afterFunc(b.dismissAfter, func() { b.hide(gen) })

	b.log.Warn("error reported", "message", message)
}

// hide clears the banner unless a newer report has superseded gen.
func (b *Banner) hide(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	b.state.Visible = false
	b.pending = nil
}

// Snapshot returns the current banner state.
func (b *Banner) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close stops any pending hide timer.
func (b *Banner) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}
