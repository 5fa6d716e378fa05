package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/neexbeast/skycast/internal/advisory"
	"github.com/neexbeast/skycast/internal/notify"
	"github.com/neexbeast/skycast/internal/view"
	"github.com/neexbeast/skycast/internal/weather"
)

// User-facing banner messages.
const (
	EmptyQueryMessage  = "Please enter a city name."
	UnavailableMessage = "Unable to fetch weather data. Please check the city name and try again."
	SupersededMessage  = "A newer search replaced this one."
)

var (
	// ErrEmptyQuery is returned for blank searches; no network call is made.
	ErrEmptyQuery = errors.New("empty location query")
	// ErrSuperseded is returned when a newer search began before this one could render.
	ErrSuperseded = errors.New("search superseded by a newer one")
)

// WeatherFetcher loads the weather report for one search.
type WeatherFetcher interface {
	Fetch(ctx context.Context, city string) (*weather.Report, error)
}

// Advisor produces the advisory region for one search.
type Advisor interface {
	Generate(ctx context.Context, cur *weather.Current, aqi int) advisory.Result
}

// Sequence issues monotonically increasing cycle ids.
type Sequence interface {
	Next(ctx context.Context) (uint64, error)
}

// task is the cancellable advisory request of one cycle.
type task struct {
	cycle  uint64
	cancel context.CancelFunc
}

// Controller runs search cycles against the board.
type Controller struct {
	fetcher WeatherFetcher
	advisor Advisor
	seq     Sequence
	board   *Board
	banner  *notify.Banner
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending *task
	wg      sync.WaitGroup
}

// NewController wires a Controller with an empty board.
func NewController(fetcher WeatherFetcher, advisor Advisor, seq Sequence, banner *notify.Banner, log *slog.Logger) *Controller {
	return &Controller{
		fetcher: fetcher,
		advisor: advisor,
		seq:     seq,
		board:   NewBoard(),
		banner:  banner,
		log:     log,
		now:     time.Now,
	}
}

// Search runs one cycle: validate, fetch, render, then start the advisory in
// the background. The returned snapshot has the advisory region loading.
func (c *Controller) Search(ctx context.Context, query string) (*Snapshot, error) {
	city := strings.TrimSpace(query)
	if city == "" {
		c.banner.Show(EmptyQueryMessage)
		return nil, ErrEmptyQuery
	}

	id, err := c.seq.Next(ctx)
	if err != nil {
		c.banner.Show(UnavailableMessage)
		return nil, fmt.Errorf("issuing cycle id: %w", err)
	}
	log := c.log.With("cycle", id, "city", city)

	if !c.board.Begin(id) {
		log.Info("search began after a newer one")
		return nil, ErrSuperseded
	}
	c.cancelPending()

	report, err := c.fetcher.Fetch(ctx, city)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info("search abandoned by caller", "err", err)
			return nil, fmt.Errorf("search for %s: %w", city, ctx.Err())
		}
		if !c.board.Current(id) {
			log.Info("discarding failure of superseded search", "err", err)
			return nil, ErrSuperseded
		}
		log.Warn("search failed", "err", err)
		c.board.commit(id, c.now(), func(r *regions) {
			*r = regions{query: city, advisory: Advisory{Status: AdvisoryIdle}}
		})
		c.banner.Show(UserMessage(err))
		return nil, err
	}

	w := view.Render(report.Current, report.AirQuality, c.now())
	cards := view.ForecastCards(report.Forecast)

	ok := c.board.commit(id, c.now(), func(r *regions) {
		r.query = city
		r.weather = &w
		r.forecast = cards
		r.advisory = Advisory{Status: AdvisoryLoading}
	})
	if !ok {
		log.Info("discarding render of superseded search")
		return nil, ErrSuperseded
	}
	log.Info("weather rendered", "temperature", w.Temperature, "forecast_days", len(cards))

	c.startAdvisory(ctx, id, report)

	snap := c.Snapshot()
	return &snap, nil
}

// startAdvisory launches the advisory request for cycle id. It is detached
// from the request context and cancelled only when a newer cycle starts.
func (c *Controller) startAdvisory(ctx context.Context, id uint64, report *weather.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.board.Current(id) {
		return
	}
	if c.pending != nil {
		c.pending.cancel()
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.pending = &task{cycle: id, cancel: cancel}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		res := c.generate(taskCtx, id, report)

		region := Advisory{Status: AdvisoryReady, HTML: res.HTML, Text: res.Text}
		if res.Failed() {
			region.Status = AdvisoryFailed
		}

		if !c.board.commit(id, c.now(), func(r *regions) { r.advisory = region }) {
			c.log.Info("discarding advisory of superseded search", "cycle", id)
			return
		}
		c.log.Info("advisory rendered", "cycle", id, "status", region.Status)
	}()
}

// generate calls the advisor, turning a panic into a failed result so the
// region never stays loading.
func (c *Controller) generate(ctx context.Context, id uint64, report *weather.Report) (res advisory.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("advisory task panicked", "cycle", id, "recover", r)
			err := fmt.Errorf("advisory task panicked: %v", r)
			res = advisory.Result{
				HTML: "<p><em>AI Insights currently unavailable.</em></p>",
				Text: "AI Insights currently unavailable.",
				Err:  err,
			}
		}
	}()
	return c.advisor.Generate(ctx, report.Current, report.AirQuality.Index())
}

// cancelPending aborts the advisory of an earlier cycle, if any.
func (c *Controller) cancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.log.Debug("cancelling advisory of previous search", "cycle", c.pending.cycle)
		c.pending.cancel()
		c.pending = nil
	}
}

// Snapshot returns all display regions including the error banner.
func (c *Controller) Snapshot() Snapshot {
	snap := c.board.snapshot()
	snap.Banner = c.banner.Snapshot()
	return snap
}

// Wait blocks until every started advisory task has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the in-flight advisory, waits for it and stops the banner timer.
func (c *Controller) Close() {
	c.cancelPending()
	c.Wait()
	c.banner.Close()
}

// UserMessage turns a search failure into the text shown to the user.
func UserMessage(err error) string {
	var upstream *weather.UpstreamError
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return EmptyQueryMessage
	case errors.Is(err, ErrSuperseded):
		return SupersededMessage
	case errors.As(err, &upstream):
		return capitalize(upstream.Message)
	default:
		return UnavailableMessage
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
