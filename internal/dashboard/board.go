package dashboard

import (
	"sync"
	"time"

	"github.com/neexbeast/skycast/internal/notify"
	"github.com/neexbeast/skycast/internal/view"
)

// AdvisoryStatus is the lifecycle of the advisory region within a cycle.
type AdvisoryStatus string

const (
	AdvisoryIdle    AdvisoryStatus = "idle"
	AdvisoryLoading AdvisoryStatus = "loading"
	AdvisoryReady   AdvisoryStatus = "ready"
	AdvisoryFailed  AdvisoryStatus = "failed"
)

// Advisory is the advisory display region.
type Advisory struct {
	Status AdvisoryStatus `json:"status"`
	HTML   string         `json:"html,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// Snapshot is every display region at one instant.
type Snapshot struct {
	Cycle     uint64              `json:"cycle"`
	Query     string              `json:"query,omitempty"`
	Weather   *view.Weather       `json:"weather,omitempty"`
	Forecast  []view.ForecastCard `json:"forecast"`
	Advisory  Advisory            `json:"advisory"`
	Banner    notify.State        `json:"banner"`
	UpdatedAt time.Time           `json:"updated_at,omitempty"`
}

// regions is the writable part of the board.
type regions struct {
	query     string
	weather   *view.Weather
	forecast  []view.ForecastCard
	advisory  Advisory
	updatedAt time.Time
}

// Board holds the display regions. Writes are tagged with the cycle that
// produced them and dropped unless that cycle is the latest one begun.
type Board struct {
	mu      sync.RWMutex
	latest  uint64
	cycle   uint64
	regions regions
}

// NewBoard constructs an empty Board.
func NewBoard() *Board {
	return &Board{regions: regions{advisory: Advisory{Status: AdvisoryIdle}}}
}

// Begin records id as issued. Ids can arrive out of order from a shared
// sequence, so only a larger id moves the latest mark.
func (b *Board) Begin(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id > b.latest {
		b.latest = id
	}
	return id == b.latest
}

// Current reports whether id is the latest cycle begun.
func (b *Board) Current(id uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return id == b.latest
}

// commit applies fn for cycle id. It returns false, leaving the regions
// untouched, when id has been superseded.
func (b *Board) commit(id uint64, at time.Time, fn func(r *regions)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id != b.latest {
		return false
	}
	fn(&b.regions)
	b.cycle = id
	b.regions.updatedAt = at
	return true
}

// snapshot copies the regions out under the read lock.
func (b *Board) snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	forecast := make([]view.ForecastCard, len(b.regions.forecast))
	copy(forecast, b.regions.forecast)

	var w *view.Weather
	if b.regions.weather != nil {
		cp := *b.regions.weather
		w = &cp
	}

	return Snapshot{
		Cycle:     b.cycle,
		Query:     b.regions.query,
		Weather:   w,
		Forecast:  forecast,
		Advisory:  b.regions.advisory,
		UpdatedAt: b.regions.updatedAt,
	}
}
