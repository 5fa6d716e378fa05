package weather_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skycast/internal/weather"
)

// fakeProvider serves the three provider endpoints and counts hits per path.
type fakeProvider struct {
	current  http.HandlerFunc
	forecast http.HandlerFunc
	air      http.HandlerFunc

	currentHits  atomic.Int32
	forecastHits atomic.Int32
	airHits      atomic.Int32
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	return &fakeProvider{
		current:  currentHandler(t),
		forecast: forecastHandler(t),
		air:      airHandler(t, 2),
	}
}

func (p *fakeProvider) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		p.currentHits.Add(1)
		p.current(w, r)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		p.forecastHits.Add(1)
		p.forecast(w, r)
	})
	mux.HandleFunc("/air_pollution", func(w http.ResponseWriter, r *http.Request) {
		p.airHits.Add(1)
		p.air(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func currentHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		writeJSON(w, http.StatusOK, map[string]any{
			"cod":   200,
			"name":  r.URL.Query().Get("q"),
			"coord": map[string]any{"lat": 48.8566, "lon": 2.3522},
			"main": map[string]any{
				"temp":       22.5,
				"feels_like": 21.0,
				"pressure":   1012,
				"humidity":   60,
			},
			"weather":    []map[string]any{{"description": "clear sky", "icon": "01d"}},
			"wind":       map[string]any{"speed": 3.5},
			"clouds":     map[string]any{"all": 5},
			"visibility": 10000,
			"dt":         1714557600,
			"sys":        map[string]any{"country": "FR", "sunrise": 1714537000, "sunset": 1714590000},
			"timezone":   7200,
		})
	}
}

func forecastHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"cod": "200",
			"list": []map[string]any{
				{
					"dt":      1714564800,
					"dt_txt":  "2024-05-01 12:00:00",
					"main":    map[string]any{"temp": 18.4},
					"weather": []map[string]any{{"description": "light rain", "icon": "10d"}},
				},
				{
					"dt":      1714575600,
					"dt_txt":  "2024-05-01 15:00:00",
					"main":    map[string]any{"temp": 19.1},
					"weather": []map[string]any{{"description": "few clouds", "icon": "02d"}},
				},
			},
		})
	}
}

func airHandler(t *testing.T, aqi int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.8566", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.3522", r.URL.Query().Get("lon"))
		writeJSON(w, http.StatusOK, map[string]any{
			"list": []map[string]any{{"dt": 1714557600, "main": map[string]any{"aqi": aqi}}},
		})
	}
}

func TestFetch_Success(t *testing.T) {
	p := newFakeProvider(t)
	srv := p.start(t)

	f := weather.NewFetcher(srv.URL, "test-key")
	report, err := f.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	require.NotNil(t, report)

	require.NotNil(t, report.Current)
	assert.Equal(t, "Paris", report.Current.City)
	assert.Equal(t, "FR", report.Current.Country)
	assert.Equal(t, 22.5, report.Current.Temperature)
	assert.Equal(t, "clear sky", report.Current.Description)
	assert.Equal(t, 10000, report.Current.VisibilityM)
	assert.Equal(t, 7200, report.Current.TimezoneOffset)

	require.NotNil(t, report.Forecast)
	require.Len(t, report.Forecast.Entries, 2)
	assert.Equal(t, "2024-05-01 12:00:00", report.Forecast.Entries[0].TimeText)
	assert.Equal(t, "light rain", report.Forecast.Entries[0].Description)

	require.NotNil(t, report.AirQuality)
	assert.Equal(t, 2, report.AirQuality.Index())

	assert.Equal(t, int32(1), p.currentHits.Load())
	assert.Equal(t, int32(1), p.forecastHits.Load())
	assert.Equal(t, int32(1), p.airHits.Load())
}

func TestFetch_EmbeddedRejection_SkipsDependentCalls(t *testing.T) {
	p := newFakeProvider(t)
	p.current = func(w http.ResponseWriter, r *http.Request) {
		// Transport success, embedded failure.
		writeJSON(w, http.StatusOK, map[string]any{"cod": "404", "message": "city not found"})
	}
	srv := p.start(t)

	f := weather.NewFetcher(srv.URL, "test-key")
	_, err := f.Fetch(context.Background(), "Atlantis")
	require.Error(t, err)

	var upstream *weather.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Code)
	assert.Equal(t, "city not found", upstream.Message)
	assert.False(t, errors.Is(err, weather.ErrUnavailable))

	assert.Equal(t, int32(0), p.forecastHits.Load(), "forecast must not be requested")
	assert.Equal(t, int32(0), p.airHits.Load(), "air quality must not be requested")
}

func TestFetch_RejectionWithoutMessage_UsesNotFound(t *testing.T) {
	p := newFakeProvider(t)
	p.current = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"cod": "404"})
	}
	srv := p.start(t)

	_, err := weather.NewFetcher(srv.URL, "test-key").Fetch(context.Background(), "Nowhere")

	var upstream *weather.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "not found", upstream.Message)
}

func TestFetch_TransportStatusUsedWhenCodeMissing(t *testing.T) {
	p := newFakeProvider(t)
	p.current = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
	}
	srv := p.start(t)

	_, err := weather.NewFetcher(srv.URL, "bad-key").Fetch(context.Background(), "Paris")

	var upstream *weather.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Code)
	assert.Equal(t, "Invalid API key", upstream.Message)
	assert.Equal(t, int32(0), p.forecastHits.Load())
}

func TestFetch_MalformedCurrent_IsUnavailable(t *testing.T) {
	p := newFakeProvider(t)
	p.current = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}
	srv := p.start(t)

	_, err := weather.NewFetcher(srv.URL, "test-key").Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)
	assert.Equal(t, int32(0), p.forecastHits.Load())
}

func TestFetch_ForecastFailure_IsUnavailable(t *testing.T) {
	p := newFakeProvider(t)
	p.forecast = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	srv := p.start(t)

	_, err := weather.NewFetcher(srv.URL, "test-key").Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)

	var upstream *weather.UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func TestFetch_AirQualityMalformed_IsUnavailable(t *testing.T) {
	p := newFakeProvider(t)
	p.air = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}
	srv := p.start(t)

	_, err := weather.NewFetcher(srv.URL, "test-key").Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)
}

func TestFetch_NetworkFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := weather.NewFetcher(url, "test-key").Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)
	assert.NotContains(t, err.Error(), "test-key", "api key must not leak into errors")
}

func TestFetch_ContextTimeout(t *testing.T) {
	p := newFakeProvider(t)
	p.current = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}
	srv := p.start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := weather.NewFetcher(srv.URL, "test-key").Fetch(ctx, "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)
}

// ---- injected clients ----

type stubCurrent struct {
	cur *weather.Current
	err error
}

func (s stubCurrent) Fetch(context.Context, string) (*weather.Current, error) { return s.cur, s.err }

type panickingForecast struct{}

func (panickingForecast) Fetch(context.Context, string) (*weather.Forecast, error) {
	panic("forecast exploded")
}

type stubAir struct{}

func (stubAir) Fetch(context.Context, weather.Coordinates) (*weather.AirQuality, error) {
	return &weather.AirQuality{}, nil
}

func TestFetch_PanicInFanOutBecomesError(t *testing.T) {
	f := weather.NewFetcherWithClients(
		stubCurrent{cur: &weather.Current{City: "Paris"}},
		panickingForecast{},
		stubAir{},
	)

	_, err := f.Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, weather.ErrUnavailable)
	assert.Contains(t, err.Error(), "panicked")
}

func TestAirQuality_IndexWithoutReadings(t *testing.T) {
	var nilAQ *weather.AirQuality
	assert.Equal(t, 0, nilAQ.Index())
	assert.Equal(t, 0, (&weather.AirQuality{}).Index())
}
