package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// currentFetcher is the interface satisfied by CurrentClient.
type currentFetcher interface {
	Fetch(ctx context.Context, city string) (*Current, error)
}

// forecastFetcher is the interface satisfied by ForecastClient.
type forecastFetcher interface {
	Fetch(ctx context.Context, city string) (*Forecast, error)
}

// airQualityFetcher is the interface satisfied by AirQualityClient.
type airQualityFetcher interface {
	Fetch(ctx context.Context, coord Coordinates) (*AirQuality, error)
}

// Fetcher gathers current conditions, forecast and air quality for one search.
type Fetcher struct {
	current  currentFetcher
	forecast forecastFetcher
	air      airQualityFetcher
}

// NewFetcher constructs a Fetcher with production clients rooted at baseURL.
func NewFetcher(baseURL, apiKey string) *Fetcher {
	return &Fetcher{
		current:  NewCurrentClientWithURL(baseURL, apiKey),
		forecast: NewForecastClientWithURL(baseURL, apiKey),
		air:      NewAirQualityClientWithURL(baseURL, apiKey),
	}
}

// NewFetcherWithClients constructs a Fetcher with injectable clients (used in tests).
func NewFetcherWithClients(c currentFetcher, f forecastFetcher, a airQualityFetcher) *Fetcher {
	return &Fetcher{current: c, forecast: f, air: a}
}

// Fetch loads current conditions for city and, only if they succeed, the
// forecast and air quality in parallel. Upstream rejections are returned as
// *UpstreamError; every other failure wraps ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, city string) (*Report, error) {
	cur, err := f.current.Fetch(ctx, city)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			slog.Warn("current conditions rejected", "city", city, "code", upstream.Code, "message", upstream.Message)
			return nil, err
		}
		slog.Warn("current conditions fetch failed", "city", city, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	var forecast *Forecast
	var air *AirQuality

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("forecast fetch panicked", "recover", r)
				err = fmt.Errorf("forecast fetch panicked: %v", r)
			}
		}()
		fc, fetchErr := f.forecast.Fetch(gCtx, city)
		if fetchErr != nil {
			return fetchErr
		}
		forecast = fc
		return nil
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("air quality fetch panicked", "recover", r)
				err = fmt.Errorf("air quality fetch panicked: %v", r)
			}
		}()
		aq, fetchErr := f.air.Fetch(gCtx, cur.Coord)
		if fetchErr != nil {
			return fetchErr
		}
		air = aq
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Warn("forecast or air quality fetch failed", "city", city, "err", err)
		return nil, fmt.Errorf("%w: fetching weather report for %s: %w", ErrUnavailable, city, err)
	}

	return &Report{Current: cur, Forecast: forecast, AirQuality: air}, nil
}
