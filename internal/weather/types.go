package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Current holds current conditions for a city in metric units.
type Current struct {
	City           string      `json:"city"`
	Country        string      `json:"country"`
	Coord          Coordinates `json:"coord"`
	Temperature    float64     `json:"temperature"`
	FeelsLike      float64     `json:"feels_like"`
	Description    string      `json:"description"`
	Icon           string      `json:"icon"`
	Humidity       int         `json:"humidity"`
	WindSpeed      float64     `json:"wind_speed"`
	Pressure       int         `json:"pressure"`
	VisibilityM    int         `json:"visibility_m"`
	Clouds         int         `json:"clouds"`
	TimezoneOffset int         `json:"timezone_offset"`
	Observed       int64       `json:"observed"`
	Sunrise        int64       `json:"sunrise"`
	Sunset         int64       `json:"sunset"`
}

// ForecastEntry is one 3-hour step of the forecast series.
type ForecastEntry struct {
	Time        int64   `json:"dt"`
	TimeText    string  `json:"dt_txt"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Forecast is the ordered 5-day / 3-hour series.
type Forecast struct {
	Entries []ForecastEntry `json:"entries"`
}

// AirReading is a single air-pollution sample.
type AirReading struct {
	Index int   `json:"aqi"`
	Time  int64 `json:"dt"`
}

// AirQuality is the air-pollution response for a coordinate pair.
type AirQuality struct {
	Readings []AirReading `json:"readings"`
}

// Index returns the AQI ordinal (1–5) of the first reading, or 0 when there is none.
func (a *AirQuality) Index() int {
	if a == nil || len(a.Readings) == 0 {
		return 0
	}
	return a.Readings[0].Index
}

// Report is everything one search needs from the weather provider.
type Report struct {
	Current    *Current    `json:"current"`
	Forecast   *Forecast   `json:"forecast"`
	AirQuality *AirQuality `json:"air_quality"`
}

// statusCode decodes the provider's embedded "cod", which arrives as a
// number on success and as a string on most failures.
type statusCode int

func (s *statusCode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = statusCode(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("decoding status code %s: %w", b, err)
	}
	if str == "" {
		return nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("parsing status code %q: %w", str, err)
	}
	*s = statusCode(n)
	return nil
}
