// Package view maps fetched weather data onto dashboard display fields.
// Everything here is a pure function of its arguments.
package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neexbeast/skycast/internal/advisory"
	"github.com/neexbeast/skycast/internal/weather"
)

const (
	iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

	clockLayout    = "15:04"
	localLayout    = "Mon, 02 Jan 15:04"
	cardDateLayout = "Jan 2"

	// noonMarker selects one forecast entry per day.
	noonMarker = "12:00:00"
	cardCount  = 3
)

// Badge is an air-quality label with its severity class.
type Badge struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Class string `json:"class"`
}

// Weather is the display-ready current conditions region.
type Weather struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	Temperature int    `json:"temperature"`
	FeelsLike   int    `json:"feels_like"`
	Condition   string `json:"condition"`
	IconURL     string `json:"icon_url"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
	Pressure    string `json:"pressure"`
	Visibility  string `json:"visibility"`
	Clouds      string `json:"clouds"`
	LocalTime   string `json:"local_time"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`
	AirQuality  Badge  `json:"air_quality"`
}

// ForecastCard is one day of the forecast strip.
type ForecastCard struct {
	Weekday     string `json:"weekday"`
	Date        string `json:"date"`
	Temperature int    `json:"temperature"`
	IconURL     string `json:"icon_url"`
	Condition   string `json:"condition"`
}

var badgeClasses = [...]string{"", "text-success", "text-info", "text-warning", "text-danger", "text-danger fw-bold"}

// AirQualityBadge returns the label and severity class for an AQI ordinal.
func AirQualityBadge(index int) Badge {
	if index < 1 || index >= len(badgeClasses) {
		return Badge{Index: index, Label: advisory.Label(index), Class: "text-secondary"}
	}
	return Badge{Index: index, Label: advisory.Label(index), Class: badgeClasses[index]}
}

// Render builds the current conditions region. now is the device clock; the
// location's wall time is derived from it in UTC so the device zone never leaks in.
func Render(cur *weather.Current, aq *weather.AirQuality, now time.Time) Weather {
	local := LocalTime(now, cur.TimezoneOffset)

	return Weather{
		City:        cur.City,
		Country:     cur.Country,
		Temperature: Round(cur.Temperature),
		FeelsLike:   Round(cur.FeelsLike),
		Condition:   titleCase(cur.Description),
		IconURL:     iconURL(cur.Icon),
		Humidity:    fmt.Sprintf("%d%%", cur.Humidity),
		Wind:        fmt.Sprintf("%.1f m/s", cur.WindSpeed),
		Pressure:    fmt.Sprintf("%d hPa", cur.Pressure),
		Visibility:  Visibility(cur.VisibilityM),
		Clouds:      fmt.Sprintf("%d%%", cur.Clouds),
		LocalTime:   local.Format(localLayout),
		Sunrise:     eventTime(local, cur.Observed, cur.Sunrise).Format(clockLayout),
		Sunset:      eventTime(local, cur.Observed, cur.Sunset).Format(clockLayout),
		AirQuality:  AirQualityBadge(aq.Index()),
	}
}

// LocalTime returns now as wall-clock time at a location offsetSeconds east of UTC.
func LocalTime(now time.Time, offsetSeconds int) time.Time {
	return now.UTC().Add(time.Duration(offsetSeconds) * time.Second)
}

// eventTime shifts the location's wall time by the distance between an
// event epoch and the snapshot epoch.
func eventTime(local time.Time, snapshot, event int64) time.Time {
	return local.Add(time.Duration(event-snapshot) * time.Second)
}

// Visibility converts meters to kilometers with one decimal.
func Visibility(meters int) string {
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

// Round rounds half up, so -2.5 becomes -2 rather than -3.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ForecastCards picks the first three noon entries of the series, in order.
func ForecastCards(f *weather.Forecast) []ForecastCard {
	cards := make([]ForecastCard, 0, cardCount)
	if f == nil {
		return cards
	}

	for _, e := range f.Entries {
		if !strings.Contains(e.TimeText, noonMarker) {
			continue
		}
		at := time.Unix(e.Time, 0).UTC()
		cards = append(cards, ForecastCard{
			Weekday:     at.Weekday().String(),
			Date:        at.Format(cardDateLayout),
			Temperature: Round(e.Temperature),
			IconURL:     iconURL(e.Icon),
			Condition:   titleCase(e.Description),
		})
		if len(cards) == cardCount {
			break
		}
	}

	return cards
}

func iconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, icon)
}

// titleCase builds a fresh Caser per call; a Caser is not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
